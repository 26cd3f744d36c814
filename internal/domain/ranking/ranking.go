// Package ranking orders players and users for display.
package ranking

import (
	"sort"
	"strings"

	"github.com/okian/draftelo/internal/domain/model"
)

// SortByRating sorts players by rating (descending) and name key (ascending)
// so equal ratings keep a stable, deterministic order.
func SortByRating(players []model.Player) {
	sort.SliceStable(players, func(i, j int) bool {
		if players[i].Rating != players[j].Rating {
			return players[i].Rating > players[j].Rating
		}
		return players[i].Key() < players[j].Key()
	})
}

// AssignPositionRanks sets PositionRank on every player: players are grouped
// by position and ranked by descending rating. Tied players share the lowest
// rank of their run and the next rank skips accordingly (1, 1, 3).
// The order of players is preserved.
func AssignPositionRanks(players []model.Player) {
	groups := make(map[string][]int)
	for i := range players {
		pos := strings.TrimSpace(players[i].Position)
		groups[pos] = append(groups[pos], i)
	}

	for _, idx := range groups {
		sort.SliceStable(idx, func(a, b int) bool {
			return players[idx[a]].Rating > players[idx[b]].Rating
		})
		for n, i := range idx {
			if n > 0 && players[i].Rating == players[idx[n-1]].Rating {
				players[i].PositionRank = players[idx[n-1]].PositionRank
				continue
			}
			players[i].PositionRank = n + 1
		}
	}
}

// UserMetric selects the counter a user leaderboard is ordered by.
type UserMetric int

// User leaderboard orderings.
const (
	ByTotalVotes UserMetric = iota
	ByWeeklyVotes
)

func (m UserMetric) value(u model.User) int {
	if m == ByWeeklyVotes {
		return u.WeeklyVotes
	}
	return u.TotalVotes
}

// TopUsers returns up to n users ordered by metric (descending), ties broken
// by username. users is not modified.
func TopUsers(users []model.User, metric UserMetric, n int) []model.User {
	out := append([]model.User(nil), users...)
	sort.SliceStable(out, func(i, j int) bool {
		vi, vj := metric.value(out[i]), metric.value(out[j])
		if vi != vj {
			return vi > vj
		}
		return out[i].Username < out[j].Username
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Recommend picks between a and b by value (higher wins) with rating as the
// tie-break. A player without a value loses to one with a value; "" means
// neither has one.
func Recommend(a, b model.Player, values map[string]float64) string {
	va, okA := values[a.Key()]
	vb, okB := values[b.Key()]
	switch {
	case !okA && !okB:
		return ""
	case okA && !okB:
		return a.Name
	case okB && !okA:
		return b.Name
	case va != vb:
		if va > vb {
			return a.Name
		}
		return b.Name
	case a.Rating >= b.Rating:
		return a.Name
	default:
		return b.Name
	}
}
