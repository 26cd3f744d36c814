// Package types contains the JSON views returned by the HTTP API.
package types

import "github.com/okian/draftelo/internal/domain/model"

// PlayerView is one player card.
type PlayerView struct {
	Name         string  `json:"name"`
	Rating       float64 `json:"rating"`
	Position     string  `json:"position,omitempty"`
	PositionRank int     `json:"position_rank"`
	Team         string  `json:"team,omitempty"`
	ImageURL     string  `json:"image_url,omitempty"`
	Votes        *int    `json:"votes,omitempty"` // nil when the store does not track votes
}

// ResultRow is one player after a vote.
type ResultRow struct {
	PlayerView
	Delta    float64 `json:"delta"` // new minus initial rating
	Selected bool    `json:"selected"`
}

// UserEntry is one leaderboard row.
type UserEntry struct {
	Rank        int    `json:"rank"`
	Username    string `json:"username"`
	TotalVotes  int    `json:"total_votes"`
	WeeklyVotes int    `json:"weekly_votes"`
}

// Leaderboard holds the top users by all-time and weekly votes.
type Leaderboard struct {
	Total  []UserEntry `json:"total"`
	Weekly []UserEntry `json:"weekly"`
}

// SessionView is what a client renders for a session.
type SessionView struct {
	SessionID   string       `json:"session_id"`
	Username    string       `json:"username"`
	State       string       `json:"state"`
	Players     []PlayerView `json:"players"`
	Recommended string       `json:"recommended,omitempty"`
	Result      []ResultRow  `json:"result,omitempty"`
	Leaderboard *Leaderboard `json:"leaderboard,omitempty"`
}

// NewPlayerView converts a player to its card view.
func NewPlayerView(p model.Player) PlayerView {
	v := PlayerView{
		Name:         p.Name,
		Rating:       p.Rating,
		Position:     p.Position,
		PositionRank: p.PositionRank,
		Team:         p.Team,
		ImageURL:     p.ImageURL,
	}
	if p.HasVotes {
		votes := p.Votes
		v.Votes = &votes
	}
	return v
}

// NewUserEntries converts ordered users to leaderboard rows ranked from 1.
func NewUserEntries(users []model.User) []UserEntry {
	out := make([]UserEntry, len(users))
	for i, u := range users {
		out[i] = UserEntry{
			Rank:        i + 1,
			Username:    u.Username,
			TotalVotes:  u.TotalVotes,
			WeeklyVotes: u.WeeklyVotes,
		}
	}
	return out
}
