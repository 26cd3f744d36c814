// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// DefaultRating replaces missing or unparseable ratings.
const DefaultRating = 1500.0

// Key normalizes a player name or username for case-insensitive lookups.
func Key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Player is one rated item as read from the rating store.
type Player struct {
	Name         string  // display name, unique case-insensitively
	Rating       float64 // always finite
	Votes        int     // number of votes the player appeared in as winner or loser
	HasVotes     bool    // false when the store does not track votes
	PositionRank int     // rank within Position, descending rating, min method
	Position     string  // category, e.g. "WR"
	Team         string
	ImageURL     string
}

// Key returns the normalized lookup key of the player.
func (p Player) Key() string { return Key(p.Name) }

// User is one participation ledger record.
type User struct {
	Username    string    // lower-cased
	TotalVotes  int       // all-time votes
	WeeklyVotes int       // votes since the weekly reset
	LastVoted   time.Time // calendar date in the ledger's timezone
}

// Matchup is one pairwise comparison. Initial is captured once when the
// matchup is drawn and never modified afterwards.
type Matchup struct {
	A, B        Player
	Initial     map[string]float64 // keyed by Key(name)
	Recommended string             // name of the recommended pick, empty when unavailable
}

// NewMatchup snapshots the current ratings of a and b.
func NewMatchup(a, b Player) Matchup {
	return Matchup{
		A: a,
		B: b,
		Initial: map[string]float64{
			a.Key(): a.Rating,
			b.Key(): b.Rating,
		},
	}
}

// Resolve returns the matchup's player matching name and the other one.
func (m Matchup) Resolve(name string) (chosen, other Player, ok bool) {
	switch Key(name) {
	case m.A.Key():
		return m.A, m.B, true
	case m.B.Key():
		return m.B, m.A, true
	default:
		return Player{}, Player{}, false
	}
}

// VoteOutcome is the transient result of one processed vote.
type VoteOutcome struct {
	Winner, Loser string
	WinnerRating  float64
	LoserRating   float64
	WinnerDelta   float64 // new minus initial
	LoserDelta    float64
}

// WeeklyResetDue reports whether a weekly counter last bumped on lastVoted
// must be cleared on today: lastVoted falls before the Monday that starts
// today's week. A zero lastVoted always resets.
func WeeklyResetDue(lastVoted, today time.Time) bool {
	if lastVoted.IsZero() {
		return true
	}
	offset := (int(today.Weekday()) + 6) % 7 // days since Monday
	monday := time.Date(today.Year(), today.Month(), today.Day()-offset, 0, 0, 0, 0, today.Location())
	last := time.Date(lastVoted.Year(), lastVoted.Month(), lastVoted.Day(), 0, 0, 0, 0, today.Location())
	return last.Before(monday)
}
