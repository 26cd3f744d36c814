// Package session implements the per-user vote lifecycle: a session-scoped
// cache of the stores, the matchup state machine and the session registry.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/okian/draftelo/internal/domain/model"
)

// Errors returned by sessions and the manager.
var (
	ErrInvalidChoice    = errors.New("choice is not part of the matchup")
	ErrInvalidState     = errors.New("operation not allowed in current state")
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidUsername  = errors.New("invalid username")
	ErrManagerNotActive = errors.New("session manager not started")

	// ErrPartialVote marks a vote whose ratings and vote counts were written
	// but whose participation was not. Retrying it would count the vote twice.
	ErrPartialVote = errors.New("vote written without participation")
)

// PlayerStore is the rating store.
type PlayerStore interface {
	ReadAll(ctx context.Context) ([]model.Player, error)
	ApplyVote(ctx context.Context, ratings map[string]float64, increments []string) error
}

// UserLedger is the participation ledger.
type UserLedger interface {
	ReadAll(ctx context.Context) ([]model.User, error)
	RecordTouch(ctx context.Context, username string, countsAsVote bool) error
	Today() time.Time
}

// ValueTable is the read-only value table.
type ValueTable interface {
	ReadAll(ctx context.Context) (map[string]float64, error)
}
