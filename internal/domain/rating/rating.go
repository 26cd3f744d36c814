// Package rating implements the pairwise logistic (Elo) rating update.
package rating

import "math"

// DefaultKFactor is the canonical rating sensitivity constant.
const DefaultKFactor = 24.0

// eloScale is the rating difference at which the favourite is expected to
// win ten times as often as the underdog.
const eloScale = 400.0

// Expected returns the probability that a player rated r beats one rated opp.
func Expected(r, opp float64) float64 {
	return 1 / (1 + math.Pow(10, (opp-r)/eloScale))
}

// Update returns the new ratings of the winner and the loser after one
// comparison, rounded to the nearest integer.
func Update(winner, loser, k float64) (newWinner, newLoser float64) {
	expectedWinner := Expected(winner, loser)
	expectedLoser := Expected(loser, winner)
	newWinner = winner + k*(1-expectedWinner)
	newLoser = loser + k*(0-expectedLoser)
	return math.Round(newWinner), math.Round(newLoser)
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithKFactor sets the sensitivity constant. Non-positive values are ignored.
func WithKFactor(k float64) Option {
	return func(e *Engine) {
		if k > 0 && !math.IsInf(k, 0) {
			e.k = k
		}
	}
}

// Engine applies Update with a configured K-factor.
type Engine struct {
	k float64
}

// NewEngine creates an engine with DefaultKFactor unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{k: DefaultKFactor}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// KFactor returns the configured sensitivity constant.
func (e *Engine) KFactor() float64 { return e.k }

// Update applies the rating update with the engine's K-factor.
func (e *Engine) Update(winner, loser float64) (newWinner, newLoser float64) {
	return Update(winner, loser, e.k)
}
