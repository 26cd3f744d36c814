// Package selection draws matchups by weighted random sampling biased
// toward highly rated players.
package selection

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/draftelo/internal/domain/model"
)

// Default sampling parameters.
const (
	DefaultAlpha     = 10.0
	DefaultCloseBand = 50.0
)

var (
	// ErrNoCandidates is returned when sampling from an empty collection.
	ErrNoCandidates = errors.New("no candidates to pick from")
	// ErrNotEnoughPlayers is returned when fewer than two distinct players exist.
	ErrNotEnoughPlayers = errors.New("not enough players for a matchup")
)

// Weights returns the sampling weight of each player: ratings are min-max
// normalized over players, raised to alpha and normalized to sum to 1.
// When every rating is equal all weights are equal.
func Weights(players []model.Player, alpha float64) []float64 {
	if len(players) == 0 {
		return nil
	}
	lo, hi := players[0].Rating, players[0].Rating
	for _, p := range players[1:] {
		lo = math.Min(lo, p.Rating)
		hi = math.Max(hi, p.Rating)
	}

	weights := make([]float64, len(players))
	var sum float64
	for i, p := range players {
		norm := 1.0
		if hi > lo {
			norm = (p.Rating - lo) / (hi - lo)
		}
		weights[i] = math.Pow(norm, alpha)
		sum += weights[i]
	}
	if sum == 0 {
		// Only reachable when alpha underflows every weight; fall back to uniform.
		for i := range weights {
			weights[i] = 1
		}
		sum = float64(len(weights))
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}

// WeightedPick draws one player with probability given by Weights.
// players is never modified.
func WeightedPick(rng *rand.Rand, players []model.Player, alpha float64) (model.Player, error) {
	switch len(players) {
	case 0:
		return model.Player{}, ErrNoCandidates
	case 1:
		return players[0], nil
	}

	weights := Weights(players, alpha)
	r := rng.Float64()
	var acc float64
	for i, w := range weights {
		acc += w
		if r < acc {
			return players[i], nil
		}
	}
	// Floating point accumulation can leave acc slightly below 1.
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return players[i], nil
		}
	}
	return players[len(players)-1], nil
}

// CloseRatingCandidates returns the players rated strictly within band of pivot.
func CloseRatingCandidates(players []model.Player, pivot, band float64) []model.Player {
	var out []model.Player
	for _, p := range players {
		if p.Rating > pivot-band && p.Rating < pivot+band {
			out = append(out, p)
		}
	}
	return out
}

func excluding(players []model.Player, key string) []model.Player {
	out := make([]model.Player, 0, len(players))
	for _, p := range players {
		if p.Key() != key {
			out = append(out, p)
		}
	}
	return out
}

// Option applies a configuration option to the Sampler.
type Option func(*Sampler)

// WithAlpha sets the weighting exponent. Non-positive values are ignored.
func WithAlpha(alpha float64) Option {
	return func(s *Sampler) {
		if alpha > 0 {
			s.alpha = alpha
		}
	}
}

// WithCloseBand sets the opponent rating window half-width. Non-positive
// values are ignored.
func WithCloseBand(band float64) Option {
	return func(s *Sampler) {
		if band > 0 {
			s.band = band
		}
	}
}

// WithSeed makes the sampler deterministic.
func WithSeed(seed int64) Option {
	return func(s *Sampler) {
		s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // sampling, not security
	}
}

// Sampler draws matchups. It is safe for concurrent use.
type Sampler struct {
	mu    sync.Mutex
	rng   *rand.Rand
	alpha float64
	band  float64
}

// NewSampler creates a sampler seeded from the clock unless WithSeed is given.
func NewSampler(opts ...Option) *Sampler {
	s := &Sampler{
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // sampling, not security
		alpha: DefaultAlpha,
		band:  DefaultCloseBand,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pick draws one player from players.
func (s *Sampler) Pick(players []model.Player) (model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return WeightedPick(s.rng, players, s.alpha)
}

// DrawMatchup draws A from all players and B from the players rated close
// to A, falling back to every other player when none is close. A and B are
// always distinct.
func (s *Sampler) DrawMatchup(players []model.Player) (model.Player, model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := WeightedPick(s.rng, players, s.alpha)
	if err != nil {
		return model.Player{}, model.Player{}, ErrNotEnoughPlayers
	}
	others := excluding(players, a.Key())
	if len(others) == 0 {
		return model.Player{}, model.Player{}, ErrNotEnoughPlayers
	}

	candidates := CloseRatingCandidates(others, a.Rating, s.band)
	if len(candidates) == 0 {
		candidates = others
	}
	b, err := WeightedPick(s.rng, candidates, s.alpha)
	if err != nil {
		return model.Player{}, model.Player{}, err
	}
	return a, b, nil
}
