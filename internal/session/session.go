package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/draftelo/internal/domain/model"
	"github.com/okian/draftelo/internal/domain/ranking"
	"github.com/okian/draftelo/internal/domain/rating"
	"github.com/okian/draftelo/internal/domain/selection"
	"github.com/okian/draftelo/internal/domain/types"
	"github.com/okian/draftelo/pkg/logger"
	"github.com/okian/draftelo/pkg/metrics"
)

// State is the matchup lifecycle state.
type State int

// Matchup states.
const (
	AwaitingChoice State = iota
	Processing
	Resolved
)

func (s State) String() string {
	switch s {
	case AwaitingChoice:
		return "awaiting_choice"
	case Processing:
		return "processing"
	case Resolved:
		return "resolved"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Deps are the collaborators shared by all sessions.
type Deps struct {
	Players         PlayerStore
	Ledger          UserLedger
	Values          ValueTable // optional
	Engine          *rating.Engine
	Sampler         *selection.Sampler
	LeaderboardSize int
	Logger          logger.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Engine == nil {
		d.Engine = rating.NewEngine()
	}
	if d.Sampler == nil {
		d.Sampler = selection.NewSampler()
	}
	if d.LeaderboardSize <= 0 {
		d.LeaderboardSize = 5
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	return d
}

// Session is one user's vote lifecycle. Operations on one session are
// serialized by its state: a second Choose or Advance while one is in
// flight is rejected with ErrInvalidState.
type Session struct {
	id       string
	username string
	deps     Deps
	cache    *Cache
	log      logger.Logger
	now      func() time.Time

	mu         sync.Mutex
	state      State
	matchup    model.Matchup
	selected   string             // chosen player name while Resolved
	updated    map[string]float64 // new ratings by key while Resolved
	lastActive time.Time
}

func newSession(id, username string, deps Deps, now func() time.Time) *Session {
	deps = deps.withDefaults()
	return &Session{
		id:         id,
		username:   username,
		deps:       deps,
		cache:      NewCache(deps.Players, deps.Ledger, deps.Values),
		log:        deps.Logger.With(logger.String("session_id", id)),
		now:        now,
		lastActive: now(),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Username returns the display name the session was created with.
func (s *Session) Username() string { return s.username }

// Cache exposes the session cache.
func (s *Session) Cache() *Cache { return s.cache }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Matchup returns the active matchup.
func (s *Session) Matchup() model.Matchup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matchup
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = s.now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Start registers the user in the ledger without counting a vote and draws
// the first matchup.
func (s *Session) Start(ctx context.Context) error {
	if err := s.deps.Ledger.RecordTouch(ctx, s.username, false); err != nil {
		return fmt.Errorf("track user: %w", err)
	}
	m, err := s.draw(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.matchup = m
	s.state = AwaitingChoice
	s.mu.Unlock()
	return nil
}

// draw builds a fresh matchup from the cache.
func (s *Session) draw(ctx context.Context) (model.Matchup, error) {
	players, err := s.cache.Players(ctx)
	if err != nil {
		return model.Matchup{}, err
	}
	a, b, err := s.deps.Sampler.DrawMatchup(players)
	if err != nil {
		return model.Matchup{}, err
	}
	m := model.NewMatchup(a, b)

	values, err := s.cache.Values(ctx)
	if err != nil {
		s.log.Warn(ctx, "value table unavailable", logger.Error(err))
	} else {
		m.Recommended = ranking.Recommend(a, b, values)
	}
	metrics.RecordMatchupDrawn()
	s.log.Debug(ctx, "matchup drawn", logger.String("a", a.Name), logger.String("b", b.Name))
	return m, nil
}

// Choose casts a vote for name, which must be one of the matchup's players.
// On any store failure the session returns to AwaitingChoice with the
// original ratings and the error is returned.
func (s *Session) Choose(ctx context.Context, name string) (model.VoteOutcome, error) {
	s.mu.Lock()
	if s.state != AwaitingChoice {
		st := s.state
		s.mu.Unlock()
		metrics.RecordVoteFailure("invalid_state")
		return model.VoteOutcome{}, fmt.Errorf("%w: choose in %s", ErrInvalidState, st)
	}
	chosen, other, ok := s.matchup.Resolve(name)
	if !ok {
		s.mu.Unlock()
		metrics.RecordVoteFailure("invalid_choice")
		return model.VoteOutcome{}, fmt.Errorf("%w: %q", ErrInvalidChoice, name)
	}
	s.state = Processing
	s.lastActive = s.now()
	m := s.matchup
	s.mu.Unlock()

	initialW, initialL := m.Initial[chosen.Key()], m.Initial[other.Key()]
	newW, newL := s.deps.Engine.Update(initialW, initialL)
	out := model.VoteOutcome{
		Winner:       chosen.Name,
		Loser:        other.Name,
		WinnerRating: newW,
		LoserRating:  newL,
		WinnerDelta:  newW - initialW,
		LoserDelta:   newL - initialL,
	}

	err := s.deps.Players.ApplyVote(ctx,
		map[string]float64{chosen.Name: newW, other.Name: newL},
		[]string{chosen.Name, other.Name})
	if err != nil {
		s.rollback(ctx, "players", err)
		return model.VoteOutcome{}, fmt.Errorf("record vote: %w", err)
	}
	if err := s.deps.Ledger.RecordTouch(ctx, s.username, true); err != nil {
		// Ratings are already written; the snapshot no longer matches the store.
		s.cache.Invalidate()
		s.rollback(ctx, "ledger", err)
		return model.VoteOutcome{}, fmt.Errorf("record participation: %w: %w", ErrPartialVote, err)
	}

	s.cache.ApplyVote(out, s.username, s.deps.Ledger.Today())

	s.mu.Lock()
	s.state = Resolved
	s.selected = chosen.Name
	s.updated = map[string]float64{chosen.Key(): newW, other.Key(): newL}
	s.mu.Unlock()

	metrics.RecordVoteCast(out.WinnerDelta)
	s.log.Info(ctx, "vote cast",
		logger.String("winner", out.Winner), logger.Float64("winner_rating", newW),
		logger.String("loser", out.Loser), logger.Float64("loser_rating", newL))
	return out, nil
}

func (s *Session) rollback(ctx context.Context, store string, err error) {
	s.mu.Lock()
	s.state = AwaitingChoice
	s.mu.Unlock()

	reason := store + "_remote"
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		reason = store + "_timeout"
	}
	metrics.RecordVoteFailure(reason)
	s.log.Warn(ctx, "vote not recorded", logger.String("store", store), logger.Error(err))
}

// Advance replaces the resolved matchup with a new one.
func (s *Session) Advance(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Resolved {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: advance in %s", ErrInvalidState, st)
	}
	s.state = Processing
	s.lastActive = s.now()
	s.mu.Unlock()

	m, err := s.draw(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = Resolved
		return fmt.Errorf("draw matchup: %w", err)
	}
	s.matchup = m
	s.selected = ""
	s.updated = nil
	s.state = AwaitingChoice
	return nil
}

// Refresh forces the cache to re-read the stores. The active matchup and
// its initial ratings are unaffected.
func (s *Session) Refresh(ctx context.Context) error {
	s.touch()
	return s.cache.Refresh(ctx)
}

// Leaderboard returns the top users by total and weekly votes. Weekly
// counts from before the current week are shown as 0.
func (s *Session) Leaderboard(ctx context.Context) (types.Leaderboard, error) {
	s.touch()
	users, err := s.cache.Users(ctx)
	if err != nil {
		return types.Leaderboard{}, err
	}
	return BuildLeaderboard(users, s.deps.Ledger.Today(), s.deps.LeaderboardSize), nil
}

// BuildLeaderboard ranks users as of today.
func BuildLeaderboard(users []model.User, today time.Time, n int) types.Leaderboard {
	current := make([]model.User, len(users))
	for i, u := range users {
		if model.WeeklyResetDue(u.LastVoted, today) {
			u.WeeklyVotes = 0
		}
		current[i] = u
	}
	return types.Leaderboard{
		Total:  types.NewUserEntries(ranking.TopUsers(current, ranking.ByTotalVotes, n)),
		Weekly: types.NewUserEntries(ranking.TopUsers(current, ranking.ByWeeklyVotes, n)),
	}
}

// View renders the session. A resolved session includes the vote result
// and, when the ledger is reachable, the leaderboard.
func (s *Session) View(ctx context.Context) types.SessionView {
	s.mu.Lock()
	state, m, selected := s.state, s.matchup, s.selected
	updated := make(map[string]float64, len(s.updated))
	for k, v := range s.updated {
		updated[k] = v
	}
	s.mu.Unlock()

	view := types.SessionView{
		SessionID:   s.id,
		Username:    s.username,
		State:       state.String(),
		Players:     []types.PlayerView{types.NewPlayerView(m.A), types.NewPlayerView(m.B)},
		Recommended: m.Recommended,
	}
	if state != Resolved {
		return view
	}

	for _, p := range []model.Player{m.A, m.B} {
		if current, ok := s.cache.Player(p.Name); ok {
			p = current
		}
		r, ok := updated[p.Key()]
		if !ok {
			r = m.Initial[p.Key()]
		}
		row := types.ResultRow{
			PlayerView: types.NewPlayerView(p),
			Delta:      r - m.Initial[p.Key()],
			Selected:   p.Key() == model.Key(selected),
		}
		row.Rating = r
		view.Result = append(view.Result, row)
	}
	sort.SliceStable(view.Result, func(i, j int) bool {
		return view.Result[i].Rating > view.Result[j].Rating
	})

	lb, err := s.Leaderboard(ctx)
	if err != nil {
		s.log.Warn(ctx, "leaderboard unavailable", logger.Error(err))
		return view
	}
	view.Leaderboard = &lb
	return view
}
