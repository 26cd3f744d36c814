// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/okian/draftelo/internal/adapters/repository"
	"github.com/okian/draftelo/internal/config"
	"github.com/okian/draftelo/internal/domain/dedupe"
	"github.com/okian/draftelo/internal/domain/rating"
	"github.com/okian/draftelo/internal/domain/selection"
	"github.com/okian/draftelo/internal/domain/types"
	"github.com/okian/draftelo/internal/seed"
	"github.com/okian/draftelo/internal/session"
	"github.com/okian/draftelo/pkg/logger"
	"github.com/okian/draftelo/pkg/metrics"
)

// ErrNotStarted is returned by API methods called before Start.
var ErrNotStarted = errors.New("service not started")

// Service implements the API dependencies for the voting system.
type Service struct {
	mu sync.RWMutex

	// Core components
	backend *repository.Backend
	manager *session.Manager
	deduper dedupe.Deduper

	// Configuration
	cfg         *config.Config
	ownsBackend bool
	seed        int64 // selection seed, 0 means random

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the service configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			c := *cfg
			s.cfg = &c
		}
	}
}

// WithBackend uses an already opened backend instead of opening one from
// the configuration. The caller keeps ownership and closes it.
func WithBackend(b *repository.Backend) Option {
	return func(s *Service) {
		s.backend = b
	}
}

// WithDedupeSize sets the size of the vote idempotency cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.cfg.DedupeSize = size
		}
	}
}

// WithSelectionSeed makes matchup draws reproducible.
func WithSelectionSeed(seed int64) Option {
	return func(s *Service) {
		s.seed = seed
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cfg:    config.New(),
		logger: nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the backend, seeds it when configured and starts the session
// manager.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting voting service...")

	if s.backend == nil {
		b, err := repository.Open(ctx, repository.BackendConfig{
			Driver:          s.cfg.StoreDriver,
			DSN:             s.cfg.StoreDSN,
			SpreadsheetID:   s.cfg.SheetsSpreadsheetID,
			CredentialsFile: s.cfg.SheetsCredentialsFile,
			PlayersSheet:    s.cfg.PlayersSheet,
			UsersSheet:      s.cfg.UsersSheet,
			ValuesSheet:     s.cfg.ValuesSheet,
		},
			repository.WithTimeout(s.cfg.StoreTimeout()),
			repository.WithDefaultRating(s.cfg.DefaultRating),
			repository.WithLocation(s.cfg.Location()),
			repository.WithLogger(s.logger.Named("repository")),
		)
		if err != nil {
			return fmt.Errorf("open %s backend: %w", s.cfg.StoreDriver, err)
		}
		s.backend = b
		s.ownsBackend = true
	}
	s.logger.Info(ctx, "using backend", logger.String("driver", s.backend.Driver))

	if s.cfg.RosterFile != "" && s.backend.Driver == repository.DriverMemory {
		if err := s.seedRoster(ctx); err != nil {
			s.closeBackend()
			return err
		}
	}

	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.cfg.DedupeSize),
	)

	samplerOpts := []selection.Option{
		selection.WithAlpha(s.cfg.SelectionAlpha),
		selection.WithCloseBand(s.cfg.CloseBand),
	}
	if s.seed != 0 {
		samplerOpts = append(samplerOpts, selection.WithSeed(s.seed))
	}
	s.manager = session.NewManager(session.Deps{
		Players:         s.backend.Players,
		Ledger:          s.backend.Ledger,
		Values:          s.backend.Values,
		Engine:          rating.NewEngine(rating.WithKFactor(s.cfg.KFactor)),
		Sampler:         selection.NewSampler(samplerOpts...),
		LeaderboardSize: s.cfg.LeaderboardSize,
	},
		session.WithTTL(s.cfg.SessionTTL()),
		session.WithSweepInterval(s.cfg.SessionSweepInterval()),
		session.WithMaxUsernameLength(s.cfg.MaxUsernameLength),
		session.WithLogger(s.logger.Named("session")),
	)
	s.manager.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "voting service started",
		logger.Float64("kFactor", s.cfg.KFactor),
		logger.Float64("selectionAlpha", s.cfg.SelectionAlpha),
		logger.Int("dedupeSize", s.cfg.DedupeSize),
		logger.Duration("sessionTTL", s.cfg.SessionTTL()),
	)

	return nil
}

func (s *Service) seedRoster(ctx context.Context) error {
	roster, err := seed.Load(s.cfg.RosterFile)
	if err != nil {
		return err
	}
	seeder := seed.New(s.backend,
		seed.WithDefaultRating(s.cfg.DefaultRating),
		seed.WithLogger(s.logger.Named("seed")),
	)
	if _, err := seeder.Apply(ctx, roster); err != nil {
		return fmt.Errorf("seed roster: %w", err)
	}
	return nil
}

func (s *Service) closeBackend() {
	if s.backend == nil || !s.ownsBackend {
		return
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Warn(context.Background(), "closing backend failed", logger.Error(err))
	}
	s.backend = nil
	s.ownsBackend = false
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping voting service...")

	if s.manager != nil {
		_ = s.manager.Stop()
	}
	s.closeBackend()

	s.started = false
	s.logger.Info(context.Background(), "voting service stopped")
}

func (s *Service) sessions() (*session.Manager, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.manager, nil
}

// keys returns the vote key deduper, or nil before Start.
func (s *Service) keys() dedupe.Deduper {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil
	}
	return s.deduper
}

// SeenAndRecord atomically checks if a vote key was seen and records it if not.
// Returns true if the key was already seen, false if it was newly recorded.
// Before Start nothing is recorded; the vote itself then fails with
// ErrNotStarted.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	d := s.keys()
	if d == nil {
		return false
	}
	seen := d.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordVoteFailure("duplicate")
	}
	return seen
}

// Unrecord removes a vote key from the seen list, allowing it to be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	if d := s.keys(); d != nil {
		d.Unrecord(ctx, id)
	}
}

// CreateSession starts a session for username.
func (s *Service) CreateSession(ctx context.Context, username string) (types.SessionView, error) {
	m, err := s.sessions()
	if err != nil {
		return types.SessionView{}, err
	}
	sess, err := m.Create(ctx, username)
	if err != nil {
		return types.SessionView{}, err
	}
	return sess.View(ctx), nil
}

// Session returns the current view of a session.
func (s *Service) Session(ctx context.Context, id string) (types.SessionView, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return types.SessionView{}, err
	}
	return sess.View(ctx), nil
}

// Vote records a choice in a session.
func (s *Service) Vote(ctx context.Context, id, player string) (types.SessionView, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return types.SessionView{}, err
	}
	if _, err := sess.Choose(ctx, player); err != nil {
		return types.SessionView{}, err
	}
	return sess.View(ctx), nil
}

// Next draws the session's next matchup.
func (s *Service) Next(ctx context.Context, id string) (types.SessionView, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return types.SessionView{}, err
	}
	if err := sess.Advance(ctx); err != nil {
		return types.SessionView{}, err
	}
	return sess.View(ctx), nil
}

// Refresh re-reads the stores into the session cache.
func (s *Service) Refresh(ctx context.Context, id string) (types.SessionView, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return types.SessionView{}, err
	}
	if err := sess.Refresh(ctx); err != nil {
		return types.SessionView{}, err
	}
	return sess.View(ctx), nil
}

// SessionLeaderboard returns the leaderboard from the session cache.
func (s *Service) SessionLeaderboard(ctx context.Context, id string) (types.Leaderboard, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return types.Leaderboard{}, err
	}
	return sess.Leaderboard(ctx)
}

// CloseSession ends a session.
func (s *Service) CloseSession(_ context.Context, id string) error {
	m, err := s.sessions()
	if err != nil {
		return err
	}
	return m.Close(id)
}

// Leaderboard reads the ledger directly, bypassing any session cache.
func (s *Service) Leaderboard(ctx context.Context) (types.Leaderboard, error) {
	s.mu.RLock()
	started, backend, size := s.started, s.backend, s.cfg.LeaderboardSize
	s.mu.RUnlock()
	if !started {
		return types.Leaderboard{}, ErrNotStarted
	}
	users, err := backend.Ledger.ReadAll(ctx)
	if err != nil {
		return types.Leaderboard{}, err
	}
	return session.BuildLeaderboard(users, backend.Ledger.Today(), size), nil
}

func (s *Service) lookup(id string) (*session.Session, error) {
	m, err := s.sessions()
	if err != nil {
		return nil, err
	}
	return m.Get(id)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"storeDriver": s.cfg.StoreDriver,
		"kFactor":     s.cfg.KFactor,
		"dedupeSize":  s.cfg.DedupeSize,
	}

	if s.started {
		active := s.manager.Count()
		stats["activeSessions"] = active
		stats["dedupeEntries"] = s.deduper.Size()

		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)
		goroutines := runtime.NumGoroutine()
		stats["goroutines"] = goroutines

		// Update metrics
		metrics.UpdateActiveSessions(active)
		metrics.UpdateSystemMemoryUsage(mem.Alloc)
		metrics.UpdateSystemGoroutineCount(goroutines)
	}

	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	d := s.keys()
	if d == nil {
		return 0
	}
	return d.Size()
}
