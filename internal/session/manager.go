package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/okian/draftelo/pkg/logger"
	"github.com/okian/draftelo/pkg/metrics"
)

// Default manager configuration constants.
const (
	defaultTTL               = 30 * time.Minute
	defaultSweepInterval     = time.Minute
	defaultMaxUsernameLength = 15
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithTTL sets how long an idle session survives.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithSweepInterval sets how often idle sessions are removed.
func WithSweepInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.sweepInterval = d
		}
	}
}

// WithMaxUsernameLength caps display names, counted in characters.
func WithMaxUsernameLength(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxUsernameLength = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the manager logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// Manager owns all live sessions and expires idle ones.
type Manager struct {
	deps              Deps
	ttl               time.Duration
	sweepInterval     time.Duration
	maxUsernameLength int
	now               func() time.Time
	log               logger.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewManager creates a manager over the shared collaborators.
func NewManager(deps Deps, opts ...Option) *Manager {
	m := &Manager{
		ttl:               defaultTTL,
		sweepInterval:     defaultSweepInterval,
		maxUsernameLength: defaultMaxUsernameLength,
		now:               time.Now,
		log:               logger.Nop(),
		sessions:          make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	if deps.Logger == nil {
		deps.Logger = m.log
	}
	m.deps = deps.withDefaults()
	return m
}

// ValidateUsername trims name and checks its length.
func (m *Manager) ValidateUsername(name string) (string, error) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n == 0 {
		return "", fmt.Errorf("%w: must not be empty", ErrInvalidUsername)
	}
	if n > m.maxUsernameLength {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidUsername, m.maxUsernameLength)
	}
	return name, nil
}

// Create validates username, starts a session and registers it. A session
// whose start fails is discarded.
func (m *Manager) Create(ctx context.Context, username string) (*Session, error) {
	name, err := m.ValidateUsername(username)
	if err != nil {
		return nil, err
	}

	s := newSession(uuid.NewString(), name, m.deps, m.now)
	if err := s.Start(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID()] = s
	count := len(m.sessions)
	m.mu.Unlock()

	metrics.UpdateActiveSessions(count)
	m.log.Info(ctx, "session created", logger.String("session_id", s.ID()), logger.String("username", name))
	return s, nil
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.touch()
	return s, nil
}

// Close removes a session.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	count := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	metrics.UpdateActiveSessions(count)
	return nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed.
func (m *Manager) Sweep(ctx context.Context) int {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	removed := 0
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	count := len(m.sessions)
	m.mu.Unlock()

	if removed > 0 {
		metrics.RecordSessionsExpired(removed)
		m.log.Info(ctx, "expired idle sessions", logger.Int("removed", removed), logger.Int("active", count))
	}
	metrics.UpdateActiveSessions(count)
	return removed
}

// Start launches the background sweeper.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.stopCh = make(chan struct{})
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.Sweep(ctx)
			}
		}
	}()
}

// Stop halts the sweeper and waits for it to exit.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return ErrManagerNotActive
	}
	m.started = false
	close(m.stopCh)
	m.mu.Unlock()

	m.wg.Wait()
	return nil
}
