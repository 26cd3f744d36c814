package votesim

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/draftelo/pkg/logger"
)

// Worker configuration constants.
const (
	workerChannelMultiplier = 2
	percentageMultiplier    = 100
	maxPrefixLength         = 8
)

// counters are shared by the workers.
type counters struct {
	sessions, submitted, successful, duplicate, failed atomic.Int64
}

// Run executes a complete simulation: every user opens a session, votes
// Rounds times and closes it. Each user's first vote is resent with the same
// idempotency key and must be rejected as a duplicate.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	if cfg.Users < 1 || cfg.Rounds < 1 {
		return nil, errors.New("users and rounds must be positive")
	}
	if cfg.Workers < 1 {
		cfg.Workers = runtime.NumCPU() * 2
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "sim" + strings.ReplaceAll(uuid.NewString(), "-", "")[:4]
	}
	if len(cfg.Prefix) > maxPrefixLength {
		cfg.Prefix = cfg.Prefix[:maxPrefixLength]
	}

	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("votesim")
	log.Info(ctx, "starting vote simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("users", cfg.Users),
		logger.Int("rounds", cfg.Rounds),
		logger.Int("workers", cfg.Workers),
		logger.String("prefix", cfg.Prefix))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if _, err := client.do(ctx, "GET", "/healthz", nil, nil, nil); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Run users concurrently
	var c counters
	users := make(chan string, cfg.Workers*workerChannelMultiplier)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for username := range users {
				if err := runUser(ctx, client, username, cfg.Rounds, &c); err != nil {
					log.Warn(ctx, "simulated user failed", logger.String("username", username), logger.Error(err))
				} else if cfg.Verbose {
					log.Debug(ctx, "simulated user done", logger.String("username", username))
				}
			}
		}()
	}

	names := make([]string, cfg.Users)
	for i := range names {
		names[i] = fmt.Sprintf("%s%d", cfg.Prefix, i)
	}
	go func() {
		defer close(users)
		for i := range names {
			select {
			case <-ctx.Done():
				return
			case users <- names[i]:
			}
		}
	}()
	wg.Wait()

	stats.SessionsCreated = int(c.sessions.Load())
	stats.VotesSubmitted = int(c.submitted.Load())
	stats.VotesSuccessful = int(c.successful.Load())
	stats.VotesDuplicate = int(c.duplicate.Load())
	stats.VotesFailed = int(c.failed.Load())

	// Step 3: Verify the ledger
	var lb leaderboard
	if _, err := client.do(ctx, "GET", "/leaderboard", nil, nil, &lb); err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	if err := verifyResults(cfg, lb, stats); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

// runUser plays one full session.
func runUser(ctx context.Context, client *httpClient, username string, rounds int, c *counters) error {
	var view sessionView
	if _, err := client.do(ctx, "POST", "/sessions", map[string]string{"username": username}, nil, &view); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	c.sessions.Add(1)
	base := "/sessions/" + view.SessionID

	for round := 0; round < rounds; round++ {
		if len(view.Players) < 2 {
			return fmt.Errorf("matchup has %d players", len(view.Players))
		}
		choice := view.Players[round%2].Name
		if view.Recommended != "" {
			choice = view.Recommended
		}
		key := map[string]string{"Idempotency-Key": uuid.NewString()}
		body := map[string]string{"player": choice}

		c.submitted.Add(1)
		if _, err := client.do(ctx, "POST", base+"/votes", body, key, nil); err != nil {
			c.failed.Add(1)
			return fmt.Errorf("vote round %d: %w", round, err)
		}
		c.successful.Add(1)

		if round == 0 {
			c.submitted.Add(1)
			status, _ := client.do(ctx, "POST", base+"/votes", body, key, nil)
			if status != statusConflict {
				c.failed.Add(1)
				return fmt.Errorf("resent vote answered %d, want %d", status, statusConflict)
			}
			c.duplicate.Add(1)
		}

		if _, err := client.do(ctx, "POST", base+"/next", nil, nil, &view); err != nil {
			return fmt.Errorf("next round %d: %w", round, err)
		}
	}

	if _, err := client.do(ctx, "DELETE", base, nil, nil, nil); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var successRate, votesPerSecond float64
	if stats.VotesSubmitted > 0 {
		successRate = float64(stats.VotesSuccessful) / float64(stats.VotesSubmitted) * percentageMultiplier
	}
	if stats.Duration > 0 {
		votesPerSecond = float64(stats.VotesSuccessful) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("sessionsCreated", stats.SessionsCreated),
		logger.Int("votesSubmitted", stats.VotesSubmitted),
		logger.Int("votesSuccessful", stats.VotesSuccessful),
		logger.Int("votesDuplicate", stats.VotesDuplicate),
		logger.Int("votesFailed", stats.VotesFailed),
		logger.Int("usersVerified", stats.UsersVerified),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("votesPerSecond", votesPerSecond))
}
