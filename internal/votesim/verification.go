package votesim

import (
	"fmt"
	"strings"
)

// verifyResults checks the run counters and every simulated user visible on
// the leaderboard.
func verifyResults(cfg Config, lb leaderboard, stats *Stats) error {
	if stats.VotesFailed > 0 {
		return fmt.Errorf("%d votes failed", stats.VotesFailed)
	}
	if want := cfg.Users * cfg.Rounds; stats.VotesSuccessful != want {
		return fmt.Errorf("recorded %d votes, want %d", stats.VotesSuccessful, want)
	}
	if stats.VotesDuplicate != cfg.Users {
		return fmt.Errorf("%d duplicates rejected, want %d", stats.VotesDuplicate, cfg.Users)
	}

	prefix := strings.ToLower(cfg.Prefix)
	verified := 0
	for _, board := range [][]userEntry{lb.Total, lb.Weekly} {
		for i, e := range board {
			if e.Rank != i+1 {
				return fmt.Errorf("leaderboard rank %d at position %d", e.Rank, i+1)
			}
			if !strings.HasPrefix(e.Username, prefix) {
				continue
			}
			if e.TotalVotes != cfg.Rounds || e.WeeklyVotes != cfg.Rounds {
				return fmt.Errorf("user %s has %d total and %d weekly votes, want %d",
					e.Username, e.TotalVotes, e.WeeklyVotes, cfg.Rounds)
			}
			verified++
		}
	}
	stats.UsersVerified = verified
	return nil
}
