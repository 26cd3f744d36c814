// Package votesim drives a running server through complete voting sessions
// over HTTP and checks the resulting leaderboard.
package votesim

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL string        // Base URL of the service
	Users   int           // Number of simulated users, one session each
	Rounds  int           // Votes cast per user
	Workers int           // Number of concurrent workers
	Timeout time.Duration // HTTP request timeout
	Prefix  string        // Username prefix; a random one is used when empty
	Verbose bool          // Enable verbose logging
}

// Stats holds run statistics.
type Stats struct {
	SessionsCreated int
	VotesSubmitted  int
	VotesSuccessful int
	VotesDuplicate  int
	VotesFailed     int
	UsersVerified   int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}

// sessionView is the subset of the session response the simulator reads.
type sessionView struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
	Players   []struct {
		Name string `json:"name"`
	} `json:"players"`
	Recommended string `json:"recommended"`
}

// userEntry is one leaderboard row.
type userEntry struct {
	Rank        int    `json:"rank"`
	Username    string `json:"username"`
	TotalVotes  int    `json:"total_votes"`
	WeeklyVotes int    `json:"weekly_votes"`
}

type leaderboard struct {
	Total  []userEntry `json:"total"`
	Weekly []userEntry `json:"weekly"`
}
