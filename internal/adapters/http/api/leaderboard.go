// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
)

// LeaderboardDependencies defines the interface for leaderboard operations
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context) (Leaderboard, error)
}

// LeaderboardHandler handles leaderboard requests
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleGetLeaderboard handles GET /leaderboard requests. It always reads
// the ledger, unlike the per-session leaderboard.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.deps.Leaderboard(r.Context())
	if err != nil {
		writeFailure(w, Wrap("api.get_leaderboard", err))
		return
	}
	writeJSON(w, http.StatusOK, lb)
}
