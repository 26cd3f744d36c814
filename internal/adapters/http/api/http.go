// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/draftelo/internal/domain/dedupe"
	"github.com/okian/draftelo/internal/domain/types"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 16

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper
	SessionDependencies
	LeaderboardDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	sessionsHandler    *SessionsHandler
	leaderboardHandler *LeaderboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		sessionsHandler:    NewSessionsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))

	h := s.sessionsHandler
	mux.HandleFunc("POST /sessions", MetricsMiddleware(h.HandleCreate, "sessions"))
	mux.HandleFunc("GET /sessions/{id}", MetricsMiddleware(h.HandleGet, "session"))
	mux.HandleFunc("DELETE /sessions/{id}", MetricsMiddleware(h.HandleDelete, "session"))
	mux.HandleFunc("POST /sessions/{id}/votes", MetricsMiddleware(h.HandleVote, "votes"))
	mux.HandleFunc("POST /sessions/{id}/next", MetricsMiddleware(h.HandleNext, "next"))
	mux.HandleFunc("POST /sessions/{id}/refresh", MetricsMiddleware(h.HandleRefresh, "refresh"))
	mux.HandleFunc("GET /sessions/{id}/leaderboard", MetricsMiddleware(h.HandleLeaderboard, "session_leaderboard"))
}

// createSessionRequest mirrors the OpenAPI schema for POST /sessions.
type createSessionRequest struct {
	Username string `json:"username"`
}

// voteRequest mirrors the OpenAPI schema for POST /sessions/{id}/votes.
type voteRequest struct {
	Player string `json:"player"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Leaderboard is the response of both leaderboard routes.
type Leaderboard = types.Leaderboard

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure writes err with the status its kind maps to.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}
