package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/draftelo/internal/domain/types"
	"github.com/okian/draftelo/internal/session"
)

// IdempotencyHeader carries an optional client key that makes a vote
// request safe to retry.
const IdempotencyHeader = "Idempotency-Key"

// SessionDependencies defines the interface for session operations.
type SessionDependencies interface {
	CreateSession(ctx context.Context, username string) (types.SessionView, error)
	Session(ctx context.Context, id string) (types.SessionView, error)
	Vote(ctx context.Context, id, player string) (types.SessionView, error)
	Next(ctx context.Context, id string) (types.SessionView, error)
	Refresh(ctx context.Context, id string) (types.SessionView, error)
	SessionLeaderboard(ctx context.Context, id string) (types.Leaderboard, error)
	CloseSession(ctx context.Context, id string) error
}

type sessionDeps interface {
	SessionDependencies
	SeenAndRecord(ctx context.Context, id string) bool
	Unrecord(ctx context.Context, id string)
}

// SessionsHandler handles the session routes.
type SessionsHandler struct {
	deps sessionDeps
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps Dependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

// HandleCreate handles POST /sessions.
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_session"
	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	view, err := h.deps.CreateSession(r.Context(), req.Username)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	w.Header().Set("Location", "/sessions/"+view.SessionID)
	writeJSON(w, http.StatusCreated, view)
}

// HandleGet handles GET /sessions/{id}.
func (h *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	view, err := h.deps.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, Wrap("api.get_session", err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleVote handles POST /sessions/{id}/votes. A repeated Idempotency-Key
// for the same session is rejected with 409. A failed vote releases its key
// unless the ratings were already written.
func (h *SessionsHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
	const op = "api.vote"
	id := r.PathValue("id")
	var req voteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Player) == "" {
		writeFailure(w, WrapKind(op, ErrBadRequest, errors.New("missing player")))
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	if key != "" {
		key = id + ":" + key
		if h.deps.SeenAndRecord(r.Context(), key) {
			writeFailure(w, NewKind(op, ErrDuplicate))
			return
		}
	}

	view, err := h.deps.Vote(r.Context(), id, req.Player)
	if err != nil {
		if key != "" && !errors.Is(err, session.ErrPartialVote) {
			h.deps.Unrecord(r.Context(), key)
		}
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleNext handles POST /sessions/{id}/next.
func (h *SessionsHandler) HandleNext(w http.ResponseWriter, r *http.Request) {
	view, err := h.deps.Next(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, Wrap("api.next", err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleRefresh handles POST /sessions/{id}/refresh.
func (h *SessionsHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	view, err := h.deps.Refresh(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, Wrap("api.refresh", err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleLeaderboard handles GET /sessions/{id}/leaderboard.
func (h *SessionsHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.deps.SessionLeaderboard(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, Wrap("api.session_leaderboard", err))
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

// HandleDelete handles DELETE /sessions/{id}.
func (h *SessionsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.CloseSession(r.Context(), r.PathValue("id")); err != nil {
		writeFailure(w, Wrap("api.close_session", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
