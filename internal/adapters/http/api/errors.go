package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/draftelo/internal/adapters/repository"
	service "github.com/okian/draftelo/internal/app"
	"github.com/okian/draftelo/internal/domain/selection"
	"github.com/okian/draftelo/internal/session"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrDuplicate  = errors.New("duplicate vote")
)

// opError tags an error with the handler operation that produced it.
type opError struct {
	op   string
	kind error
	err  error
}

func (e *opError) Error() string {
	switch {
	case e.err == nil:
		return fmt.Sprintf("%s: %v", e.op, e.kind)
	case e.kind == nil:
		return fmt.Sprintf("%s: %v", e.op, e.err)
	default:
		return fmt.Sprintf("%s: %v: %v", e.op, e.kind, e.err)
	}
}

func (e *opError) Unwrap() []error {
	var errs []error
	if e.kind != nil {
		errs = append(errs, e.kind)
	}
	if e.err != nil {
		errs = append(errs, e.err)
	}
	return errs
}

// NewKind returns an error of kind for op.
func NewKind(op string, kind error) error {
	return &opError{op: op, kind: kind}
}

// WrapKind wraps err as kind for op.
func WrapKind(op string, kind, err error) error {
	return &opError{op: op, kind: kind, err: err}
}

// Wrap tags err with op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &opError{op: op, err: err}
}

// statusFor maps an error to an HTTP status and a stable error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, session.ErrInvalidUsername):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, session.ErrInvalidChoice):
		return http.StatusBadRequest, "invalid_choice"
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict, "duplicate"
	case errors.Is(err, session.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, repository.ErrRemote),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway, "remote_error"
	case errors.Is(err, selection.ErrNotEnoughPlayers),
		errors.Is(err, selection.ErrNoCandidates),
		errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
