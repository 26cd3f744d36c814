package repository

import (
	"errors"
	"fmt"
)

// Sentinel kinds for store errors.
var (
	// ErrNotFound means the referenced player or user row does not exist.
	ErrNotFound = errors.New("row not found")
	// ErrRemote wraps transport, quota and backend failures.
	ErrRemote = errors.New("remote store failure")
	// ErrDataShape means a required column is missing or a cell is unparseable.
	ErrDataShape = errors.New("unexpected data shape")
	// ErrInvalidArgument means the caller passed an unusable key.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnknownDriver means the configured backend is not supported.
	ErrUnknownDriver = errors.New("unknown store driver")
)

func notFound(kind, name string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, kind, name)
}

func remote(op string, err error) error {
	if errors.Is(err, ErrRemote) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrRemote, op, err)
}
