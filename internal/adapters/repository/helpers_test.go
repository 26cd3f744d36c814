package repository_test

import (
	"context"
	"errors"
	"sync"

	"github.com/okian/draftelo/internal/adapters/repository"
)

var errQuota = errors.New("quota exceeded")

// faultySheet wraps a Sheet, counts calls and fails selected operations.
type faultySheet struct {
	repository.Sheet

	mu          sync.Mutex
	failRecords bool
	failUpdate  bool
	failAppend  bool
	reads       int
	batches     [][]repository.CellUpdate
	appends     [][]string
}

func (f *faultySheet) Records(ctx context.Context) ([]string, [][]string, error) {
	f.mu.Lock()
	f.reads++
	fail := f.failRecords
	f.mu.Unlock()
	if fail {
		return nil, nil, errQuota
	}
	return f.Sheet.Records(ctx)
}

func (f *faultySheet) BatchUpdate(ctx context.Context, updates []repository.CellUpdate) error {
	f.mu.Lock()
	f.batches = append(f.batches, updates)
	fail := f.failUpdate
	f.mu.Unlock()
	if fail {
		return errQuota
	}
	return f.Sheet.BatchUpdate(ctx, updates)
}

func (f *faultySheet) Append(ctx context.Context, row []string) error {
	f.mu.Lock()
	f.appends = append(f.appends, row)
	fail := f.failAppend
	f.mu.Unlock()
	if fail {
		return errQuota
	}
	return f.Sheet.Append(ctx, row)
}
