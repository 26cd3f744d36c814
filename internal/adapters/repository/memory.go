package repository

import (
	"context"
	"fmt"
	"sync"
)

// MemorySheet is an in-process Sheet used by the memory driver and tests.
type MemorySheet struct {
	mu     sync.RWMutex
	name   string
	header []string
	rows   [][]string
}

// NewMemorySheet creates a sheet with an optional header and rows.
func NewMemorySheet(name string, header []string, rows ...[]string) *MemorySheet {
	s := &MemorySheet{name: name, header: append([]string(nil), header...)}
	for _, r := range rows {
		s.rows = append(s.rows, append([]string(nil), r...))
	}
	return s
}

func (s *MemorySheet) Name() string { return s.name }

func (s *MemorySheet) Records(ctx context.Context) ([]string, [][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	header := append([]string(nil), s.header...)
	rows := make([][]string, len(s.rows))
	for i, r := range s.rows {
		rows[i] = pad(append([]string(nil), r...), len(header))
	}
	return header, rows, nil
}

func (s *MemorySheet) BatchUpdate(ctx context.Context, updates []CellUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate first so a bad update leaves the sheet untouched.
	cols := make([]int, len(updates))
	for i, u := range updates {
		if u.Row < 0 || u.Row >= len(s.rows) {
			return fmt.Errorf("sheet %s: row %d out of range", s.name, u.Row)
		}
		cols[i] = columnIndex(s.header, u.Column)
		if cols[i] < 0 {
			return fmt.Errorf("sheet %s: unknown column %q", s.name, u.Column)
		}
	}
	for i, u := range updates {
		s.rows[u.Row] = pad(s.rows[u.Row], len(s.header))
		s.rows[u.Row][cols[i]] = u.Value
	}
	return nil
}

func (s *MemorySheet) Append(ctx context.Context, row []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, append([]string(nil), row...))
	return nil
}

func (s *MemorySheet) EnsureHeader(ctx context.Context, header []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.header) == 0 {
		s.header = append([]string(nil), header...)
	}
	return nil
}
