// Package repository persists players, the participation ledger and the
// value table on a tabular backend (in memory, SQL or Google Sheets).
package repository

import (
	"context"
	"strings"
)

// CellUpdate sets one cell. Row is the 0-based index of a data row as
// returned by Records; Column is a header name.
type CellUpdate struct {
	Row    int
	Column string
	Value  string
}

// Sheet is a named table of string cells with a header row.
// Implementations own all backend-specific addressing.
type Sheet interface {
	// Name returns the sheet (tab or table) name.
	Name() string
	// Records returns the header and every data row. Rows are padded to the
	// header width.
	Records(ctx context.Context) (header []string, rows [][]string, err error)
	// BatchUpdate applies all updates in a single backend request.
	BatchUpdate(ctx context.Context, updates []CellUpdate) error
	// Append adds a data row after the last one. Values follow header order.
	Append(ctx context.Context, row []string) error
	// EnsureHeader writes header when the sheet has none. An existing
	// header is left untouched.
	EnsureHeader(ctx context.Context, header []string) error
}

// columnIndex finds name in header, ignoring case and padding.
func columnIndex(header []string, name string) int {
	want := strings.ToLower(strings.TrimSpace(name))
	for i, h := range header {
		if strings.ToLower(strings.TrimSpace(h)) == want {
			return i
		}
	}
	return -1
}

// pad extends row to width with empty cells.
func pad(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}

// rowFor lays out values by column name following header order.
func rowFor(header []string, values map[string]string) []string {
	row := make([]string, len(header))
	for col, v := range values {
		if i := columnIndex(header, col); i >= 0 {
			row[i] = v
		}
	}
	return row
}
