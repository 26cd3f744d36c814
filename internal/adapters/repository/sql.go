package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver
)

// SQL dialects supported by SQLSheet, named after their database/sql drivers.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// The sheet layout is stored as generic cells so that every table keeps the
// spreadsheet contract: header names come from sheet_column, values from
// sheet_cell.
const sqlSchema = `
CREATE TABLE IF NOT EXISTS sheet_column (
    sheet TEXT NOT NULL,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    PRIMARY KEY (sheet, position)
);

CREATE TABLE IF NOT EXISTS sheet_cell (
    sheet TEXT NOT NULL,
    row_index INTEGER NOT NULL,
    position INTEGER NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (sheet, row_index, position)
);
`

// OpenSQL opens db with the given dialect and creates the schema.
func OpenSQL(ctx context.Context, dialect, dsn string) (*sql.DB, error) {
	switch dialect {
	case DialectSQLite, DialectPostgres:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, dialect)
	}
	db, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// A single connection serializes writers and keeps :memory: databases shared.
		db.SetMaxOpenConns(1)
	}
	if err := CreateSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// CreateSchema creates the sheet tables. Safe to call multiple times.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(sqlSchema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// SQLSheet stores one sheet in a SQL database.
type SQLSheet struct {
	db      *sql.DB
	dialect string
	name    string
}

// NewSQLSheet returns the sheet called name in db.
func NewSQLSheet(db *sql.DB, dialect, name string) *SQLSheet {
	return &SQLSheet{db: db, dialect: dialect, name: name}
}

func (s *SQLSheet) Name() string { return s.name }

// q rewrites ? placeholders for the dialect.
func (s *SQLSheet) q(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLSheet) header(ctx context.Context, q querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, s.q(`SELECT name FROM sheet_column WHERE sheet = ? ORDER BY position`), s.name)
	if err != nil {
		return nil, fmt.Errorf("query header: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var header []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan header: %w", err)
		}
		header = append(header, name)
	}
	return header, rows.Err()
}

func (s *SQLSheet) Records(ctx context.Context) ([]string, [][]string, error) {
	header, err := s.header(ctx, s.db)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT row_index, position, value FROM sheet_cell WHERE sheet = ? ORDER BY row_index, position`), s.name)
	if err != nil {
		return nil, nil, fmt.Errorf("query cells: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var data [][]string
	for rows.Next() {
		var rowIdx, pos int
		var value string
		if err := rows.Scan(&rowIdx, &pos, &value); err != nil {
			return nil, nil, fmt.Errorf("scan cell: %w", err)
		}
		if pos >= len(header) {
			continue
		}
		for len(data) <= rowIdx {
			data = append(data, make([]string, len(header)))
		}
		data[rowIdx][pos] = value
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return header, data, nil
}

func (s *SQLSheet) BatchUpdate(ctx context.Context, updates []CellUpdate) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	header, err := s.header(ctx, tx)
	if err != nil {
		return err
	}
	upsert := s.q(`INSERT INTO sheet_cell (sheet, row_index, position, value) VALUES (?, ?, ?, ?)
ON CONFLICT (sheet, row_index, position) DO UPDATE SET value = excluded.value`)
	for _, u := range updates {
		pos := columnIndex(header, u.Column)
		if pos < 0 {
			return fmt.Errorf("sheet %s: unknown column %q", s.name, u.Column)
		}
		if _, err = tx.ExecContext(ctx, upsert, s.name, u.Row, pos, u.Value); err != nil {
			return fmt.Errorf("update cell: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLSheet) Append(ctx context.Context, row []string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var next int
	err = tx.QueryRowContext(ctx,
		s.q(`SELECT COALESCE(MAX(row_index) + 1, 0) FROM sheet_cell WHERE sheet = ?`), s.name).Scan(&next)
	if err != nil {
		return fmt.Errorf("next row: %w", err)
	}
	insert := s.q(`INSERT INTO sheet_cell (sheet, row_index, position, value) VALUES (?, ?, ?, ?)`)
	for pos, v := range row {
		if _, err = tx.ExecContext(ctx, insert, s.name, next, pos, v); err != nil {
			return fmt.Errorf("insert cell: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLSheet) EnsureHeader(ctx context.Context, header []string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	existing, err := s.header(ctx, tx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return tx.Commit()
	}
	insert := s.q(`INSERT INTO sheet_column (sheet, position, name) VALUES (?, ?, ?)`)
	for pos, name := range header {
		if _, err = tx.ExecContext(ctx, insert, s.name, pos, name); err != nil {
			return fmt.Errorf("insert column: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
