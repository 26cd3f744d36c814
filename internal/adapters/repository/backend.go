package repository

import (
	"context"
	"fmt"
)

// Backend drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = DialectSQLite
	DriverPostgres = DialectPostgres
	DriverSheets   = "sheets"
)

// BackendConfig selects and configures the tabular backend.
type BackendConfig struct {
	Driver          string
	DSN             string // sqlite and postgres
	SpreadsheetID   string // sheets
	CredentialsFile string // sheets, optional
	PlayersSheet    string
	UsersSheet      string
	ValuesSheet     string
}

// Backend bundles the three stores over one backend.
type Backend struct {
	Driver string

	PlayersSheet Sheet
	UsersSheet   Sheet
	ValuesSheet  Sheet

	Players *Players
	Ledger  *Ledger
	Values  *Values

	closer func() error
}

// Open connects to the configured backend. opts apply to every store.
func Open(ctx context.Context, cfg BackendConfig, opts ...Option) (*Backend, error) {
	b := &Backend{Driver: cfg.Driver, closer: func() error { return nil }}

	switch cfg.Driver {
	case DriverMemory, "":
		b.Driver = DriverMemory
		b.PlayersSheet = NewMemorySheet(cfg.PlayersSheet, nil)
		b.UsersSheet = NewMemorySheet(cfg.UsersSheet, nil)
		b.ValuesSheet = NewMemorySheet(cfg.ValuesSheet, nil)

	case DriverSQLite, DriverPostgres:
		db, err := OpenSQL(ctx, cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		b.PlayersSheet = NewSQLSheet(db, cfg.Driver, cfg.PlayersSheet)
		b.UsersSheet = NewSQLSheet(db, cfg.Driver, cfg.UsersSheet)
		b.ValuesSheet = NewSQLSheet(db, cfg.Driver, cfg.ValuesSheet)
		b.closer = db.Close

	case DriverSheets:
		svc, err := NewSheetsService(ctx, cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		b.PlayersSheet = NewGoogleSheet(svc, cfg.SpreadsheetID, cfg.PlayersSheet)
		b.UsersSheet = NewGoogleSheet(svc, cfg.SpreadsheetID, cfg.UsersSheet)
		b.ValuesSheet = NewGoogleSheet(svc, cfg.SpreadsheetID, cfg.ValuesSheet)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}

	b.Players = NewPlayers(b.PlayersSheet, opts...)
	b.Ledger = NewLedger(b.UsersSheet, opts...)
	b.Values = NewValues(b.ValuesSheet, opts...)
	return b, nil
}

// Close releases backend connections.
func (b *Backend) Close() error {
	return b.closer()
}
