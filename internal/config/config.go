// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers file and environment on top.
// - All loaders accept context.Context as the first parameter.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"time"
	_ "time/tzdata" // Timezone must resolve on hosts without zoneinfo.
)

// Store drivers understood by the repository package.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverSheets   = "sheets"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// KFactor is the rating sensitivity constant.
	KFactor float64 `koanf:"k_factor"`

	// SelectionAlpha is the exponent applied to normalized ratings when
	// sampling players; higher favors top-rated players more.
	SelectionAlpha float64 `koanf:"selection_alpha"`

	// CloseBand is the half-width of the rating window used to pick an opponent.
	CloseBand float64 `koanf:"close_band"`

	// DefaultRating replaces missing or unparseable ratings.
	DefaultRating float64 `koanf:"default_rating"`

	// MaxUsernameLength caps the display name.
	MaxUsernameLength int `koanf:"max_username_length"`

	// LeaderboardSize is the number of users shown per leaderboard.
	LeaderboardSize int `koanf:"leaderboard_size"`

	// SessionTTLSeconds is how long an idle session survives.
	SessionTTLSeconds int `koanf:"session_ttl_seconds"`

	// SessionSweepIntervalSeconds controls how often idle sessions are swept.
	SessionSweepIntervalSeconds int `koanf:"session_sweep_interval_seconds"`

	// DedupeSize bounds the number of remembered vote idempotency keys.
	DedupeSize int `koanf:"dedupe_size"`

	// StoreDriver is one of memory, sqlite, postgres, sheets.
	StoreDriver string `koanf:"store_driver"`

	// StoreDSN is the database/sql data source for sqlite and postgres.
	StoreDSN string `koanf:"store_dsn"`

	// StoreTimeoutMS bounds each remote store call.
	StoreTimeoutMS int `koanf:"store_timeout_ms"`

	// SheetsSpreadsheetID and SheetsCredentialsFile configure the Google Sheets driver.
	SheetsSpreadsheetID   string `koanf:"sheets_spreadsheet_id"`
	SheetsCredentialsFile string `koanf:"sheets_credentials_file"`

	// Sheet (tab or table) names.
	PlayersSheet string `koanf:"players_sheet"`
	UsersSheet   string `koanf:"users_sheet"`
	ValuesSheet  string `koanf:"values_sheet"`

	// Timezone is the IANA zone used for the ledger's calendar dates.
	Timezone string `koanf:"timezone"`

	// MetricsRefreshSeconds is how often process gauges are sampled.
	MetricsRefreshSeconds int `koanf:"metrics_refresh_seconds"`

	// RosterFile is an optional YAML roster used to seed the memory driver.
	RosterFile string `koanf:"roster_file"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                    "info",
		LogFormat:                   "text",
		Addr:                        ":9080",
		KFactor:                     24,
		SelectionAlpha:              10,
		CloseBand:                   50,
		DefaultRating:               1500,
		MaxUsernameLength:           15,
		LeaderboardSize:             5,
		SessionTTLSeconds:           1800,
		SessionSweepIntervalSeconds: 60,
		DedupeSize:                  50_000,
		StoreDriver:                 DriverMemory,
		StoreTimeoutMS:              10_000,
		PlayersSheet:                "Sheet1",
		UsersSheet:                  "Users",
		ValuesSheet:                 "Values",
		Timezone:                    "UTC",
		MetricsRefreshSeconds:       10,
	}
}

// SessionTTL returns the idle session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

// SessionSweepInterval returns the sweeper period.
func (c *Config) SessionSweepInterval() time.Duration {
	return time.Duration(c.SessionSweepIntervalSeconds) * time.Second
}

// StoreTimeout returns the per-call store deadline.
func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutMS) * time.Millisecond
}

// MetricsRefresh returns the process gauge sampling period.
func (c *Config) MetricsRefresh() time.Duration {
	return time.Duration(c.MetricsRefreshSeconds) * time.Second
}

// Location resolves Timezone. Callers run Validate first, so failures fall
// back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks cross-field constraints.
func (c *Config) Validate(_ context.Context) error {
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.KFactor <= 0:
		return invalid("k_factor must be positive")
	case c.SelectionAlpha <= 0:
		return invalid("selection_alpha must be positive")
	case c.CloseBand <= 0:
		return invalid("close_band must be positive")
	case c.MaxUsernameLength < 1:
		return invalid("max_username_length must be at least 1")
	case c.LeaderboardSize < 1:
		return invalid("leaderboard_size must be at least 1")
	case c.SessionTTLSeconds < 1:
		return invalid("session_ttl_seconds must be at least 1")
	case c.SessionSweepIntervalSeconds < 1:
		return invalid("session_sweep_interval_seconds must be at least 1")
	case c.StoreTimeoutMS < 1:
		return invalid("store_timeout_ms must be at least 1")
	case c.MetricsRefreshSeconds < 1:
		return invalid("metrics_refresh_seconds must be at least 1")
	}

	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.StoreDSN == "" {
			return invalid("store_dsn is required for driver " + c.StoreDriver)
		}
	case DriverSheets:
		if c.SheetsSpreadsheetID == "" {
			return invalid("sheets_spreadsheet_id is required for driver sheets")
		}
	default:
		return invalid("unknown store_driver " + c.StoreDriver)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return invalid("unknown timezone " + c.Timezone)
	}
	return nil
}
