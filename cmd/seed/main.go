// Command seed writes a YAML roster into the configured backend. It uses the
// same configuration as the server; roster_file names the roster.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/draftelo/internal/adapters/repository"
	"github.com/okian/draftelo/internal/config"
	"github.com/okian/draftelo/internal/seed"
	"github.com/okian/draftelo/pkg/logger"
)

var errNoRoster = errors.New("roster_file is not set")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := run(ctx)
	if err != nil {
		os.Stderr.WriteString("seed failed: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
	fmt.Printf("players added: %d, values added: %d\n", res.PlayersAdded, res.ValuesAdded)
}

func run(ctx context.Context) (seed.Result, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return seed.Result{}, err
	}
	if cfg.RosterFile == "" {
		return seed.Result{}, errNoRoster
	}
	if err := logger.InitWithOptions(logger.Options{Format: cfg.LogFormat, Writer: os.Stderr}); err != nil {
		return seed.Result{}, err
	}
	_ = logger.SetLevelString(cfg.LogLevel)
	log := logger.Named("seed")

	roster, err := seed.Load(cfg.RosterFile)
	if err != nil {
		return seed.Result{}, err
	}

	backend, err := repository.Open(ctx, repository.BackendConfig{
		Driver:          cfg.StoreDriver,
		DSN:             cfg.StoreDSN,
		SpreadsheetID:   cfg.SheetsSpreadsheetID,
		CredentialsFile: cfg.SheetsCredentialsFile,
		PlayersSheet:    cfg.PlayersSheet,
		UsersSheet:      cfg.UsersSheet,
		ValuesSheet:     cfg.ValuesSheet,
	}, repository.WithTimeout(cfg.StoreTimeout()))
	if err != nil {
		return seed.Result{}, err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Warn(ctx, "closing backend failed", logger.Error(err))
		}
	}()

	return seed.New(backend,
		seed.WithDefaultRating(cfg.DefaultRating),
		seed.WithLogger(log),
	).Apply(ctx, roster)
}
