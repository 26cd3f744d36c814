package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/draftelo/internal/votesim"
	"github.com/okian/draftelo/pkg/logger"
)

// Default configuration constants.
const (
	defaultUsers       = 20
	defaultRounds      = 5
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:9080", "Base URL of the service")
		users   = flag.Int("users", defaultUsers, "Number of simulated users")
		rounds  = flag.Int("rounds", defaultRounds, "Votes cast per user")
		workers = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		prefix  = flag.String("prefix", "", "Username prefix (default: random)")
		format  = flag.String("log-format", logger.FormatText, "Log format: text or json")
		verbose = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if err := logger.InitWithOptions(logger.Options{Format: *format}); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(2)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	if _, err := votesim.Run(ctx, votesim.Config{
		BaseURL: *baseURL,
		Users:   *users,
		Rounds:  *rounds,
		Workers: *workers,
		Timeout: *timeout,
		Prefix:  *prefix,
		Verbose: *verbose,
	}); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
