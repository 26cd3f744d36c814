package repository

import (
	"time"

	"github.com/okian/draftelo/internal/domain/model"
	"github.com/okian/draftelo/pkg/logger"
)

const defaultTimeout = 10 * time.Second

// storeConfig is shared by Players, Ledger and Values.
type storeConfig struct {
	timeout       time.Duration
	defaultRating float64
	location      *time.Location
	now           func() time.Time
	log           logger.Logger
}

func newStoreConfig(opts []Option) storeConfig {
	c := storeConfig{
		timeout:       defaultTimeout,
		defaultRating: model.DefaultRating,
		location:      time.UTC,
		now:           time.Now,
		log:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Option applies a configuration option to a store.
type Option func(*storeConfig)

// WithTimeout bounds every backend call.
func WithTimeout(d time.Duration) Option {
	return func(c *storeConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithDefaultRating sets the rating used for missing or unparseable cells.
func WithDefaultRating(r float64) Option {
	return func(c *storeConfig) {
		if r > 0 {
			c.defaultRating = r
		}
	}
}

// WithLocation sets the timezone of the ledger's calendar dates.
func WithLocation(loc *time.Location) Option {
	return func(c *storeConfig) {
		if loc != nil {
			c.location = loc
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *storeConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(c *storeConfig) {
		if l != nil {
			c.log = l
		}
	}
}
