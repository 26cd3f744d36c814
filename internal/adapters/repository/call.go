package repository

import (
	"context"
	"time"

	"github.com/okian/draftelo/pkg/metrics"
)

// call runs one backend request under the store timeout, records its
// latency and wraps any failure as ErrRemote.
func (c storeConfig) call(ctx context.Context, store, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	metrics.RecordStoreCall(store, op, time.Since(start), err)
	if err != nil {
		return remote(store+"."+op, err)
	}
	return nil
}
