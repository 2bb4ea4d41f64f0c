// Package dedupe collapses concurrent requests for the same work into one call.
package dedupe

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/okian/podium/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// Deduper runs at most one call per key at a time and hands its result to
// every caller that asked while it was running.
type Deduper interface {
	// Do runs fn for key unless a call for key is already in flight, in which
	// case it waits for that call. shared reports whether the result went to
	// more than one caller. A caller whose ctx ends stops waiting; the call
	// itself keeps running for the others.
	Do(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (v any, shared bool, err error)

	// InFlight returns the number of calls currently running.
	InFlight() int64
}

type inFlightDeduper struct {
	group    singleflight.Group
	inFlight atomic.Int64
	timeout  time.Duration
}

// NewInFlightDeduper creates a deduper with configuration options.
func NewInFlightDeduper(opts ...Option) Deduper {
	d := &inFlightDeduper{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Do implements Deduper. fn runs on a context detached from the first caller's
// cancellation, bounded by the configured timeout if any.
func (d *inFlightDeduper) Do(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	ch := d.group.DoChan(key, func() (any, error) {
		d.inFlight.Add(1)
		defer d.inFlight.Add(-1)

		runCtx := context.WithoutCancel(ctx)
		if d.timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(runCtx, d.timeout)
			defer cancel()
		}
		return fn(runCtx)
	})

	select {
	case r := <-ch:
		if r.Shared {
			metrics.RecordSharedBuild()
		}
		return r.Val, r.Shared, r.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// InFlight implements Deduper.
func (d *inFlightDeduper) InFlight() int64 {
	return d.inFlight.Load()
}
