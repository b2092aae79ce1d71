// Package workerpool bounds concurrent execution of CPU-bound work (local
// inference, acoustic analysis) to a fixed number of slots shared across
// every session in the process, so a burst of concurrent sessions degrades
// throughput instead of oversubscribing the CPU. It generalizes the
// admission-control semaphore pattern the rest of this codebase already
// uses (see internal/session.Registry) into a reusable dispatch primitive.
package workerpool

import (
	"context"
	"runtime"

	"github.com/vitalscan/gateway/internal/metrics"
)

// Pool is a fixed-size semaphore gating how many callers may run fn
// concurrently. It holds no queue: Do blocks the caller's own goroutine
// until a slot frees, which both bounds concurrency and provides natural
// backpressure to per-session consumer loops.
type Pool struct {
	name string
	sem  chan struct{}
}

// New builds a Pool with size concurrent slots. size <= 0 defaults to
// runtime.GOMAXPROCS(0), sizing the pool to the available cores. name
// labels the gateway_workerpool_active_slots metric.
func New(name string, size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	if size <= 0 {
		size = 1
	}
	return &Pool{name: name, sem: make(chan struct{}, size)}
}

// Do blocks until a slot is free or ctx is done, then runs fn synchronously
// in the caller's goroutine while holding that slot. Returns ctx.Err() if
// ctx is cancelled before a slot becomes available; fn is not run in that
// case.
func (p *Pool) Do(ctx context.Context, fn func()) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.sem }()

	metrics.WorkerPoolActive.WithLabelValues(p.name).Inc()
	defer metrics.WorkerPoolActive.WithLabelValues(p.name).Dec()

	fn()
	return nil
}
