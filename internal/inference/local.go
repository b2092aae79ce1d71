package inference

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/vitalscan/gateway/internal/media"
	"github.com/vitalscan/gateway/internal/workerpool"
)

// LocalDetector is the injected local model collaborator. Its concrete
// implementation (a YOLO-equivalent weights file) is out of scope; the
// router only depends on this interface.
type LocalDetector interface {
	Detect(ctx context.Context, img *media.DecodedImage) ([]rawPrediction, error)
}

// lazyLocal defers constructing the (expensive) local detector until the
// first frame actually needs it, and never retries a failed load, mirroring
// LazyModelLoader.get(): attempt once, cache the outcome (object or error)
// forever. singleflight additionally collapses concurrent first-use callers
// from the video and future multi-track pipelines into one load.
type lazyLocal struct {
	factory func() (LocalDetector, error)
	pool    *workerpool.Pool
	group   singleflight.Group

	mu       sync.Mutex
	loaded   bool
	detector LocalDetector
	loadErr  error
}

func newLazyLocal(factory func() (LocalDetector, error), pool *workerpool.Pool) *lazyLocal {
	return &lazyLocal{factory: factory, pool: pool}
}

func (l *lazyLocal) get() (LocalDetector, error) {
	l.mu.Lock()
	if l.loaded {
		defer l.mu.Unlock()
		return l.detector, l.loadErr
	}
	l.mu.Unlock()

	v, err, _ := l.group.Do("load", func() (any, error) {
		d, err := l.factory()
		l.mu.Lock()
		l.detector, l.loadErr, l.loaded = d, err, true
		l.mu.Unlock()
		return d, err
	})
	if err != nil {
		return nil, err
	}
	return v.(LocalDetector), nil
}

// predict dispatches the CPU-bound detector call through the shared
// worker pool rather than running it inline on the caller's (per-session)
// consumer goroutine, so concurrent sessions share one core-sized budget
// instead of each spawning unbounded local-inference work.
func (l *lazyLocal) predict(ctx context.Context, img *media.DecodedImage) ([]rawPrediction, error) {
	detector, err := l.get()
	if err != nil {
		return nil, fmt.Errorf("local model unavailable: %w", err)
	}

	var preds []rawPrediction
	var detectErr error
	if err := l.pool.Do(ctx, func() {
		preds, detectErr = detector.Detect(ctx, img)
	}); err != nil {
		return nil, fmt.Errorf("local model dispatch: %w", err)
	}
	return preds, detectErr
}
