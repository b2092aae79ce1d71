package inference

import (
	"context"
	"log/slog"
	"time"

	"github.com/vitalscan/gateway/internal/media"
	"github.com/vitalscan/gateway/internal/metrics"
	"github.com/vitalscan/gateway/internal/workerpool"
)

// Router implements the primary/fallback chain: remote HTTP backend, then
// local model, then the empty list. It holds no session state and is a
// pure function of (img, Config) — callers create one Router per process
// and share it across all sessions. Local inference is CPU-bound, so it is
// dispatched through a pool shared by every session using this Router
// rather than run inline on each session's consumer goroutine.
type Router struct {
	cfg    Config
	remote *remoteBackend
	local  *lazyLocal
	pool   *workerpool.Pool
}

// New builds a Router from cfg. The local backend, if enabled, is loaded
// lazily on first use via localFactory; pass nil to disable it regardless
// of cfg.LocalEnabled.
func New(cfg Config, localFactory func() (LocalDetector, error)) *Router {
	r := &Router{cfg: cfg, pool: workerpool.New("inference_local", 0)}
	if cfg.remoteConfigured() {
		r.remote = newRemoteBackend(cfg)
	}
	if cfg.LocalEnabled && localFactory != nil {
		r.local = newLazyLocal(localFactory, r.pool)
	}
	return r
}

// Infer returns the filtered, normalized detection list for img, following
// the remote -> local -> empty fallback chain.
func (r *Router) Infer(ctx context.Context, img *media.DecodedImage) []Detection {
	threshold := r.cfg.ConfidenceThreshold
	if threshold <= 0 {
		threshold = 0.5
	}

	if r.remote != nil {
		start := time.Now()
		preds, err := r.remote.predict(ctx, img, threshold)
		metrics.InferenceDuration.WithLabelValues("remote").Observe(time.Since(start).Seconds())
		if err == nil {
			return normalize(preds, threshold)
		}
		metrics.InferenceErrors.WithLabelValues("remote", classifyErr(err)).Inc()
		slog.Warn("remote inference failed, falling back", "error", err)
	}

	if r.local != nil {
		start := time.Now()
		preds, err := r.local.predict(ctx, img)
		metrics.InferenceDuration.WithLabelValues("local").Observe(time.Since(start).Seconds())
		if err == nil {
			return normalize(preds, threshold)
		}
		metrics.InferenceErrors.WithLabelValues("local", "unavailable").Inc()
		slog.Warn("local inference failed", "error", err)
	}

	return []Detection{}
}

func classifyErr(err error) string {
	switch {
	case err == nil:
		return ""
	case context.DeadlineExceeded.Error() == err.Error():
		return "timeout"
	default:
		return "request"
	}
}
