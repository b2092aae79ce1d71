// Package videoproc runs the per-session video consumer loop: decode,
// resize, blur score, infer, emit.
package videoproc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vitalscan/gateway/internal/buffer"
	"github.com/vitalscan/gateway/internal/clock"
	"github.com/vitalscan/gateway/internal/emitter"
	"github.com/vitalscan/gateway/internal/events"
	"github.com/vitalscan/gateway/internal/inference"
	"github.com/vitalscan/gateway/internal/media"
	"github.com/vitalscan/gateway/internal/metrics"
	"github.com/vitalscan/gateway/internal/session"
)

// Config parameterizes a Processor.
type Config struct {
	MaxWidth, MaxHeight int
	BlurThreshold       float64
	MaxFrameSizeBytes   int
}

// FailHandler terminates the owning session after an unrecoverable
// consumer-loop failure. *session.Orchestrator satisfies this.
type FailHandler interface {
	FailSession(ctx context.Context, code, message string)
}

// Processor is the C8 single-consumer video pipeline for one track.
type Processor struct {
	buf    *buffer.Buffer[media.RawFrame]
	router *inference.Router
	sess   *session.Session
	em     *emitter.Emitter
	fail   FailHandler
	cfg    Config

	frameIndex         int
	dropsSinceLastEmit uint64

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Processor. fail may be nil (e.g. in tests that don't
// exercise the unrecoverable-failure path); in production it is the
// session's orchestrator.
func New(buf *buffer.Buffer[media.RawFrame], router *inference.Router, sess *session.Session, em *emitter.Emitter, fail FailHandler, cfg Config) *Processor {
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = media.DefaultMaxWidth
	}
	if cfg.MaxHeight <= 0 {
		cfg.MaxHeight = media.DefaultMaxHeight
	}
	if cfg.BlurThreshold <= 0 {
		cfg.BlurThreshold = media.DefaultBlurThreshold
	}
	return &Processor{buf: buf, router: router, sess: sess, em: em, fail: fail, cfg: cfg, done: make(chan struct{})}
}

// Run starts the consumer loop; it returns once ctx is cancelled or Stop
// is called. An unrecoverable panic anywhere in the loop body (outside the
// already-isolated inferSafely) is converted into a terminal ErrorEvent and
// drives the session through its normal Closing -> Closed path instead of
// crashing the goroutine, per spec.md §7.
func (p *Processor) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	defer close(p.done)
	defer p.recoverFatal()

	for {
		raw, err := p.buf.Get(ctx)
		if err != nil {
			return
		}
		p.processFrame(ctx, raw)
	}
}

func (p *Processor) recoverFatal() {
	if r := recover(); r != nil {
		slog.Error("video consumer loop panic", "session_id", p.sess.ID, "recovered", r)
		if p.fail != nil {
			p.fail.FailSession(context.Background(), events.ErrInternal, "unrecoverable video pipeline failure")
		}
	}
}

// Stop cancels the consumer loop and blocks until it exits or ctx expires.
func (p *Processor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Processor) processFrame(ctx context.Context, raw media.RawFrame) {
	start := time.Now()

	if p.cfg.MaxFrameSizeBytes > 0 && media.RawSize(raw) > p.cfg.MaxFrameSizeBytes {
		p.emitError(events.ErrFrameTooLarge, "raw frame exceeds MAX_FRAME_SIZE_BYTES")
		return
	}

	img, err := media.Decode(raw)
	if err != nil {
		p.emitError(events.ErrInvalidImageFormat, err.Error())
		return
	}

	img = media.ResizeToCeiling(img, p.cfg.MaxWidth, p.cfg.MaxHeight)
	media.ApplyQualityWarning(img, p.cfg.BlurThreshold)

	wounds, err := p.inferSafely(ctx, img)
	if err != nil {
		p.emitError(events.ErrInferenceFailed, err.Error())
		return
	}

	stats := p.buf.Stats()
	dropsSinceLast := stats.Dropped - p.dropsSinceLastEmit
	p.dropsSinceLastEmit = stats.Dropped
	if dropsSinceLast > 0 {
		p.sess.RecordDropped(dropsSinceLast)
		metrics.FramesDropped.WithLabelValues("video").Add(float64(dropsSinceLast))
	}

	detEvent := events.NewDetection(p.sess.ID, clock.NowMs(), p.frameIndex, wounds, events.DetectionMetadata{
		ProcessingTimeMs:       float64(time.Since(start).Microseconds()) / 1000.0,
		QualityWarning:         img.QualityWarning,
		FramesDroppedSinceLast: dropsSinceLast,
	})

	if detEvent.HasWounds {
		p.sess.RecordDetection(uint64(len(wounds)))
		metrics.DetectionsTotal.Add(float64(len(wounds)))
	}
	p.sess.RecordFrame()
	p.frameIndex++
	metrics.FramesProcessed.Inc()

	p.em.Emit(detEvent)
}

// inferSafely isolates a router panic so the consumer loop never terminates
// on a single bad frame (spec.md §4.4 step 4): on recovery it reports the
// panic as an error so the caller emits INFERENCE_FAILED and skips the
// frame instead of emitting a detection event that misrepresents a crash
// as a clean empty result.
func (p *Processor) inferSafely(ctx context.Context, img *media.DecodedImage) (wounds []inference.Detection, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("inference panic recovered", "session_id", p.sess.ID, "recovered", r)
			err = fmt.Errorf("inference panic: %v", r)
		}
	}()
	if p.router == nil {
		return nil, nil
	}
	return p.router.Infer(ctx, img), nil
}

func (p *Processor) emitError(code, message string) {
	frameIndex := p.frameIndex
	p.em.Emit(events.NewError(p.sess.ID, clock.NowMs(), &frameIndex, code, message, events.SeverityWarning))
}
