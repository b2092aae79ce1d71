// Package audioproc runs the per-session audio consumer loop: window
// accumulation, acoustic analysis off-load, emit.
package audioproc

import (
	"context"
	"log/slog"
	"time"

	"github.com/vitalscan/gateway/internal/acoustic"
	"github.com/vitalscan/gateway/internal/buffer"
	"github.com/vitalscan/gateway/internal/clock"
	"github.com/vitalscan/gateway/internal/emitter"
	"github.com/vitalscan/gateway/internal/events"
	"github.com/vitalscan/gateway/internal/metrics"
	"github.com/vitalscan/gateway/internal/session"
)

// Config parameterizes a Processor.
type Config struct {
	WindowSeconds float64
	BatchSize     int
	SampleRate    int
	NumChannels   int
}

// FailHandler terminates the owning session after an unrecoverable
// consumer-loop failure. *session.Orchestrator satisfies this.
type FailHandler interface {
	FailSession(ctx context.Context, code, message string)
}

// Processor is the C9 single-consumer audio pipeline for one track: it
// accumulates a window of items and off-loads analysis once the batch
// threshold is reached.
type Processor struct {
	buf      *buffer.Buffer[acoustic.Sample]
	analyzer *acoustic.Analyzer
	sess     *session.Session
	em       *emitter.Emitter
	fail     FailHandler
	cfg      Config

	window             []acoustic.Sample
	dropsSinceLastEmit uint64

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Processor. fail may be nil (e.g. in tests that don't
// exercise the unrecoverable-failure path); in production it is the
// session's orchestrator.
func New(buf *buffer.Buffer[acoustic.Sample], analyzer *acoustic.Analyzer, sess *session.Session, em *emitter.Emitter, fail FailHandler, cfg Config) *Processor {
	if cfg.WindowSeconds <= 0 {
		cfg.WindowSeconds = 1.0
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 48000
	}
	if cfg.NumChannels <= 0 {
		cfg.NumChannels = 1
	}
	return &Processor{buf: buf, analyzer: analyzer, sess: sess, em: em, fail: fail, cfg: cfg, done: make(chan struct{})}
}

// Run starts the consumer loop; it flushes any partial window before
// returning on cancellation. An unrecoverable panic anywhere in the loop
// body is converted into a terminal ErrorEvent and drives the session
// through its normal Closing -> Closed path instead of crashing the
// goroutine, per spec.md §7.
func (p *Processor) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	defer close(p.done)
	defer p.recoverFatal()

	for {
		item, err := p.buf.Get(ctx)
		if err != nil {
			p.flush(context.Background())
			return
		}
		p.recordDrops()
		p.window = append(p.window, item)
		if len(p.window) >= p.cfg.BatchSize {
			p.flush(ctx)
		}
	}
}

func (p *Processor) recoverFatal() {
	if r := recover(); r != nil {
		slog.Error("audio consumer loop panic", "session_id", p.sess.ID, "recovered", r)
		if p.fail != nil {
			p.fail.FailSession(context.Background(), events.ErrInternal, "unrecoverable audio pipeline failure")
		}
	}
}

func (p *Processor) recordDrops() {
	stats := p.buf.Stats()
	delta := stats.Dropped - p.dropsSinceLastEmit
	p.dropsSinceLastEmit = stats.Dropped
	if delta > 0 {
		p.sess.RecordDropped(delta)
		metrics.FramesDropped.WithLabelValues("audio").Add(float64(delta))
	}
}

// Stop cancels the consumer loop and blocks until it exits (including its
// final partial-window flush) or ctx expires.
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

func (p *Processor) flush(ctx context.Context) {
	if len(p.window) == 0 {
		return
	}
	window := p.window
	p.window = nil

	start := time.Now()

	var pcm []float32
	for _, item := range window {
		pcm = append(pcm, item.PCM...)
	}

	wavBytes, err := acoustic.MaterializeWAV(pcm, p.cfg.SampleRate, p.cfg.NumChannels)
	if err != nil {
		slog.Error("materialize wav", "session_id", p.sess.ID, "error", err)
		return
	}
	samples, sampleRate, _, err := acoustic.SamplesFromWAV(wavBytes)
	if err != nil {
		slog.Error("decode materialized wav", "session_id", p.sess.ID, "error", err)
		return
	}

	result := p.analyzer.Analyze(ctx, samples, sampleRate)
	metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	metrics.AudioWindowsProcessed.Inc()

	audioSeconds := acoustic.AudioSeconds(len(pcm), p.cfg.SampleRate, p.cfg.NumChannels)
	p.sess.RecordAudio(uint64(len(window)), audioSeconds)

	analysis := events.AudioAnalysis{
		RiskScore: result.RiskScore,
		MFCCMean:  result.MFCCMean,
		Energy:    result.Energy,
	}
	if result.HasEmotion {
		analysis.Emotion = result.Emotion
		analysis.EmotionConf = result.EmotionConf
	}

	p.em.Emit(events.NewAudio(p.sess.ID, clock.NowMs(), analysis, audioSeconds, len(window), p.cfg.WindowSeconds))
}
