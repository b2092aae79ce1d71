package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vitalscan/gateway/internal/clock"
	"github.com/vitalscan/gateway/internal/emitter"
	"github.com/vitalscan/gateway/internal/events"
	"github.com/vitalscan/gateway/internal/metrics"
	"github.com/vitalscan/gateway/internal/transport"
)

// State is one of the orchestrator's lifecycle states.
type State int

const (
	StateCreated State = iota
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ShutdownDeadline bounds how long a processor's stop() may take during
// Closing before the orchestrator proceeds anyway.
const ShutdownDeadline = 2 * time.Second

// Processor is a long-lived per-track consumer (videoproc or audioproc).
type Processor interface {
	// Stop cancels the processor's consumer loop and blocks until it has
	// exited or ctx expires.
	Stop(ctx context.Context) error
}

// Config carries the advertised session_started configuration block and
// the idle watchdog timeout.
type Config struct {
	MaxResolutionW      int
	MaxResolutionH      int
	ConfidenceThreshold float64
	IdleTimeoutSec      int
}

// Orchestrator owns one session's lifecycle: the Created -> Active ->
// Closing -> Closed state machine, its attached track set, and the idle
// watchdog. Processors and the Session itself are attached externally
// (the orchestrator doesn't construct the media pipeline).
type Orchestrator struct {
	Session *Session
	cfg     Config
	em      *emitter.Emitter
	pc      transport.PeerConnection

	mu             sync.Mutex
	state          State
	attachedKinds  map[transport.TrackKind]bool
	endedKinds     map[transport.TrackKind]bool
	processors     []Processor
	startupSent    bool
	onClosed       func()

	closeOnce sync.Once
}

// OnClosed registers a callback run once, after the session reaches
// Closed. Used by Registry to deregister itself.
func (o *Orchestrator) OnClosed(fn func()) {
	o.mu.Lock()
	o.onClosed = fn
	o.mu.Unlock()
}

// NewOrchestrator constructs an Orchestrator for sess, in StateCreated.
func NewOrchestrator(sess *Session, cfg Config, em *emitter.Emitter, pc transport.PeerConnection) *Orchestrator {
	return &Orchestrator{
		Session:       sess,
		cfg:           cfg,
		em:            em,
		pc:            pc,
		state:         StateCreated,
		attachedKinds: make(map[transport.TrackKind]bool),
		endedKinds:    make(map[transport.TrackKind]bool),
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// AttachTrack transitions Created -> Active on the first attached track
// and registers the track's processor for coordinated shutdown.
func (o *Orchestrator) AttachTrack(kind transport.TrackKind, p Processor) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attachedKinds[kind] = true
	o.processors = append(o.processors, p)
	if o.state == StateCreated {
		o.state = StateActive
		metrics.SessionsActive.Inc()
		slog.Info("session active", "session_id", o.Session.ID, "correlation_id", o.Session.CorrelationID)
	}
}

// DataChannelOpened emits the one-time SessionStartedEvent, unless the
// session has already begun Closing.
func (o *Orchestrator) DataChannelOpened() {
	o.mu.Lock()
	skip := o.state == StateClosing || o.state == StateClosed || o.startupSent
	if !skip {
		o.startupSent = true
	}
	o.mu.Unlock()
	if skip {
		return
	}

	o.em.Emit(events.NewSessionStarted(o.Session.ID, clock.NowMs(), events.StartConfig{
		MaxResolution:       events.Resolution{Width: o.cfg.MaxResolutionW, Height: o.cfg.MaxResolutionH},
		ConfidenceThreshold: o.cfg.ConfidenceThreshold,
		IdleTimeoutSec:      o.cfg.IdleTimeoutSec,
	}, o.Session.CorrelationID))
}

// TrackEnded marks kind as ended. If every attached track kind has ended,
// transitions Active -> Closing and begins the shutdown sequence.
func (o *Orchestrator) TrackEnded(ctx context.Context, kind transport.TrackKind) {
	o.mu.Lock()
	o.endedKinds[kind] = true
	allEnded := true
	for k := range o.attachedKinds {
		if !o.endedKinds[k] {
			allEnded = false
			break
		}
	}
	shouldClose := allEnded && o.state == StateActive
	o.mu.Unlock()

	if shouldClose {
		o.beginClosing(ctx)
	}
}

// IdleCheck transitions Active -> Closing when the session has exceeded
// its idle timeout. Intended to be called periodically by a watchdog.
func (o *Orchestrator) IdleCheck(ctx context.Context) {
	timeoutMs := int64(o.cfg.IdleTimeoutSec) * 1000
	if timeoutMs <= 0 {
		timeoutMs = 30000
	}
	if !o.Session.IsIdle(clock.NowMs(), timeoutMs) {
		return
	}

	o.mu.Lock()
	shouldClose := o.state == StateActive
	o.mu.Unlock()

	if shouldClose {
		o.beginClosing(ctx)
	}
}

// FailSession emits a terminal (severity=error) ErrorEvent and drives the
// session through the standard Closing -> Closed path. Intended for a
// processor's consumer loop to call after recovering from an otherwise
// unrecoverable panic (spec.md §7), so a single bad frame's failure mode
// never propagates past a normal, observable session close.
func (o *Orchestrator) FailSession(ctx context.Context, code, message string) {
	o.em.Emit(events.NewError(o.Session.ID, clock.NowMs(), nil, code, message, events.SeverityError))

	o.mu.Lock()
	shouldClose := o.state == StateActive
	o.mu.Unlock()

	if shouldClose {
		o.beginClosing(ctx)
	}
}

func (o *Orchestrator) beginClosing(ctx context.Context) {
	o.mu.Lock()
	if o.state != StateActive {
		o.mu.Unlock()
		return
	}
	o.state = StateClosing
	procs := append([]Processor(nil), o.processors...)
	o.mu.Unlock()

	slog.Info("session closing", "session_id", o.Session.ID, "correlation_id", o.Session.CorrelationID)

	g, gctx := errgroup.WithContext(ctx)
	shutdownCtx, cancel := context.WithTimeout(gctx, ShutdownDeadline)
	defer cancel()

	for _, p := range procs {
		p := p
		g.Go(func() error {
			return p.Stop(shutdownCtx)
		})
	}
	if err := g.Wait(); err != nil {
		slog.Warn("processor shutdown error", "session_id", o.Session.ID, "error", err)
	}

	o.finish()
}

// finish runs the Closing -> Closed transition exactly once.
func (o *Orchestrator) finish() {
	o.closeOnce.Do(func() {
		summary := o.Session.Close()

		o.em.Emit(events.NewStreamClosed(o.Session.ID, clock.NowMs(), events.Summary{
			TotalFramesReceived:  summary.TotalReceived,
			TotalFramesProcessed: summary.FrameCount,
			TotalFramesDropped:   summary.DroppedCount,
			TotalDetections:      summary.DetectionCount,
			DurationSec:          summary.DurationSec,
		}))

		if o.pc != nil {
			if err := o.pc.Close(); err != nil {
				slog.Debug("peer connection close error", "session_id", o.Session.ID, "error", err)
			}
		}

		o.mu.Lock()
		o.state = StateClosed
		onClosed := o.onClosed
		o.mu.Unlock()
		metrics.SessionsActive.Dec()
		slog.Info("session closed", "session_id", o.Session.ID, "correlation_id", o.Session.CorrelationID, "duration_sec", summary.DurationSec)

		if onClosed != nil {
			onClosed()
		}
	})
}
