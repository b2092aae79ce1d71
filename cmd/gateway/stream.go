package main

import (
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vitalscan/gateway/internal/acoustic"
	"github.com/vitalscan/gateway/internal/audioproc"
	"github.com/vitalscan/gateway/internal/buffer"
	"github.com/vitalscan/gateway/internal/emitter"
	"github.com/vitalscan/gateway/internal/idgen"
	"github.com/vitalscan/gateway/internal/media"
	"github.com/vitalscan/gateway/internal/metrics"
	"github.com/vitalscan/gateway/internal/session"
	"github.com/vitalscan/gateway/internal/transport"
	"github.com/vitalscan/gateway/internal/transport/wsbridge"
	"github.com/vitalscan/gateway/internal/videoproc"
)

// idleCheckInterval is how often the watchdog re-evaluates IDLE_TIMEOUT_SEC
// against a session's last activity.
const idleCheckInterval = 5 * time.Second

// handleStream admits a new session over the websocket dev transport,
// wires its video and audio pipelines, and blocks until the connection
// ends.
func (d *deps) handleStream(w http.ResponseWriter, r *http.Request) {
	if d.cfg.MaxConcurrentSessions > 0 && d.registry.Count() >= d.cfg.MaxConcurrentSessions {
		http.Error(w, "at capacity", http.StatusServiceUnavailable)
		return
	}

	conn, err := wsbridge.Upgrade(w, r)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	sess := session.New(idgen.NewSessionID(), r.Header.Get("X-Correlation-ID"))
	em := emitter.New(conn)
	orch := session.NewOrchestrator(sess, session.Config{
		MaxResolutionW:      d.cfg.MaxFrameWidth,
		MaxResolutionH:      d.cfg.MaxFrameHeight,
		ConfidenceThreshold: d.cfg.ConfidenceThreshold,
		IdleTimeoutSec:      d.cfg.IdleTimeoutSec,
	}, em, conn)

	if !d.registry.TryAdmit(orch, d.cfg.MaxConcurrentSessions) {
		conn.Close()
		return
	}

	metrics.SessionsTotal.Inc()
	slog.Info("session created", "session_id", sess.ID, "correlation_id", sess.CorrelationID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	videoBuf := buffer.NewVideo[media.RawFrame]()
	vproc := videoproc.New(videoBuf, d.router, sess, em, orch, videoproc.Config{
		MaxWidth:          d.cfg.MaxFrameWidth,
		MaxHeight:         d.cfg.MaxFrameHeight,
		BlurThreshold:     d.cfg.BlurWarningThreshold,
		MaxFrameSizeBytes: d.cfg.MaxFrameSizeBytes,
	})
	orch.AttachTrack(transport.TrackVideo, vproc)
	go vproc.Run(ctx)
	go pumpVideo(ctx, conn.VideoTrack(), videoBuf, sess, orch)

	audioBuf := buffer.NewAudio[acoustic.Sample](0)
	aproc := audioproc.New(audioBuf, d.analyzer, sess, em, orch, audioproc.Config{
		WindowSeconds: d.cfg.AudioWindowSeconds,
		BatchSize:     d.cfg.AudioBatchSize,
		SampleRate:    d.cfg.AudioSampleRate,
	})
	orch.AttachTrack(transport.TrackAudio, aproc)
	go aproc.Run(ctx)
	go pumpAudio(ctx, conn.AudioTrack(), audioBuf, sess, orch, d.cfg.AudioSampleRate)

	orch.DataChannelOpened()
	go idleWatchdog(ctx, orch, d.cfg.IdleTimeoutSec)

	conn.ReadLoop(ctx)
}

func pumpVideo(ctx context.Context, track transport.Track, buf *buffer.Buffer[media.RawFrame], sess *session.Session, orch *session.Orchestrator) {
	for {
		frame, err := track.ReadFrame(ctx)
		if err != nil {
			if err == io.EOF {
				orch.TrackEnded(context.Background(), transport.TrackVideo)
			}
			return
		}
		sess.RecordReceived()
		metrics.FramesReceived.WithLabelValues("video").Inc()
		buf.Put(media.EncodedBytes(frame))
	}
}

func pumpAudio(ctx context.Context, track transport.Track, buf *buffer.Buffer[acoustic.Sample], sess *session.Session, orch *session.Orchestrator, sampleRate int) {
	for {
		frame, err := track.ReadFrame(ctx)
		if err != nil {
			if err == io.EOF {
				orch.TrackEnded(context.Background(), transport.TrackAudio)
			}
			return
		}
		sess.RecordReceived()
		metrics.FramesReceived.WithLabelValues("audio").Inc()
		buf.Put(acoustic.Sample{PCM: decodePCM16LE(frame), SampleRate: sampleRate})
	}
}

// decodePCM16LE converts a little-endian 16-bit signed PCM wire frame into
// normalized float32 samples in [-1, 1].
func decodePCM16LE(data []byte) []float32 {
	n := len(data) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
		samples[i] = float32(v) / 32768.0
	}
	return samples
}

func idleWatchdog(ctx context.Context, orch *session.Orchestrator, idleTimeoutSec int) {
	ticker := time.NewTicker(idleCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			orch.IdleCheck(ctx)
		}
	}
}
