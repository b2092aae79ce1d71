// Package session tracks per-session counters and owns the Created ->
// Active -> Closing -> Closed lifecycle state machine.
package session

import (
	"sync"

	"github.com/vitalscan/gateway/internal/clock"
)

// Summary is the immutable result of Close. The orchestrator projects it
// into events.Summary, the wire shape nested inside a stream_closed event.
type Summary struct {
	SessionID        string
	CorrelationID    string
	StartTimeMs      int64
	EndTimeMs        int64
	DurationSec      float64
	FrameCount       uint64
	AudioFrameCount  uint64
	AudioSeconds     float64
	TotalReceived    uint64
	DroppedCount     uint64
	DetectionCount   uint64
}

// Session is exclusively owned by the orchestrator; processors hold a
// non-owning reference and mutate only through the Record* methods.
type Session struct {
	ID            string
	CorrelationID string
	StartTimeMs   int64

	mu             sync.Mutex
	frameCount     uint64
	audioFrameCnt  uint64
	audioSeconds   float64
	totalReceived  uint64
	droppedCount   uint64
	detectionCount uint64
	lastActivityMs int64
	endTimeMs      int64
	closed         bool
	summary        Summary
}

func New(id, correlationID string) *Session {
	now := clock.NowMs()
	return &Session{
		ID:             id,
		CorrelationID:  correlationID,
		StartTimeMs:    now,
		lastActivityMs: now,
	}
}

func (s *Session) RecordFrame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameCount++
	s.lastActivityMs = clock.NowMs()
}

func (s *Session) RecordReceived() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalReceived++
	s.lastActivityMs = clock.NowMs()
}

func (s *Session) RecordDropped(n uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.droppedCount += n
	s.lastActivityMs = clock.NowMs()
}

func (s *Session) RecordDetection(n uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detectionCount += n
}

func (s *Session) RecordAudio(frames uint64, seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioFrameCnt += frames
	s.audioSeconds += seconds
	s.lastActivityMs = clock.NowMs()
}

// IsIdle reports whether now exceeds the session's last activity by more
// than timeoutMs. Strict inequality: exactly-at-timeout is not idle.
func (s *Session) IsIdle(now int64, timeoutMs int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (now - s.lastActivityMs) > timeoutMs
}

// Close sets end_time_ms on first call and returns the final summary.
// Repeated calls are a no-op returning the same cached summary.
func (s *Session) Close() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.summary
	}
	s.endTimeMs = clock.NowMs()
	s.closed = true
	s.summary = Summary{
		SessionID:       s.ID,
		CorrelationID:   s.CorrelationID,
		StartTimeMs:     s.StartTimeMs,
		EndTimeMs:       s.endTimeMs,
		DurationSec:     float64(s.endTimeMs-s.StartTimeMs) / 1000.0,
		FrameCount:      s.frameCount,
		AudioFrameCount: s.audioFrameCnt,
		AudioSeconds:    s.audioSeconds,
		TotalReceived:   s.totalReceived,
		DroppedCount:    s.droppedCount,
		DetectionCount:  s.detectionCount,
	}
	return s.summary
}
