// Package events defines the JSON wire shapes sent to the client over the
// "detections" data channel.
package events

import "github.com/vitalscan/gateway/internal/inference"

// Event is implemented by every server -> client message; EventType
// identifies the discriminator used by clients to dispatch on decode.
type Event interface {
	EventType() string
}

// SessionStartedEvent is emitted exactly once, when the data channel opens
// while the session is still Created or Active.
type SessionStartedEvent struct {
	EventTypeField string       `json:"event_type"`
	SessionID      string       `json:"session_id"`
	TimestampMs    int64        `json:"timestamp_ms"`
	Config         StartConfig  `json:"config"`
	CorrelationID  string       `json:"correlation_id,omitempty"`
}

// StartConfig advertises the process-wide configuration the client needs
// to interpret subsequent events (notably the bbox convention in use).
type StartConfig struct {
	MaxResolution       Resolution `json:"max_resolution"`
	ConfidenceThreshold float64    `json:"confidence_threshold"`
	IdleTimeoutSec      int        `json:"idle_timeout_sec"`
	BBoxFormat          string     `json:"bbox_format"`
}

// bboxFormatAbsolutePixels is the only bbox convention this gateway emits.
const bboxFormatAbsolutePixels = "absolute_pixels"

// Resolution is a width/height pair.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func NewSessionStarted(sessionID string, ts int64, cfg StartConfig, correlationID string) SessionStartedEvent {
	cfg.BBoxFormat = bboxFormatAbsolutePixels
	return SessionStartedEvent{EventTypeField: "session_started", SessionID: sessionID, TimestampMs: ts, Config: cfg, CorrelationID: correlationID}
}

func (e SessionStartedEvent) EventType() string { return e.EventTypeField }

// DetectionEvent carries one video frame's inference result.
type DetectionEvent struct {
	EventTypeField string                `json:"event_type"`
	SessionID      string                `json:"session_id"`
	TimestampMs    int64                 `json:"timestamp_ms"`
	FrameIndex     int                   `json:"frame_index"`
	HasWounds      bool                  `json:"has_wounds"`
	Wounds         []inference.Detection `json:"wounds"`
	Metadata       DetectionMetadata     `json:"metadata"`
}

// DetectionMetadata carries per-frame processing side-channel data.
type DetectionMetadata struct {
	ProcessingTimeMs        float64 `json:"processing_time_ms"`
	QualityWarning          string  `json:"quality_warning,omitempty"`
	FramesDroppedSinceLast  uint64  `json:"frames_dropped_since_last"`
}

func NewDetection(sessionID string, ts int64, frameIndex int, wounds []inference.Detection, meta DetectionMetadata) DetectionEvent {
	if wounds == nil {
		wounds = []inference.Detection{}
	}
	return DetectionEvent{
		EventTypeField: "detection_event",
		SessionID:      sessionID,
		TimestampMs:    ts,
		FrameIndex:     frameIndex,
		HasWounds:      len(wounds) > 0,
		Wounds:         wounds,
		Metadata:       meta,
	}
}

func (e DetectionEvent) EventType() string { return e.EventTypeField }

// AudioEvent carries one audio window's acoustic analysis.
type AudioEvent struct {
	EventTypeField string        `json:"event_type"`
	SessionID      string        `json:"session_id"`
	TimestampMs    int64         `json:"timestamp_ms"`
	Analysis       AudioAnalysis `json:"analysis"`
	AudioSeconds   float64       `json:"audio_seconds"`
	Frames         int           `json:"frames"`
	WindowSeconds  float64       `json:"window_seconds"`
}

// AudioAnalysis is the acoustic risk-scoring payload.
type AudioAnalysis struct {
	RiskScore   float64   `json:"risk_score"`
	MFCCMean    []float64 `json:"mfcc_mean"`
	Energy      float64   `json:"energy"`
	Emotion     string    `json:"emotion,omitempty"`
	EmotionConf float64   `json:"emotion_confidence,omitempty"`
}

func NewAudio(sessionID string, ts int64, analysis AudioAnalysis, audioSeconds float64, frames int, windowSeconds float64) AudioEvent {
	return AudioEvent{
		EventTypeField: "audio_event",
		SessionID:      sessionID,
		TimestampMs:    ts,
		Analysis:       analysis,
		AudioSeconds:   audioSeconds,
		Frames:         frames,
		WindowSeconds:  windowSeconds,
	}
}

func (e AudioEvent) EventType() string { return e.EventTypeField }

// Severity values for ErrorEvent.
const (
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Error codes per spec.md §7.
const (
	ErrInvalidImageFormat = "INVALID_IMAGE_FORMAT"
	ErrFrameTooLarge      = "FRAME_TOO_LARGE"
	ErrInferenceFailed    = "INFERENCE_FAILED"
	ErrInternal           = "INTERNAL_ERROR"
)

// ErrorEvent reports a recoverable (warning) or terminal (error) failure.
type ErrorEvent struct {
	EventTypeField string `json:"event_type"`
	SessionID      string `json:"session_id"`
	TimestampMs    int64  `json:"timestamp_ms"`
	FrameIndex     *int   `json:"frame_index,omitempty"`
	ErrorCode      string `json:"error_code"`
	ErrorMessage   string `json:"error_message"`
	Severity       string `json:"severity"`
}

func NewError(sessionID string, ts int64, frameIndex *int, code, message, severity string) ErrorEvent {
	return ErrorEvent{
		EventTypeField: "error",
		SessionID:      sessionID,
		TimestampMs:    ts,
		FrameIndex:     frameIndex,
		ErrorCode:      code,
		ErrorMessage:   message,
		Severity:       severity,
	}
}

func (e ErrorEvent) EventType() string { return e.EventTypeField }

// StreamClosedEvent reports the final session summary.
type StreamClosedEvent struct {
	EventTypeField string  `json:"event_type"`
	SessionID      string  `json:"session_id"`
	TimestampMs    int64   `json:"timestamp_ms"`
	Summary        Summary `json:"summary"`
}

// Summary is the wire projection of session.Summary carried by a
// stream_closed event.
type Summary struct {
	TotalFramesReceived  uint64  `json:"total_frames_received"`
	TotalFramesProcessed uint64  `json:"total_frames_processed"`
	TotalFramesDropped   uint64  `json:"total_frames_dropped"`
	TotalDetections      uint64  `json:"total_detections"`
	DurationSec          float64 `json:"duration_sec"`
}

func NewStreamClosed(sessionID string, ts int64, summary Summary) StreamClosedEvent {
	return StreamClosedEvent{EventTypeField: "stream_closed", SessionID: sessionID, TimestampMs: ts, Summary: summary}
}

func (e StreamClosedEvent) EventType() string { return e.EventTypeField }

// PongEvent answers a client ping keepalive.
type PongEvent struct {
	EventTypeField string `json:"event_type"`
	TimestampMs    int64  `json:"timestamp_ms"`
}

func NewPong(ts int64) PongEvent {
	return PongEvent{EventTypeField: "pong", TimestampMs: ts}
}

func (e PongEvent) EventType() string { return e.EventTypeField }
