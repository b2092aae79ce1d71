package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vitalscan/gateway/internal/inference"
)

func TestSessionStartedAdvertisesAbsolutePixelBBoxFormat(t *testing.T) {
	ev := NewSessionStarted("sess-1", 1000, StartConfig{MaxResolution: Resolution{Width: 1280, Height: 720}}, "")
	require.Equal(t, "absolute_pixels", ev.Config.BBoxFormat)

	data, err := json.Marshal(ev)
	require.NoError(t, err)
	require.Contains(t, string(data), `"bbox_format":"absolute_pixels"`)
}

func TestSessionStartedOmitsEmptyCorrelationID(t *testing.T) {
	ev := NewSessionStarted("sess-1", 1000, StartConfig{}, "")
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	require.NotContains(t, string(data), "correlation_id")
}

func TestDetectionEventNilWoundsBecomesEmptyArray(t *testing.T) {
	ev := NewDetection("sess-1", 1000, 0, nil, DetectionMetadata{})
	require.False(t, ev.HasWounds)

	data, err := json.Marshal(ev)
	require.NoError(t, err)
	require.Contains(t, string(data), `"wounds":[]`)
}

func TestDetectionEventHasWoundsWhenNonEmpty(t *testing.T) {
	wounds := []inference.Detection{{ID: 0, Cls: "cut", Confidence: 0.9}}
	ev := NewDetection("sess-1", 1000, 3, wounds, DetectionMetadata{})
	require.True(t, ev.HasWounds)
	require.Equal(t, 3, ev.FrameIndex)
}

func TestErrorEventOmitsFrameIndexWhenNil(t *testing.T) {
	ev := NewError("sess-1", 1000, nil, ErrInternal, "boom", SeverityError)
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	require.NotContains(t, string(data), "frame_index")
}

func TestEventTypeDiscriminatorsAreStable(t *testing.T) {
	require.Equal(t, "session_started", NewSessionStarted("s", 0, StartConfig{}, "").EventType())
	require.Equal(t, "detection_event", NewDetection("s", 0, 0, nil, DetectionMetadata{}).EventType())
	require.Equal(t, "audio_event", NewAudio("s", 0, AudioAnalysis{}, 0, 0, 0).EventType())
	require.Equal(t, "error", NewError("s", 0, nil, ErrInternal, "x", SeverityError).EventType())
	require.Equal(t, "stream_closed", NewStreamClosed("s", 0, Summary{}).EventType())
	require.Equal(t, "pong", NewPong(0).EventType())
}
