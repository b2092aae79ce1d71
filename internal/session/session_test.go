package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCloseIsIdempotent(t *testing.T) {
	s := New("sess-1", "")
	s.RecordFrame()
	s.RecordDetection(2)

	first := s.Close()
	s.RecordFrame() // must not mutate after close per invariant
	second := s.Close()

	require.Equal(t, first, second)
	require.Equal(t, uint64(1), first.FrameCount)
}

func TestIsIdleStrictInequality(t *testing.T) {
	s := New("sess-1", "")
	require.False(t, s.IsIdle(s.StartTimeMs+30000, 30000), "exactly at timeout must not be idle")
	require.True(t, s.IsIdle(s.StartTimeMs+30001, 30000))
}

func TestRecordDroppedAccumulates(t *testing.T) {
	s := New("sess-1", "")
	s.RecordDropped(3)
	s.RecordDropped(1)
	summary := s.Close()
	require.Equal(t, uint64(4), summary.DroppedCount)
}

func TestCorrelationIDCarriedToSummary(t *testing.T) {
	s := New("sess-1", "corr-99")
	summary := s.Close()
	require.Equal(t, "corr-99", summary.CorrelationID)
}
