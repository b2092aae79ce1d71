package session

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vitalscan/gateway/internal/emitter"
	"github.com/vitalscan/gateway/internal/transport"
)

type fakeChannel struct {
	state transport.ReadyState
	sent  [][]byte
}

func (f *fakeChannel) ReadyState() transport.ReadyState { return f.state }
func (f *fakeChannel) Send(data []byte) error {
	f.sent = append(f.sent, data)
	return nil
}

type fakeProcessor struct{ stopped bool }

func (f *fakeProcessor) Stop(ctx context.Context) error {
	f.stopped = true
	return nil
}

func TestCreatedToActiveOnFirstTrack(t *testing.T) {
	ch := &fakeChannel{state: transport.StateOpen}
	o := NewOrchestrator(newTestSession(t), Config{IdleTimeoutSec: 30}, emitter.New(ch), nil)
	require.Equal(t, StateCreated, o.State())

	o.AttachTrack(transport.TrackVideo, &fakeProcessor{})
	require.Equal(t, StateActive, o.State())
}

func TestCloseOnlyAfterAllTracksEnd(t *testing.T) {
	ch := &fakeChannel{state: transport.StateOpen}
	o := NewOrchestrator(newTestSession(t), Config{IdleTimeoutSec: 30}, emitter.New(ch), nil)

	vp := &fakeProcessor{}
	ap := &fakeProcessor{}
	o.AttachTrack(transport.TrackVideo, vp)
	o.AttachTrack(transport.TrackAudio, ap)

	o.TrackEnded(context.Background(), transport.TrackVideo)
	require.Equal(t, StateActive, o.State(), "must stay active until every track has ended")

	o.TrackEnded(context.Background(), transport.TrackAudio)
	require.Equal(t, StateClosed, o.State())
	require.True(t, vp.stopped)
	require.True(t, ap.stopped)
}

func TestDataChannelOpenedSkippedAfterClosing(t *testing.T) {
	ch := &fakeChannel{state: transport.StateOpen}
	o := NewOrchestrator(newTestSession(t), Config{IdleTimeoutSec: 30}, emitter.New(ch), nil)
	o.AttachTrack(transport.TrackVideo, &fakeProcessor{})
	o.TrackEnded(context.Background(), transport.TrackVideo)
	require.Equal(t, StateClosed, o.State())

	before := len(ch.sent)
	o.DataChannelOpened()
	require.Len(t, ch.sent, before, "session_started must be skipped once closing/closed")
}

func TestStreamClosedEmittedOnce(t *testing.T) {
	ch := &fakeChannel{state: transport.StateOpen}
	o := NewOrchestrator(newTestSession(t), Config{IdleTimeoutSec: 30}, emitter.New(ch), nil)
	o.AttachTrack(transport.TrackVideo, &fakeProcessor{})
	o.TrackEnded(context.Background(), transport.TrackVideo)
	o.finish() // idempotent, must not emit a second stream_closed

	closedCount := 0
	for _, raw := range ch.sent {
		if bytes.Contains(raw, []byte("stream_closed")) {
			closedCount++
		}
	}
	require.Equal(t, 1, closedCount)
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	return New("sess-orchestrator", "")
}
