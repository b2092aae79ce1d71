package audioproc

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vitalscan/gateway/internal/acoustic"
	"github.com/vitalscan/gateway/internal/buffer"
	"github.com/vitalscan/gateway/internal/emitter"
	"github.com/vitalscan/gateway/internal/events"
	"github.com/vitalscan/gateway/internal/session"
	"github.com/vitalscan/gateway/internal/transport"
)

type recordingChannel struct {
	state transport.ReadyState
	sent  [][]byte
}

func (c *recordingChannel) ReadyState() transport.ReadyState { return c.state }
func (c *recordingChannel) Send(data []byte) error {
	c.sent = append(c.sent, data)
	return nil
}

func silentSample(n int) acoustic.Sample {
	return acoustic.Sample{PCM: make([]float32, n), SampleRate: 48000}
}

func TestAudioWindowFlushesAtBatchSize(t *testing.T) {
	analyzer := acoustic.New(acoustic.DefaultConfig(48000), nil)
	sess := session.New("sess-1", "")
	ch := &recordingChannel{state: transport.StateOpen}
	buf := buffer.NewAudio[acoustic.Sample](0)
	p := New(buf, analyzer, sess, emitter.New(ch), nil, Config{WindowSeconds: 1.0, BatchSize: 10, SampleRate: 48000})

	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)

	for i := 0; i < 10; i++ {
		buf.Put(silentSample(4800)) // 100ms each at 48kHz
	}

	require.Eventually(t, func() bool { return len(ch.sent) == 1 }, time.Second, time.Millisecond)
	cancel()

	var ev events.AudioEvent
	require.NoError(t, json.Unmarshal(ch.sent[0], &ev))
	require.Equal(t, "audio_event", ev.EventTypeField)
	require.Equal(t, 10, ev.Frames)
	require.InDelta(t, 1.0, ev.AudioSeconds, 1e-6)
	require.Equal(t, uint64(10), sess.Close().AudioFrameCount)
}

func TestPartialWindowFlushedOnStop(t *testing.T) {
	analyzer := acoustic.New(acoustic.DefaultConfig(48000), nil)
	sess := session.New("sess-2", "")
	ch := &recordingChannel{state: transport.StateOpen}
	buf := buffer.NewAudio[acoustic.Sample](0)
	p := New(buf, analyzer, sess, emitter.New(ch), nil, Config{WindowSeconds: 1.0, BatchSize: 10, SampleRate: 48000})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	buf.Put(silentSample(4800))
	buf.Put(silentSample(4800))
	time.Sleep(20 * time.Millisecond) // let both items settle into the window

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.NoError(t, p.Stop(stopCtx))

	require.Len(t, ch.sent, 1)
	var ev events.AudioEvent
	require.NoError(t, json.Unmarshal(ch.sent[0], &ev))
	require.Equal(t, 2, ev.Frames)
}

type recordingFailHandler struct {
	code    string
	message string
	called  bool
}

func (r *recordingFailHandler) FailSession(_ context.Context, code, message string) {
	r.called = true
	r.code = code
	r.message = message
}

// TestRecoverFatalInvokesFailHandler exercises Run's top-level recover
// directly: an unrecoverable panic elsewhere in the consumer loop body must
// be converted into a severity=error INTERNAL_ERROR delivered via
// FailHandler, per spec.md §7.
func TestRecoverFatalInvokesFailHandler(t *testing.T) {
	sess := session.New("sess-3", "")
	ch := &recordingChannel{state: transport.StateOpen}
	fail := &recordingFailHandler{}
	p := New(buffer.NewAudio[acoustic.Sample](0), nil, sess, emitter.New(ch), fail, Config{})

	func() {
		defer p.recoverFatal()
		panic("simulated unrecoverable failure")
	}()

	require.True(t, fail.called)
	require.Equal(t, events.ErrInternal, fail.code)
}
