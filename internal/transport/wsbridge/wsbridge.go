// Package wsbridge is a gorilla/websocket-based stand-in for the
// RTCPeerConnection this gateway is built against. One websocket carries
// both media tracks, tagged by a one-byte kind prefix on each binary
// frame, plus JSON control/event traffic as text frames. It exists so the
// rest of the gateway can be developed and tested without a real
// ICE/DTLS/SRTP stack.
package wsbridge

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/vitalscan/gateway/internal/clock"
	"github.com/vitalscan/gateway/internal/events"
	"github.com/vitalscan/gateway/internal/transport"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16384,
	WriteBufferSize: 16384,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	tagVideo byte = 1
	tagAudio byte = 2

	videoTrackCapacity = 4
	audioTrackCapacity = 64
)

// controlMessage is the shape of inbound text frames.
type controlMessage struct {
	Type string `json:"type"`
}

// Conn is one session's transport: it implements transport.DataChannel and
// transport.PeerConnection, and exposes its two transport.Track sources.
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	state   atomic.Int32

	video *wsTrack
	audio *wsTrack
}

// Upgrade upgrades an HTTP request to a websocket and returns the bridged
// connection, open and ready to read and send.
func Upgrade(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	c := &Conn{
		ws:    ws,
		video: newWSTrack(transport.TrackVideo, videoTrackCapacity),
		audio: newWSTrack(transport.TrackAudio, audioTrackCapacity),
	}
	c.state.Store(int32(transport.StateOpen))
	return c, nil
}

// VideoTrack returns the inbound video frame source.
func (c *Conn) VideoTrack() transport.Track { return c.video }

// AudioTrack returns the inbound audio frame source.
func (c *Conn) AudioTrack() transport.Track { return c.audio }

// ReadyState reports the current data-channel state.
func (c *Conn) ReadyState() transport.ReadyState {
	return transport.ReadyState(c.state.Load())
}

// Send writes an event payload as a text frame. Safe for concurrent use.
func (c *Conn) Send(data []byte) error {
	if c.ReadyState() != transport.StateOpen {
		return websocket.ErrCloseSent
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Close closes the underlying websocket and ends both tracks.
func (c *Conn) Close() error {
	c.state.Store(int32(transport.StateClosed))
	c.video.closeTrack()
	c.audio.closeTrack()
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.Close()
}

// ReadLoop reads frames until the connection errors out or ctx is
// cancelled, routing binary frames to the tagged track and text frames to
// control handling. It returns when the connection ends; callers should
// treat this as both track sources reaching end-of-stream.
func (c *Conn) ReadLoop(ctx context.Context) {
	defer c.video.closeTrack()
	defer c.audio.closeTrack()

	go func() {
		<-ctx.Done()
		c.writeMu.Lock()
		c.ws.Close()
		c.writeMu.Unlock()
	}()

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			// Only an open connection moves to Closing here; a read error
			// caused by Close must not overwrite its Closed state.
			c.state.CompareAndSwap(int32(transport.StateOpen), int32(transport.StateClosing))
			return
		}
		switch msgType {
		case websocket.BinaryMessage:
			c.routeFrame(data)
		case websocket.TextMessage:
			c.handleControl(data)
		}
	}
}

func (c *Conn) routeFrame(data []byte) {
	if len(data) < 1 {
		return
	}
	tag, payload := data[0], data[1:]
	switch tag {
	case tagVideo:
		c.video.push(payload)
	case tagAudio:
		c.audio.push(payload)
	}
}

func (c *Conn) handleControl(data []byte) {
	var msg controlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		slog.Warn("malformed control message", "error", err)
		return
	}
	switch msg.Type {
	case "ping":
		payload, err := json.Marshal(events.NewPong(clock.NowMs()))
		if err != nil {
			return
		}
		if err := c.Send(payload); err != nil {
			slog.Warn("send pong", "error", err)
		}
	}
}

// wsTrack is a drop-oldest byte-frame source with explicit end-of-stream
// signaling, distinct from buffer.Buffer because it carries raw wire
// frames (not yet decoded into media.RawFrame/acoustic.Sample) and must
// surface io.EOF when the underlying connection ends.
type wsTrack struct {
	kind    transport.TrackKind
	ch      chan []byte
	closed  atomic.Bool
	closeCh chan struct{}
}

func newWSTrack(kind transport.TrackKind, capacity int) *wsTrack {
	return &wsTrack{kind: kind, ch: make(chan []byte, capacity), closeCh: make(chan struct{})}
}

func (t *wsTrack) Kind() transport.TrackKind { return t.kind }

// push inserts a frame, discarding the oldest queued frame first if full.
func (t *wsTrack) push(frame []byte) {
	for {
		select {
		case t.ch <- frame:
			return
		default:
		}
		select {
		case <-t.ch:
		default:
		}
	}
}

func (t *wsTrack) closeTrack() {
	if t.closed.CompareAndSwap(false, true) {
		close(t.closeCh)
	}
}

// ReadFrame blocks for the next frame, ctx cancellation, or track end. A
// frame already queued when the track closes is still delivered before EOF.
func (t *wsTrack) ReadFrame(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-t.ch:
		return frame, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.closeCh:
		select {
		case frame := <-t.ch:
			return frame, nil
		default:
			return nil, io.EOF
		}
	}
}
