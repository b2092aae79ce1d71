package wsbridge

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/vitalscan/gateway/internal/events"
	"github.com/vitalscan/gateway/internal/transport"
)

func newTestServer(t *testing.T) (*Conn, *websocket.Conn) {
	t.Helper()
	connCh := make(chan *Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := Upgrade(w, r)
		require.NoError(t, err)
		connCh <- c
		go c.ReadLoop(context.Background())
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	server := <-connCh
	return server, client
}

func TestVideoAndAudioFramesRouteByTag(t *testing.T) {
	server, client := newTestServer(t)

	require.NoError(t, client.WriteMessage(websocket.BinaryMessage, append([]byte{tagVideo}, []byte("vframe")...)))
	require.NoError(t, client.WriteMessage(websocket.BinaryMessage, append([]byte{tagAudio}, []byte("aframe")...)))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	vf, err := server.VideoTrack().ReadFrame(ctx)
	require.NoError(t, err)
	require.Equal(t, "vframe", string(vf))

	af, err := server.AudioTrack().ReadFrame(ctx)
	require.NoError(t, err)
	require.Equal(t, "aframe", string(af))
}

func TestTrackReadFrameReturnsEOFAfterClose(t *testing.T) {
	server, client := newTestServer(t)
	require.NoError(t, client.Close())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.Eventually(t, func() bool {
		_, err := server.VideoTrack().ReadFrame(ctx)
		return err == io.EOF
	}, time.Second, 10*time.Millisecond)
}

func TestPingReceivesPongEvent(t *testing.T) {
	server, client := newTestServer(t)
	_ = server

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))

	client.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)

	var ev events.PongEvent
	require.NoError(t, json.Unmarshal(data, &ev))
	require.Equal(t, "pong", ev.EventType())
}

func TestSendDropsWhenClosed(t *testing.T) {
	server, _ := newTestServer(t)
	require.NoError(t, server.Close())

	err := server.Send([]byte(`{"event_type":"test"}`))
	require.Error(t, err)
	require.Equal(t, transport.StateClosed, server.ReadyState())
}
