// Package transport declares the WebRTC collaborators this gateway
// consumes but does not implement: the peer connection, its data channel,
// and inbound tracks. A concrete binding lives in transport/wsbridge, used
// for local development in place of a real ICE/DTLS/SRTP stack.
package transport

import "context"

// ReadyState mirrors RTCDataChannelState.
type ReadyState int

const (
	StateConnecting ReadyState = iota
	StateOpen
	StateClosing
	StateClosed
)

// DataChannel is the outbound event sink for a session.
type DataChannel interface {
	ReadyState() ReadyState
	Send(data []byte) error
}

// TrackKind distinguishes inbound media tracks.
type TrackKind int

const (
	TrackVideo TrackKind = iota
	TrackAudio
)

// Track is a single inbound media track's frame source.
type Track interface {
	Kind() TrackKind
	// ReadFrame blocks until the next frame arrives, ctx is cancelled, or
	// the track ends (io.EOF).
	ReadFrame(ctx context.Context) ([]byte, error)
}

// PeerConnection is the per-session WebRTC handle.
type PeerConnection interface {
	Close() error
}

// CloseCode mirrors the RTCPeerConnection/WebSocket close codes this
// gateway uses to signal why a session ended.
type CloseCode int

const (
	CloseNormal        CloseCode = 1000
	CloseOverCapacity  CloseCode = 1008
	CloseInternalError CloseCode = 1011
)
