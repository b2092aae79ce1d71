// Package emitter sends wire events to the client data channel, gated on
// its open state.
package emitter

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/vitalscan/gateway/internal/events"
	"github.com/vitalscan/gateway/internal/metrics"
	"github.com/vitalscan/gateway/internal/transport"
)

// Emitter serializes events to JSON and sends them over a DataChannel,
// dropping silently (at debug level) when the channel is not open. A
// mutex serializes concurrent sends from the video and audio processors,
// mirroring the handler's newEventSender pattern.
type Emitter struct {
	mu sync.Mutex
	dc transport.DataChannel
}

func New(dc transport.DataChannel) *Emitter {
	return &Emitter{dc: dc}
}

// Emit serializes ev and sends it if the data channel is open. It returns
// whether the event was sent; it never blocks beyond the channel's own
// non-blocking send call.
func (e *Emitter) Emit(ev events.Event) bool {
	if e.dc.ReadyState() != transport.StateOpen {
		slog.Debug("dropping event, data channel not open", "event_type", ev.EventType())
		metrics.EventsSkipped.WithLabelValues(ev.EventType()).Inc()
		return false
	}

	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("marshal event", "event_type", ev.EventType(), "error", err)
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.dc.Send(data); err != nil {
		slog.Error("send event", "event_type", ev.EventType(), "error", err)
		return false
	}
	metrics.EventsEmitted.WithLabelValues(ev.EventType()).Inc()
	return true
}
