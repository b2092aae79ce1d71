// Package clock provides the monotonic millisecond timestamps used
// throughout session bookkeeping and wire events.
package clock

import "time"

// processStart anchors NowMs: its wall-clock reading gives the Unix epoch
// offset, and its monotonic reading keeps later values from going backwards
// when the wall clock is adjusted.
var processStart = time.Now()

// NowMs returns the current time as Unix milliseconds, advanced from
// process start by the monotonic clock.
func NowMs() int64 {
	return processStart.UnixMilli() + time.Since(processStart).Milliseconds()
}
