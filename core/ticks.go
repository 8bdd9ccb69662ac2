package core

import (
	"sync/atomic"
	"time"
)

// TimerFreq is the rate of the tick counter deadlines are measured in.
const TimerFreq = 12000000

// ticks is stored by the main loop and read by the watchdog with interrupts
// masked.
var ticks atomic.Uint32

// GetTime returns the current tick counter.
func GetTime() uint32 { return ticks.Load() }

// SetTime stores the tick counter. Targets derive it from their runtime
// clock; tests step it by hand.
func SetTime(t uint32) { ticks.Store(t) }

// TimerFromUS converts microseconds to ticks.
func TimerFromUS(us uint32) uint32 {
	return uint32(uint64(us) * TimerFreq / 1e6)
}

// TimerToUS converts ticks to microseconds.
func TimerToUS(t uint32) uint32 {
	return uint32(uint64(t) * 1e6 / TimerFreq)
}

// maxTimeout is the longest span tickReached can still order.
const maxTimeout = time.Duration(1<<31-1) * time.Second / TimerFreq

// TimerFromDuration converts d to ticks, saturating at maxTimeout.
func TimerFromDuration(d time.Duration) uint32 {
	switch {
	case d <= 0:
		return 0
	case d > maxTimeout:
		d = maxTimeout
	}
	return uint32(uint64(d) * TimerFreq / uint64(time.Second))
}

// tickReached reports whether now is at or past deadline on the wrapping
// counter.
func tickReached(now, deadline uint32) bool {
	return int32(now-deadline) >= 0
}
