package core

import (
	"strconv"

	"stmi2c/protocol"
)

// TraceEvent is one delivered callback event, captured for post-mortem
// analysis of a transfer.
type TraceEvent struct {
	Bus       BusID
	Event     Event
	Clock     uint32 // tick counter at delivery
	Remaining uint32 // bytes left in the transfer at delivery
}

const TraceRingSize = 32

var (
	traceRing  [TraceRingSize]TraceEvent
	traceHead  uint8 // next write position
	traceCount uint32
)

var traceEnabled = true

// SetTraceEnabled turns capture on or off.
func SetTraceEnabled(enabled bool) {
	traceEnabled = enabled
}

// RecordTrace stores an event in the ring, overwriting the oldest entry.
// It never blocks and is called from interrupt context.
func RecordTrace(bus BusID, ev Event, clock, remaining uint32) {
	if !traceEnabled {
		return
	}
	state := disableInterrupts()
	idx := traceHead
	traceRing[idx] = TraceEvent{Bus: bus, Event: ev, Clock: clock, Remaining: remaining}
	traceHead = (idx + 1) % TraceRingSize
	traceCount++
	restoreInterrupts(state)
}

// TraceCount returns the number of events recorded since the last clear,
// including those already overwritten.
func TraceCount() uint32 {
	return traceCount
}

// SnapshotTrace appends the ring contents to dst, oldest first.
func SnapshotTrace(dst []TraceEvent) []TraceEvent {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	start := traceHead
	for i := uint8(0); i < TraceRingSize; i++ {
		evt := traceRing[(start+i)%TraceRingSize]
		if evt.Event == EventNone {
			continue
		}
		dst = append(dst, evt)
	}
	return dst
}

// DumpTrace writes the ring through the debug writer, oldest first.
func DumpTrace() {
	var buf [TraceRingSize]TraceEvent
	evts := SnapshotTrace(buf[:0])
	debugPrintln("[I2C] trace: " + strconv.FormatUint(uint64(TraceCount()), 10) + " events")
	for _, evt := range evts {
		debugPrintln("[I2C] bus=" + strconv.Itoa(int(evt.Bus)) +
			" " + evt.Event.String() +
			" us=" + strconv.FormatUint(uint64(TimerToUS(evt.Clock)), 10) +
			" remaining=" + strconv.FormatUint(uint64(evt.Remaining), 10))
	}
}

// ClearTrace empties the ring.
func ClearTrace() {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	clearTrace()
}

func clearTrace() {
	for i := range traceRing {
		traceRing[i] = TraceEvent{}
	}
	traceHead = 0
	traceCount = 0
}

// FlushTrace moves the ring contents to w as trace frames, oldest first, and
// empties the ring. Events recorded while the frames are written stay for
// the next flush.
func FlushTrace(w *protocol.TraceWriter) error {
	var buf [TraceRingSize]TraceEvent
	state := disableInterrupts()
	events := SnapshotTrace(buf[:0])
	clearTrace()
	restoreInterrupts(state)

	if len(events) == 0 {
		return nil
	}
	var recs [TraceRingSize]protocol.TraceRecord
	for i, evt := range events {
		recs[i] = protocol.TraceRecord{
			Bus:       uint8(evt.Bus),
			Event:     uint8(evt.Event),
			Clock:     evt.Clock,
			Remaining: evt.Remaining,
		}
	}
	return w.WriteRecords(recs[:len(events)]...)
}
