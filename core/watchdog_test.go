package core

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func resetTimers() {
	timers = timerQueue{}
	SetTime(0)
}

func record(fired *[]uint32) func(*Timer) TimerAction {
	return func(t *Timer) TimerAction {
		*fired = append(*fired, t.Deadline)
		return TimerDone
	}
}

func TestTimersFireInDeadlineOrder(t *testing.T) {
	resetTimers()
	var fired []uint32
	queued := []*Timer{
		{Deadline: 300, Fire: record(&fired)},
		{Deadline: 100, Fire: record(&fired)},
		{Deadline: 200, Fire: record(&fired)},
		{Deadline: 900, Fire: record(&fired)},
	}
	for _, tm := range queued {
		ScheduleTimer(tm)
	}

	SetTime(300)
	ProcessTimers()

	if diff := cmp.Diff([]uint32{100, 200, 300}, fired); diff != "" {
		t.Errorf("fired mismatch (-want +got):\n%s", diff)
	}
	if timers.head != queued[3] || queued[3].next != nil {
		t.Error("future timer not left queued")
	}
}

func TestTimerRearm(t *testing.T) {
	resetTimers()
	count := 0
	tm := &Timer{Deadline: 10}
	tm.Fire = func(t *Timer) TimerAction {
		count++
		if count < 3 {
			t.Deadline += 10
			return TimerRearm
		}
		return TimerDone
	}
	ScheduleTimer(tm)

	SetTime(100)
	ProcessTimers()
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestCancelTimer(t *testing.T) {
	resetTimers()
	var fired []uint32
	a := &Timer{Deadline: 10, Fire: record(&fired)}
	b := &Timer{Deadline: 20, Fire: record(&fired)}
	ScheduleTimer(a)
	ScheduleTimer(b)

	if !CancelTimer(a) {
		t.Fatal("queued timer not found")
	}
	if CancelTimer(a) {
		t.Error("timer removed twice")
	}
	SetTime(50)
	ProcessTimers()
	if diff := cmp.Diff([]uint32{20}, fired); diff != "" {
		t.Errorf("fired mismatch (-want +got):\n%s", diff)
	}
}

func TestTimersAcrossWrap(t *testing.T) {
	resetTimers()
	SetTime(0xFFFFFF00)
	ProcessTimers()

	var fired []uint32
	ScheduleTimer(&Timer{Deadline: 0x00000080, Fire: record(&fired)})
	ScheduleTimer(&Timer{Deadline: 0xFFFFFF80, Fire: record(&fired)})

	SetTime(0xFFFFFFF0)
	ProcessTimers()
	if diff := cmp.Diff([]uint32{0xFFFFFF80}, fired); diff != "" {
		t.Errorf("before wrap (-want +got):\n%s", diff)
	}

	SetTime(0x100)
	ProcessTimers()
	if diff := cmp.Diff([]uint32{0xFFFFFF80, 0x80}, fired); diff != "" {
		t.Errorf("after wrap (-want +got):\n%s", diff)
	}
}

func TestTickConversions(t *testing.T) {
	tests := []struct {
		name string
		got  uint32
		want uint32
	}{
		{"FromUS(1000)", TimerFromUS(1000), 12000},
		{"ToUS(12000)", TimerToUS(12000), 1000},
		{"FromUS(1s)", TimerFromUS(1000000), TimerFreq},
		{"FromDuration(0)", TimerFromDuration(0), 0},
		{"FromDuration(-1)", TimerFromDuration(-1), 0},
		{"FromDuration(25ms)", TimerFromDuration(25 * time.Millisecond), 300000},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
		}
	}
	if got := TimerFromDuration(1 << 62); got >= 1<<31 {
		t.Errorf("FromDuration(huge) = %d, not saturated", got)
	}
}
