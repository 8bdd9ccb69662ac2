package core

// TimerAction is returned by a Timer's Fire function.
type TimerAction uint8

const (
	TimerDone TimerAction = iota
	TimerRearm // Deadline was moved; queue the timer again
)

// Timer is a deadline in the wake queue. Each Handle embeds one as its
// transfer watchdog.
type Timer struct {
	Deadline uint32
	Fire     func(*Timer) TimerAction
	next     *Timer
}

// timerQueue is a singly linked list ordered by Deadline relative to now,
// so it stays ordered when the counter wraps.
type timerQueue struct {
	head *Timer
	now  uint32
}

var timers timerQueue

func (q *timerQueue) earlier(a, b uint32) bool {
	return a-q.now < b-q.now
}

func (q *timerQueue) push(t *Timer) {
	pp := &q.head
	for *pp != nil && !q.earlier(t.Deadline, (*pp).Deadline) {
		pp = &(*pp).next
	}
	t.next = *pp
	*pp = t
}

func (q *timerQueue) remove(t *Timer) bool {
	for pp := &q.head; *pp != nil; pp = &(*pp).next {
		if *pp == t {
			*pp = t.next
			t.next = nil
			return true
		}
	}
	return false
}

func (q *timerQueue) run(now uint32) {
	q.now = now
	for q.head != nil && tickReached(now, q.head.Deadline) {
		t := q.head
		q.head = t.next
		t.next = nil
		if t.Fire(t) == TimerRearm {
			q.push(t)
		}
	}
}

// ScheduleTimer queues t. t must not already be queued.
func ScheduleTimer(t *Timer) {
	state := disableInterrupts()
	timers.push(t)
	restoreInterrupts(state)
}

// CancelTimer dequeues t and reports whether it was queued.
func CancelTimer(t *Timer) bool {
	state := disableInterrupts()
	ok := timers.remove(t)
	restoreInterrupts(state)
	return ok
}

// ProcessTimers fires every timer whose deadline the tick counter has
// reached. Targets call it from their main loop after SetTime.
func ProcessTimers() {
	state := disableInterrupts()
	timers.run(GetTime())
	restoreInterrupts(state)
}
