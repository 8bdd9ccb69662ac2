package core

import (
	"time"

	"stmi2c/regs"
)

// State is the lifecycle of a Handle.
type State uint8

const (
	Ready State = iota
	BusySending
	BusyReceiving
)

func (s State) String() string {
	switch s {
	case Ready:
		return "Ready"
	case BusySending:
		return "BusySending"
	case BusyReceiving:
		return "BusyReceiving"
	default:
		return "INVALID"
	}
}

// Request describes one interrupt-driven master transaction.
type Request struct {
	Addr uint8 // 7-bit target address

	// RepeatedStart leaves the bus held on completion; the next Start issues
	// a repeated START instead of the STOP being generated here.
	RepeatedStart bool

	// Timeout arms the transfer watchdog. Zero leaves the transfer unbounded.
	Timeout time.Duration
}

// Handle owns one I2C peripheral. Normal context starts transfers; the
// interrupt handlers HandleEvent and HandleError drive them to completion
// and report through the callback.
type Handle struct {
	bank regs.Bank
	cfg  Config
	cb   Callback
	id   BusID

	xfer transfer
	gen  uint32 // bumped whenever xfer is replaced

	watchdog Timer
	deadline uint32
	armed    bool
}

// New returns a Ready handle for the peripheral behind bank. Call Init before
// the first transfer.
func New(bank regs.Bank, cfg Config, cb Callback) *Handle {
	h := &Handle{bank: bank, cfg: cfg, cb: cb}
	h.watchdog.Fire = h.watchdogFired
	return h
}

// SetCallback replaces the callback. It must not be called while a transfer
// is in flight.
func (h *Handle) SetCallback(cb Callback) {
	h.cb = cb
}

func (h *Handle) Bank() regs.Bank { return h.bank }
func (h *Handle) Config() Config  { return h.cfg }
func (h *Handle) ID() BusID       { return h.id }

// State returns the current lifecycle state.
func (h *Handle) State() State {
	return h.xfer.state
}

// Remaining returns the bytes left in the transfer in flight.
func (h *Handle) Remaining() int {
	return h.xfer.remaining()
}

// Transferred returns the bytes moved by the current or last transfer.
func (h *Handle) Transferred() int {
	return h.xfer.pos
}

// StartSend begins an interrupt-driven write of buf to req.Addr. It returns
// as soon as START is requested; completion arrives as EventSendComplete.
func (h *Handle) StartSend(buf []byte, req Request) error {
	return h.start(BusySending, buf, req)
}

// StartReceive begins an interrupt-driven read into buf from req.Addr.
// Completion arrives as EventReceiveComplete.
func (h *Handle) StartReceive(buf []byte, req Request) error {
	return h.start(BusyReceiving, buf, req)
}

func (h *Handle) start(dir State, buf []byte, req Request) error {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if h.xfer.state != Ready {
		return ErrBusy
	}
	if len(buf) == 0 || req.Addr > 0x7F {
		return ErrInvalidRequest
	}

	h.xfer = transfer{
		state:         dir,
		buf:           buf,
		size:          len(buf),
		addr:          req.Addr,
		repeatedStart: req.RepeatedStart,
	}
	h.gen++
	h.armWatchdog(req.Timeout)

	regs.SetBits(h.bank, regs.CR1, regs.CR1_START)
	// Interrupts last: the event handler must see a fully armed cursor.
	regs.SetBits(h.bank, regs.CR2, regs.CR2_IT)
	return nil
}

// Close returns the handle to Ready: transfer interrupts are masked, the
// buffer is released and ACK is restored after a receive. Callbacks call it
// after handling an error event.
func (h *Handle) Close() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	regs.ClearBits(h.bank, regs.CR2, regs.CR2_IT)
	if h.xfer.state == BusyReceiving && h.cfg.Ack == AckEnable {
		ManageAcking(h.bank, true)
	}
	h.xfer = h.xfer.closed()
	h.gen++
	h.disarm()
}

// GenerateStop requests a STOP condition.
func (h *Handle) GenerateStop() {
	regs.SetBits(h.bank, regs.CR1, regs.CR1_STOP)
}

func (h *Handle) disarm() {
	CancelTimer(&h.watchdog)
	h.armed = false
}

func (h *Handle) armWatchdog(timeout time.Duration) {
	h.disarm()
	if timeout <= 0 {
		return
	}
	h.deadline = GetTime() + TimerFromDuration(timeout)
	h.armed = true
	h.watchdog.Deadline = h.deadline
	ScheduleTimer(&h.watchdog)
}

func (h *Handle) watchdogFired(t *Timer) TimerAction {
	h.Expire(t.Deadline)
	return TimerDone
}
