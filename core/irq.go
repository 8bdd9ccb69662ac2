package core

import "stmi2c/regs"

// HandleEvent is the event interrupt entry point (I2Cx_EV).
func (h *Handle) HandleEvent() {
	state := disableInterrupts()
	s := advance(h.xfer, h.snapshot(), h.cfg.Ack)
	ok := h.apply(&s)
	restoreInterrupts(state)
	if ok {
		h.deliver(&s)
	}
}

// HandleError is the error interrupt entry point (I2Cx_ER). Any error ends
// the transfer, so its watchdog is disarmed before the callback runs.
func (h *Handle) HandleError() {
	state := disableInterrupts()
	st := status{sr1: h.bank.Get(regs.SR1), cr2: h.bank.Get(regs.CR2)}
	s := recoverErrors(h.xfer, st)
	ok := h.apply(&s)
	if ok && s.nev > 0 {
		h.disarm()
	}
	restoreInterrupts(state)
	if ok {
		h.deliver(&s)
	}
}

// snapshot reads SR1 and CR2, and SR2 only when ADDR is not pending: an SR2
// read after SR1 clears ADDR, which must wait until ACK has been settled for
// a single-byte receive. With ADDR pending, mastership follows from the
// handle: a transfer in flight means this peripheral sent the address.
func (h *Handle) snapshot() status {
	st := status{sr1: h.bank.Get(regs.SR1), cr2: h.bank.Get(regs.CR2)}
	if st.sr1&regs.SR1_ADDR == 0 {
		st.sr2 = h.bank.Get(regs.SR2)
	} else if h.xfer.state != Ready {
		st.sr2 = regs.SR2_MSL | regs.SR2_BUSY
	}
	return st
}

// apply performs the register effects in order and stores the new cursor.
// It runs with interrupts masked. If the cursor was replaced while the
// effects were applied, a nested handler already settled the transfer and
// the step is dropped; apply then reports false.
func (h *Handle) apply(s *step) bool {
	gen := h.gen
	b := h.bank
	for _, a := range s.Actions() {
		switch a.kind {
		case actWriteData:
			b.Set(regs.DR, a.val)
		case actReadData:
			h.xfer.buf[a.val] = byte(b.Get(regs.DR))
		case actAckOff:
			regs.ClearBits(b, regs.CR1, regs.CR1_ACK)
		case actAckOn:
			regs.SetBits(b, regs.CR1, regs.CR1_ACK)
		case actClearAddr:
			b.Get(regs.SR1)
			b.Get(regs.SR2)
		case actClearStop:
			b.Get(regs.SR1)
			b.Set(regs.CR1, b.Get(regs.CR1))
		case actStop:
			regs.SetBits(b, regs.CR1, regs.CR1_STOP)
		case actMaskBuffer:
			regs.ClearBits(b, regs.CR2, regs.CR2_ITBUFEN)
		case actMaskAll:
			regs.ClearBits(b, regs.CR2, regs.CR2_IT)
		case actClearFlag:
			b.Set(regs.SR1, ^a.val)
		}
	}
	if h.gen != gen {
		return false
	}
	h.xfer = s.next
	h.gen++
	return true
}

// deliver runs the callback for each event. The cursor is already stored,
// so a callback can start the next transfer.
func (h *Handle) deliver(s *step) {
	for _, ev := range s.Events() {
		h.notify(ev)
	}
}

func (h *Handle) notify(ev Event) {
	RecordTrace(h.id, ev, GetTime(), uint32(h.xfer.remaining()))
	if h.cb != nil {
		h.cb(h, ev)
	}
}

// Abort stops the transfer in flight: transfer interrupts are masked, STOP is
// requested and the callback receives EventTimeout. The handle stays busy
// until the callback (or the caller) closes it. Abort reports whether a
// transfer was in flight.
func (h *Handle) Abort() bool {
	state := disableInterrupts()
	if h.xfer.state == Ready {
		restoreInterrupts(state)
		return false
	}
	regs.ClearBits(h.bank, regs.CR2, regs.CR2_IT)
	regs.SetBits(h.bank, regs.CR1, regs.CR1_STOP)
	h.disarm()
	restoreInterrupts(state)

	h.notify(EventTimeout)
	return true
}

// Expire aborts the transfer in flight if its watchdog deadline is at or
// before now.
func (h *Handle) Expire(now uint32) bool {
	if !h.armed || h.xfer.state == Ready || !tickReached(now, h.deadline) {
		return false
	}
	return h.Abort()
}
