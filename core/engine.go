package core

import "stmi2c/regs"

// The transfer engine is split in two. advance and recoverErrors decide, from
// one snapshot of the status registers, which register effects and events a
// handler invocation produces. irq.go applies them to the bank. Keeping the
// decision free of register access lets it be tested on plain flag values.

// status is the register snapshot an interrupt handler decides on.
type status struct {
	sr1 uint32
	sr2 uint32
	cr2 uint32
}

func (s status) has(flag uint32) bool { return s.sr1&flag != 0 }
func (s status) master() bool         { return s.sr2&regs.SR2_MSL != 0 }
func (s status) transmitter() bool    { return s.sr2&regs.SR2_TRA != 0 }
func (s status) enabled(bit uint32) bool {
	return s.cr2&bit != 0
}

type actionKind uint8

const (
	actWriteData  actionKind = iota + 1 // DR <- val
	actReadData                         // buf[val] <- DR
	actAckOff                           // CR1.ACK = 0
	actAckOn                            // CR1.ACK = 1
	actClearAddr                        // read SR1, then SR2
	actClearStop                        // read SR1, then write CR1
	actStop                             // CR1.STOP = 1
	actMaskBuffer                       // CR2.ITBUFEN = 0
	actMaskAll                          // CR2.ITBUFEN|ITEVTEN|ITERREN = 0
	actClearFlag                        // SR1 <- ^val
)

type action struct {
	kind actionKind
	val  uint32
}

const (
	maxActions = 16
	maxEvents  = 8
)

// step is the outcome of one handler invocation: register effects in the
// order they must happen, the cursor to commit, then the events to deliver.
// Fixed arrays keep the interrupt path free of allocation.
type step struct {
	actions [maxActions]action
	nact    int
	events  [maxEvents]Event
	nev     int
	next    transfer
}

func (s *step) do(kind actionKind, val uint32) {
	s.actions[s.nact] = action{kind: kind, val: val}
	s.nact++
}

func (s *step) emit(ev Event) {
	s.events[s.nev] = ev
	s.nev++
}

func (s *step) Actions() []action { return s.actions[:s.nact] }
func (s *step) Events() []Event   { return s.events[:s.nev] }

// transfer is the cursor of the transaction in flight.
type transfer struct {
	state         State
	buf           []byte
	pos           int
	size          int // length requested, kept for the single-byte receive path
	addr          uint8
	repeatedStart bool
}

func (t transfer) remaining() int {
	if t.buf == nil {
		return 0
	}
	return len(t.buf) - t.pos
}

// closed returns the cursor after completion or Close: Ready, buffer
// released, byte count retained for Transferred.
func (t transfer) closed() transfer {
	return transfer{state: Ready, pos: t.pos, addr: t.addr}
}

// advance services the event interrupt. Each flag is checked once against
// the snapshot in the order SB, ADDR, BTF, STOPF, TXE, RXNE, ADD10; later
// checks see the cursor as left by earlier ones.
func advance(t transfer, st status, ack AckControl) (s step) {
	s.next = t
	if !st.enabled(regs.CR2_ITEVTEN) {
		return s
	}
	master := st.master()
	buffered := st.enabled(regs.CR2_ITBUFEN)

	if st.has(regs.SR1_SB) {
		switch s.next.state {
		case BusySending:
			s.do(actWriteData, uint32(s.next.addr)<<1)
		case BusyReceiving:
			s.do(actWriteData, uint32(s.next.addr)<<1|1)
		}
	}

	if st.has(regs.SR1_ADDR) {
		if master {
			// A single byte must be NACKed, and ACK is sampled as soon as
			// ADDR clears.
			if s.next.state == BusyReceiving && s.next.size == 1 {
				s.do(actAckOff, 0)
			}
			s.do(actClearAddr, 0)
		} else {
			s.do(actClearAddr, 0)
			s.emit(EventAddressMatched)
		}
	}

	if st.has(regs.SR1_BTF) && master && s.next.state == BusySending &&
		st.has(regs.SR1_TXE) && s.next.remaining() == 0 {
		if !s.next.repeatedStart {
			s.do(actStop, 0)
		}
		s.do(actMaskAll, 0)
		s.next = s.next.closed()
		s.emit(EventSendComplete)
	}

	if st.has(regs.SR1_STOPF) {
		s.do(actClearStop, 0)
		s.emit(EventStop)
	}

	if st.has(regs.SR1_TXE) && buffered {
		if master {
			if s.next.state == BusySending && s.next.remaining() > 0 {
				s.do(actWriteData, uint32(s.next.buf[s.next.pos]))
				s.next.pos++
				// The last byte is in flight; BTF finishes the transfer.
				if s.next.remaining() == 0 {
					s.do(actMaskBuffer, 0)
				}
			}
		} else if st.transmitter() {
			s.emit(EventDataRequest)
		}
	}

	if st.has(regs.SR1_RXNE) && buffered {
		if master {
			if s.next.state == BusyReceiving && s.next.remaining() > 0 {
				if s.next.size > 1 && s.next.remaining() == 2 {
					s.do(actAckOff, 0)
				}
				s.do(actReadData, uint32(s.next.pos))
				s.next.pos++
				if s.next.remaining() == 0 {
					if !s.next.repeatedStart {
						s.do(actStop, 0)
					}
					s.do(actMaskAll, 0)
					if ack == AckEnable {
						s.do(actAckOn, 0)
					}
					s.next = s.next.closed()
					s.emit(EventReceiveComplete)
				}
			}
		} else if !st.transmitter() {
			s.emit(EventDataReceived)
		}
	}

	if st.has(regs.SR1_ADD10) {
		s.emit(EventAddr10)
	}
	return s
}

var errorFlags = [...]struct {
	flag  uint32
	event Event
}{
	{regs.SR1_BERR, EventBusError},
	{regs.SR1_ARLO, EventArbitrationLost},
	{regs.SR1_AF, EventAckFailure},
	{regs.SR1_OVR, EventOverrun},
	{regs.SR1_PECERR, EventPECError},
	{regs.SR1_TIMEOUT, EventTimeout},
	{regs.SR1_SMBALERT, EventSMBusAlert},
}

// recoverErrors services the error interrupt: every asserted error flag is
// cleared and reported, and all transfer interrupts are masked. The cursor
// is left as it was so the callback can inspect how far the transfer got.
func recoverErrors(t transfer, st status) (s step) {
	s.next = t
	if !st.enabled(regs.CR2_ITERREN) {
		return s
	}
	masked := false
	for _, e := range errorFlags {
		if !st.has(e.flag) {
			continue
		}
		s.do(actClearFlag, e.flag)
		if !masked {
			s.do(actMaskAll, 0)
			masked = true
		}
		s.emit(e.event)
	}
	return s
}
