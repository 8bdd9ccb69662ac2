package core

import "stmi2c/regs"

// Listen arms (or disarms) the transfer interrupts while Ready so the
// peripheral answers its own address as a slave. Slave traffic is reported
// through AddressMatched, DataRequest, DataReceived and Stop events; the
// callback moves the bytes with SlaveSend and SlaveReceive.
func (h *Handle) Listen(on bool) error {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if h.xfer.state != Ready {
		return ErrBusy
	}
	if on {
		regs.SetBits(h.bank, regs.CR2, regs.CR2_IT)
	} else {
		regs.ClearBits(h.bank, regs.CR2, regs.CR2_IT)
	}
	return nil
}

// SlaveSend loads the next byte for the addressing master.
func (h *Handle) SlaveSend(b byte) {
	h.bank.Set(regs.DR, uint32(b))
}

// SlaveReceive takes the byte the addressing master wrote.
func (h *Handle) SlaveReceive() byte {
	return byte(h.bank.Get(regs.DR))
}
