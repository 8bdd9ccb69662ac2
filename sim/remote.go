package sim

import "stmi2c/regs"

// The Remote* methods play a foreign master on the bus, for exercising the
// peripheral in slave mode.

// RemoteAddress addresses the peripheral with addr. read selects a master
// read, making the peripheral the transmitter. It reports whether the
// peripheral acknowledged: it must be enabled, acknowledging, and own addr.
func (p *Peripheral) RemoteAddress(addr uint8, read bool) bool {
	cr1 := p.r[regs.CR1]
	own := uint8(p.r[regs.OAR1]&regs.OAR1_ADD_Msk) >> regs.OAR1_ADD_Pos
	if cr1&regs.CR1_PE == 0 || cr1&regs.CR1_ACK == 0 || addr != own || p.mode != idle {
		return false
	}
	p.mode = slaveAddressed
	p.r[regs.SR1] |= regs.SR1_ADDR
	p.r[regs.SR2] = regs.SR2_BUSY
	if read {
		p.r[regs.SR2] |= regs.SR2_TRA
	}
	p.pump()
	return true
}

// RemoteWrite sends b to the addressed peripheral and returns its ACK. A
// byte arriving before the previous one was read is an overrun.
func (p *Peripheral) RemoteWrite(b byte) bool {
	if p.mode != slaveReceiving {
		return false
	}
	if p.r[regs.SR1]&regs.SR1_RXNE != 0 {
		p.r[regs.SR1] |= regs.SR1_OVR
		p.pump()
		return false
	}
	p.r[regs.DR] = uint32(b)
	p.r[regs.SR1] |= regs.SR1_RXNE
	ack := p.r[regs.CR1]&regs.CR1_ACK != 0
	p.pump()
	return ack
}

// RemoteRead clocks one byte out of the addressed peripheral and answers it
// with ack. NACK ends the read and raises AF in the peripheral. Reading
// before the peripheral loaded DR is an underrun.
func (p *Peripheral) RemoteRead(ack bool) byte {
	if p.mode != slaveTransmitting {
		return 0xFF
	}
	if p.r[regs.SR1]&regs.SR1_TXE != 0 {
		p.r[regs.SR1] |= regs.SR1_OVR
		p.pump()
		return 0xFF
	}
	b := byte(p.r[regs.DR])
	if ack {
		p.r[regs.SR1] |= regs.SR1_TXE
	} else {
		p.r[regs.SR1] |= regs.SR1_AF
	}
	p.pump()
	return b
}

// RemoteStop ends the foreign transaction. STOPF is only raised for a
// peripheral that was receiving; a slave transmitter learns of the end from
// the NACK.
func (p *Peripheral) RemoteStop() {
	switch p.mode {
	case slaveAddressed, slaveReceiving:
		p.r[regs.SR1] |= regs.SR1_STOPF
	case slaveTransmitting:
	default:
		return
	}
	p.mode = idle
	p.r[regs.SR1] &^= regs.SR1_TXE | regs.SR1_BTF
	p.r[regs.SR2] &^= regs.SR2_BUSY | regs.SR2_TRA
	p.pump()
}
