// Package sim is a behavioural model of an STM32F1 I2C peripheral and the
// devices on its bus. It implements regs.Bank, so the transfer engine runs
// against it unchanged, and records every bus condition for inspection.
//
// Time advances one byte per Tick. With a Handler attached the model also
// plays the NVIC: after every register write from outside the handlers it
// delivers pending interrupts and ticks the bus until nothing is left to do,
// so an interrupt-driven transfer runs to completion synchronously inside the
// call that started it.
package sim

import "stmi2c/regs"

// Handler receives the event and error interrupts.
type Handler interface {
	HandleEvent()
	HandleError()
}

type mode uint8

const (
	idle         mode = iota
	addressing        // SB set, waiting for the header byte
	addressed         // ADDR set, waiting for the SR1/SR2 clear sequence
	transmitting      // master transmitter
	receiving         // master receiver
	refused           // header or data byte NACKed, waiting for STOP
	slaveAddressed
	slaveTransmitting
	slaveReceiving
)

// maxSteps bounds one delivery run; a handler that never clears its
// interrupt source ends the run with a panic instead of hanging the test.
const maxSteps = 10000

// Peripheral is the simulated I2C peripheral.
type Peripheral struct {
	r [regs.NumRegs]uint32

	targets []Target
	target  Target
	mode    mode
	read    bool // direction of the master transaction in progress

	sr1Read     bool // SR1 read since the last SR2, DR or CR1 access
	pending     bool // transmitter: DR holds a byte not yet shifted out
	sentAny     bool
	lastNacked  bool // receiver: the last byte was NACKed
	stopPending bool

	log []Op

	// AutoTick advances the bus by one byte on every SR1 read, so polling
	// code makes progress without an interrupt handler.
	AutoTick bool

	h       Handler
	pumping bool
}

// New returns a peripheral in its reset state with targets on its bus.
func New(targets ...Target) *Peripheral {
	p := &Peripheral{targets: targets}
	p.reset()
	return p
}

func (p *Peripheral) reset() {
	p.r = [regs.NumRegs]uint32{}
	p.r[regs.TRISE] = 0x0002
	p.target = nil
	p.mode = idle
	p.sr1Read = false
	p.pending = false
	p.sentAny = false
	p.lastNacked = false
	p.stopPending = false
}

// AddTarget attaches another device to the bus.
func (p *Peripheral) AddTarget(t Target) {
	p.targets = append(p.targets, t)
}

// Attach routes interrupts to h and delivers any already pending.
func (p *Peripheral) Attach(h Handler) {
	p.h = h
	p.pump()
}

// Log returns the bus conditions recorded so far.
func (p *Peripheral) Log() []Op {
	return p.log
}

// ClearLog forgets the recorded bus conditions.
func (p *Peripheral) ClearLog() {
	p.log = nil
}

// Peek returns a register value without the side effects of Get.
func (p *Peripheral) Peek(r regs.Reg) uint32 {
	return p.r[r]
}

// Busy reports whether the simulated bus is between START and STOP.
func (p *Peripheral) Busy() bool {
	return p.r[regs.SR2]&regs.SR2_BUSY != 0
}

func (p *Peripheral) Get(r regs.Reg) uint32 {
	switch r {
	case regs.SR1:
		if p.AutoTick {
			p.Tick()
		}
		p.sr1Read = true
		return p.r[regs.SR1]

	case regs.SR2:
		v := p.r[regs.SR2]
		if p.sr1Read && p.r[regs.SR1]&regs.SR1_ADDR != 0 {
			p.r[regs.SR1] &^= regs.SR1_ADDR
			p.addressCleared()
		}
		p.sr1Read = false
		p.pump()
		return v

	case regs.DR:
		v := p.r[regs.DR]
		p.sr1Read = false
		p.r[regs.SR1] &^= regs.SR1_RXNE | regs.SR1_BTF
		p.pump()
		return v
	}
	return p.r[r]
}

func (p *Peripheral) Set(r regs.Reg, v uint32) {
	switch r {
	case regs.CR1:
		p.writeCR1(v)
	case regs.DR:
		p.sr1Read = false
		p.writeDR(byte(v))
	case regs.SR1:
		// Error flags are rc_w0; every other SR1 bit is read-only.
		p.r[regs.SR1] &= v | ^uint32(regs.SR1_Errors)
	case regs.SR2:
	default:
		p.r[r] = v
	}
	p.pump()
}

func (p *Peripheral) writeCR1(v uint32) {
	if v&regs.CR1_SWRST != 0 {
		p.reset()
		p.r[regs.CR1] = regs.CR1_SWRST
		return
	}
	if p.sr1Read && p.r[regs.SR1]&regs.SR1_STOPF != 0 {
		p.r[regs.SR1] &^= regs.SR1_STOPF
	}
	p.sr1Read = false

	if v&regs.CR1_PE == 0 {
		// ACK, START and STOP are held at zero while disabled.
		p.r[regs.CR1] = v &^ (regs.CR1_ACK | regs.CR1_START | regs.CR1_STOP)
		return
	}

	// START is cleared by hardware once generated; STOP stays set until the
	// condition is on the wire.
	p.r[regs.CR1] = v &^ regs.CR1_START
	if v&regs.CR1_STOP != 0 {
		p.stopPending = true
	}
	if v&regs.CR1_START != 0 {
		p.start()
	}
	p.tryStop()
}

func (p *Peripheral) start() {
	if p.stopPending {
		p.stop()
	}
	p.log = append(p.log, Start())
	p.mode = addressing
	p.target = nil
	p.pending = false
	p.sentAny = false
	p.lastNacked = false
	p.r[regs.SR1] = p.r[regs.SR1]&^(regs.SR1_TXE|regs.SR1_BTF|regs.SR1_RXNE|regs.SR1_ADDR) | regs.SR1_SB
	p.r[regs.SR2] = p.r[regs.SR2]&^regs.SR2_TRA | regs.SR2_MSL | regs.SR2_BUSY
}

func (p *Peripheral) writeDR(b byte) {
	p.r[regs.DR] = uint32(b)
	switch p.mode {
	case addressing:
		if p.r[regs.SR1]&regs.SR1_SB != 0 {
			p.r[regs.SR1] &^= regs.SR1_SB
			p.address(b)
		}
	case transmitting:
		p.pending = true
		p.r[regs.SR1] &^= regs.SR1_TXE | regs.SR1_BTF
	case slaveTransmitting:
		p.r[regs.SR1] &^= regs.SR1_TXE | regs.SR1_BTF
	}
}

func (p *Peripheral) address(header byte) {
	p.read = header&1 != 0
	t := p.find(header >> 1)
	p.log = append(p.log, Addr(header, t != nil))
	if t == nil {
		p.r[regs.SR1] |= regs.SR1_AF
		p.mode = refused
		return
	}
	p.target = t
	t.Start(p.read)
	p.mode = addressed
	p.r[regs.SR1] |= regs.SR1_ADDR
	if !p.read {
		p.r[regs.SR2] |= regs.SR2_TRA
	}
}

func (p *Peripheral) find(addr byte) Target {
	for _, t := range p.targets {
		if t.Address() == addr {
			return t
		}
	}
	return nil
}

func (p *Peripheral) addressCleared() {
	switch p.mode {
	case addressed:
		if p.read {
			p.mode = receiving
		} else {
			p.mode = transmitting
			p.r[regs.SR1] |= regs.SR1_TXE
		}
	case slaveAddressed:
		if p.r[regs.SR2]&regs.SR2_TRA != 0 {
			p.mode = slaveTransmitting
			p.r[regs.SR1] |= regs.SR1_TXE
		} else {
			p.mode = slaveReceiving
		}
	}
}

// Tick advances the bus by one byte time and reports whether anything
// changed.
func (p *Peripheral) Tick() bool {
	switch p.mode {
	case transmitting:
		if p.pending {
			b := byte(p.r[regs.DR])
			p.pending = false
			p.sentAny = true
			ack := p.target.Write(b)
			p.log = append(p.log, Write(b, ack))
			if !ack {
				p.r[regs.SR1] |= regs.SR1_AF
				p.mode = refused
				return true
			}
			p.r[regs.SR1] |= regs.SR1_TXE
			return true
		}
		if p.sentAny && p.r[regs.SR1]&(regs.SR1_TXE|regs.SR1_BTF) == regs.SR1_TXE && !p.stopPending {
			p.r[regs.SR1] |= regs.SR1_BTF
			return true
		}

	case receiving:
		if !p.lastNacked && p.r[regs.SR1]&regs.SR1_RXNE == 0 {
			// A byte clocked while STOP is pending is the last one.
			ack := p.r[regs.CR1]&regs.CR1_ACK != 0 && !p.stopPending
			b := p.target.Read()
			p.log = append(p.log, Read(b, ack))
			p.r[regs.DR] = uint32(b)
			p.r[regs.SR1] |= regs.SR1_RXNE
			if !ack {
				p.lastNacked = true
				p.tryStop()
			}
			return true
		}
	}
	return p.tryStop()
}

func (p *Peripheral) tryStop() bool {
	if !p.stopPending {
		return false
	}
	switch p.mode {
	case transmitting:
		if p.pending {
			return false
		}
	case receiving:
		if !p.lastNacked {
			return false
		}
	}
	p.stop()
	return true
}

func (p *Peripheral) stop() {
	p.stopPending = false
	p.r[regs.CR1] &^= regs.CR1_STOP
	if p.r[regs.SR2]&regs.SR2_MSL != 0 {
		p.log = append(p.log, Stop())
		if p.target != nil {
			p.target.Stop()
		}
	}
	p.target = nil
	p.mode = idle
	p.r[regs.SR1] &^= regs.SR1_SB | regs.SR1_ADDR | regs.SR1_TXE | regs.SR1_BTF
	p.r[regs.SR2] &^= regs.SR2_MSL | regs.SR2_BUSY | regs.SR2_TRA
}

// Settle delivers pending interrupts and ticks the bus until it is quiet.
// Register writes call it implicitly; tests call it after changing targets.
func (p *Peripheral) Settle() {
	p.pump()
}

func (p *Peripheral) pump() {
	if p.h == nil || p.pumping {
		return
	}
	p.pumping = true
	defer func() { p.pumping = false }()

	for n := 0; n < maxSteps; n++ {
		switch {
		case p.errorPending():
			p.h.HandleError()
		case p.eventPending():
			p.h.HandleEvent()
		case p.Tick():
		default:
			return
		}
	}
	panic("sim: interrupt source never cleared")
}

func (p *Peripheral) eventPending() bool {
	cr2, sr1 := p.r[regs.CR2], p.r[regs.SR1]
	if cr2&regs.CR2_ITEVTEN == 0 {
		return false
	}
	if sr1&regs.SR1_Events != 0 {
		return true
	}
	return cr2&regs.CR2_ITBUFEN != 0 && sr1&regs.SR1_Buffer != 0
}

func (p *Peripheral) errorPending() bool {
	return p.r[regs.CR2]&regs.CR2_ITERREN != 0 && p.r[regs.SR1]&regs.SR1_Errors != 0
}

// InjectError raises error flags as if the condition occurred on the wire.
// Arbitration loss also drops the peripheral out of master mode.
func (p *Peripheral) InjectError(flags uint32) {
	p.r[regs.SR1] |= flags & regs.SR1_Errors
	if flags&regs.SR1_ARLO != 0 {
		p.target = nil
		p.mode = idle
		p.r[regs.SR2] &^= regs.SR2_MSL | regs.SR2_TRA
	}
	p.pump()
}
