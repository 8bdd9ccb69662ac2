//go:build stm32f103

package regs

import "device/stm32"

// Peripheral is the Bank of a real I2C instance (stm32.I2C1 or stm32.I2C2).
type Peripheral struct {
	p *stm32.I2C_Type
}

// NewPeripheral wraps a device register block.
func NewPeripheral(p *stm32.I2C_Type) *Peripheral {
	return &Peripheral{p: p}
}

func (b *Peripheral) Get(r Reg) uint32 {
	switch r {
	case CR1:
		return b.p.CR1.Get()
	case CR2:
		return b.p.CR2.Get()
	case OAR1:
		return b.p.OAR1.Get()
	case OAR2:
		return b.p.OAR2.Get()
	case DR:
		return b.p.DR.Get()
	case SR1:
		return b.p.SR1.Get()
	case SR2:
		return b.p.SR2.Get()
	case CCR:
		return b.p.CCR.Get()
	case TRISE:
		return b.p.TRISE.Get()
	}
	return 0
}

func (b *Peripheral) Set(r Reg, v uint32) {
	switch r {
	case CR1:
		b.p.CR1.Set(v)
	case CR2:
		b.p.CR2.Set(v)
	case OAR1:
		b.p.OAR1.Set(v)
	case OAR2:
		b.p.OAR2.Set(v)
	case DR:
		b.p.DR.Set(v)
	case SR1:
		b.p.SR1.Set(v)
	case SR2:
		b.p.SR2.Set(v)
	case CCR:
		b.p.CCR.Set(v)
	case TRISE:
		b.p.TRISE.Set(v)
	}
}
