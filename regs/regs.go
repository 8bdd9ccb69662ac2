// Package regs describes the register block of an STM32F1-class I2C peripheral.
//
// Core code never touches memory-mapped registers directly. It is handed a
// Bank for the peripheral instance it drives, which is backed by the real
// device registers on hardware and by a simulated or recording bank on the host.
package regs

// Reg identifies one register of the I2C peripheral.
type Reg uint8

const (
	CR1 Reg = iota
	CR2
	OAR1
	OAR2
	DR
	SR1
	SR2
	CCR
	TRISE

	NumRegs
)

var regNames = [NumRegs]string{"CR1", "CR2", "OAR1", "OAR2", "DR", "SR1", "SR2", "CCR", "TRISE"}

func (r Reg) String() string {
	if r < NumRegs {
		return regNames[r]
	}
	return "REG?"
}

// Bank is the register interface of one peripheral instance.
//
// Get and Set must behave like volatile 32-bit accesses: a Get of SR1, SR2 or DR
// may have side effects (flag clearing sequences) and must not be cached.
type Bank interface {
	Get(r Reg) uint32
	Set(r Reg, v uint32)
}

// SetBits performs a read-modify-write setting mask in r.
func SetBits(b Bank, r Reg, mask uint32) {
	b.Set(r, b.Get(r)|mask)
}

// ClearBits performs a read-modify-write clearing mask in r.
func ClearBits(b Bank, r Reg, mask uint32) {
	b.Set(r, b.Get(r)&^mask)
}

// HasBits reports whether all bits of mask are set in r.
func HasBits(b Bank, r Reg, mask uint32) bool {
	return b.Get(r)&mask == mask
}

// CR1 bits.
const (
	CR1_PE        = 1 << 0
	CR1_SMBUS     = 1 << 1
	CR1_SMBTYPE   = 1 << 3
	CR1_ENARP     = 1 << 4
	CR1_ENPEC     = 1 << 5
	CR1_ENGC      = 1 << 6
	CR1_NOSTRETCH = 1 << 7
	CR1_START     = 1 << 8
	CR1_STOP      = 1 << 9
	CR1_ACK       = 1 << 10
	CR1_POS       = 1 << 11
	CR1_PEC       = 1 << 12
	CR1_ALERT     = 1 << 13
	CR1_SWRST     = 1 << 15
)

// CR2 bits.
const (
	CR2_FREQ_Msk = 0x3F
	CR2_ITERREN  = 1 << 8
	CR2_ITEVTEN  = 1 << 9
	CR2_ITBUFEN  = 1 << 10
	CR2_DMAEN    = 1 << 11
	CR2_LAST     = 1 << 12

	// CR2_IT is the set of interrupt sources armed for a transfer.
	CR2_IT = CR2_ITERREN | CR2_ITEVTEN | CR2_ITBUFEN
)

// OAR1 fields. Bit 14 must always be kept at 1 by software.
const (
	OAR1_ADD0    = 1 << 0
	OAR1_ADD_Pos = 1
	OAR1_ADD_Msk = 0x7F << OAR1_ADD_Pos
	OAR1_BIT14   = 1 << 14
	OAR1_ADDMODE = 1 << 15
)

// SR1 flags.
const (
	SR1_SB       = 1 << 0
	SR1_ADDR     = 1 << 1
	SR1_BTF      = 1 << 2
	SR1_ADD10    = 1 << 3
	SR1_STOPF    = 1 << 4
	SR1_RXNE     = 1 << 6
	SR1_TXE      = 1 << 7
	SR1_BERR     = 1 << 8
	SR1_ARLO     = 1 << 9
	SR1_AF       = 1 << 10
	SR1_OVR      = 1 << 11
	SR1_PECERR   = 1 << 12
	SR1_TIMEOUT  = 1 << 14
	SR1_SMBALERT = 1 << 15

	// SR1_Errors are the rc_w0 error flags cleared by writing zero.
	SR1_Errors = SR1_BERR | SR1_ARLO | SR1_AF | SR1_OVR | SR1_PECERR | SR1_TIMEOUT | SR1_SMBALERT

	// SR1_Events are the flags serviced by the event interrupt.
	SR1_Events = SR1_SB | SR1_ADDR | SR1_BTF | SR1_ADD10 | SR1_STOPF

	// SR1_Buffer are the flags that additionally need ITBUFEN to interrupt.
	SR1_Buffer = SR1_RXNE | SR1_TXE
)

// SR2 flags.
const (
	SR2_MSL        = 1 << 0
	SR2_BUSY       = 1 << 1
	SR2_TRA        = 1 << 2
	SR2_GENCALL    = 1 << 4
	SR2_SMBDEFAULT = 1 << 5
	SR2_SMBHOST    = 1 << 6
	SR2_DUALF      = 1 << 7
)

// CCR fields.
const (
	CCR_Msk  = 0xFFF
	CCR_DUTY = 1 << 14
	CCR_FS   = 1 << 15
)

// TRISE field.
const TRISE_Msk = 0x3F
