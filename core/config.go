package core

import (
	"fmt"

	"stmi2c/clock"
	"stmi2c/regs"
)

// Speed is the SCL clock rate in hertz.
type Speed uint32

const (
	SpeedStandard Speed = 100000
	SpeedFast200  Speed = 200000
	SpeedFast400  Speed = 400000
)

// Fast reports whether s is served by fast mode timing.
func (s Speed) Fast() bool {
	return s > SpeedStandard
}

// Duty is the fast mode SCL low/high ratio.
type Duty uint8

const (
	Duty2    Duty = iota // Tlow/Thigh = 2
	Duty16_9             // Tlow/Thigh = 16/9
)

// AckControl selects whether received bytes are acknowledged by default.
type AckControl uint8

const (
	AckDisable AckControl = iota
	AckEnable
)

// Config holds the static bus parameters applied by Init.
type Config struct {
	Speed   Speed
	Address uint8 // own 7-bit address used in slave mode
	Ack     AckControl
	Duty    Duty
}

// DefaultConfig is a standard mode master with acknowledge enabled.
func DefaultConfig() Config {
	return Config{Speed: SpeedStandard, Ack: AckEnable, Duty: Duty2}
}

// Validate checks the members of c against the supported set.
func (c Config) Validate() error {
	switch c.Speed {
	case SpeedStandard, SpeedFast200, SpeedFast400:
	default:
		return fmt.Errorf("speed %d Hz: %w", c.Speed, ErrInvalidConfig)
	}
	if c.Duty != Duty2 && c.Duty != Duty16_9 {
		return fmt.Errorf("duty %d: %w", c.Duty, ErrInvalidConfig)
	}
	if c.Duty == Duty16_9 && !c.Speed.Fast() {
		return fmt.Errorf("16/9 duty needs fast mode: %w", ErrInvalidConfig)
	}
	if c.Ack != AckDisable && c.Ack != AckEnable {
		return fmt.Errorf("ack %d: %w", c.Ack, ErrInvalidConfig)
	}
	if c.Address > 0x7F {
		return fmt.Errorf("own address %#x: %w", c.Address, ErrInvalidConfig)
	}
	return nil
}

// Timing is the register image derived from a Config and PCLK1.
type Timing struct {
	Freq  uint32 // CR2.FREQ, PCLK1 in MHz
	CCR   uint32 // including F/S and DUTY
	TRISE uint32
}

// Timing derives the clock control values for a peripheral clocked at pclk1.
func (c Config) Timing(pclk1 uint32) (Timing, error) {
	mhz := pclk1 / 1000000
	if mhz < 2 || mhz > 36 {
		return Timing{}, fmt.Errorf("PCLK1 %d Hz outside 2-36 MHz: %w", pclk1, ErrInvalidConfig)
	}

	speed := uint32(c.Speed)
	var t Timing
	t.Freq = mhz

	if !c.Speed.Fast() {
		t.CCR = pclk1 / (2 * speed)
		if t.CCR < 4 {
			t.CCR = 4
		}
		t.TRISE = mhz + 1
	} else {
		if mhz < 4 {
			return Timing{}, fmt.Errorf("fast mode needs PCLK1 >= 4 MHz, have %d Hz: %w", pclk1, ErrInvalidConfig)
		}
		if c.Duty == Duty16_9 {
			t.CCR = pclk1 / (25 * speed)
		} else {
			t.CCR = pclk1 / (3 * speed)
		}
		if t.CCR == 0 {
			return Timing{}, fmt.Errorf("%d Hz unreachable from PCLK1 %d Hz: %w", speed, pclk1, ErrInvalidConfig)
		}
		t.TRISE = mhz*300/1000 + 1
	}

	if t.CCR > regs.CCR_Msk {
		return Timing{}, fmt.Errorf("clock divider %d overflows CCR: %w", t.CCR, ErrInvalidConfig)
	}
	if c.Speed.Fast() {
		t.CCR |= regs.CCR_FS
		if c.Duty == Duty16_9 {
			t.CCR |= regs.CCR_DUTY
		}
	}
	return t, nil
}

// Init validates the handle's Config and programs the peripheral for it.
// The peripheral is disabled while the timing registers are written and left
// enabled with the configured acknowledge setting.
func (h *Handle) Init(clk clock.Source) error {
	if h.State() != Ready {
		return ErrBusy
	}
	if err := h.cfg.Validate(); err != nil {
		return err
	}
	t, err := h.cfg.Timing(clk.PCLK1())
	if err != nil {
		return err
	}

	b := h.bank
	PeripheralControl(b, false)
	b.Set(regs.CR2, t.Freq&regs.CR2_FREQ_Msk)
	b.Set(regs.OAR1, uint32(h.cfg.Address)<<regs.OAR1_ADD_Pos|regs.OAR1_BIT14)
	b.Set(regs.CCR, t.CCR)
	b.Set(regs.TRISE, t.TRISE&regs.TRISE_Msk)
	PeripheralControl(b, true)
	// ACK is held at zero while PE is clear.
	ManageAcking(b, h.cfg.Ack == AckEnable)

	debugf("bus %d init %d Hz own=%#02x ccr=%#x trise=%d", h.id, h.cfg.Speed, h.cfg.Address, t.CCR, t.TRISE)
	return nil
}

// Reconfigure replaces the handle's Config and re-runs Init.
func (h *Handle) Reconfigure(clk clock.Source, cfg Config) error {
	if h.State() != Ready {
		return ErrBusy
	}
	old := h.cfg
	h.cfg = cfg
	if err := h.Init(clk); err != nil {
		h.cfg = old
		return err
	}
	return nil
}

// DeInit pulses the software reset, returning every register to its reset
// value.
func DeInit(b regs.Bank) {
	regs.SetBits(b, regs.CR1, regs.CR1_SWRST)
	regs.ClearBits(b, regs.CR1, regs.CR1_SWRST)
}

// PeripheralControl enables or disables the peripheral.
func PeripheralControl(b regs.Bank, enable bool) {
	if enable {
		regs.SetBits(b, regs.CR1, regs.CR1_PE)
	} else {
		regs.ClearBits(b, regs.CR1, regs.CR1_PE)
	}
}

// ManageAcking sets or clears CR1.ACK.
func ManageAcking(b regs.Bank, enable bool) {
	if enable {
		regs.SetBits(b, regs.CR1, regs.CR1_ACK)
	} else {
		regs.ClearBits(b, regs.CR1, regs.CR1_ACK)
	}
}

// FlagStatus reports whether any of the SR1 bits in flag are set.
func FlagStatus(b regs.Bank, flag uint32) bool {
	return b.Get(regs.SR1)&flag != 0
}
