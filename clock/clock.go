// Package clock answers the two frequency questions the I2C configuration
// needs: the PLL output and the APB1 peripheral clock (PCLK1).
package clock

// Source reports clock frequencies in hertz.
type Source interface {
	PLLOutput() uint32
	PCLK1() uint32
}

// Register is a read-only 32-bit register, satisfied by *volatile.Register32.
type Register interface {
	Get() uint32
}

// HSI is the internal RC oscillator frequency of the STM32F1.
const HSI = 8000000

// RCC CFGR fields (RM0008 7.3.2).
const (
	cfgrSWS_Pos    = 2
	cfgrSWS_Msk    = 0x3 << cfgrSWS_Pos
	cfgrHPRE_Pos   = 4
	cfgrHPRE_Msk   = 0xF << cfgrHPRE_Pos
	cfgrPPRE1_Pos  = 8
	cfgrPPRE1_Msk  = 0x7 << cfgrPPRE1_Pos
	cfgrPLLSRC     = 1 << 16
	cfgrPLLXTPRE   = 1 << 17
	cfgrPLLMUL_Pos = 18
	cfgrPLLMUL_Msk = 0xF << cfgrPLLMUL_Pos
	sourceHSI      = 0
	sourceHSE      = 1
	sourcePLL      = 2
)

var (
	ahbPrescaler  = [8]uint32{2, 4, 8, 16, 64, 128, 256, 512}
	apb1Prescaler = [4]uint32{2, 4, 8, 16}
)

// RCC decodes the clock tree from the RCC configuration register.
type RCC struct {
	CFGR Register
	HSE  uint32 // external crystal frequency; zero means 8 MHz
}

func (r RCC) hse() uint32 {
	if r.HSE == 0 {
		return 8000000
	}
	return r.HSE
}

// PLLOutput returns the PLL output frequency derived from PLLSRC, PLLXTPRE and
// PLLMUL, whether or not the PLL is currently the system clock.
func (r RCC) PLLOutput() uint32 {
	cfgr := r.CFGR.Get()

	in := uint32(HSI / 2)
	if cfgr&cfgrPLLSRC != 0 {
		in = r.hse()
		if cfgr&cfgrPLLXTPRE != 0 {
			in /= 2
		}
	}

	mul := (cfgr&cfgrPLLMUL_Msk)>>cfgrPLLMUL_Pos + 2
	if mul > 16 {
		mul = 16
	}
	return in * mul
}

// SYSCLK returns the frequency of the clock selected by SWS.
func (r RCC) SYSCLK() uint32 {
	switch (r.CFGR.Get() & cfgrSWS_Msk) >> cfgrSWS_Pos {
	case sourceHSE:
		return r.hse()
	case sourcePLL:
		return r.PLLOutput()
	default:
		return HSI
	}
}

// PCLK1 returns SYSCLK divided by the AHB and APB1 prescalers.
func (r RCC) PCLK1() uint32 {
	cfgr := r.CFGR.Get()

	ahb := uint32(1)
	if hpre := (cfgr & cfgrHPRE_Msk) >> cfgrHPRE_Pos; hpre >= 8 {
		ahb = ahbPrescaler[hpre-8]
	}

	apb1 := uint32(1)
	if ppre := (cfgr & cfgrPPRE1_Msk) >> cfgrPPRE1_Pos; ppre >= 4 {
		apb1 = apb1Prescaler[ppre-4]
	}

	return r.SYSCLK() / ahb / apb1
}

// Fixed is a Source with known frequencies, for hosts and tests.
type Fixed struct {
	PLL  uint32
	APB1 uint32
}

func (f Fixed) PLLOutput() uint32 { return f.PLL }
func (f Fixed) PCLK1() uint32     { return f.APB1 }
