//go:build stm32f103

package main

import (
	"device/stm32"
	_ "embed"
	"machine"
	"runtime/interrupt"

	"stmi2c/bus"
	"stmi2c/config"
	"stmi2c/core"
	"stmi2c/regs"
)

// board describes I2C1 on PB6 (SCL) / PB7 (SDA). The same file labels the
// bus in i2ctrace.
//
//go:embed board.json
var board []byte

// InitI2C1 clocks and pins I2C1, programs it from the board description and
// hooks up both vectors.
func InitI2C1() (*bus.Bus, error) {
	desc, err := config.Load(board)
	if err != nil {
		return nil, err
	}
	bc, err := desc.Bus(0)
	if err != nil {
		return nil, err
	}
	cfg, err := bc.Core()
	if err != nil {
		return nil, err
	}

	stm32.RCC.APB2ENR.SetBits(stm32.RCC_APB2ENR_IOPBEN | stm32.RCC_APB2ENR_AFIOEN)
	stm32.RCC.APB1ENR.SetBits(stm32.RCC_APB1ENR_I2C1EN)

	machine.PB6.Configure(machine.PinConfig{Mode: machine.PinOutput50MHz + machine.PinOutputModeAltOpenDrain})
	machine.PB7.Configure(machine.PinConfig{Mode: machine.PinOutput50MHz + machine.PinOutputModeAltOpenDrain})

	b := regs.NewPeripheral(stm32.I2C1)
	core.DeInit(b)
	h := core.New(b, cfg, nil)
	core.RegisterHandle(0, h)
	if err := h.Init(rcc); err != nil {
		return nil, err
	}

	ev := interrupt.New(stm32.IRQ_I2C1_EV, func(interrupt.Interrupt) {
		core.DispatchEvent(0)
	})
	er := interrupt.New(stm32.IRQ_I2C1_ER, func(interrupt.Interrupt) {
		core.DispatchError(0)
	})
	// Equal priority: the two handlers tail-chain and never nest.
	er.SetPriority(0x80)
	ev.SetPriority(0x80)
	er.Enable()
	ev.Enable()

	return bus.New(h, rcc, bc.Options()...), nil
}
