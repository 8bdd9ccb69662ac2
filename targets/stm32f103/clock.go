//go:build stm32f103

package main

import (
	"device/stm32"
	"time"

	"stmi2c/clock"
	"stmi2c/core"
)

var (
	boot = time.Now()

	// rcc answers the clock questions from the live RCC configuration.
	rcc = clock.RCC{CFGR: &stm32.RCC.CFGR}
)

// UpdateSystemTime feeds the core tick counter (12 MHz) from the runtime
// clock.
func UpdateSystemTime() {
	ns := time.Since(boot).Nanoseconds()
	core.SetTime(uint32(ns * 12 / 1000))
}
