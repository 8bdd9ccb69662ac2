//go:build stm32f103

// Firmware for an STM32F103 board with a DS3231 RTC on I2C1. It reads the
// clock once a second and streams the transfer engine trace as frames on the
// default UART for host/cmd/i2ctrace.
package main

import (
	"machine"
	"time"

	"tinygo.org/x/drivers/ds3231"

	"stmi2c/core"
	"stmi2c/protocol"
)

func main() {
	machine.Serial.Configure(machine.UARTConfig{BaudRate: 115200})
	trace := protocol.NewTraceWriter(machine.Serial)

	b, err := InitI2C1()
	if err != nil {
		// No frames will follow, so plain text on the UART is safe.
		machine.Serial.Write([]byte("i2c init: " + err.Error() + "\r\n"))
		for {
			time.Sleep(time.Second)
		}
	}

	rtc := ds3231.New(b)
	next := time.Now()
	for {
		UpdateSystemTime()
		core.ProcessTimers()

		if now := time.Now(); !now.Before(next) {
			next = now.Add(time.Second)
			// Errors reach the trace through the engine's callback events.
			_, _ = rtc.ReadTime()
		}

		_ = core.FlushTrace(trace)
		time.Sleep(10 * time.Millisecond)
	}
}
