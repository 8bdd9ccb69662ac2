//go:build !tinygo

package core

// irqState stands in for the saved interrupt state on regular Go, where the
// engine is driven synchronously by tests and the simulator.
type irqState uintptr

func disableInterrupts() irqState {
	return 0
}

func restoreInterrupts(state irqState) {}
