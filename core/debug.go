package core

import "fmt"

// DebugWriter writes one line of debug output.
type DebugWriter func(string)

var (
	// Installed by the target. Lines written with interrupts masked go out
	// synchronously, so keep the writer short.
	debugPrintln DebugWriter = func(string) {}

	// A slow UART skews bus timing, so output is opt-in.
	debugEnabled bool
)

// SetDebugWriter installs w; nil discards output.
func SetDebugWriter(w DebugWriter) {
	if w == nil {
		w = func(string) {}
	}
	debugPrintln = w
}

// SetDebugEnabled turns debug output on or off.
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes msg when debug output is enabled.
func DebugPrintln(msg string) {
	if debugEnabled {
		debugPrintln(msg)
	}
}

// debugf formats only when debug output is enabled.
func debugf(format string, args ...any) {
	if debugEnabled {
		debugPrintln(fmt.Sprintf("[I2C] "+format, args...))
	}
}
