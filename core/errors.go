package core

import "errors"

// Synchronous failures, returned to the caller.
var (
	ErrInvalidConfig  = errors.New("i2c: invalid configuration")
	ErrBusy           = errors.New("i2c: handle busy")
	ErrInvalidRequest = errors.New("i2c: invalid request")
)

// Bus conditions. Once a transfer is armed these only surface through the
// application callback, as the Err of the matching Event.
var (
	ErrBusError        = errors.New("i2c: bus error")
	ErrArbitrationLost = errors.New("i2c: arbitration lost")
	ErrAckFailure      = errors.New("i2c: acknowledge failure")
	ErrOverrun         = errors.New("i2c: overrun/underrun")
	ErrTimeout         = errors.New("i2c: timeout")
	ErrPEC             = errors.New("i2c: PEC error")
	ErrSMBusAlert      = errors.New("i2c: SMBus alert")
)
