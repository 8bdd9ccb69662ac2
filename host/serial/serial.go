// Package serial opens the UART the firmware streams trace frames on.
package serial

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// Port is an open serial port.
type Port interface {
	io.ReadWriteCloser
	Flush() error
}

// Config describes the port to open.
type Config struct {
	Device string // e.g. "/dev/ttyUSB0", "COM3"
	Baud   int

	// ReadTimeout bounds a Read that has no data; zero blocks.
	ReadTimeout time.Duration
}

// DefaultConfig matches the firmware's trace UART.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100 * time.Millisecond,
	}
}

type nativePort struct {
	port *serial.Port
}

// Open opens the port described by cfg.
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, errors.New("serial: nil config")
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
	}
	return &nativePort{port: port}, nil
}

// Read reports a read timeout as zero bytes and no error. tarm surfaces it
// as io.EOF, which would end a decode loop on an idle line.
func (p *nativePort) Read(b []byte) (int, error) {
	n, err := p.port.Read(b)
	if n == 0 && errors.Is(err, io.EOF) {
		err = nil
	}
	return n, err
}

func (p *nativePort) Write(b []byte) (int, error) { return p.port.Write(b) }

func (p *nativePort) Close() error {
	if p.port == nil {
		return nil
	}
	return p.port.Close()
}

// Flush discards data received but not yet read, so decoding starts on
// fresh frames.
func (p *nativePort) Flush() error {
	return p.port.Flush()
}
