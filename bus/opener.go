package bus

import (
	"fmt"

	"golang.org/x/exp/io/i2c/driver"

	"stmi2c/core"
)

var _ driver.Opener = (*Bus)(nil)

// Open implements driver.Opener, so a Bus can back golang.org/x/exp/io/i2c
// devices. Only 7-bit addresses are supported.
func (b *Bus) Open(addr int, tenbit bool) (driver.Conn, error) {
	if tenbit || addr < 0 || addr > 0x7F {
		return nil, fmt.Errorf("address %#x: %w", addr, core.ErrInvalidRequest)
	}
	return &conn{b: b, addr: uint16(addr)}, nil
}

type conn struct {
	b    *Bus
	addr uint16
}

func (c *conn) Tx(w, r []byte) error {
	return c.b.Tx(c.addr, w, r)
}

func (c *conn) Close() error { return nil }
