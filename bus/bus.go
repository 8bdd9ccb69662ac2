// Package bus adapts an interrupt-driven core.Handle to the blocking
// transaction interface device drivers expect: Tx(addr, w, r). A Bus
// satisfies both tinygo.org/x/drivers.I2C and periph.io/x/conn/v3/i2c.Bus.
package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"tinygo.org/x/drivers"

	"stmi2c/clock"
	"stmi2c/core"
)

// DefaultTimeout bounds one Tx when no deadline is given.
const DefaultTimeout = 25 * time.Millisecond

var (
	_ drivers.I2C = (*Bus)(nil)
	_ i2c.Bus     = (*Bus)(nil)
)

// Bus runs transactions on one handle. It owns the handle's callback.
type Bus struct {
	mu sync.Mutex

	h       *core.Handle
	clk     clock.Source
	timeout time.Duration
	name    string

	// Completion of the whole transaction, written from interrupt context.
	done chan error

	// Read leg of a write-then-read, started from the callback once the
	// write leg completes.
	pending []byte
	addr    uint8
}

// Option configures a Bus.
type Option func(*Bus)

// WithTimeout sets the per-transaction timeout used by Tx.
func WithTimeout(d time.Duration) Option {
	return func(b *Bus) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithName sets the name returned by String.
func WithName(name string) Option {
	return func(b *Bus) { b.name = name }
}

// New wraps h, which must already be initialised from clk. clk is kept for
// SetSpeed.
func New(h *core.Handle, clk clock.Source, opts ...Option) *Bus {
	b := &Bus{
		h:       h,
		clk:     clk,
		timeout: DefaultTimeout,
		done:    make(chan error, 1),
	}
	for _, o := range opts {
		o(b)
	}
	h.SetCallback(b.event)
	return b
}

// Timeout returns the per-transaction timeout used by Tx.
func (b *Bus) Timeout() time.Duration { return b.timeout }

// Handle returns the wrapped handle.
func (b *Bus) Handle() *core.Handle { return b.h }

func (b *Bus) String() string {
	if b.name != "" {
		return b.name
	}
	return fmt.Sprintf("I2C%d", b.h.ID())
}

// Tx writes w to the device at addr and then reads len(r) bytes from it,
// joined by a repeated START. Either buffer may be empty. It gives up after
// the bus timeout.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	return b.TxContext(context.Background(), addr, w, r)
}

// TxContext is Tx bounded by ctx as well as the bus timeout.
func (b *Bus) TxContext(ctx context.Context, addr uint16, w, r []byte) error {
	if addr > 0x7F {
		return fmt.Errorf("address %#x: %w", addr, core.ErrInvalidRequest)
	}
	if len(w) == 0 && len(r) == 0 {
		return fmt.Errorf("empty transaction: %w", core.ErrInvalidRequest)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	select {
	case <-b.done:
	default:
	}

	var err error
	if len(w) > 0 {
		b.pending, b.addr = nil, uint8(addr)
		if len(r) > 0 {
			b.pending = r
		}
		err = b.h.StartSend(w, core.Request{Addr: uint8(addr), RepeatedStart: len(r) > 0})
	} else {
		err = b.h.StartReceive(r, core.Request{Addr: uint8(addr)})
	}
	if err != nil {
		b.pending = nil
		return err
	}

	select {
	case err = <-b.done:
		return err
	case <-ctx.Done():
	}
	// The abort reaches the callback, which closes the handle and signals.
	// A transaction that finished in the meantime has already signalled.
	b.h.Abort()
	return <-b.done
}

// ReadRegister reads len(buf) bytes starting at register reg.
func (b *Bus) ReadRegister(addr uint8, reg uint8, buf []byte) error {
	return b.Tx(uint16(addr), []byte{reg}, buf)
}

// WriteRegister writes buf starting at register reg.
func (b *Bus) WriteRegister(addr uint8, reg uint8, buf []byte) error {
	w := make([]byte, len(buf)+1)
	w[0] = reg
	copy(w[1:], buf)
	return b.Tx(uint16(addr), w, nil)
}

// SetSpeed reprograms the clock control registers. Only the three rates the
// peripheral supports are accepted.
func (b *Bus) SetSpeed(f physic.Frequency) error {
	var s core.Speed
	switch f {
	case 100 * physic.KiloHertz:
		s = core.SpeedStandard
	case 200 * physic.KiloHertz:
		s = core.SpeedFast200
	case 400 * physic.KiloHertz:
		s = core.SpeedFast400
	default:
		return fmt.Errorf("speed %s: %w", f, core.ErrInvalidConfig)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	cfg := b.h.Config()
	cfg.Speed = s
	return b.h.Reconfigure(b.clk, cfg)
}

// event runs in interrupt context.
func (b *Bus) event(h *core.Handle, ev core.Event) {
	switch {
	case ev.IsError():
		// Arbitration loss leaves the bus to the winner; Abort already
		// requested STOP.
		if ev != core.EventArbitrationLost && ev != core.EventTimeout {
			h.GenerateStop()
		}
		h.Close()
		b.pending = nil
		b.signal(ev.Err())

	case ev == core.EventSendComplete && b.pending != nil:
		r := b.pending
		b.pending = nil
		if err := h.StartReceive(r, core.Request{Addr: b.addr}); err != nil {
			b.signal(err)
		}

	case ev == core.EventSendComplete, ev == core.EventReceiveComplete:
		b.signal(nil)
	}
}

// signal keeps the first result of a transaction; later error events from
// the same interrupt are dropped.
func (b *Bus) signal(err error) {
	select {
	case b.done <- err:
	default:
	}
}
