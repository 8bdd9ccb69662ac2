package core

import (
	"context"
	"fmt"

	"stmi2c/regs"
)

// MasterSend writes data to addr by polling the status flags. It does not
// use interrupts and returns when the last byte has left the shift register
// or ctx is done. With repeatedStart the bus is left held for a following
// transfer.
func (h *Handle) MasterSend(ctx context.Context, addr uint8, data []byte, repeatedStart bool) error {
	if h.State() != Ready {
		return ErrBusy
	}
	if addr > 0x7F {
		return ErrInvalidRequest
	}
	b := h.bank

	if err := h.address(ctx, uint32(addr)<<1); err != nil {
		return err
	}
	h.clearAddr()

	for _, c := range data {
		if err := h.waitFlag(ctx, regs.SR1_TXE); err != nil {
			return err
		}
		b.Set(regs.DR, uint32(c))
	}
	if err := h.waitFlag(ctx, regs.SR1_TXE); err != nil {
		return err
	}
	if err := h.waitFlag(ctx, regs.SR1_BTF); err != nil {
		return err
	}
	if !repeatedStart {
		h.GenerateStop()
	}
	return nil
}

// MasterReceive fills buf from addr by polling the status flags.
func (h *Handle) MasterReceive(ctx context.Context, addr uint8, buf []byte, repeatedStart bool) error {
	if h.State() != Ready {
		return ErrBusy
	}
	if addr > 0x7F || len(buf) == 0 {
		return ErrInvalidRequest
	}
	b := h.bank

	if err := h.address(ctx, uint32(addr)<<1|1); err != nil {
		return err
	}

	if len(buf) == 1 {
		ManageAcking(b, false)
		h.clearAddr()
		if err := h.waitFlag(ctx, regs.SR1_RXNE); err != nil {
			return err
		}
		if !repeatedStart {
			h.GenerateStop()
		}
		buf[0] = byte(b.Get(regs.DR))
	} else {
		h.clearAddr()
		for i := range buf {
			if err := h.waitFlag(ctx, regs.SR1_RXNE); err != nil {
				return err
			}
			// NACK the final byte and queue STOP behind it.
			if len(buf)-i == 2 {
				ManageAcking(b, false)
				if !repeatedStart {
					h.GenerateStop()
				}
			}
			buf[i] = byte(b.Get(regs.DR))
		}
	}

	if h.cfg.Ack == AckEnable {
		ManageAcking(b, true)
	}
	return nil
}

// address generates START, waits for SB and sends the address byte. Unless
// this peripheral still holds the bus from a repeated-start leg, it first
// waits for the bus to go idle.
func (h *Handle) address(ctx context.Context, header uint32) error {
	if err := h.waitIdle(ctx); err != nil {
		return err
	}
	regs.SetBits(h.bank, regs.CR1, regs.CR1_START)
	if err := h.waitFlag(ctx, regs.SR1_SB); err != nil {
		return err
	}
	h.bank.Set(regs.DR, header)
	return h.waitFlag(ctx, regs.SR1_ADDR)
}

// waitIdle polls SR2 until another master has released the bus. Nothing is
// requested on timeout: the bus is not ours.
func (h *Handle) waitIdle(ctx context.Context) error {
	for {
		sr2 := h.bank.Get(regs.SR2)
		if sr2&regs.SR2_MSL != 0 || sr2&regs.SR2_BUSY == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for bus idle: %w", ErrTimeout)
		default:
		}
	}
}

func (h *Handle) clearAddr() {
	h.bank.Get(regs.SR1)
	h.bank.Get(regs.SR2)
}

// waitFlag polls SR1 until flag is set. An error flag or ctx expiring ends
// the wait with STOP requested; arbitration loss leaves the bus alone since
// the peripheral has already dropped to slave mode.
func (h *Handle) waitFlag(ctx context.Context, flag uint32) error {
	for {
		sr1 := h.bank.Get(regs.SR1)
		if sr1&flag != 0 {
			return nil
		}
		if errs := sr1 & regs.SR1_Errors; errs != 0 {
			h.bank.Set(regs.SR1, ^errs)
			err := pollError(errs)
			if err != ErrArbitrationLost {
				h.GenerateStop()
			}
			h.restoreAck()
			return fmt.Errorf("waiting for %s: %w", flagName(flag), err)
		}
		select {
		case <-ctx.Done():
			h.GenerateStop()
			h.restoreAck()
			return fmt.Errorf("waiting for %s: %w", flagName(flag), ErrTimeout)
		default:
		}
	}
}

func (h *Handle) restoreAck() {
	if h.cfg.Ack == AckEnable {
		ManageAcking(h.bank, true)
	}
}

// pollError maps the first asserted error flag to its sentinel.
func pollError(errs uint32) error {
	for _, e := range errorFlags {
		if errs&e.flag != 0 {
			return e.event.Err()
		}
	}
	return ErrBusError
}

func flagName(flag uint32) string {
	switch flag {
	case regs.SR1_SB:
		return "SB"
	case regs.SR1_ADDR:
		return "ADDR"
	case regs.SR1_BTF:
		return "BTF"
	case regs.SR1_TXE:
		return "TXE"
	case regs.SR1_RXNE:
		return "RXNE"
	default:
		return fmt.Sprintf("SR1 %#x", flag)
	}
}
