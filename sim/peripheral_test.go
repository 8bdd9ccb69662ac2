package sim

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"stmi2c/regs"
)

func enabled(targets ...Target) *Peripheral {
	p := New(targets...)
	p.Set(regs.CR1, regs.CR1_PE|regs.CR1_ACK)
	return p
}

// clearAddr runs the SR1-then-SR2 read sequence.
func clearAddr(p *Peripheral) {
	p.Get(regs.SR1)
	p.Get(regs.SR2)
}

func TestMasterWriteByHand(t *testing.T) {
	mem := NewMemory(0x50)
	p := enabled(mem)

	p.Set(regs.CR1, p.Get(regs.CR1)|regs.CR1_START)
	if p.Peek(regs.SR1)&regs.SR1_SB == 0 || p.Peek(regs.SR2)&regs.SR2_MSL == 0 {
		t.Fatalf("after START: SR1=%#x SR2=%#x", p.Peek(regs.SR1), p.Peek(regs.SR2))
	}
	if p.Peek(regs.CR1)&regs.CR1_START != 0 {
		t.Error("START bit not cleared by hardware")
	}

	p.Set(regs.DR, 0x50<<1)
	if p.Peek(regs.SR1)&regs.SR1_ADDR == 0 {
		t.Fatal("ADDR not set after an acknowledged header")
	}
	p.Get(regs.SR2) // SR2 alone does not clear ADDR
	if p.Peek(regs.SR1)&regs.SR1_ADDR == 0 {
		t.Fatal("ADDR cleared without reading SR1 first")
	}
	clearAddr(p)
	if p.Peek(regs.SR1)&regs.SR1_TXE == 0 {
		t.Fatal("TXE not set after ADDR cleared")
	}

	p.Set(regs.DR, 0x07)
	p.Set(regs.DR, 0x99) // overwrites the unsent byte; only the last one goes out
	if p.Peek(regs.SR1)&regs.SR1_TXE != 0 {
		t.Error("TXE still set with a byte pending")
	}
	p.Tick()
	if p.Peek(regs.SR1)&(regs.SR1_TXE|regs.SR1_BTF) != regs.SR1_TXE {
		t.Errorf("after shifting: SR1=%#x", p.Peek(regs.SR1))
	}
	p.Tick()
	if p.Peek(regs.SR1)&regs.SR1_BTF == 0 {
		t.Error("BTF not set with nothing more to send")
	}

	p.Set(regs.CR1, p.Get(regs.CR1)|regs.CR1_STOP)
	want := []Op{Start(), Addr(0xA0, true), Write(0x99, true), Stop()}
	if diff := cmp.Diff(want, p.Log()); diff != "" {
		t.Errorf("log mismatch (-want +got):\n%s", diff)
	}
	if p.Busy() || p.Peek(regs.CR1)&regs.CR1_STOP != 0 {
		t.Errorf("bus not released: SR2=%#x CR1=%#x", p.Peek(regs.SR2), p.Peek(regs.CR1))
	}
	if mem.Pointer() != 0x99 {
		t.Errorf("pointer = %#x", mem.Pointer())
	}
}

func TestAddressNotAcknowledged(t *testing.T) {
	p := enabled(NewMemory(0x50))

	p.Set(regs.CR1, p.Get(regs.CR1)|regs.CR1_START)
	p.Set(regs.DR, 0x21<<1|1)
	if p.Peek(regs.SR1)&regs.SR1_AF == 0 {
		t.Fatal("AF not set for an absent device")
	}
	if p.Peek(regs.SR1)&regs.SR1_ADDR != 0 {
		t.Error("ADDR set for an absent device")
	}

	p.Set(regs.SR1, ^uint32(regs.SR1_AF))
	if p.Peek(regs.SR1)&regs.SR1_AF != 0 {
		t.Error("AF not cleared by writing zero")
	}
	p.Set(regs.CR1, p.Get(regs.CR1)|regs.CR1_STOP)

	want := []Op{Start(), Addr(0x43, false), Stop()}
	if diff := cmp.Diff(want, p.Log()); diff != "" {
		t.Errorf("log mismatch (-want +got):\n%s", diff)
	}
}

func TestReceiverSamplesAck(t *testing.T) {
	mem := NewMemory(0x50)
	copy(mem.Mem[:], []byte{0x10, 0x20, 0x30})
	p := enabled(mem)

	p.Set(regs.CR1, p.Get(regs.CR1)|regs.CR1_START)
	p.Set(regs.DR, 0x50<<1|1)
	clearAddr(p)

	p.Tick()
	if p.Tick() {
		t.Error("clocked a byte over an unread one")
	}
	if got := p.Get(regs.DR); got != 0x10 {
		t.Errorf("DR = %#x", got)
	}
	p.Set(regs.CR1, p.Get(regs.CR1)&^regs.CR1_ACK)
	p.Tick()
	p.Set(regs.CR1, p.Get(regs.CR1)|regs.CR1_STOP)
	if got := p.Get(regs.DR); got != 0x20 {
		t.Errorf("DR = %#x", got)
	}
	if p.Tick() {
		t.Error("clocked after NACK")
	}

	want := []Op{Start(), Addr(0xA1, true), Read(0x10, true), Read(0x20, false), Stop()}
	if diff := cmp.Diff(want, p.Log()); diff != "" {
		t.Errorf("log mismatch (-want +got):\n%s", diff)
	}
}

func TestStopQueuedBehindLastByte(t *testing.T) {
	mem := NewMemory(0x50)
	p := enabled(mem)
	p.AutoTick = true

	p.Set(regs.CR1, p.Get(regs.CR1)|regs.CR1_START)
	p.Set(regs.DR, 0x50<<1|1)
	clearAddr(p) // the SR1 read clocks nothing yet: ADDR is still set

	p.Get(regs.SR1) // clocks byte 0
	p.Set(regs.CR1, p.Get(regs.CR1)|regs.CR1_STOP)
	if !p.Busy() {
		t.Fatal("STOP issued before the last byte was NACKed")
	}
	p.Get(regs.DR)
	p.Get(regs.SR1) // clocks byte 1 as the last, then STOP

	want := []Op{Start(), Addr(0xA1, true), Read(0, true), Read(0, false), Stop()}
	if diff := cmp.Diff(want, p.Log()); diff != "" {
		t.Errorf("log mismatch (-want +got):\n%s", diff)
	}
}

func TestSoftwareReset(t *testing.T) {
	p := enabled()
	p.Set(regs.CCR, 180)
	p.Set(regs.CR1, regs.CR1_SWRST)
	p.Set(regs.CR1, 0)

	for r := regs.Reg(0); r < regs.NumRegs; r++ {
		want := uint32(0)
		if r == regs.TRISE {
			want = 2
		}
		if got := p.Peek(r); got != want {
			t.Errorf("%v = %#x after reset, want %#x", r, got, want)
		}
	}
}

func TestAckHeldLowWhileDisabled(t *testing.T) {
	p := New()
	p.Set(regs.CR1, regs.CR1_ACK)
	if p.Peek(regs.CR1) != 0 {
		t.Errorf("CR1 = %#x, ACK must not stick while PE is clear", p.Peek(regs.CR1))
	}
	p.Set(regs.CR1, regs.CR1_PE|regs.CR1_START)
	if len(p.Log()) != 1 {
		t.Errorf("log = %v", p.Log())
	}
}

type silent struct{}

func (silent) HandleEvent() {}
func (silent) HandleError() {}

func TestUnservicedInterruptPanics(t *testing.T) {
	p := enabled(NewMemory(0x50))
	p.Attach(silent{})

	defer func() {
		if recover() == nil {
			t.Error("no panic for an interrupt that is never cleared")
		}
	}()
	p.Set(regs.CR2, regs.CR2_ITEVTEN)
	p.Set(regs.CR1, p.Get(regs.CR1)|regs.CR1_START)
}

func TestMemoryTarget(t *testing.T) {
	m := NewMemory(0x50)
	m.NackAfter = 2

	m.Start(false)
	if !m.Write(0x10) || !m.Write(0xAB) {
		t.Fatal("first two bytes refused")
	}
	if m.Write(0xCD) {
		t.Error("third byte acknowledged")
	}
	if m.Mem[0x10] != 0xAB || m.Mem[0x11] != 0 {
		t.Errorf("mem = % x", m.Mem[0x10:0x12])
	}

	m.Start(false)
	m.Write(0xFF)
	m.Start(true)
	m.Mem[0xFF] = 0x55
	if m.Read() != 0x55 || m.Pointer() != 0 {
		t.Errorf("pointer did not wrap: %#x", m.Pointer())
	}
	if m.Starts() != 3 {
		t.Errorf("starts = %d", m.Starts())
	}
}

func TestOpString(t *testing.T) {
	got := []string{Start().String(), Addr(0xA0, true).String(), Read(0x05, false).String(), Stop().String()}
	want := []string{"START", "ADDR 0xa0 ACK", "R 0x05 NACK", "STOP"}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
