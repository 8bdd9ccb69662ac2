package regs

import "fmt"

// Access is one recorded register access.
type Access struct {
	Write bool
	Reg   Reg
	Value uint32
}

func (a Access) String() string {
	if a.Write {
		return fmt.Sprintf("%v<-%#04x", a.Reg, a.Value)
	}
	return fmt.Sprintf("%v->%#04x", a.Reg, a.Value)
}

// Memory is a plain register bank without peripheral behaviour. Every access
// is appended to Log so tests can check the order of register effects.
type Memory struct {
	R   [NumRegs]uint32
	Log []Access
}

// NewMemory returns a bank with the STM32F1 reset values.
func NewMemory() *Memory {
	m := &Memory{}
	m.R[TRISE] = 0x0002
	return m
}

func (m *Memory) Get(r Reg) uint32 {
	v := m.R[r]
	m.Log = append(m.Log, Access{Reg: r, Value: v})
	return v
}

func (m *Memory) Set(r Reg, v uint32) {
	m.R[r] = v
	m.Log = append(m.Log, Access{Write: true, Reg: r, Value: v})
}

// Reset clears the access log.
func (m *Memory) Reset() {
	m.Log = m.Log[:0]
}

// Index returns the position in Log of the first access matching fn, or -1.
func (m *Memory) Index(fn func(Access) bool) int {
	for i, a := range m.Log {
		if fn(a) {
			return i
		}
	}
	return -1
}
