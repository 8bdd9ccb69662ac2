package sim

// Target is a device on the simulated bus.
type Target interface {
	Address() uint8

	// Start is called when the device is addressed, after a START or a
	// repeated START.
	Start(read bool)

	// Write delivers a byte from the master and reports whether the device
	// acknowledges it.
	Write(b byte) bool

	// Read returns the next byte for the master.
	Read() byte

	Stop()
}

// Memory is a 256-byte register file device, the shape of most I2C sensors,
// RTCs and small EEPROMs: the first byte of a write sets the register
// pointer, further bytes are stored at it, and reads continue from it. The
// pointer wraps at 0xFF.
type Memory struct {
	Addr uint8
	Mem  [256]byte

	// NackAfter is the number of bytes of a write the device acknowledges
	// before NACKing, counting the pointer byte. Negative means never.
	NackAfter int

	ptr     uint8
	first   bool
	written int
	starts  int
}

// NewMemory returns a Memory device at addr that acknowledges every byte.
func NewMemory(addr uint8) *Memory {
	return &Memory{Addr: addr, NackAfter: -1}
}

func (m *Memory) Address() uint8 { return m.Addr }

func (m *Memory) Start(read bool) {
	m.starts++
	if !read {
		m.first = true
		m.written = 0
	}
}

func (m *Memory) Write(b byte) bool {
	if m.NackAfter >= 0 && m.written >= m.NackAfter {
		return false
	}
	m.written++
	if m.first {
		m.ptr = b
		m.first = false
		return true
	}
	m.Mem[m.ptr] = b
	m.ptr++
	return true
}

func (m *Memory) Read() byte {
	b := m.Mem[m.ptr]
	m.ptr++
	return b
}

func (m *Memory) Stop() {}

// Pointer returns the current register pointer.
func (m *Memory) Pointer() uint8 { return m.ptr }

// Starts returns how many times the device has been addressed.
func (m *Memory) Starts() int { return m.starts }

// EEPROM is a serial EEPROM with a two-byte word address, as the AT24C32 and
// larger parts use. The address wraps at the end of Mem.
type EEPROM struct {
	Addr uint8
	Mem  []byte

	ptr     int
	header  int // address bytes still expected in this write
	written int
}

// NewEEPROM returns an EEPROM of size bytes at addr. size must be a power of
// two.
func NewEEPROM(addr uint8, size int) *EEPROM {
	return &EEPROM{Addr: addr, Mem: make([]byte, size)}
}

func (e *EEPROM) Address() uint8 { return e.Addr }

func (e *EEPROM) Start(read bool) {
	if !read {
		e.header = 2
		e.written = 0
	}
}

func (e *EEPROM) Write(b byte) bool {
	switch e.header {
	case 2:
		e.ptr = int(b) << 8
	case 1:
		e.ptr = (e.ptr | int(b)) & (len(e.Mem) - 1)
	default:
		e.Mem[e.ptr] = b
		e.ptr = (e.ptr + 1) & (len(e.Mem) - 1)
		e.written++
		return true
	}
	e.header--
	return true
}

func (e *EEPROM) Read() byte {
	b := e.Mem[e.ptr]
	e.ptr = (e.ptr + 1) & (len(e.Mem) - 1)
	return b
}

func (e *EEPROM) Stop() {}

// Written returns the data bytes stored by the last write.
func (e *EEPROM) Written() int { return e.written }
