package protocol

// OutputBuffer is the sink frames are encoded into. The length byte goes out
// as a placeholder and is patched with Update once the frame is complete.
type OutputBuffer interface {
	Output(data []byte)
	CurPosition() int
	Update(pos int, val byte)
	DataSince(pos int) []byte
}

// ScratchSize holds a burst of full frames.
const ScratchSize = 4 * FrameMax

// ScratchOutput is an OutputBuffer over a fixed array, so encoding never
// allocates. Output past the end is truncated.
type ScratchOutput struct {
	arr [ScratchSize]byte
	b   []byte
}

func NewScratchOutput() *ScratchOutput {
	s := &ScratchOutput{}
	s.Reset()
	return s
}

func (s *ScratchOutput) Output(data []byte) {
	if s.b == nil {
		s.Reset()
	}
	if n := s.Free(); len(data) > n {
		data = data[:n]
	}
	s.b = append(s.b, data...)
}

func (s *ScratchOutput) CurPosition() int { return len(s.b) }

// Update overwrites a byte already output; other positions are ignored.
func (s *ScratchOutput) Update(pos int, val byte) {
	if pos >= 0 && pos < len(s.b) {
		s.b[pos] = val
	}
}

func (s *ScratchOutput) DataSince(pos int) []byte {
	if pos < 0 || pos > len(s.b) {
		return nil
	}
	return s.b[pos:]
}

// Result returns everything output since the last Reset.
func (s *ScratchOutput) Result() []byte { return s.b }

// Free returns the room left before output is truncated.
func (s *ScratchOutput) Free() int { return ScratchSize - len(s.b) }

func (s *ScratchOutput) Reset() { s.b = s.arr[:0] }
