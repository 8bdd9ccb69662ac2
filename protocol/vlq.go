package protocol

import "errors"

var (
	ErrInvalidVLQ     = errors.New("protocol: invalid VLQ")
	ErrBufferTooSmall = errors.New("protocol: buffer too small")
)

// EncodeVLQInt writes v most significant group first, seven bits per byte
// with the top bit marking continuation. Small negative values stay short:
// bits 5 and 6 of the first byte both set means the value is sign extended.
func EncodeVLQInt(out OutputBuffer, v int32) {
	// n groups carry values in [-2^(7n-2), 3*2^(7n-2)).
	n := 1
	for ; n < 5; n++ {
		lim := int32(1) << (7*n - 2)
		if -lim <= v && v < 3*lim {
			break
		}
	}
	var b [5]byte
	for i := 0; i < n; i++ {
		b[i] = byte(v>>(7*(n-1-i)))&0x7F | 0x80
	}
	b[n-1] &^= 0x80
	out.Output(b[:n])
}

// EncodeVLQUint encodes v through its int32 bit pattern; every uint32 round
// trips.
func EncodeVLQUint(out OutputBuffer, v uint32) {
	EncodeVLQInt(out, int32(v))
}

// DecodeVLQInt reads one value from the front of *data and advances it.
func DecodeVLQInt(data *[]byte) (int32, error) {
	if len(*data) == 0 {
		return 0, ErrBufferTooSmall
	}

	c := uint32((*data)[0])
	*data = (*data)[1:]

	v := c & 0x7F
	if c&0x60 == 0x60 {
		v |= ^uint32(0x1F)
	}
	for n := 1; c&0x80 != 0; n++ {
		if n == 5 {
			return 0, ErrInvalidVLQ
		}
		if len(*data) == 0 {
			return 0, ErrBufferTooSmall
		}
		c = uint32((*data)[0])
		*data = (*data)[1:]
		v = v<<7 | c&0x7F
	}
	return int32(v), nil
}

// DecodeVLQUint reads a value written by EncodeVLQUint.
func DecodeVLQUint(data *[]byte) (uint32, error) {
	v, err := DecodeVLQInt(data)
	return uint32(v), err
}

// EncodeVLQ returns the encoding of v.
func EncodeVLQ(v int32) []byte {
	out := NewScratchOutput()
	EncodeVLQInt(out, v)
	return append([]byte(nil), out.Result()...)
}

// DecodeVLQ decodes the first value in data and reports the bytes consumed.
func DecodeVLQ(data []byte) (int32, int, error) {
	n := len(data)
	v, err := DecodeVLQInt(&data)
	if err != nil {
		return 0, 0, err
	}
	return v, n - len(data), nil
}
