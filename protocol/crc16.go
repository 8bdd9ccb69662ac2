package protocol

// crcPoly is CCITT 0x1021 bit-reversed; the register shifts right.
const crcPoly = 0x8408

// CRC16 is the reflected CCITT CRC over data: init 0xFFFF, no final xor.
// It is bitwise since frames are short and the firmware has no room for a
// table.
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ crcPoly
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}
