// Package protocol frames engine trace records for a byte stream such as a
// UART. A frame is
//
//	[len][seq][VLQ bus][VLQ event][VLQ clock][VLQ remaining][crc hi][crc lo][0x7E]
//
// where len counts the whole frame and the CRC covers len through the last
// VLQ byte.
package protocol

// Framing constants
const (
	FrameMax     = 64 // largest frame on the wire
	FrameHeader  = 2  // len and seq
	FrameTrailer = 3  // CRC and sync
	FrameMin     = FrameHeader + FrameTrailer

	SyncByte = 0x7E

	// The high nibble of seq is always SeqBase; the low nibble counts frames.
	SeqBase = 0x10
	SeqMask = 0x0F
)
