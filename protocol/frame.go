package protocol

import (
	"bytes"
	"errors"
	"io"
)

var ErrMalformedFrame = errors.New("protocol: malformed frame")

// TraceRecord is one transfer engine event as carried on the wire.
type TraceRecord struct {
	Bus       uint8
	Event     uint8
	Clock     uint32 // timer ticks at the event
	Remaining uint32 // bytes left in the transfer
}

// EncodeTrace appends one frame carrying rec to out.
func EncodeTrace(out OutputBuffer, seq uint8, rec TraceRecord) {
	start := out.CurPosition()
	out.Output([]byte{0, SeqBase | seq&SeqMask})
	EncodeVLQUint(out, uint32(rec.Bus))
	EncodeVLQUint(out, uint32(rec.Event))
	EncodeVLQUint(out, rec.Clock)
	EncodeVLQUint(out, rec.Remaining)

	n := len(out.DataSince(start))
	out.Update(start, uint8(n+FrameTrailer))
	crc := CRC16(out.DataSince(start))
	out.Output([]byte{uint8(crc >> 8), uint8(crc), SyncByte})
}

func decodeTrace(body []byte) (TraceRecord, error) {
	var rec TraceRecord
	var v [4]uint32
	for i := range v {
		x, err := DecodeVLQUint(&body)
		if err != nil {
			return rec, err
		}
		v[i] = x
	}
	if len(body) != 0 || v[0] > 0xFF || v[1] > 0xFF {
		return rec, ErrMalformedFrame
	}
	rec.Bus, rec.Event, rec.Clock, rec.Remaining = uint8(v[0]), uint8(v[1]), v[2], v[3]
	return rec, nil
}

// TraceWriter frames records onto w with a running sequence number.
type TraceWriter struct {
	w   io.Writer
	seq uint8
	out ScratchOutput
}

func NewTraceWriter(w io.Writer) *TraceWriter {
	return &TraceWriter{w: w}
}

// WriteRecords frames recs and writes them, flushing whenever the scratch
// buffer cannot hold another frame.
func (t *TraceWriter) WriteRecords(recs ...TraceRecord) error {
	t.out.Reset()
	for _, rec := range recs {
		if t.out.Free() < FrameMax {
			if err := t.flush(); err != nil {
				return err
			}
		}
		EncodeTrace(&t.out, t.seq, rec)
		t.seq = (t.seq + 1) & SeqMask
	}
	return t.flush()
}

func (t *TraceWriter) flush() error {
	defer t.out.Reset()
	if t.out.CurPosition() == 0 {
		return nil
	}
	_, err := t.w.Write(t.out.Result())
	return err
}

// DecoderStats counts what a Decoder threw away.
type DecoderStats struct {
	Frames  int // good frames
	Dropped int // bad length, sequence nibble, sync or CRC
	Skipped int // bytes discarded while resynchronising
	Lost    int // frames missing from the sequence
}

// Decoder reassembles records from a byte stream. A bad frame drops the
// decoder out of sync; it discards input up to the next sync byte and
// carries on from there.
type Decoder struct {
	arr     [4 * FrameMax]byte
	buf     []byte // unconsumed input, always a prefix of arr
	synced  bool
	seq     uint8
	haveSeq bool
	stats   DecoderStats
}

func NewDecoder() *Decoder {
	d := &Decoder{synced: true}
	d.buf = d.arr[:0]
	return d
}

// Stats returns the running counters.
func (d *Decoder) Stats() DecoderStats {
	return d.stats
}

// Feed consumes p and appends the records it completes to recs.
func (d *Decoder) Feed(p []byte, recs []TraceRecord) []TraceRecord {
	for len(p) > 0 {
		n := copy(d.arr[len(d.buf):], p)
		d.buf = d.arr[:len(d.buf)+n]
		p = p[n:]
		recs = d.drain(recs)
	}
	return recs
}

func (d *Decoder) drain(recs []TraceRecord) []TraceRecord {
	for {
		data := d.buf
		if len(data) == 0 {
			return recs
		}

		if !d.synced {
			i := bytes.IndexByte(data, SyncByte)
			if i < 0 {
				d.stats.Skipped += len(data)
				d.pop(len(data))
				return recs
			}
			d.stats.Skipped += i
			d.pop(i + 1)
			d.synced = true
			continue
		}

		if data[0] == SyncByte {
			d.pop(1)
			continue
		}
		if len(data) < FrameMin {
			return recs
		}
		n := int(data[0])
		if n < FrameMin || n > FrameMax || data[1]&^SeqMask != SeqBase {
			d.desync()
			continue
		}
		if len(data) < n {
			return recs
		}
		if data[n-1] != SyncByte {
			d.desync()
			continue
		}
		crc := uint16(data[n-FrameTrailer])<<8 | uint16(data[n-FrameTrailer+1])
		if crc != CRC16(data[:n-FrameTrailer]) {
			d.desync()
			continue
		}
		rec, err := decodeTrace(data[FrameHeader : n-FrameTrailer])
		if err != nil {
			d.desync()
			continue
		}

		seq := data[1] & SeqMask
		if d.haveSeq && seq != d.seq {
			d.stats.Lost += int((seq - d.seq) & SeqMask)
		}
		d.seq, d.haveSeq = (seq+1)&SeqMask, true
		d.stats.Frames++
		d.pop(n)
		recs = append(recs, rec)
	}
}

// pop discards n bytes from the front, moving the rest down so a frame
// always sits at the start of arr.
func (d *Decoder) pop(n int) {
	d.buf = d.arr[:copy(d.arr[:], d.buf[n:])]
}

func (d *Decoder) desync() {
	d.synced = false
	d.stats.Dropped++
}
