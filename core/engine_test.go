package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"stmi2c/regs"
)

const (
	armed    = regs.CR2_IT
	asMaster = regs.SR2_MSL | regs.SR2_BUSY
	txMaster = asMaster | regs.SR2_TRA
)

func sending(buf []byte, pos int) transfer {
	return transfer{state: BusySending, buf: buf, pos: pos, size: len(buf), addr: 0x50}
}

func receiving(buf []byte, pos int) transfer {
	return transfer{state: BusyReceiving, buf: buf, pos: pos, size: len(buf), addr: 0x50}
}

func TestAdvance(t *testing.T) {
	three := []byte{1, 2, 3}

	tests := []struct {
		name       string
		xfer       transfer
		st         status
		ack        AckControl
		wantActs   []action
		wantEvents []Event
		wantState  State
		wantPos    int
	}{
		{
			name:      "start bit while sending writes write header",
			xfer:      sending(three, 0),
			st:        status{sr1: regs.SR1_SB, sr2: asMaster, cr2: armed},
			wantActs:  []action{{actWriteData, 0xA0}},
			wantState: BusySending,
		},
		{
			name:      "start bit while receiving writes read header",
			xfer:      receiving(make([]byte, 2), 0),
			st:        status{sr1: regs.SR1_SB, sr2: asMaster, cr2: armed},
			wantActs:  []action{{actWriteData, 0xA1}},
			wantState: BusyReceiving,
		},
		{
			name:      "address sent for single byte receive disables ack first",
			xfer:      receiving(make([]byte, 1), 0),
			st:        status{sr1: regs.SR1_ADDR, sr2: asMaster, cr2: armed},
			wantActs:  []action{{actAckOff, 0}, {actClearAddr, 0}},
			wantState: BusyReceiving,
		},
		{
			name:      "address sent for multi byte receive keeps ack",
			xfer:      receiving(make([]byte, 3), 0),
			st:        status{sr1: regs.SR1_ADDR, sr2: asMaster, cr2: armed},
			wantActs:  []action{{actClearAddr, 0}},
			wantState: BusyReceiving,
		},
		{
			name:       "own address matched as slave",
			xfer:       transfer{},
			st:         status{sr1: regs.SR1_ADDR, cr2: armed},
			wantActs:   []action{{actClearAddr, 0}},
			wantEvents: []Event{EventAddressMatched},
			wantState:  Ready,
		},
		{
			name:      "transmit empty loads next byte",
			xfer:      sending(three, 0),
			st:        status{sr1: regs.SR1_TXE, sr2: txMaster, cr2: armed},
			wantActs:  []action{{actWriteData, 1}},
			wantState: BusySending,
			wantPos:   1,
		},
		{
			name:      "last byte masks buffer interrupt",
			xfer:      sending(three, 2),
			st:        status{sr1: regs.SR1_TXE, sr2: txMaster, cr2: armed},
			wantActs:  []action{{actWriteData, 3}, {actMaskBuffer, 0}},
			wantState: BusySending,
			wantPos:   3,
		},
		{
			name:      "transmit empty without buffer interrupt is ignored",
			xfer:      sending(three, 1),
			st:        status{sr1: regs.SR1_TXE, sr2: txMaster, cr2: regs.CR2_ITEVTEN | regs.CR2_ITERREN},
			wantState: BusySending,
			wantPos:   1,
		},
		{
			name:       "byte transfer finished completes send with stop",
			xfer:       sending(three, 3),
			st:         status{sr1: regs.SR1_TXE | regs.SR1_BTF, sr2: txMaster, cr2: regs.CR2_ITEVTEN | regs.CR2_ITERREN},
			wantActs:   []action{{actStop, 0}, {actMaskAll, 0}},
			wantEvents: []Event{EventSendComplete},
			wantState:  Ready,
			wantPos:    3,
		},
		{
			name:       "repeated start completes send without stop",
			xfer:       transfer{state: BusySending, buf: three, pos: 3, size: 3, addr: 0x50, repeatedStart: true},
			st:         status{sr1: regs.SR1_TXE | regs.SR1_BTF, sr2: txMaster, cr2: regs.CR2_ITEVTEN | regs.CR2_ITERREN},
			wantActs:   []action{{actMaskAll, 0}},
			wantEvents: []Event{EventSendComplete},
			wantState:  Ready,
			wantPos:    3,
		},
		{
			name:      "byte transfer finished with bytes left is ignored",
			xfer:      sending(three, 1),
			st:        status{sr1: regs.SR1_BTF, sr2: txMaster, cr2: armed},
			wantState: BusySending,
			wantPos:   1,
		},
		{
			name:      "receive with more than two left reads",
			xfer:      receiving(make([]byte, 4), 0),
			st:        status{sr1: regs.SR1_RXNE, sr2: asMaster, cr2: armed},
			wantActs:  []action{{actReadData, 0}},
			wantState: BusyReceiving,
			wantPos:   1,
		},
		{
			name:      "receive with two left disables ack before reading",
			xfer:      receiving(make([]byte, 3), 1),
			st:        status{sr1: regs.SR1_RXNE, sr2: asMaster, cr2: armed},
			wantActs:  []action{{actAckOff, 0}, {actReadData, 1}},
			wantState: BusyReceiving,
			wantPos:   2,
		},
		{
			name:       "last byte completes receive",
			xfer:       receiving(make([]byte, 3), 2),
			st:         status{sr1: regs.SR1_RXNE, sr2: asMaster, cr2: armed},
			ack:        AckEnable,
			wantActs:   []action{{actReadData, 2}, {actStop, 0}, {actMaskAll, 0}, {actAckOn, 0}},
			wantEvents: []Event{EventReceiveComplete},
			wantState:  Ready,
			wantPos:    3,
		},
		{
			name:       "single byte receive does not touch ack before the read",
			xfer:       receiving(make([]byte, 1), 0),
			st:         status{sr1: regs.SR1_RXNE, sr2: asMaster, cr2: armed},
			ack:        AckDisable,
			wantActs:   []action{{actReadData, 0}, {actStop, 0}, {actMaskAll, 0}},
			wantEvents: []Event{EventReceiveComplete},
			wantState:  Ready,
			wantPos:    1,
		},
		{
			name:       "stop detected as slave",
			st:         status{sr1: regs.SR1_STOPF, cr2: armed},
			wantActs:   []action{{actClearStop, 0}},
			wantEvents: []Event{EventStop},
		},
		{
			name:       "slave transmitter asked for data",
			st:         status{sr1: regs.SR1_TXE, sr2: regs.SR2_TRA | regs.SR2_BUSY, cr2: armed},
			wantEvents: []Event{EventDataRequest},
		},
		{
			name:       "slave receiver got data",
			st:         status{sr1: regs.SR1_RXNE, sr2: regs.SR2_BUSY, cr2: armed},
			wantEvents: []Event{EventDataReceived},
		},
		{
			name:       "10-bit header reported",
			xfer:       sending(three, 0),
			st:         status{sr1: regs.SR1_ADD10, sr2: asMaster, cr2: armed},
			wantEvents: []Event{EventAddr10},
			wantState:  BusySending,
		},
		{
			name:      "event interrupt disabled does nothing",
			xfer:      sending(three, 0),
			st:        status{sr1: regs.SR1_SB | regs.SR1_TXE, sr2: asMaster, cr2: regs.CR2_ITBUFEN},
			wantState: BusySending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := advance(tt.xfer, tt.st, tt.ack)
			if diff := cmp.Diff(tt.wantActs, s.Actions(), cmp.AllowUnexported(action{}), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("actions mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantEvents, s.Events(), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("events mismatch (-want +got):\n%s", diff)
			}
			if s.next.state != tt.wantState {
				t.Errorf("state = %v, want %v", s.next.state, tt.wantState)
			}
			if s.next.pos != tt.wantPos {
				t.Errorf("pos = %d, want %d", s.next.pos, tt.wantPos)
			}
		})
	}
}

func TestAdvanceReleasesBufferOnCompletion(t *testing.T) {
	s := advance(sending([]byte{1}, 1), status{sr1: regs.SR1_TXE | regs.SR1_BTF, sr2: txMaster, cr2: regs.CR2_ITEVTEN}, AckEnable)
	if s.next.buf != nil {
		t.Error("buffer still referenced after completion")
	}
	if s.next.remaining() != 0 {
		t.Errorf("remaining = %d after completion", s.next.remaining())
	}
}

func TestRecoverErrors(t *testing.T) {
	tests := []struct {
		name       string
		st         status
		wantActs   []action
		wantEvents []Event
	}{
		{
			name:       "acknowledge failure",
			st:         status{sr1: regs.SR1_AF | regs.SR1_TXE, cr2: armed},
			wantActs:   []action{{actClearFlag, regs.SR1_AF}, {actMaskAll, 0}},
			wantEvents: []Event{EventAckFailure},
		},
		{
			name: "several flags reported in order",
			st:   status{sr1: regs.SR1_OVR | regs.SR1_BERR | regs.SR1_TIMEOUT, cr2: armed},
			wantActs: []action{
				{actClearFlag, regs.SR1_BERR},
				{actMaskAll, 0},
				{actClearFlag, regs.SR1_OVR},
				{actClearFlag, regs.SR1_TIMEOUT},
			},
			wantEvents: []Event{EventBusError, EventOverrun, EventTimeout},
		},
		{
			name:       "smbus flags",
			st:         status{sr1: regs.SR1_PECERR | regs.SR1_SMBALERT, cr2: armed},
			wantActs:   []action{{actClearFlag, regs.SR1_PECERR}, {actMaskAll, 0}, {actClearFlag, regs.SR1_SMBALERT}},
			wantEvents: []Event{EventPECError, EventSMBusAlert},
		},
		{
			name: "error interrupt disabled",
			st:   status{sr1: regs.SR1_ARLO, cr2: regs.CR2_ITEVTEN},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := sending([]byte{1, 2, 3}, 1)
			s := recoverErrors(x, tt.st)
			if diff := cmp.Diff(tt.wantActs, s.Actions(), cmp.AllowUnexported(action{}), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("actions mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantEvents, s.Events(), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("events mismatch (-want +got):\n%s", diff)
			}
			if s.next.state != BusySending || s.next.remaining() != 2 {
				t.Errorf("cursor = %v/%d, want BusySending/2", s.next.state, s.next.remaining())
			}
		})
	}
}

func TestEventErr(t *testing.T) {
	for ev := EventNone; ev <= EventSMBusAlert; ev++ {
		if (ev.Err() != nil) != ev.IsError() {
			t.Errorf("%v: Err = %v, IsError = %v", ev, ev.Err(), ev.IsError())
		}
		if ev.String() == "INVALID" {
			t.Errorf("event %d has no name", ev)
		}
	}
}
