package sim

import "fmt"

// OpKind is the type of a bus condition recorded by the simulator.
type OpKind uint8

const (
	OpStart OpKind = iota
	OpStop
	OpAddr
	OpWrite
	OpRead
)

// Op is one condition observed on the wire. Byte and Ack are set for
// address and data bytes; for reads Ack is what the master answered.
type Op struct {
	Kind OpKind
	Byte byte
	Ack  bool
}

func (o Op) String() string {
	ack := "NACK"
	if o.Ack {
		ack = "ACK"
	}
	switch o.Kind {
	case OpStart:
		return "START"
	case OpStop:
		return "STOP"
	case OpAddr:
		return fmt.Sprintf("ADDR 0x%02x %s", o.Byte, ack)
	case OpWrite:
		return fmt.Sprintf("W 0x%02x %s", o.Byte, ack)
	case OpRead:
		return fmt.Sprintf("R 0x%02x %s", o.Byte, ack)
	default:
		return "OP?"
	}
}

// Helpers for building expected logs.

func Start() Op                 { return Op{Kind: OpStart} }
func Stop() Op                  { return Op{Kind: OpStop} }
func Addr(b byte, ack bool) Op  { return Op{Kind: OpAddr, Byte: b, Ack: ack} }
func Write(b byte, ack bool) Op { return Op{Kind: OpWrite, Byte: b, Ack: ack} }
func Read(b byte, ack bool) Op  { return Op{Kind: OpRead, Byte: b, Ack: ack} }
