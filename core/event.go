package core

// Event is the tag passed to the application callback.
type Event uint8

const (
	EventNone Event = iota

	EventSendComplete    // master send finished, stop or repeated start issued
	EventReceiveComplete // master receive finished, buffer filled
	EventStop            // stop detected while addressed as slave
	EventAddressMatched  // own address matched, now acting as slave
	EventAddr10          // 10-bit header sent; 10-bit addressing is not supported
	EventDataRequest     // slave transmitter: master wants a byte (SlaveSend)
	EventDataReceived    // slave receiver: a byte is waiting (SlaveReceive)

	EventBusError
	EventArbitrationLost
	EventAckFailure
	EventOverrun
	EventTimeout
	EventPECError
	EventSMBusAlert
)

func (e Event) String() string {
	switch e {
	case EventNone:
		return "None"
	case EventSendComplete:
		return "SendComplete"
	case EventReceiveComplete:
		return "ReceiveComplete"
	case EventStop:
		return "Stop"
	case EventAddressMatched:
		return "AddressMatched"
	case EventAddr10:
		return "Addr10"
	case EventDataRequest:
		return "DataRequest"
	case EventDataReceived:
		return "DataReceived"
	case EventBusError:
		return "BusError"
	case EventArbitrationLost:
		return "ArbitrationLost"
	case EventAckFailure:
		return "AckFailure"
	case EventOverrun:
		return "Overrun"
	case EventTimeout:
		return "Timeout"
	case EventPECError:
		return "PECError"
	case EventSMBusAlert:
		return "SMBusAlert"
	default:
		return "INVALID"
	}
}

// IsError reports whether e halted the transfer in progress.
func (e Event) IsError() bool {
	return e >= EventBusError && e <= EventSMBusAlert
}

// Err returns the sentinel error for an error event and nil otherwise.
func (e Event) Err() error {
	switch e {
	case EventBusError:
		return ErrBusError
	case EventArbitrationLost:
		return ErrArbitrationLost
	case EventAckFailure:
		return ErrAckFailure
	case EventOverrun:
		return ErrOverrun
	case EventTimeout:
		return ErrTimeout
	case EventPECError:
		return ErrPEC
	case EventSMBusAlert:
		return ErrSMBusAlert
	}
	return nil
}

// Callback is the single notification sink of a Handle. It runs in interrupt
// context (or with interrupts masked) and must not block.
//
// On error events the handle is left in its busy state with the buffer
// position intact; the callback decides when to call Close.
type Callback func(h *Handle, ev Event)
