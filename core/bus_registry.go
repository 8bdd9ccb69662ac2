package core

// BusID identifies a peripheral instance (0 for I2C1, 1 for I2C2).
type BusID uint8

// MaxBuses is the number of I2C peripherals on the STM32F103.
const MaxBuses = 2

// Interrupt vectors are plain functions, so targets find the handle for a
// vector through this table.
var handles [MaxBuses]*Handle

// RegisterHandle binds h to id and tags its trace records with id.
func RegisterHandle(id BusID, h *Handle) {
	if int(id) >= MaxBuses {
		panic("I2C bus id out of range")
	}
	h.id = id
	handles[id] = h
}

// HandleFor returns the handle bound to id, or nil.
func HandleFor(id BusID) *Handle {
	if int(id) >= MaxBuses {
		return nil
	}
	return handles[id]
}

// DispatchEvent and DispatchError are the bodies of the I2Cx_EV and I2Cx_ER
// vectors.
func DispatchEvent(id BusID) {
	if h := HandleFor(id); h != nil {
		h.HandleEvent()
	}
}

func DispatchError(id BusID) {
	if h := HandleFor(id); h != nil {
		h.HandleError()
	}
}
