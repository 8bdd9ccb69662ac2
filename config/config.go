// Package config reads the board description: which I2C buses exist and how
// each is configured.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stmi2c/bus"
	"stmi2c/core"
)

// BusConfig is one I2C bus as described in the board file.
type BusConfig struct {
	Name      string `json:"name"`
	ID        uint8  `json:"id"`
	SpeedHz   uint32 `json:"speed_hz"`
	Address   uint8  `json:"address"`    // own address for slave mode
	Ack       *bool  `json:"ack"`        // nil means enabled
	Duty      string `json:"duty"`       // "2" or "16:9"
	TimeoutMS int    `json:"timeout_ms"` // per transaction
}

// Board is the whole board file.
type Board struct {
	Buses []BusConfig `json:"buses"`
}

// Default values applied to omitted fields.
const (
	DefaultSpeedHz   = 100000
	DefaultDuty      = "2"
	DefaultTimeoutMS = 25
)

// Load parses a JSON board description, fills in defaults and validates every
// bus.
func Load(data []byte) (*Board, error) {
	var b Board
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	applyDefaults(&b)
	if err := b.validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

func applyDefaults(b *Board) {
	for i := range b.Buses {
		bus := &b.Buses[i]
		if bus.SpeedHz == 0 {
			bus.SpeedHz = DefaultSpeedHz
		}
		if bus.Duty == "" {
			bus.Duty = DefaultDuty
		}
		if bus.TimeoutMS == 0 {
			bus.TimeoutMS = DefaultTimeoutMS
		}
		if bus.Name == "" {
			bus.Name = fmt.Sprintf("i2c%d", bus.ID)
		}
	}
}

func (b *Board) validate() error {
	seen := make(map[uint8]bool)
	for _, bus := range b.Buses {
		if int(bus.ID) >= core.MaxBuses {
			return fmt.Errorf("bus %q: id %d out of range: %w", bus.Name, bus.ID, core.ErrInvalidConfig)
		}
		if seen[bus.ID] {
			return fmt.Errorf("bus %q: id %d used twice: %w", bus.Name, bus.ID, core.ErrInvalidConfig)
		}
		seen[bus.ID] = true
		if bus.TimeoutMS < 0 {
			return fmt.Errorf("bus %q: negative timeout: %w", bus.Name, core.ErrInvalidConfig)
		}
		if _, err := bus.Core(); err != nil {
			return fmt.Errorf("bus %q: %w", bus.Name, err)
		}
	}
	return nil
}

// Core converts the bus description to a validated core.Config.
func (c BusConfig) Core() (core.Config, error) {
	cfg := core.Config{
		Speed:   core.Speed(c.SpeedHz),
		Address: c.Address,
		Ack:     core.AckEnable,
	}
	if c.Ack != nil && !*c.Ack {
		cfg.Ack = core.AckDisable
	}
	switch c.Duty {
	case "2", "":
		cfg.Duty = core.Duty2
	case "16:9":
		cfg.Duty = core.Duty16_9
	default:
		return core.Config{}, fmt.Errorf("duty %q: %w", c.Duty, core.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return core.Config{}, err
	}
	return cfg, nil
}

// Timeout returns the per-transaction timeout.
func (c BusConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// Options returns the bus adapter options the description implies.
func (c BusConfig) Options() []bus.Option {
	return []bus.Option{bus.WithName(c.Name), bus.WithTimeout(c.Timeout())}
}

var ErrNoBus = errors.New("config: no such bus")

// Bus returns the bus with the given id.
func (b *Board) Bus(id uint8) (BusConfig, error) {
	for _, bus := range b.Buses {
		if bus.ID == id {
			return bus, nil
		}
	}
	return BusConfig{}, fmt.Errorf("id %d: %w", id, ErrNoBus)
}

// Names maps bus ids to names.
func (b *Board) Names() map[uint8]string {
	names := make(map[uint8]string, len(b.Buses))
	for _, bus := range b.Buses {
		names[bus.ID] = bus.Name
	}
	return names
}
