// Package engine models the vehicle power unit: torque delivery as a function
// of RPM and throttle, internal losses, the rev limiter, and how crank RPM
// follows either its own inertia or the driven wheels.
//
// Torque delivery is pluggable. Adding a power unit only requires implementing
// TorqueModel and registering it in NewTorqueModel; nothing else changes.
package engine

import (
	"fmt"
	"strings"
)

// Type selects the torque delivery strategy.
type Type string

const (
	TypeCombustion Type = "combustion"
	TypeElectric   Type = "electric"
)

// UnmarshalText implements encoding.TextUnmarshaler so tuning files reject
// unknown engine types at load time.
func (t *Type) UnmarshalText(b []byte) error {
	switch v := Type(strings.ToLower(strings.TrimSpace(string(b)))); v {
	case TypeCombustion, TypeElectric:
		*t = v
		return nil
	case "ice", "":
		*t = TypeCombustion
		return nil
	case "ev":
		*t = TypeElectric
		return nil
	default:
		return fmt.Errorf("unknown engine type %q", string(b))
	}
}

// TorqueModel is the contract every power unit implementation satisfies.
// RPM is crank speed, throttle is 0..1 and torque is in N·m.
type TorqueModel interface {
	// Type returns the discriminator this model was built from.
	Type() Type

	// Torque returns gross crank torque before losses and limiter.
	Torque(rpm, throttle float64) float64

	// PeakTorque returns the maximum gross torque at full throttle.
	PeakTorque() float64
}

// NewTorqueModel resolves cfg.Type to a concrete TorqueModel. It runs once
// per engine at configuration time.
func NewTorqueModel(cfg Config) (TorqueModel, error) {
	switch cfg.Type {
	case TypeCombustion, "":
		return NewCombustion(cfg)
	case TypeElectric:
		return NewElectric(cfg)
	default:
		return nil, fmt.Errorf("unknown engine type %q", cfg.Type)
	}
}
