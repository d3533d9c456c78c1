package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned for engine parameters that cannot describe a working power unit.
var ErrInvalidConfig = errors.New("invalid engine config")

// Config is the tunable description of a power unit.
type Config struct {
	Type          Type    `json:"type" mapstructure:"type"`
	IdleRPM       float64 `json:"idle_rpm" mapstructure:"idle_rpm"`
	MaxRPM        float64 `json:"max_rpm" mapstructure:"max_rpm"`
	PeakTorque    float64 `json:"peak_torque" mapstructure:"peak_torque"`         // N·m
	PeakTorqueRPM float64 `json:"peak_torque_rpm" mapstructure:"peak_torque_rpm"` // ignored by electric
	PeakPower     float64 `json:"peak_power" mapstructure:"peak_power"`           // kW
	PeakPowerRPM  float64 `json:"peak_power_rpm" mapstructure:"peak_power_rpm"`   // ignored by electric

	Inertia             float64 `json:"inertia" mapstructure:"inertia"`                               // kg·m²
	FreeRevInertiaScale float64 `json:"free_rev_inertia_scale" mapstructure:"free_rev_inertia_scale"` // 0..1
	FrictionTorque      float64 `json:"friction_torque" mapstructure:"friction_torque"`               // N·m at max RPM
	EngineBrakeTorque   float64 `json:"engine_brake_torque" mapstructure:"engine_brake_torque"`       // N·m at max RPM, off throttle
	LimiterStart        float64 `json:"limiter_start" mapstructure:"limiter_start"`                   // fraction of max RPM
	LockRate            float64 `json:"lock_rate" mapstructure:"lock_rate"`                           // 1/s
	SlipRate            float64 `json:"slip_rate" mapstructure:"slip_rate"`                           // 1/s
}

// DefaultConfig is a mid-range petrol engine.
func DefaultConfig() Config {
	return Config{
		Type:                TypeCombustion,
		IdleRPM:             800,
		MaxRPM:              6500,
		PeakTorque:          300,
		PeakTorqueRPM:       4000,
		PeakPower:           150,
		PeakPowerRPM:        5500,
		Inertia:             0.2,
		FreeRevInertiaScale: 0.5,
		FrictionTorque:      15,
		EngineBrakeTorque:   45,
		LimiterStart:        0.95,
		LockRate:            15,
		SlipRate:            10,
	}
}

// Validate rejects impossible values and fills soft defaults in place.
func (c *Config) Validate() error {
	if c.Type == "" {
		c.Type = TypeCombustion
	}
	if c.PeakTorque <= 0 {
		return fmt.Errorf("%w: peak torque must be positive, got %.1f", ErrInvalidConfig, c.PeakTorque)
	}
	if c.PeakPower <= 0 {
		return fmt.Errorf("%w: peak power must be positive, got %.1f", ErrInvalidConfig, c.PeakPower)
	}
	if c.MaxRPM <= 0 {
		return fmt.Errorf("%w: max rpm must be positive, got %.0f", ErrInvalidConfig, c.MaxRPM)
	}
	if c.Type == TypeCombustion {
		if !(c.IdleRPM > 0 && c.IdleRPM < c.PeakTorqueRPM && c.PeakTorqueRPM < c.PeakPowerRPM && c.PeakPowerRPM < c.MaxRPM) {
			return fmt.Errorf("%w: need 0 < idle (%.0f) < peak torque (%.0f) < peak power (%.0f) < max (%.0f) rpm",
				ErrInvalidConfig, c.IdleRPM, c.PeakTorqueRPM, c.PeakPowerRPM, c.MaxRPM)
		}
	}
	if c.Inertia <= 0 {
		c.Inertia = 0.2
	}
	if c.FreeRevInertiaScale <= 0 || c.FreeRevInertiaScale > 1 {
		c.FreeRevInertiaScale = 0.5
	}
	if c.FrictionTorque < 0 {
		c.FrictionTorque = 0
	}
	if c.EngineBrakeTorque < 0 {
		c.EngineBrakeTorque = 0
	}
	if c.LimiterStart <= 0 || c.LimiterStart >= 1 {
		c.LimiterStart = 0.95
	}
	if c.LockRate <= 0 {
		c.LockRate = 15
	}
	if c.SlipRate <= 0 {
		c.SlipRate = 10
	}
	return nil
}

// Floor is the lowest RPM the engine settles at: idle for combustion, zero for electric.
func (c Config) Floor() float64 {
	if c.Type == TypeElectric {
		return 0
	}
	return c.IdleRPM
}
