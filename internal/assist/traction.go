// Package assist implements the driver aids and torque routing applied after
// the engine: traction control, counter-steer, brake bias with ABS, and the
// differential split.
package assist

import (
	"math"

	"github.com/cxd309/vds-engine/internal/num"
)

// TractionConfig tunes traction control.
type TractionConfig struct {
	Enabled       bool    `json:"enabled" mapstructure:"enabled"`
	SlipThreshold float64 `json:"slip_threshold" mapstructure:"slip_threshold"`
	Gain          float64 `json:"gain" mapstructure:"gain"`           // torque cut per unit slip over threshold
	Intensity     float64 `json:"intensity" mapstructure:"intensity"` // 0..1
}

// TractionControl derates drive torque on a spinning wheel.
type TractionControl struct {
	cfg TractionConfig
}

// NewTractionControl returns a controller for cfg.
func NewTractionControl(cfg TractionConfig) *TractionControl {
	if cfg.Gain <= 0 {
		cfg.Gain = 3
	}
	cfg.Intensity = num.Clamp01(cfg.Intensity)
	return &TractionControl{cfg: cfg}
}

// SetEnabled switches the aid at runtime.
func (t *TractionControl) SetEnabled(on bool) { t.cfg.Enabled = on }

// Enabled reports whether the aid is active.
func (t *TractionControl) Enabled() bool { return t.cfg.Enabled }

// Multiplier returns the torque factor for a wheel at forward slip. It is 1 up
// to the threshold and falls linearly with the excess, never rising with slip.
func (t *TractionControl) Multiplier(slip float64) float64 {
	if !t.cfg.Enabled {
		return 1
	}
	excess := math.Abs(num.Finite(slip, 0)) - t.cfg.SlipThreshold
	if excess <= 0 {
		return 1
	}
	return num.Clamp01(1 - excess*t.cfg.Gain*t.cfg.Intensity)
}
