package assist

import (
	"math"

	"github.com/cxd309/vds-engine/internal/num"
)

// ABSConfig tunes the anti-lock clamp.
type ABSConfig struct {
	Enabled   bool    `json:"enabled" mapstructure:"enabled"`
	SlipLimit float64 `json:"slip_limit" mapstructure:"slip_limit"`
	MinFactor float64 `json:"min_factor" mapstructure:"min_factor"` // floor on the release
}

// BrakeConfig sizes the brakes.
type BrakeConfig struct {
	MaxTorque       float64   `json:"max_torque" mapstructure:"max_torque"`             // N·m per wheel at full pedal
	FrontBias       float64   `json:"front_bias" mapstructure:"front_bias"`             // 0..1 share of the front axle
	Pressure        float64   `json:"pressure" mapstructure:"pressure"`                 // multiplier
	HandbrakeTorque float64   `json:"handbrake_torque" mapstructure:"handbrake_torque"` // N·m per rear wheel
	ABS             ABSConfig `json:"abs" mapstructure:"abs"`
}

// Brakes splits pedal demand across the axles.
type Brakes struct {
	cfg BrakeConfig
}

// NewBrakes returns a brake system for cfg.
func NewBrakes(cfg BrakeConfig) *Brakes {
	cfg.FrontBias = num.Clamp01(cfg.FrontBias)
	if cfg.Pressure <= 0 {
		cfg.Pressure = 1
	}
	if cfg.ABS.SlipLimit <= 0 {
		cfg.ABS.SlipLimit = 0.15
	}
	cfg.ABS.MinFactor = num.Clamp01(cfg.ABS.MinFactor)
	return &Brakes{cfg: cfg}
}

// Config returns the brake tuning.
func (b *Brakes) Config() BrakeConfig { return b.cfg }

// Split returns per-wheel brake torque for a front and a rear wheel at pedal
// brake 0..1. Bias 0.5 gives equal torque front and rear.
func (b *Brakes) Split(brake float64) (front, rear float64) {
	total := num.Clamp01(brake) * b.cfg.MaxTorque * b.cfg.Pressure * 2
	return total * b.cfg.FrontBias, total * (1 - b.cfg.FrontBias)
}

// Handbrake returns rear-wheel torque while the handbrake is held.
func (b *Brakes) Handbrake(on bool) float64 {
	if !on {
		return 0
	}
	return b.cfg.HandbrakeTorque
}

// ABS returns the brake torque factor for an aggregate slip ratio: 1 below
// the limit, then proportionally less, floored at MinFactor.
func (b *Brakes) ABS(aggregateSlip float64) float64 {
	a := b.cfg.ABS
	s := math.Abs(num.Finite(aggregateSlip, 0))
	if !a.Enabled || s <= a.SlipLimit {
		return 1
	}
	return num.Clamp(a.SlipLimit/s, a.MinFactor, 1)
}
