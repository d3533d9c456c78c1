package assist

import (
	"math"

	"github.com/cxd309/vds-engine/internal/num"
)

// CounterSteerConfig tunes the slide-catching steering aid.
type CounterSteerConfig struct {
	Enabled       bool    `json:"enabled" mapstructure:"enabled"`
	Deadzone      float64 `json:"deadzone" mapstructure:"deadzone"`             // normalised slip ignored
	MinSpeed      float64 `json:"min_speed" mapstructure:"min_speed"`           // m/s
	Intensity     float64 `json:"intensity" mapstructure:"intensity"`           // 0..1
	MaxCorrection float64 `json:"max_correction" mapstructure:"max_correction"` // degrees
	Damping       float64 `json:"damping" mapstructure:"damping"`               // 1/s
}

// CounterSteer steers into a rear slide.
type CounterSteer struct {
	cfg        CounterSteerConfig
	correction float64 // degrees
}

// NewCounterSteer returns an aid for cfg.
func NewCounterSteer(cfg CounterSteerConfig) *CounterSteer {
	if cfg.Damping <= 0 {
		cfg.Damping = 8
	}
	cfg.MaxCorrection = math.Abs(cfg.MaxCorrection)
	cfg.Intensity = num.Clamp01(cfg.Intensity)
	return &CounterSteer{cfg: cfg}
}

// Update moves the correction toward the target for a normalised rear lateral
// slip (positive when the rear slides right) and returns it. A rear sliding
// right yaws the nose left, so the correction steers right.
func (c *CounterSteer) Update(lateralSlip, speed, dt float64) float64 {
	target := 0.0
	slip := num.Clamp(num.Finite(lateralSlip, 0), -1, 1)
	if c.cfg.Enabled && math.Abs(speed) >= c.cfg.MinSpeed && math.Abs(slip) > c.cfg.Deadzone {
		target = slip * c.cfg.Intensity * c.cfg.MaxCorrection
	}
	c.correction = num.Clamp(num.Approach(c.correction, target, c.cfg.Damping, dt),
		-c.cfg.MaxCorrection, c.cfg.MaxCorrection)
	return c.correction
}
