// Package weight turns the previous tick's accelerations into per-axle and
// per-side grip multipliers, adding an aerodynamic grip bonus at speed.
package weight

import (
	"math"

	"github.com/cxd309/vds-engine/internal/num"
	"github.com/cxd309/vds-engine/internal/tick"
)

// AeroConfig shapes the downforce grip bonus.
type AeroConfig struct {
	Enabled        bool    `json:"enabled" mapstructure:"enabled"`
	SpeedThreshold float64 `json:"speed_threshold" mapstructure:"speed_threshold"` // m/s
	ReferenceSpeed float64 `json:"reference_speed" mapstructure:"reference_speed"` // m/s
	Exponent       float64 `json:"exponent" mapstructure:"exponent"`
	Bonus          float64 `json:"bonus" mapstructure:"bonus"`         // at reference speed
	MaxBonus       float64 `json:"max_bonus" mapstructure:"max_bonus"` // cap
}

// Config is the weight transfer tuning.
type Config struct {
	CGHeight          float64    `json:"cg_height" mapstructure:"cg_height"`     // metres; a vehicle tuning adds its centre of mass offset
	Wheelbase         float64    `json:"wheelbase" mapstructure:"wheelbase"`     // metres
	TrackWidth        float64    `json:"track_width" mapstructure:"track_width"` // metres
	AccelLever        float64    `json:"accel_lever" mapstructure:"accel_lever"` // lever weight under power
	BrakeLever        float64    `json:"brake_lever" mapstructure:"brake_lever"` // lever weight under braking
	LoadSensitivity   float64    `json:"load_sensitivity" mapstructure:"load_sensitivity"`
	LateralScale      float64    `json:"lateral_scale" mapstructure:"lateral_scale"`
	MaxLateralPercent float64    `json:"max_lateral_percent" mapstructure:"max_lateral_percent"`
	SpringReference   float64    `json:"spring_reference" mapstructure:"spring_reference"` // N/m giving unit spring factor
	GripMin           float64    `json:"grip_min" mapstructure:"grip_min"`
	GripMax           float64    `json:"grip_max" mapstructure:"grip_max"`
	SmoothingRate     float64    `json:"smoothing_rate" mapstructure:"smoothing_rate"` // 1/s
	Aero              AeroConfig `json:"aero" mapstructure:"aero"`
}

// DefaultConfig is a road car geometry.
func DefaultConfig() Config {
	return Config{
		CGHeight:          0.5,
		Wheelbase:         2.6,
		TrackWidth:        1.55,
		AccelLever:        1,
		BrakeLever:        1,
		LoadSensitivity:   1,
		LateralScale:      0.2,
		MaxLateralPercent: 15,
		SpringReference:   35000,
		GripMin:           0.6,
		GripMax:           1.4,
		SmoothingRate:     8,
		Aero: AeroConfig{
			Enabled:        true,
			SpeedThreshold: 20,
			ReferenceSpeed: 60,
			Exponent:       2,
			Bonus:          0.15,
			MaxBonus:       0.25,
		},
	}
}

func (c *Config) validate() {
	if c.Wheelbase <= 0 {
		c.Wheelbase = 2.6
	}
	if c.TrackWidth <= 0 {
		c.TrackWidth = 1.55
	}
	if c.CGHeight < 0 {
		c.CGHeight = 0
	}
	if c.GripMin <= 0 || c.GripMin > 1 {
		c.GripMin = 0.6
	}
	if c.GripMax < 1 {
		c.GripMax = 1.4
	}
	if c.MaxLateralPercent < 0 {
		c.MaxLateralPercent = 0
	}
	if c.SpringReference <= 0 {
		c.SpringReference = 35000
	}
	if c.Aero.ReferenceSpeed <= 0 {
		c.Aero.ReferenceSpeed = 60
	}
}

// Result is one tick's set of grip multipliers.
type Result struct {
	Front          float64 `json:"front"`
	Rear           float64 `json:"rear"`
	Left           float64 `json:"left"`
	Right          float64 `json:"right"`
	Aero           float64 `json:"aero"`
	LateralPercent float64 `json:"lateral_percent"` // signed, positive moves load to the left wheels
}

// ShiftPercent is the magnitude of lateral load transfer.
func (r Result) ShiftPercent() float64 { return math.Abs(r.LateralPercent) }

// Transfer holds the smoothed multipliers between ticks.
type Transfer struct {
	cfg    Config
	result Result
}

// New returns a transfer engine at rest.
func New(cfg Config) *Transfer {
	cfg.validate()
	return &Transfer{cfg: cfg, result: Result{Front: 1, Rear: 1, Left: 1, Right: 1, Aero: 1}}
}

// Config returns the validated tuning.
func (t *Transfer) Config() Config { return t.cfg }

// Update moves the multipliers toward the targets implied by ctx. frontShare
// is the static front axle load fraction and springRate the average corner
// spring rate in N/m.
func (t *Transfer) Update(ctx tick.Context, frontShare, springRate float64) Result {
	front, rear := t.Longitudinal(ctx.LongitudinalG, frontShare)
	pct := t.LateralPercent(ctx.LateralG, springRate)
	a := num.Blend(t.cfg.SmoothingRate, ctx.Dt)

	r := &t.result
	r.Front = t.clamp(num.Lerp(r.Front, front, a))
	r.Rear = t.clamp(num.Lerp(r.Rear, rear, a))
	r.LateralPercent = num.Lerp(r.LateralPercent, pct, a)
	r.Left = t.clamp(1 + r.LateralPercent/100)
	r.Right = t.clamp(1 - r.LateralPercent/100)
	r.Aero = t.Aero(math.Abs(ctx.Speed))
	return t.result
}

// Longitudinal returns unsmoothed front and rear multipliers for a
// longitudinal acceleration in G. The load moved, m·g·G·h/L, is normalised by
// each axle's static load so both ends are shifted by the same force.
func (t *Transfer) Longitudinal(g, frontShare float64) (front, rear float64) {
	lever := t.cfg.AccelLever
	if g < 0 {
		lever = t.cfg.BrakeLever
	}
	frontShare = num.Clamp(frontShare, 0.2, 0.8)
	moved := num.Finite(g, 0) * t.cfg.CGHeight / t.cfg.Wheelbase * lever * t.cfg.LoadSensitivity
	front = t.clamp(1 - moved/frontShare)
	rear = t.clamp(1 + moved/(1-frontShare))
	return front, rear
}

// LateralPercent returns the signed percentage of load moved across the axle
// for a lateral acceleration in G, capped at MaxLateralPercent. Stiffer
// springs transfer load faster.
func (t *Transfer) LateralPercent(g, springRate float64) float64 {
	springFactor := num.Clamp(springRate/t.cfg.SpringReference, 0.5, 1.5)
	pct := num.Finite(g, 0) * t.cfg.CGHeight / (t.cfg.TrackWidth / 2) * springFactor * t.cfg.LateralScale * 100
	return num.Clamp(pct, -t.cfg.MaxLateralPercent, t.cfg.MaxLateralPercent)
}

// Aero returns the downforce grip multiplier at speed m/s.
func (t *Transfer) Aero(speed float64) float64 {
	a := t.cfg.Aero
	if !a.Enabled || speed <= a.SpeedThreshold {
		return 1
	}
	bonus := a.Bonus * math.Pow(speed/a.ReferenceSpeed, a.Exponent)
	return t.clamp(1 + math.Min(bonus, a.MaxBonus))
}

// Wheel combines axle, side and aero multipliers for one wheel.
func (t *Transfer) Wheel(front, left bool) float64 {
	r := t.result
	m := r.Rear
	if front {
		m = r.Front
	}
	if left {
		m *= r.Left
	} else {
		m *= r.Right
	}
	return t.clamp(m * r.Aero)
}

func (t *Transfer) clamp(v float64) float64 {
	return num.Clamp(v, t.cfg.GripMin, t.cfg.GripMax)
}
