package tyre

import "math"

// LateralShape describes the lateral curve in slip-angle degrees. It is
// converted to slip-angle tangents when curves are built.
type LateralShape struct {
	PeakAngle      float64 `json:"peak_angle" mapstructure:"peak_angle"` // degrees
	PeakValue      float64 `json:"peak_value" mapstructure:"peak_value"`
	AsymptoteAngle float64 `json:"asymptote_angle" mapstructure:"asymptote_angle"` // degrees
	AsymptoteValue float64 `json:"asymptote_value" mapstructure:"asymptote_value"`
	Stiffness      float64 `json:"stiffness" mapstructure:"stiffness"`
}

// Curve converts the shape to a FrictionCurve over slip-angle tangents.
func (l LateralShape) Curve() FrictionCurve {
	return FrictionCurve{
		PeakSlip:       SlipAngleToRatio(l.PeakAngle),
		PeakValue:      l.PeakValue,
		AsymptoteSlip:  SlipAngleToRatio(l.AsymptoteAngle),
		AsymptoteValue: l.AsymptoteValue,
		Stiffness:      l.Stiffness,
	}
}

// SlipAngleToRatio converts a slip angle in degrees to its tangent.
func SlipAngleToRatio(deg float64) float64 {
	return math.Tan(deg * math.Pi / 180)
}

// TemperatureConfig drives the optional tyre heat model.
type TemperatureConfig struct {
	Enabled    bool    `json:"enabled" mapstructure:"enabled"`
	Optimum    float64 `json:"optimum" mapstructure:"optimum"`         // °C
	Ambient    float64 `json:"ambient" mapstructure:"ambient"`         // °C
	Window     float64 `json:"window" mapstructure:"window"`           // °C off optimum for MaxPenalty
	MaxPenalty float64 `json:"max_penalty" mapstructure:"max_penalty"` // grip lost across Window
	MinGrip    float64 `json:"min_grip" mapstructure:"min_grip"`
	HeatRate   float64 `json:"heat_rate" mapstructure:"heat_rate"` // °C/s at unit slip and full speed
	CoolRate   float64 `json:"cool_rate" mapstructure:"cool_rate"` // 1/s toward ambient
}

// PressureConfig drives the optional pressure grip and turn-in model.
type PressureConfig struct {
	Enabled     bool    `json:"enabled" mapstructure:"enabled"`
	PSI         float64 `json:"psi" mapstructure:"psi"`
	GripRef     float64 `json:"grip_ref" mapstructure:"grip_ref"`         // psi giving unit grip
	ResponseRef float64 `json:"response_ref" mapstructure:"response_ref"` // psi giving unit turn-in
}

// TugConfig softens steered front tyres when they spin up under power.
type TugConfig struct {
	Enabled       bool    `json:"enabled" mapstructure:"enabled"`
	SlipThreshold float64 `json:"slip_threshold" mapstructure:"slip_threshold"`
	Reduction     float64 `json:"reduction" mapstructure:"reduction"` // lateral stiffness at full tug
	Ramp          float64 `json:"ramp" mapstructure:"ramp"`           // slip past threshold to reach full tug
}

// Config is the full tyre tuning.
type Config struct {
	Longitudinal       FrictionCurve     `json:"longitudinal" mapstructure:"longitudinal"`
	Lateral            LateralShape      `json:"lateral" mapstructure:"lateral"`
	RearGripMultiplier float64           `json:"rear_grip_multiplier" mapstructure:"rear_grip_multiplier"` // RWD only
	DriftMultiplier    float64           `json:"drift_multiplier" mapstructure:"drift_multiplier"`
	FullDrift          bool              `json:"full_drift" mapstructure:"full_drift"`
	Temperature        TemperatureConfig `json:"temperature" mapstructure:"temperature"`
	Pressure           PressureConfig    `json:"pressure" mapstructure:"pressure"`
	Tug                TugConfig         `json:"tug" mapstructure:"tug"`
}

// DefaultConfig is a road tyre with the optional models switched off.
func DefaultConfig() Config {
	return Config{
		Longitudinal: FrictionCurve{
			PeakSlip:       0.08,
			PeakValue:      1.5,
			AsymptoteSlip:  0.4,
			AsymptoteValue: 0.9,
			Stiffness:      0.7,
		},
		Lateral: LateralShape{
			PeakAngle:      4,
			PeakValue:      1.8,
			AsymptoteAngle: 14,
			AsymptoteValue: 1.0,
			Stiffness:      0.6,
		},
		RearGripMultiplier: 1.2,
		DriftMultiplier:    0.5,
		Temperature: TemperatureConfig{
			Optimum:    95,
			Ambient:    25,
			Window:     50,
			MaxPenalty: 0.3,
			MinGrip:    0.7,
			HeatRate:   60,
			CoolRate:   0.1,
		},
		Pressure: PressureConfig{
			PSI:         32,
			GripRef:     33,
			ResponseRef: 30,
		},
		Tug: TugConfig{
			SlipThreshold: 0.2,
			Reduction:     0.9,
			Ramp:          0.2,
		},
	}
}

// Validate clamps every multiplier into its working range.
func (c *Config) Validate() {
	c.RearGripMultiplier = clampRange(c.RearGripMultiplier, 1, 1.5, 1.2)
	c.DriftMultiplier = clampRange(c.DriftMultiplier, 0.1, 1, 0.5)
	t := &c.Temperature
	if t.Window <= 0 {
		t.Window = 50
	}
	t.MinGrip = clampRange(t.MinGrip, 0.1, 1, 0.7)
	if t.CoolRate < 0 {
		t.CoolRate = 0
	}
	p := &c.Pressure
	if p.GripRef <= 0 {
		p.GripRef = 33
	}
	if p.ResponseRef <= 0 {
		p.ResponseRef = 30
	}
	if c.Tug.Ramp <= 0 {
		c.Tug.Ramp = 0.2
	}
	c.Tug.Reduction = clampRange(c.Tug.Reduction, 0.5, 1, 0.9)
}

// clampRange clamps v into [lo, hi], substituting def for an unset zero.
func clampRange(v, lo, hi, def float64) float64 {
	if v == 0 {
		return def
	}
	return math.Max(lo, math.Min(hi, v))
}
