package transmission

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned for a gear table that cannot drive the vehicle.
var ErrInvalidConfig = errors.New("invalid transmission config")

// Config describes the gear table and the automatic shift logic.
type Config struct {
	GearRatios   []float64 `json:"gear_ratios" mapstructure:"gear_ratios"`
	ReverseRatio float64   `json:"reverse_ratio" mapstructure:"reverse_ratio"` // positive magnitude
	FinalDrive   float64   `json:"final_drive" mapstructure:"final_drive"`
	Efficiency   float64   `json:"efficiency" mapstructure:"efficiency"` // 0..1

	UpshiftRPM      float64 `json:"upshift_rpm" mapstructure:"upshift_rpm"`
	DownshiftRPM    float64 `json:"downshift_rpm" mapstructure:"downshift_rpm"`
	DownshiftMargin float64 `json:"downshift_margin" mapstructure:"downshift_margin"` // rpm below upshift the lower gear must land
	ShiftTime       float64 `json:"shift_time" mapstructure:"shift_time"`             // seconds
	ShiftCooldown   float64 `json:"shift_cooldown" mapstructure:"shift_cooldown"`     // seconds
	MinShiftSpeed   float64 `json:"min_shift_speed" mapstructure:"min_shift_speed"`   // m/s
	ShiftThrottle   float64 `json:"shift_throttle" mapstructure:"shift_throttle"`     // minimum throttle to upshift

	ClutchRate      float64 `json:"clutch_rate" mapstructure:"clutch_rate"`             // 1/s
	ShiftClutch     float64 `json:"shift_clutch" mapstructure:"shift_clutch"`           // engagement held during a shift
	ShiftClutchRate float64 `json:"shift_clutch_rate" mapstructure:"shift_clutch_rate"` // 1/s

	WheelRadius float64 `json:"-" mapstructure:"-"` // set at rig assembly, metres
}

// DefaultConfig is a six-speed road car box.
func DefaultConfig() Config {
	return Config{
		GearRatios:      []float64{3.5, 2.1, 1.4, 1.0, 0.8, 0.65},
		ReverseRatio:    3.2,
		FinalDrive:      3.7,
		Efficiency:      0.92,
		UpshiftRPM:      5800,
		DownshiftRPM:    2000,
		DownshiftMargin: 400,
		ShiftTime:       0.3,
		ShiftCooldown:   1,
		MinShiftSpeed:   3,
		ShiftThrottle:   0.2,
		ClutchRate:      4,
		ShiftClutch:     0.3,
		ShiftClutchRate: 8,
		WheelRadius:     0.35,
	}
}

// Validate rejects an unusable gear table and fills soft defaults in place.
func (c *Config) Validate() error {
	if len(c.GearRatios) == 0 {
		return fmt.Errorf("%w: empty gear table", ErrInvalidConfig)
	}
	for i, r := range c.GearRatios {
		if r <= 0 {
			return fmt.Errorf("%w: gear %d ratio must be positive, got %.3f", ErrInvalidConfig, i+1, r)
		}
	}
	if c.FinalDrive <= 0 {
		return fmt.Errorf("%w: final drive must be positive, got %.3f", ErrInvalidConfig, c.FinalDrive)
	}
	if c.ReverseRatio <= 0 {
		return fmt.Errorf("%w: reverse ratio must be positive, got %.3f", ErrInvalidConfig, c.ReverseRatio)
	}
	if c.DownshiftRPM >= c.UpshiftRPM {
		return fmt.Errorf("%w: downshift rpm %.0f must be below upshift rpm %.0f", ErrInvalidConfig, c.DownshiftRPM, c.UpshiftRPM)
	}
	if c.Efficiency <= 0 || c.Efficiency > 1 {
		c.Efficiency = 0.92
	}
	if c.DownshiftMargin < 0 {
		c.DownshiftMargin = 0
	}
	if c.ShiftTime < 0 {
		c.ShiftTime = 0
	}
	if c.ShiftCooldown < 0 {
		c.ShiftCooldown = 0
	}
	if c.ClutchRate <= 0 {
		c.ClutchRate = 4
	}
	if c.ShiftClutchRate <= 0 {
		c.ShiftClutchRate = 8
	}
	if c.ShiftClutch < 0 || c.ShiftClutch > 1 {
		c.ShiftClutch = 0.3
	}
	if c.WheelRadius <= 0 {
		c.WheelRadius = 0.35
	}
	return nil
}

// MaxClutchRate is the fastest the clutch may move in any state, per second.
func (c Config) MaxClutchRate() float64 {
	if c.ShiftClutchRate > c.ClutchRate {
		return c.ShiftClutchRate
	}
	return c.ClutchRate
}
