// Package vehicle holds the tuning, state and rig assembly for one simulated
// vehicle. Assemble wires every component from a Tuning; the sim package
// drives the result.
package vehicle

import (
	"errors"
	"fmt"
	"math"

	"github.com/cxd309/vds-engine/internal/assist"
	"github.com/cxd309/vds-engine/internal/chassis"
	"github.com/cxd309/vds-engine/internal/engine"
	"github.com/cxd309/vds-engine/internal/num"
	"github.com/cxd309/vds-engine/internal/suspension"
	"github.com/cxd309/vds-engine/internal/transmission"
	"github.com/cxd309/vds-engine/internal/tyre"
	"github.com/cxd309/vds-engine/internal/weight"
)

// ErrInvalidTuning is returned when a tuning cannot describe a drivable vehicle.
var ErrInvalidTuning = errors.New("invalid vehicle tuning")

// Steering limits, degrees.
const (
	MinSteerAngle = 5
	MaxSteerAngle = 60
)

// SteeringConfig is the speed-sensitive steering range.
type SteeringConfig struct {
	MaxAngle        float64 `json:"max_angle" mapstructure:"max_angle"`                   // degrees at standstill
	AngleAtMaxSpeed float64 `json:"angle_at_max_speed" mapstructure:"angle_at_max_speed"` // degrees at FullRangeSpeed
	FullRangeSpeed  float64 `json:"full_range_speed" mapstructure:"full_range_speed"`     // m/s
	Rate            float64 `json:"rate" mapstructure:"rate"`                             // degrees per second
}

// ShiftKickConfig sizes the forward shove delivered when an upshift completes.
type ShiftKickConfig struct {
	Strength    float64 `json:"strength" mapstructure:"strength"`         // m/s² equivalent
	MinThrottle float64 `json:"min_throttle" mapstructure:"min_throttle"` // 0..1
}

// WheelConfig is shared by all four wheels.
type WheelConfig struct {
	Radius       float64 `json:"radius" mapstructure:"radius"`               // physics, metres
	VisualRadius float64 `json:"visual_radius" mapstructure:"visual_radius"` // rendered, metres
	Mass         float64 `json:"mass" mapstructure:"mass"`                   // kg
}

// Tuning is every tunable of a vehicle. It decodes from JSON and from viper
// via mapstructure.
type Tuning struct {
	Name               string                  `json:"name" mapstructure:"name"`
	Mass               float64                 `json:"mass" mapstructure:"mass"`                                   // kg
	CenterOfMassOffset float64                 `json:"center_of_mass_offset" mapstructure:"center_of_mass_offset"` // vertical, metres, added to Weight.CGHeight
	Drivetrain         transmission.Drivetrain `json:"drivetrain" mapstructure:"drivetrain"`
	TopSpeed           float64                 `json:"top_speed" mapstructure:"top_speed"`                 // km/h
	MaxReverseSpeed    float64                 `json:"max_reverse_speed" mapstructure:"max_reverse_speed"` // m/s
	GForceSmoothing    float64                 `json:"g_force_smoothing" mapstructure:"g_force_smoothing"` // 1/s

	Wheels       WheelConfig               `json:"wheels" mapstructure:"wheels"`
	Steering     SteeringConfig            `json:"steering" mapstructure:"steering"`
	ShiftKick    ShiftKickConfig           `json:"shift_kick" mapstructure:"shift_kick"`
	Body         chassis.Config            `json:"body" mapstructure:"body"`
	Engine       engine.Config             `json:"engine" mapstructure:"engine"`
	Transmission transmission.Config       `json:"transmission" mapstructure:"transmission"`
	Tyres        tyre.Config               `json:"tyres" mapstructure:"tyres"`
	Suspension   suspension.Config         `json:"suspension" mapstructure:"suspension"`
	Weight       weight.Config             `json:"weight" mapstructure:"weight"`
	Brakes       assist.BrakeConfig        `json:"brakes" mapstructure:"brakes"`
	Traction     assist.TractionConfig     `json:"traction" mapstructure:"traction"`
	CounterSteer assist.CounterSteerConfig `json:"counter_steer" mapstructure:"counter_steer"`
	Differential assist.DiffConfig         `json:"differential" mapstructure:"differential"`
}

// Validate rejects impossible values, clamps soft ranges at their boundary
// and fills unset optional values in place.
func (t *Tuning) Validate() error {
	if !(t.Mass > 0) {
		return fmt.Errorf("%w: mass must be positive, got %.1f", ErrInvalidTuning, t.Mass)
	}
	if !(t.TopSpeed > 0) {
		return fmt.Errorf("%w: top speed must be positive, got %.1f", ErrInvalidTuning, t.TopSpeed)
	}
	if !(t.Wheels.Radius > 0) {
		return fmt.Errorf("%w: wheel radius must be positive, got %.3f", ErrInvalidTuning, t.Wheels.Radius)
	}
	switch t.Drivetrain {
	case transmission.RWD, transmission.FWD, transmission.AWD:
	case "":
		t.Drivetrain = transmission.RWD
	default:
		return fmt.Errorf("%w: unknown drivetrain %q", ErrInvalidTuning, t.Drivetrain)
	}
	if err := t.Engine.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTuning, err)
	}
	t.Transmission.WheelRadius = t.Wheels.Radius
	if err := t.Transmission.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTuning, err)
	}
	t.Tyres.Validate()

	if t.Wheels.VisualRadius <= 0 {
		t.Wheels.VisualRadius = t.Wheels.Radius
	}
	if t.Wheels.Mass <= 0 {
		t.Wheels.Mass = 20
	}
	if t.MaxReverseSpeed <= 0 {
		t.MaxReverseSpeed = 10
	}
	if t.GForceSmoothing <= 0 {
		t.GForceSmoothing = 5
	}

	s := &t.Steering
	s.MaxAngle = num.Clamp(s.MaxAngle, MinSteerAngle, MaxSteerAngle)
	s.AngleAtMaxSpeed = num.Clamp(s.AngleAtMaxSpeed, 0, s.MaxAngle)
	if s.FullRangeSpeed <= 0 {
		s.FullRangeSpeed = 35
	}
	if s.Rate <= 0 {
		s.Rate = 120
	}
	t.ShiftKick.MinThrottle = num.Clamp01(t.ShiftKick.MinThrottle)
	if t.ShiftKick.Strength < 0 {
		t.ShiftKick.Strength = 0
	}

	t.Suspension.Travel = num.Clamp(t.Suspension.Travel, suspension.MinTravel, suspension.MaxTravel)
	if t.Suspension.RestTarget <= 0 || t.Suspension.RestTarget > 1 {
		t.Suspension.RestTarget = 0.5
	}
	t.Brakes.FrontBias = num.Clamp01(t.Brakes.FrontBias)
	if t.Brakes.MaxTorque < 0 {
		t.Brakes.MaxTorque = 0
	}
	t.Traction.Intensity = num.Clamp01(t.Traction.Intensity)
	t.CounterSteer.Intensity = num.Clamp01(t.CounterSteer.Intensity)
	return nil
}

// TopSpeedMS is the top speed in m/s.
func (t Tuning) TopSpeedMS() float64 { return t.TopSpeed / 3.6 }

// CGHeight is the centre of mass height above the ground: the weight
// reference height moved by CenterOfMassOffset, never below the ground.
func (t Tuning) CGHeight() float64 {
	return math.Max(0, t.Weight.CGHeight+t.CenterOfMassOffset)
}
