package vehicle

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/cxd309/vds-engine/internal/num"
	"github.com/cxd309/vds-engine/internal/transmission"
)

// Input is one tick of driver or AI control.
type Input struct {
	Throttle  float64 `json:"throttle"` // combined axis, -1 brake/reverse..1 accelerate
	Steer     float64 `json:"steer"`    // -1 left..1 right
	Handbrake bool    `json:"handbrake"`
}

// Clamped returns the input with both axes limited to -1..1 and NaN zeroed.
func (in Input) Clamped() Input {
	in.Throttle = num.Clamp(num.Finite(in.Throttle, 0), -1, 1)
	in.Steer = num.Clamp(num.Finite(in.Steer, 0), -1, 1)
	return in
}

// State is the vehicle-level state the loop mutates once per tick.
type State struct {
	Mass               float64                 `json:"mass"` // kg
	CenterOfMass       mgl64.Vec3              `json:"center_of_mass"`
	Drivetrain         transmission.Drivetrain `json:"drivetrain"`
	TopSpeed           float64                 `json:"top_speed"`            // km/h
	MaxSteerAngle      float64                 `json:"max_steer_angle"`      // degrees
	PhysicsWheelRadius float64                 `json:"physics_wheel_radius"` // metres
	VisualWheelRadius  float64                 `json:"visual_wheel_radius"`  // metres

	Speed     float64 `json:"speed"`     // signed forward, m/s
	SpeedKMH  float64 `json:"speed_kmh"` // signed forward
	SpeedNorm float64 `json:"speed_norm"`
	Throttle  float64 `json:"throttle"` // 0..1
	Brake     float64 `json:"brake"`    // 0..1
	Steer     float64 `json:"steer"`    // -1..1
	Handbrake bool    `json:"handbrake"`

	Acceleration  mgl64.Vec3 `json:"acceleration"`   // smoothed, body frame, m/s²
	LongitudinalG float64    `json:"longitudinal_g"` // smoothed
	LateralG      float64    `json:"lateral_g"`      // smoothed
	WeightShift   float64    `json:"weight_shift"`   // percent
}

// WheelState is the logic-side record of one wheel mount. Slip, deflection
// and grounded are read back from the contact proxy each tick.
type WheelState struct {
	Name        string  `json:"name"`
	Front       bool    `json:"front"`
	Left        bool    `json:"left"`
	Steered     bool    `json:"steered"`
	Motor       bool    `json:"motor"`
	Deflection  float64 `json:"deflection"` // 0 extended..1 compressed
	ForwardSlip float64 `json:"forward_slip"`
	LateralSlip float64 `json:"lateral_slip"`
	SteerAngle  float64 `json:"steer_angle"` // degrees
	Grip        float64 `json:"grip"`
	MotorTorque float64 `json:"motor_torque"` // N·m
	BrakeTorque float64 `json:"brake_torque"` // N·m
	Grounded    bool    `json:"grounded"`
	Temperature float64 `json:"temperature"` // °C
	Pressure    float64 `json:"pressure"`    // psi
	RPM         float64 `json:"rpm"`
}

// Diagnostic is a non-fatal problem found while assembling or running a rig.
type Diagnostic struct {
	Component string `json:"component"`
	Message   string `json:"message"`
}
