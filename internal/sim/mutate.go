package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/cxd309/vds-engine/internal/num"
	"github.com/cxd309/vds-engine/internal/transmission"
	"github.com/cxd309/vds-engine/internal/vehicle"
)

// ErrInvalidValue is returned by a mutation that would break the vehicle.
var ErrInvalidValue = errors.New("sim: invalid value")

// SetDrivetrain switches the driven axles. Motor flags follow immediately;
// torque is re-split from the next tick.
func (v *Vehicle) SetDrivetrain(d transmission.Drivetrain) error {
	if err := d.UnmarshalText([]byte(d)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	v.state.Drivetrain = d
	v.rig.Tuning.Drivetrain = d
	for i := range v.wheels {
		v.wheels[i].Motor = d.Drives(v.wheels[i].Front)
	}
	v.logger.Info("drivetrain changed", "drivetrain", string(d))
	return nil
}

// SetTopSpeed changes the governed top speed, km/h.
func (v *Vehicle) SetTopSpeed(kmh float64) error {
	if !(kmh > 0) || math.IsInf(kmh, 0) {
		return fmt.Errorf("%w: top speed must be positive, got %v", ErrInvalidValue, kmh)
	}
	v.state.TopSpeed = kmh
	v.rig.Tuning.TopSpeed = kmh
	return nil
}

// SetMaxSteerAngle changes the standstill steering lock, clamped to the
// supported range, degrees.
func (v *Vehicle) SetMaxSteerAngle(deg float64) error {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return fmt.Errorf("%w: steer angle must be finite, got %v", ErrInvalidValue, deg)
	}
	v.state.MaxSteerAngle = num.Clamp(deg, vehicle.MinSteerAngle, vehicle.MaxSteerAngle)
	v.rig.Tuning.Steering.MaxAngle = v.state.MaxSteerAngle
	return nil
}

// SetMass changes the sprung mass. Static loads, yaw inertia and the spring
// synthesis all follow.
func (v *Vehicle) SetMass(kg float64) error {
	if !(kg > 0) || math.IsInf(kg, 0) {
		return fmt.Errorf("%w: mass must be positive, got %v", ErrInvalidValue, kg)
	}
	if err := v.rig.Body.SetMass(kg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	if err := v.rig.Suspension.SetMass(kg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	v.state.Mass = kg
	v.rig.Tuning.Mass = kg
	return nil
}

// SetInputOverride replaces driver input with in while active.
func (v *Vehicle) SetInputOverride(in vehicle.Input, active bool) {
	v.override = in.Clamped()
	v.overrideOn = active
}

// SetTractionControl switches traction control at runtime.
func (v *Vehicle) SetTractionControl(on bool) {
	v.rig.Traction.SetEnabled(on)
}
