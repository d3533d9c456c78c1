// Package sim runs the vehicle pipeline at a fixed timestep and drives
// scenarios through it.
//
// Each tick runs in order:
//
//  1. Input: gear gate changes, then the axis is mapped to throttle and brake.
//  2. Gearbox: shift timers, automatic shifts and the clutch ramp.
//  3. Weight transfer from the previous tick's G, then squat and dive.
//  4. Engine RPM, locked to the driven wheels or free-revving through the
//     clutch, and net torque.
//  5. Drive torque through the ratio, governors, differential and traction
//     control; brake torque through bias and ABS.
//  6. Steering with counter-steer, then tyre curves and springs written to
//     the contact proxies, plus anti-roll forces.
//  7. The chassis step, the top-speed clamp and read-back of slip, load and
//     deflection for the next tick.
package sim

import (
	"errors"
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/cxd309/vds-engine/internal/assist"
	"github.com/cxd309/vds-engine/internal/engine"
	"github.com/cxd309/vds-engine/internal/num"
	"github.com/cxd309/vds-engine/internal/suspension"
	"github.com/cxd309/vds-engine/internal/telemetry"
	"github.com/cxd309/vds-engine/internal/tick"
	"github.com/cxd309/vds-engine/internal/transmission"
	"github.com/cxd309/vds-engine/internal/tyre"
	"github.com/cxd309/vds-engine/internal/vehicle"
)

// ErrNoRig is returned when a loop is built without an assembled rig.
var ErrNoRig = errors.New("sim: nil rig")

// DefaultMaxStep bounds a single tick; longer frames are truncated.
const DefaultMaxStep = 0.05

// shiftKickScale converts kick strength to an impulse per kilogram, s.
const shiftKickScale = 0.08

// Vehicle owns one rig and its per-tick state. It is not safe for
// concurrent use.
type Vehicle struct {
	rig     *vehicle.Rig
	logger  *slog.Logger
	maxStep float64

	state    vehicle.State
	wheels   []vehicle.WheelState
	time     float64
	torque   float64 // net crank torque of the last tick
	traction float64 // lowest traction control multiplier of the last tick
	lastGear int

	override   vehicle.Input
	overrideOn bool
	steerAngle float64 // degrees at the road wheels

	visual Visual
}

// New builds the loop over rig and logs the rig's diagnostics once.
func New(rig *vehicle.Rig, opts ...Option) (*Vehicle, error) {
	if rig == nil {
		return nil, ErrNoRig
	}
	o := newOptions(opts)
	t := rig.Tuning
	v := &Vehicle{
		rig:     rig,
		logger:  o.logger,
		maxStep: o.maxStep,
		state: vehicle.State{
			Mass:               t.Mass,
			CenterOfMass:       rig.Body.Config().CenterOfMass,
			Drivetrain:         t.Drivetrain,
			TopSpeed:           t.TopSpeed,
			MaxSteerAngle:      t.Steering.MaxAngle,
			PhysicsWheelRadius: t.Wheels.Radius,
			VisualWheelRadius:  t.Wheels.VisualRadius,
		},
		wheels:   make([]vehicle.WheelState, len(rig.Mounts)),
		traction: 1,
	}
	for i, m := range rig.Mounts {
		v.wheels[i] = vehicle.WheelState{
			Name:     m.Name,
			Front:    m.Front,
			Left:     m.Left,
			Steered:  m.Steered,
			Motor:    t.Drivetrain.Drives(m.Front),
			Grip:     1,
			Grounded: m.Proxy != nil,
		}
	}
	v.visual.Deflection = make([]float64, len(rig.Mounts))
	for _, d := range rig.Diagnostics {
		v.logger.Warn("rig diagnostic", "component", d.Component, "message", d.Message)
	}
	v.readBack()
	return v, nil
}

// Rig returns the assembled components.
func (v *Vehicle) Rig() *vehicle.Rig { return v.rig }

// State returns a copy of the vehicle-level state.
func (v *Vehicle) State() vehicle.State { return v.state }

// Wheels returns a copy of the per-mount wheel state.
func (v *Vehicle) Wheels() []vehicle.WheelState {
	return append([]vehicle.WheelState(nil), v.wheels...)
}

// Time returns simulated seconds since construction.
func (v *Vehicle) Time() float64 { return v.time }

// Diagnostics returns the problems found at assembly.
func (v *Vehicle) Diagnostics() []vehicle.Diagnostic { return v.rig.Diagnostics }

// Step advances the vehicle by dt seconds under in and returns the frame.
// A non-positive or non-finite dt returns the current frame unchanged.
func (v *Vehicle) Step(in vehicle.Input, dt float64) telemetry.Frame {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return v.Frame()
	}
	dt = math.Min(dt, v.maxStep)
	if v.overrideOn {
		in = v.override
	}
	in = in.Clamped()

	r := v.rig
	speed := r.Body.ForwardSpeed()
	r.Gearbox.HandleInput(in.Throttle, speed)
	throttle, brake := pedals(in.Throttle, r.Gearbox.Gear())

	s := &v.state
	s.Throttle, s.Brake, s.Steer, s.Handbrake = throttle, brake, in.Steer, in.Handbrake
	ctx := tick.Context{
		Dt:            dt,
		Speed:         speed,
		SpeedNorm:     s.SpeedNorm,
		Throttle:      throttle,
		Brake:         brake,
		Steer:         in.Steer,
		Handbrake:     in.Handbrake,
		LongitudinalG: s.LongitudinalG,
		LateralG:      s.LateralG,
		WeightShift:   s.WeightShift,
	}

	r.Gearbox.Update(ctx, r.Engine.RPM())

	wt := r.Weight.Update(ctx, r.Tuning.Suspension.Bias.FrontShare(), v.springRate(ctx.WeightShift))
	ctx.WeightShift = wt.ShiftPercent()
	s.WeightShift = ctx.WeightShift
	r.Suspension.Update(ctx)

	v.torque = r.Engine.Update(throttle, r.Gearbox.Clutch(), v.drivenWheelRPM(), r.Gearbox.TotalRatio(), dt)
	v.applyDrive(v.driveTorque(v.torque, speed))
	v.applyBrakes(brake, in.Handbrake)
	v.applySteering(in.Steer, speed, dt)
	v.applyTyres(ctx)
	v.applyAntiRoll(ctx.WeightShift)
	v.shiftKick(throttle)

	r.Body.Step(dt)
	r.Body.ClampSpeed(s.TopSpeed / 3.6)
	v.time += dt
	v.smoothG(dt)
	v.readBack()
	return v.Frame()
}

// pedals maps the combined axis to throttle and brake. In reverse the axis
// is inverted so pulling back drives backwards and pushing forward brakes.
func pedals(axis float64, gear int) (throttle, brake float64) {
	forward, backward := math.Max(axis, 0), math.Max(-axis, 0)
	if gear == transmission.Reverse {
		return backward, forward
	}
	return forward, backward
}

func (v *Vehicle) springRate(weightShift float64) float64 {
	s := v.rig.Suspension
	return (s.Spring(true, weightShift).K + s.Spring(false, weightShift).K) / 2
}

// drivenWheelRPM is the mean spin of the driven wheels that have a proxy.
func (v *Vehicle) drivenWheelRPM() float64 {
	var sum float64
	var n int
	for i, m := range v.rig.Mounts {
		if m.Proxy == nil || !v.wheels[i].Motor {
			continue
		}
		sum += math.Abs(m.Proxy.RPM())
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// driveTorque converts crank torque to axle torque through the gearbox and
// clutch, then tapers it near the top speed and the reverse limit.
func (v *Vehicle) driveTorque(crank, speed float64) float64 {
	gb := v.rig.Gearbox
	ratio := gb.TotalRatio()
	if math.Abs(ratio) < num.Epsilon {
		return 0
	}
	t := crank * ratio * gb.Efficiency() * gb.Clutch()

	abs := math.Abs(speed)
	if top := v.state.TopSpeed / 3.6; t*speed > 0 && abs > 0.95*top {
		t *= num.Clamp01((top - abs) / (0.05 * top))
	}
	if gb.Gear() == transmission.Reverse {
		limit := v.rig.Tuning.MaxReverseSpeed
		if abs > 0.8*limit {
			t *= math.Max(0, 1-(abs-0.8*limit)/(0.3*limit))
		}
	}
	return num.Finite(t, 0)
}

// applyDrive splits axle torque over the wheels and derates each by its
// traction control factor. The lowest factor on a wheel that received torque
// is kept for telemetry.
func (v *Vehicle) applyDrive(axle float64) {
	mounts := v.rig.Mounts
	diff := make([]assist.Wheel, 0, len(mounts))
	index := make([]int, 0, len(mounts))
	for i, m := range mounts {
		if m.Proxy == nil {
			continue
		}
		diff = append(diff, assist.Wheel{Front: m.Front, Left: m.Left, Omega: m.Proxy.Omega()})
		index = append(index, i)
	}
	split := v.rig.Differential.Split(axle, v.state.Drivetrain, diff)
	v.traction = 1
	for k, i := range index {
		p := mounts[i].Proxy
		tc := v.rig.Traction.Multiplier(p.ForwardSlip())
		p.MotorTorque = split[k] * tc
		if split[k] != 0 {
			v.traction = math.Min(v.traction, tc)
		}
	}
}

func (v *Vehicle) applyBrakes(brake float64, handbrake bool) {
	r := v.rig
	front, rear := r.Brakes.Split(brake)
	abs := 1.0
	if brake > 0 {
		abs = r.Brakes.ABS(v.aggregateSlip())
	}
	hb := r.Brakes.Handbrake(handbrake)
	for _, m := range r.Mounts {
		if m.Proxy == nil {
			continue
		}
		t := rear * abs
		if m.Front {
			t = front * abs
		} else {
			t += hb
		}
		m.Proxy.BrakeTorque = t
	}
}

// aggregateSlip is the mean absolute forward slip of the grounded wheels.
func (v *Vehicle) aggregateSlip() float64 {
	var sum float64
	var n int
	for _, m := range v.rig.Mounts {
		if m.Proxy == nil || !m.Proxy.Grounded() {
			continue
		}
		sum += math.Abs(m.Proxy.ForwardSlip())
		n++
	}
	return num.SafeDiv(sum, float64(n), 0)
}

// applySteering narrows the lock with speed, adds counter-steer and slews
// the road wheels at the configured rate.
func (v *Vehicle) applySteering(input, speed, dt float64) {
	cfg := v.rig.Tuning.Steering
	maxAngle := v.state.MaxSteerAngle
	atSpeed := math.Min(cfg.AngleAtMaxSpeed, maxAngle)
	lock := num.Lerp(maxAngle, atSpeed, num.InverseLerp(0, cfg.FullRangeSpeed, math.Abs(speed)))

	target := lock*input + v.rig.CounterSteer.Update(v.rearSlide(), speed, dt)
	target = num.Clamp(target, -maxAngle, maxAngle)
	v.steerAngle = num.MoveTowards(v.steerAngle, target, cfg.Rate*dt)

	for _, m := range v.rig.Mounts {
		if m.Proxy != nil && m.Steered {
			m.Proxy.SteerAngle = v.steerAngle
		}
	}
}

// rearSlide is the mean rear lateral slip normalised by the lateral curve's
// asymptote, positive when the rear slides right.
func (v *Vehicle) rearSlide() float64 {
	var sum float64
	var n int
	for _, m := range v.rig.Mounts {
		if m.Proxy == nil || m.Front || !m.Proxy.Grounded() {
			continue
		}
		sum += m.Proxy.LateralSlip()
		n++
	}
	ref := v.rig.Tyres.Config().Lateral.Curve().AsymptoteSlip
	return num.Clamp(num.SafeDiv(sum/math.Max(float64(n), 1), ref, 0), -1, 1)
}

// applyTyres rebuilds every wheel's friction pair and spring from this
// tick's grip multipliers and weight shift.
func (v *Vehicle) applyTyres(ctx tick.Context) {
	r := v.rig
	in := make([]tyre.Wheel, len(r.Mounts))
	for i, m := range r.Mounts {
		in[i] = tyre.Wheel{
			Front:       m.Front,
			Steered:     m.Steered,
			ForwardSlip: v.wheels[i].ForwardSlip,
			LateralSlip: v.wheels[i].LateralSlip,
			Grip:        r.Weight.Wheel(m.Front, m.Left),
		}
		v.wheels[i].Grip = in[i].Grip
	}
	curves := r.Tyres.Update(ctx, v.state.Drivetrain == transmission.RWD, in)
	for i, m := range r.Mounts {
		if m.Proxy == nil {
			continue
		}
		m.Proxy.Forward = curves[i].Forward
		m.Proxy.Sideways = curves[i].Sideways
		m.Proxy.Spring = r.Suspension.Spring(m.Front, ctx.WeightShift)
	}
}

// applyAntiRoll couples the left and right proxies of each axle. The bar
// lifts the body at the compressed corner and that wheel carries the push as
// extra load; the extended corner is pulled down and unloaded.
func (v *Vehicle) applyAntiRoll(weightShift float64) {
	for _, front := range []bool{true, false} {
		var left, right *vehicle.Mount
		for i := range v.rig.Mounts {
			m := &v.rig.Mounts[i]
			if m.Proxy == nil || m.Front != front {
				continue
			}
			if m.Left && left == nil {
				left = m
			} else if !m.Left && right == nil {
				right = m
			}
		}
		if left == nil || right == nil {
			continue
		}
		fl, fr := v.rig.AntiRoll.Forces(corner(left), corner(right), weightShift)
		left.Proxy.ExternalForce = fl
		right.Proxy.ExternalForce = fr
	}
}

func corner(m *vehicle.Mount) suspension.Corner {
	return suspension.Corner{Travel: m.Proxy.Extension(), Grounded: m.Proxy.Grounded()}
}

// shiftKick shoves the body forward when an upshift completes under heavy
// throttle. lastGear holds the gear from before the shift started.
func (v *Vehicle) shiftKick(throttle float64) {
	gb := v.rig.Gearbox
	gear := gb.Gear()
	if !gb.JustShifted() {
		if !gb.Shifting() {
			v.lastGear = gear
		}
		return
	}
	from := v.lastGear
	v.lastGear = gear
	k := v.rig.Tuning.ShiftKick
	if gear <= 1 || gear <= from || throttle < k.MinThrottle || k.Strength <= 0 {
		return
	}
	v.rig.Body.ApplyImpulse(mgl64.Vec3{0, 0, k.Strength * v.state.Mass * shiftKickScale})
	v.logger.Debug("shift kick", "from", from, "to", gear)
}

// smoothG eases the reported acceleration toward the body's.
func (v *Vehicle) smoothG(dt float64) {
	a := v.rig.Body.Acceleration()
	s := &v.state
	blend := num.Blend(v.rig.Tuning.GForceSmoothing, dt)
	for i := range s.Acceleration {
		s.Acceleration[i] = num.Lerp(s.Acceleration[i], a[i], blend)
	}
	s.LongitudinalG = s.Acceleration.Z() / tick.Gravity
	s.LateralG = s.Acceleration.X() / tick.Gravity
}

// readBack refreshes speed and the per-wheel state from the proxies.
func (v *Vehicle) readBack() {
	r := v.rig
	s := &v.state
	s.Speed = r.Body.ForwardSpeed()
	s.SpeedKMH = s.Speed * 3.6
	s.SpeedNorm = num.Clamp01(num.SafeDiv(math.Abs(s.SpeedKMH), s.TopSpeed, 0))

	psi := r.Tyres.Config().Pressure.PSI
	for i, m := range r.Mounts {
		w := &v.wheels[i]
		w.Temperature = r.Tyres.Temperature(i)
		w.Pressure = psi
		if m.Proxy == nil {
			continue
		}
		p := m.Proxy
		w.Deflection = p.Deflection()
		w.ForwardSlip = p.ForwardSlip()
		w.LateralSlip = p.LateralSlip()
		w.SteerAngle = p.SteerAngle
		w.MotorTorque = p.MotorTorque
		w.BrakeTorque = p.BrakeTorque
		w.Grounded = p.Grounded()
		w.RPM = p.RPM()
	}
}

// Frame builds the telemetry snapshot for the current state.
func (v *Vehicle) Frame() telemetry.Frame {
	r := v.rig
	s := v.state
	gb := r.Gearbox
	rpm := r.Engine.RPM()

	var slipSum, slipMax, defl float64
	var n, grounded int
	for i, m := range r.Mounts {
		if m.Proxy == nil {
			continue
		}
		w := v.wheels[i]
		defl += w.Deflection
		n++
		if w.Grounded {
			slip := math.Abs(w.ForwardSlip)
			slipSum += slip
			slipMax = math.Max(slipMax, slip)
			grounded++
		}
	}

	pos := r.Body.Position()
	return telemetry.Frame{
		Time:          v.time,
		Speed:         s.Speed,
		SpeedKMH:      s.SpeedKMH,
		RPM:           rpm,
		Torque:        v.torque,
		Gear:          gb.Gear(),
		GearLabel:     gb.GearDisplay(),
		Clutch:        gb.Clutch(),
		Shifting:      gb.Shifting(),
		Horsepower:    engine.Horsepower(engine.PowerKW(math.Max(v.torque, 0), rpm)),
		Throttle:      s.Throttle,
		Brake:         s.Brake,
		Steer:         s.Steer,
		SteerAngle:    v.steerAngle,
		Handbrake:     s.Handbrake,
		SlipAvg:       num.SafeDiv(slipSum, float64(grounded), 0),
		SlipMax:       slipMax,
		Traction:      v.traction,
		LateralG:      s.LateralG,
		LongitudinalG: s.LongitudinalG,
		Suspension:    num.SafeDiv(defl, float64(n), 0),
		WeightShift:   s.WeightShift,
		Drivetrain:    string(s.Drivetrain),
		TopSpeed:      s.TopSpeed,
		Mass:          s.Mass,
		X:             pos.X(),
		Z:             pos.Z(),
		Heading:       r.Body.Heading() * 180 / math.Pi,
		Engine:        r.Engine.State(),
		Gearbox:       gb.State(),
		Wheels:        v.Wheels(),
	}
}
