// Package chassis is the rigid body and wheel contact layer the vehicle
// logic drives: a planar body on flat ground carried by contact proxies, each
// with a friction curve pair and a single vertical spring-damper.
package chassis

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/cxd309/vds-engine/internal/num"
	"github.com/cxd309/vds-engine/internal/tick"
)

// ErrInvalidBody is returned for a body that cannot be simulated.
var ErrInvalidBody = errors.New("invalid chassis body")

var up = mgl64.Vec3{0, 1, 0}

// Config holds the body's mass properties, aerodynamics and integrator
// settings.
type Config struct {
	Mass              float64    `json:"-" mapstructure:"-"` // kg, set at rig assembly
	CenterOfMass      mgl64.Vec3 `json:"-" mapstructure:"-"` // body frame, set at rig assembly
	CGHeight          float64    `json:"-" mapstructure:"-"` // metres above ground, set at rig assembly
	YawInertiaScale   float64    `json:"yaw_inertia_scale" mapstructure:"yaw_inertia_scale"`
	AirDensity        float64    `json:"air_density" mapstructure:"air_density"` // kg/m³
	DragCoefficient   float64    `json:"drag_coefficient" mapstructure:"drag_coefficient"`
	LiftCoefficient   float64    `json:"lift_coefficient" mapstructure:"lift_coefficient"` // positive presses down
	FrontalArea       float64    `json:"frontal_area" mapstructure:"frontal_area"`         // m²
	RollingResistance float64    `json:"rolling_resistance" mapstructure:"rolling_resistance"`
	Substeps          int        `json:"substeps" mapstructure:"substeps"`
	MinSlipSpeed      float64    `json:"min_slip_speed" mapstructure:"min_slip_speed"` // m/s
}

// DefaultConfig is a 1500 kg road car.
func DefaultConfig() Config {
	return Config{
		Mass:              1500,
		YawInertiaScale:   1.2,
		AirDensity:        1.225,
		DragCoefficient:   0.3,
		LiftCoefficient:   0.1,
		FrontalArea:       2.2,
		RollingResistance: 0.012,
		Substeps:          8,
		MinSlipSpeed:      2,
	}
}

// Body is the chassis rigid body. Position and velocity are in world space;
// heading is yaw about +y, positive turning right.
type Body struct {
	cfg        Config
	wheels     []*Wheel
	yawInertia float64

	position mgl64.Vec3
	velocity mgl64.Vec3
	heading  float64    // rad
	yawRate  float64    // rad/s
	accel    mgl64.Vec3 // body frame, last substep

	pitchArm float64 // Σ z² about the wheel centroid
	rollArm  float64 // Σ x² about the wheel centroid
	centroid mgl64.Vec3
}

// New builds a body over wheels and distributes static load between them.
func New(cfg Config, wheels []*Wheel) (*Body, error) {
	if len(wheels) == 0 {
		return nil, fmt.Errorf("%w: no wheels", ErrInvalidBody)
	}
	if cfg.Substeps <= 0 {
		cfg.Substeps = 8
	}
	if cfg.MinSlipSpeed <= 0 {
		cfg.MinSlipSpeed = 2
	}
	if cfg.YawInertiaScale <= 0 {
		cfg.YawInertiaScale = 1
	}
	b := &Body{cfg: cfg, wheels: wheels}
	if err := b.SetMass(cfg.Mass); err != nil {
		return nil, err
	}
	return b, nil
}

// SetMass changes mass, yaw inertia and the static wheel loads.
func (b *Body) SetMass(mass float64) error {
	if !(mass > 0) || math.IsInf(mass, 0) {
		return fmt.Errorf("%w: mass must be positive, got %v", ErrInvalidBody, mass)
	}
	b.cfg.Mass = mass

	minX, maxX, minZ, maxZ := math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)
	for _, w := range b.wheels {
		p := w.Position()
		minX, maxX = math.Min(minX, p.X()), math.Max(maxX, p.X())
		minZ, maxZ = math.Min(minZ, p.Z()), math.Max(maxZ, p.Z())
	}
	length, width := maxZ-minZ, maxX-minX
	b.yawInertia = math.Max(mass*(length*length+width*width)/12*b.cfg.YawInertiaScale, mass*0.1)

	b.distributeStaticLoad()
	b.measureArms()
	return nil
}

func (b *Body) measureArms() {
	var c mgl64.Vec3
	for _, w := range b.wheels {
		c = c.Add(w.Position())
	}
	c = c.Mul(1 / float64(len(b.wheels)))
	b.centroid, b.pitchArm, b.rollArm = c, 0, 0
	for _, w := range b.wheels {
		d := w.Position().Sub(c)
		b.pitchArm += d.Z() * d.Z()
		b.rollArm += d.X() * d.X()
	}
}

// transfer is the dynamic load change at w from the inertial pitch and roll
// moments of the last acceleration. Forward acceleration loads the rear and
// acceleration to the right loads the left.
func (b *Body) transfer(w *Wheel) float64 {
	d := w.Position().Sub(b.centroid)
	m := b.cfg.Mass * b.cfg.CGHeight
	pitch := -m * b.accel.Z() * num.SafeDiv(d.Z(), b.pitchArm, 0)
	roll := -m * b.accel.X() * num.SafeDiv(d.X(), b.rollArm, 0)
	return pitch + roll
}

// distributeStaticLoad splits weight between the axles by the lever rule
// about the centre of mass and evenly within each axle.
func (b *Body) distributeStaticLoad() {
	weight := b.cfg.Mass * tick.Gravity
	comZ := b.cfg.CenterOfMass.Z()

	var front, rear []*Wheel
	var zf, zr float64
	for _, w := range b.wheels {
		if w.Position().Z() >= comZ {
			front = append(front, w)
			zf += w.Position().Z()
		} else {
			rear = append(rear, w)
			zr += w.Position().Z()
		}
	}
	if len(front) == 0 || len(rear) == 0 {
		for _, w := range b.wheels {
			w.staticLoad = weight / float64(len(b.wheels))
			w.load = w.staticLoad
		}
		return
	}
	zf /= float64(len(front))
	zr /= float64(len(rear))
	frontShare := num.Clamp01(num.SafeDiv(comZ-zr, zf-zr, 0.5))
	for _, w := range front {
		w.staticLoad = weight * frontShare / float64(len(front))
		w.load = w.staticLoad
	}
	for _, w := range rear {
		w.staticLoad = weight * (1 - frontShare) / float64(len(rear))
		w.load = w.staticLoad
	}
}

func (b *Body) Config() Config       { return b.cfg }
func (b *Body) Mass() float64        { return b.cfg.Mass }
func (b *Body) Wheels() []*Wheel     { return b.wheels }
func (b *Body) Position() mgl64.Vec3 { return b.position }
func (b *Body) Velocity() mgl64.Vec3 { return b.velocity }
func (b *Body) Heading() float64     { return b.heading }
func (b *Body) YawRate() float64     { return b.yawRate }

// Acceleration is the body-frame planar acceleration of the last substep, m/s².
func (b *Body) Acceleration() mgl64.Vec3 { return b.accel }

// Speed is the magnitude of the world velocity, m/s.
func (b *Body) Speed() float64 { return b.velocity.Len() }

// Rotation is the body-to-world rotation.
func (b *Body) Rotation() mgl64.Quat { return mgl64.QuatRotate(b.heading, up) }

// Forward is the body's forward axis in world space.
func (b *Body) Forward() mgl64.Vec3 { return b.Rotation().Rotate(mgl64.Vec3{0, 0, 1}) }

// LocalVelocity is the velocity in the body frame.
func (b *Body) LocalVelocity() mgl64.Vec3 {
	return b.Rotation().Inverse().Rotate(b.velocity)
}

// ForwardSpeed is signed speed along the body's forward axis, m/s.
func (b *Body) ForwardSpeed() float64 { return b.LocalVelocity().Z() }

// SetVelocity overrides the world velocity.
func (b *Body) SetVelocity(v mgl64.Vec3) { b.velocity = sanitize(v) }

// SetHeading overrides yaw, radians.
func (b *Body) SetHeading(rad float64) { b.heading = num.Finite(rad, 0) }

// ApplyImpulse adds a body-frame impulse in N·s.
func (b *Body) ApplyImpulse(local mgl64.Vec3) {
	b.velocity = sanitize(b.velocity.Add(b.Rotation().Rotate(local).Mul(1 / b.cfg.Mass)))
}

// ClampSpeed scales the velocity down to max m/s and reports whether it did.
func (b *Body) ClampSpeed(max float64) bool {
	s := b.Speed()
	if max <= 0 || s <= max {
		return false
	}
	b.velocity = b.velocity.Mul(max / s)
	return true
}

// Downforce returns aerodynamic downforce at the current speed, N.
func (b *Body) Downforce() float64 {
	v := b.Speed()
	return 0.5 * b.cfg.AirDensity * b.cfg.LiftCoefficient * b.cfg.FrontalArea * v * v
}

// Step advances the body and its wheels by dt using fixed substeps.
func (b *Body) Step(dt float64) {
	if !(dt > 0) {
		return
	}
	h := dt / float64(b.cfg.Substeps)
	for i := 0; i < b.cfg.Substeps; i++ {
		b.substep(h)
	}
}

func (b *Body) substep(h float64) {
	rot := b.Rotation()
	vLocal := rot.Inverse().Rotate(b.velocity)
	com := b.cfg.CenterOfMass
	n := float64(len(b.wheels))
	down := b.Downforce() / n
	massShare := b.cfg.Mass / n

	var force mgl64.Vec3
	var torque float64
	for _, w := range b.wheels {
		w.updateLoad(w.staticLoad+down+b.transfer(w), h)
		arm := w.Position().Sub(com)
		arm[1] = 0
		vc := vLocal.Add(mgl64.Vec3{b.yawRate * arm.Z(), 0, -b.yawRate * arm.X()})
		f := w.contact(vc, h, massShare, b.cfg.MinSlipSpeed, b.cfg.RollingResistance)
		force = force.Add(f)
		torque += arm.Cross(f).Y()
	}

	drag := 0.5 * b.cfg.AirDensity * b.cfg.DragCoefficient * b.cfg.FrontalArea * vLocal.Len()
	force = force.Sub(vLocal.Mul(drag))
	force[1] = 0

	b.accel = sanitize(force.Mul(1 / b.cfg.Mass))
	b.velocity = sanitize(b.velocity.Add(rot.Rotate(b.accel).Mul(h)))
	b.yawRate = num.Finite(b.yawRate+torque/b.yawInertia*h, 0)
	b.heading = math.Remainder(b.heading+b.yawRate*h, 2*math.Pi)
	b.position = sanitize(b.position.Add(b.velocity.Mul(h)))
}

func sanitize(v mgl64.Vec3) mgl64.Vec3 {
	for i := range v {
		v[i] = num.Finite(v[i], 0)
	}
	return v
}
