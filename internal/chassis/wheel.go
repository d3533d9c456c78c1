package chassis

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/cxd309/vds-engine/internal/num"
	"github.com/cxd309/vds-engine/internal/suspension"
	"github.com/cxd309/vds-engine/internal/tyre"
)

// WheelConfig is the fixed geometry of one contact proxy.
type WheelConfig struct {
	Name     string     `json:"name"`
	Position mgl64.Vec3 `json:"position"` // body frame: x right, y up, z forward
	Radius   float64    `json:"radius"`   // metres
	Mass     float64    `json:"mass"`     // kg
	Travel   float64    `json:"travel"`   // suspension distance, metres
}

// Wheel is a ground contact proxy. Logic writes torques, steer, spring and
// friction each tick; the body step writes back slip, load and compression.
type Wheel struct {
	cfg     WheelConfig
	inertia float64

	MotorTorque   float64 // N·m
	BrakeTorque   float64 // N·m, magnitude
	SteerAngle    float64 // degrees, positive right
	Spring        suspension.Spring
	Forward       tyre.FrictionCurve
	Sideways      tyre.FrictionCurve
	ExternalForce float64 // vertical, N, between body and wheel outside the spring; positive adds load

	omega       float64 // rad/s
	compression float64 // metres
	staticLoad  float64 // N
	load        float64 // N
	forwardSlip float64
	lateralSlip float64
	grounded    bool
}

// NewWheel returns a proxy at rest.
func NewWheel(cfg WheelConfig) *Wheel {
	if cfg.Radius <= 0 {
		cfg.Radius = 0.35
	}
	if cfg.Mass <= 0 {
		cfg.Mass = 20
	}
	if cfg.Travel <= 0 {
		cfg.Travel = 0.2
	}
	w := &Wheel{
		cfg:      cfg,
		inertia:  0.5 * cfg.Mass * cfg.Radius * cfg.Radius * 1.5,
		Spring:   suspension.Spring{K: 35000, C: 4000, Target: 0.5},
		grounded: true,
	}
	w.compression = (1 - w.Spring.Target) * cfg.Travel
	return w
}

func (w *Wheel) Config() WheelConfig  { return w.cfg }
func (w *Wheel) Name() string         { return w.cfg.Name }
func (w *Wheel) Radius() float64      { return w.cfg.Radius }
func (w *Wheel) Position() mgl64.Vec3 { return w.cfg.Position }
func (w *Wheel) Omega() float64       { return w.omega }
func (w *Wheel) Load() float64        { return w.load }
func (w *Wheel) StaticLoad() float64  { return w.staticLoad }
func (w *Wheel) Grounded() bool       { return w.grounded }
func (w *Wheel) ForwardSlip() float64 { return w.forwardSlip }
func (w *Wheel) LateralSlip() float64 { return w.lateralSlip }
func (w *Wheel) Compression() float64 { return w.compression }

// RPM returns wheel spin in revolutions per minute, signed.
func (w *Wheel) RPM() float64 { return w.omega * 60 / (2 * math.Pi) }

// SetTravel changes the suspension distance.
func (w *Wheel) SetTravel(travel float64) {
	if travel > 0 {
		w.cfg.Travel = travel
		w.compression = math.Min(w.compression, travel)
	}
}

// Deflection is suspension compression as a fraction of travel, 0 extended.
func (w *Wheel) Deflection() float64 {
	return num.Clamp01(num.SafeDiv(w.compression, w.cfg.Travel, 0))
}

// Extension is the complement of Deflection, 1 when airborne.
func (w *Wheel) Extension() float64 {
	if !w.grounded {
		return 1
	}
	return 1 - w.Deflection()
}

// updateLoad sets the contact load from the body's share plus the external
// vertical force and relaxes the spring toward its equilibrium compression
// with the spring-damper time constant. The external force bypasses the
// spring: it adds to the tyre load and relieves the spring by the same amount.
func (w *Wheel) updateLoad(base, h float64) {
	ext := num.Finite(w.ExternalForce, 0)
	load := base + ext
	w.grounded = load > 0
	if !w.grounded {
		w.load = 0
		w.compression = num.Approach(w.compression, 0, 20, h)
		return
	}
	w.load = load

	k := math.Max(w.Spring.K, 1)
	c := math.Max(w.Spring.C, 1)
	travel := w.cfg.Travel
	eq := (1-num.Clamp01(w.Spring.Target))*travel + (base-ext-w.staticLoad)/k
	eq = num.Clamp(eq, 0, travel)
	w.compression = num.Clamp(num.Approach(w.compression, eq, k/c, h), 0, travel)
}

// contact integrates wheel spin over h and returns the tyre force in the body
// frame for a contact-patch velocity vc. massShare bounds the lateral impulse
// so a single substep cannot reverse the patch's sideways motion.
func (w *Wheel) contact(vc mgl64.Vec3, h, massShare, minSlipSpeed, rolling float64) mgl64.Vec3 {
	steer := mgl64.DegToRad(w.SteerAngle)
	sin, cos := math.Sincos(steer)
	fwd := mgl64.Vec3{sin, 0, cos}
	side := mgl64.Vec3{cos, 0, -sin}
	vLong := vc.Dot(fwd)
	vLat := vc.Dot(side)
	r := w.cfg.Radius

	if !w.grounded {
		w.forwardSlip, w.lateralSlip = 0, 0
		w.spin(w.MotorTorque, 0, h)
		return mgl64.Vec3{}
	}

	// Linearise tyre force in spin so the update stays stable when the
	// curve is steep at low speed.
	denom := math.Max(math.Max(math.Abs(vLong), math.Abs(w.omega*r)), minSlipSpeed)
	s0 := (w.omega*r - vLong) / denom
	f0 := num.Sign(s0) * w.Forward.Evaluate(s0) * w.load
	k := math.Max(w.Forward.Slope(s0), 0) * w.load * r / denom
	w.spin(w.MotorTorque-f0*r, k*r, h)

	denom = math.Max(math.Max(math.Abs(vLong), math.Abs(w.omega*r)), minSlipSpeed)
	slip := (w.omega*r - vLong) / denom
	tanAlpha := vLat / math.Max(math.Abs(vLong), minSlipSpeed)
	fLong, fLat := w.combined(slip, tanAlpha)

	if limit := massShare * math.Abs(w.omega*r-vLong) / h; math.Abs(fLong) > limit {
		fLong = num.Sign(fLong) * limit
	}
	fLong -= rolling * w.load * num.Clamp(vLong/0.5, -1, 1)
	if limit := massShare * math.Abs(vLat) / h; math.Abs(fLat) > limit {
		fLat = num.Sign(fLat) * limit
	}

	w.forwardSlip = num.Finite(slip, 0)
	w.lateralSlip = num.Finite(tanAlpha, 0)
	return fwd.Mul(num.Finite(fLong, 0)).Add(side.Mul(num.Finite(fLat, 0)))
}

// combined returns the longitudinal and lateral force for a slip ratio and
// slip-angle tangent. Each slip is measured against its curve's peak; both
// curves are read at the combined slip and the force is shared along the
// slip direction, so a locked or spinning wheel has little left sideways.
func (w *Wheel) combined(slip, tanAlpha float64) (fLong, fLat float64) {
	px, py := w.Forward.SlipAtPeak(), w.Sideways.SlipAtPeak()
	sx, sy := slip/px, tanAlpha/py
	rho := math.Hypot(sx, sy)
	if !(rho > num.Epsilon) || math.IsInf(rho, 0) {
		return 0, 0
	}
	fLong = num.Sign(slip) * w.Forward.Evaluate(rho*px) * w.load * math.Abs(sx) / rho
	fLat = -num.Sign(tanAlpha) * w.Sideways.Evaluate(rho*py) * w.load * math.Abs(sy) / rho
	return fLong, fLat
}

// spin advances omega under drive torque with an implicit road stiffness
// term, then applies the brake without letting it reverse rotation.
func (w *Wheel) spin(torque, stiffness, h float64) {
	eff := w.inertia + h*stiffness
	free := w.omega + h*torque/eff
	brake := h * math.Abs(w.BrakeTorque) / eff
	switch {
	case math.Abs(free) <= brake:
		free = 0
	case free > 0:
		free -= brake
	default:
		free += brake
	}
	w.omega = num.Finite(free, 0)
}
