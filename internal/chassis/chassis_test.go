package chassis

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxd309/vds-engine/internal/tyre"
)

var (
	testForward  = tyre.FrictionCurve{PeakSlip: 0.08, PeakValue: 1.5, AsymptoteSlip: 0.4, AsymptoteValue: 0.9, Stiffness: 0.7}
	testSideways = tyre.FrictionCurve{PeakSlip: 0.07, PeakValue: 1.8, AsymptoteSlip: 0.25, AsymptoteValue: 1.0, Stiffness: 0.6}
)

func newTestBody(t *testing.T) *Body {
	t.Helper()
	return newTestBodyWith(t, DefaultConfig())
}

func newTestBodyWith(t *testing.T, cfg Config) *Body {
	t.Helper()
	var wheels []*Wheel
	for _, p := range []mgl64.Vec3{{-0.78, 0, 1.3}, {0.78, 0, 1.3}, {-0.78, 0, -1.3}, {0.78, 0, -1.3}} {
		w := NewWheel(WheelConfig{Position: p, Radius: 0.35, Mass: 20, Travel: 0.2})
		w.Forward = testForward
		w.Sideways = testSideways
		wheels = append(wheels, w)
	}
	b, err := New(cfg, wheels)
	require.NoError(t, err)
	return b
}

func run(b *Body, seconds float64) {
	const dt = 1.0 / 50
	for i := 0; i < int(seconds/dt); i++ {
		b.Step(dt)
	}
}

func TestNewRejectsBadBodies(t *testing.T) {
	_, err := New(DefaultConfig(), nil)
	assert.ErrorIs(t, err, ErrInvalidBody)

	cfg := DefaultConfig()
	cfg.Mass = 0
	_, err = New(cfg, []*Wheel{NewWheel(WheelConfig{})})
	assert.ErrorIs(t, err, ErrInvalidBody)

	b := newTestBody(t)
	assert.ErrorIs(t, b.SetMass(math.NaN()), ErrInvalidBody)
	assert.Equal(t, 1500.0, b.Mass())
}

func TestStaticLoadSumsToWeight(t *testing.T) {
	b := newTestBody(t)
	var total float64
	for _, w := range b.Wheels() {
		total += w.StaticLoad()
		assert.InDelta(t, 1500*9.81/4, w.StaticLoad(), 1e-6)
	}
	assert.InDelta(t, 1500*9.81, total, 1e-6)

	require.NoError(t, b.SetMass(2000))
	assert.InDelta(t, 2000*9.81/4, b.Wheels()[0].StaticLoad(), 1e-6)
}

func TestStationaryBodyStaysPut(t *testing.T) {
	b := newTestBody(t)
	run(b, 2)
	assert.InDelta(t, 0, b.Speed(), 1e-9)
	assert.InDelta(t, 0, b.YawRate(), 1e-9)
	for _, w := range b.Wheels() {
		assert.True(t, w.Grounded())
		assert.InDelta(t, 0.5, w.Deflection(), 0.01)
	}
}

func TestDrivenWheelsAccelerate(t *testing.T) {
	b := newTestBody(t)
	for _, w := range b.Wheels()[2:] {
		w.MotorTorque = 600
	}
	run(b, 3)
	assert.Greater(t, b.ForwardSpeed(), 5.0)
	assert.InDelta(t, 0, b.LocalVelocity().X(), 0.05)
	for _, w := range b.Wheels() {
		assert.Less(t, math.Abs(w.ForwardSlip()), 1.5)
	}
}

func TestBrakesStopWithoutReversing(t *testing.T) {
	b := newTestBody(t)
	b.SetVelocity(mgl64.Vec3{0, 0, 15})
	for _, w := range b.Wheels() {
		w.BrakeTorque = 2000
	}
	run(b, 6)
	assert.InDelta(t, 0, b.Speed(), 0.05)
	for _, w := range b.Wheels() {
		assert.GreaterOrEqual(t, w.Omega(), -1e-9)
	}
}

func TestSteeringYawsRight(t *testing.T) {
	b := newTestBody(t)
	b.SetVelocity(mgl64.Vec3{0, 0, 15})
	for _, w := range b.Wheels()[:2] {
		w.SteerAngle = 10
	}
	run(b, 1)
	assert.Greater(t, b.YawRate(), 0.0)
	assert.Greater(t, b.Heading(), 0.0)
	assert.Greater(t, b.Position().X(), 0.0)
}

func TestClampSpeedAndImpulse(t *testing.T) {
	b := newTestBody(t)
	b.SetVelocity(mgl64.Vec3{0, 0, 40})
	assert.True(t, b.ClampSpeed(30))
	assert.InDelta(t, 30, b.Speed(), 1e-9)
	assert.False(t, b.ClampSpeed(50))
	assert.False(t, b.ClampSpeed(0))

	b.ApplyImpulse(mgl64.Vec3{0, 0, 1500})
	assert.InDelta(t, 31, b.ForwardSpeed(), 1e-9)
}

func TestHeadingRotatesForwardAxis(t *testing.T) {
	b := newTestBody(t)
	b.SetHeading(math.Pi / 2)
	f := b.Forward()
	assert.InDelta(t, 1, f.X(), 1e-9)
	assert.InDelta(t, 0, f.Z(), 1e-9)

	b.SetVelocity(mgl64.Vec3{10, 0, 0})
	assert.InDelta(t, 10, b.ForwardSpeed(), 1e-9)
}

func TestExternalForceUnloadsWheel(t *testing.T) {
	b := newTestBody(t)
	w := b.Wheels()[0]
	w.ExternalForce = -2 * w.StaticLoad()
	b.Step(1.0 / 50)
	assert.False(t, w.Grounded())
	assert.Equal(t, 0.0, w.Load())
	assert.Equal(t, 1.0, w.Extension())

	w.ExternalForce = 1000
	b.Step(1.0 / 50)
	assert.True(t, w.Grounded())
	assert.Greater(t, w.Load(), w.StaticLoad())
}

func TestExternalForceRelievesSpring(t *testing.T) {
	free := newTestBody(t)
	pushed := newTestBody(t)
	pushed.Wheels()[0].ExternalForce = 1500
	run(free, 1)
	run(pushed, 1)

	a, b := free.Wheels()[0], pushed.Wheels()[0]
	assert.InDelta(t, a.Load()+1500, b.Load(), 1)
	assert.InDelta(t, a.Compression()-1500/b.Spring.K, b.Compression(), 1e-3)
	assert.Less(t, b.Deflection(), a.Deflection())
}

func TestBrakeHoldsWheelAtZero(t *testing.T) {
	w := NewWheel(WheelConfig{Radius: 0.3, Mass: 20})
	w.omega = 1
	w.BrakeTorque = 1e6
	w.spin(0, 0, 0.01)
	assert.Equal(t, 0.0, w.Omega())
}

func loadedWheel(load float64) *Wheel {
	w := NewWheel(WheelConfig{Radius: 0.35, Mass: 20})
	w.Forward = testForward
	w.Sideways = testSideways
	w.load = load
	return w
}

func TestCombinedSlipMatchesPureCurves(t *testing.T) {
	w := loadedWheel(4000)
	for _, s := range []float64{0.02, 0.08, 0.3, -0.5} {
		fLong, fLat := w.combined(s, 0)
		assert.InDelta(t, math.Copysign(testForward.Evaluate(s)*4000, s), fLong, 1e-6, "slip %v", s)
		assert.Zero(t, fLat)
	}
	for _, a := range []float64{0.03, 0.07, 0.2, -0.1} {
		fLong, fLat := w.combined(0, a)
		assert.InDelta(t, -math.Copysign(testSideways.Evaluate(a)*4000, a), fLat, 1e-6, "tan %v", a)
		assert.Zero(t, fLong)
	}
	fLong, fLat := w.combined(0, 0)
	assert.Zero(t, fLong)
	assert.Zero(t, fLat)
}

func TestLockedWheelLosesSideForce(t *testing.T) {
	w := loadedWheel(4000)
	_, rolling := w.combined(0, 0.07)
	fLong, locked := w.combined(-1, 0.07)

	assert.Less(t, math.Abs(locked), 0.15*math.Abs(rolling))
	assert.Negative(t, fLong)
	assert.LessOrEqual(t, math.Hypot(fLong, locked), math.Max(testForward.Peak(), testSideways.Peak())*4000+1e-6)

	// Spinning up under power eats into the lateral budget too.
	_, spinning := w.combined(0.3, 0.07)
	assert.Less(t, math.Abs(spinning), math.Abs(rolling))
	assert.Greater(t, math.Abs(spinning), math.Abs(locked))
}

func TestAccelerationTransfersLoad(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CGHeight = 0.5
	b := newTestBodyWith(t, cfg)
	for _, w := range b.Wheels()[2:] {
		w.MotorTorque = 800
	}
	run(b, 1)
	require.Greater(t, b.Acceleration().Z(), 0.5)

	fl, rl := b.Wheels()[0], b.Wheels()[2]
	assert.Greater(t, rl.Load(), rl.StaticLoad())
	assert.Less(t, fl.Load(), fl.StaticLoad())
	assert.Greater(t, rl.Deflection(), fl.Deflection())

	var total float64
	for _, w := range b.Wheels() {
		total += w.Load()
	}
	assert.InDelta(t, 1500*9.81+b.Downforce(), total, 1)
}
