package assist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxd309/vds-engine/internal/transmission"
)

func TestTractionMultiplierMonotonic(t *testing.T) {
	tc := NewTractionControl(TractionConfig{Enabled: true, SlipThreshold: 0.25, Gain: 3, Intensity: 1})
	prev := 1.0
	for s := 0.0; s <= 2; s += 0.01 {
		m := tc.Multiplier(s)
		require.LessOrEqual(t, m, prev+1e-12, "slip %.2f", s)
		require.GreaterOrEqual(t, m, 0.0)
		require.LessOrEqual(t, m, 1.0)
		prev = m
	}
	assert.Equal(t, 1.0, tc.Multiplier(0.25))
	assert.InDelta(t, 0.7, tc.Multiplier(-0.35), 1e-12)
	assert.Equal(t, 0.0, tc.Multiplier(5))
}

func TestTractionDisabled(t *testing.T) {
	tc := NewTractionControl(TractionConfig{SlipThreshold: 0.1, Intensity: 1})
	assert.Equal(t, 1.0, tc.Multiplier(3))
	tc.SetEnabled(true)
	assert.Less(t, tc.Multiplier(3), 1.0)
}

func TestCounterSteer(t *testing.T) {
	cs := NewCounterSteer(CounterSteerConfig{
		Enabled: true, Deadzone: 0.1, MinSpeed: 5, Intensity: 1, MaxCorrection: 10, Damping: 8,
	})

	assert.Equal(t, 0.0, cs.Update(0.05, 20, 0.02), "inside deadzone")
	assert.Equal(t, 0.0, cs.Update(0.8, 2, 0.02), "below min speed")

	var c float64
	for i := 0; i < 200; i++ {
		c = cs.Update(0.8, 20, 0.02)
	}
	assert.InDelta(t, 8, c, 1e-3, "steers into a slide to the right")

	for i := 0; i < 200; i++ {
		c = cs.Update(-5, 20, 0.02)
	}
	assert.InDelta(t, -10, c, 1e-3, "clamped at max correction")
}

func TestCounterSteerDampsTowardTarget(t *testing.T) {
	cs := NewCounterSteer(CounterSteerConfig{Enabled: true, MaxCorrection: 10, Intensity: 1, Damping: 8})
	first := cs.Update(1, 20, 0.02)
	assert.Greater(t, first, 0.0)
	assert.Less(t, first, 10.0)
}

func TestBrakeSplit(t *testing.T) {
	b := NewBrakes(BrakeConfig{MaxTorque: 3000, FrontBias: 0.6, Pressure: 1})
	front, rear := b.Split(1)
	assert.InDelta(t, 3600, front, 1e-9)
	assert.InDelta(t, 2400, rear, 1e-9)

	front, rear = b.Split(0)
	assert.Zero(t, front)
	assert.Zero(t, rear)

	even := NewBrakes(BrakeConfig{MaxTorque: 3000, FrontBias: 0.5})
	front, rear = even.Split(0.5)
	assert.Equal(t, front, rear)
	assert.InDelta(t, 1500, front, 1e-9)
}

func TestABS(t *testing.T) {
	b := NewBrakes(BrakeConfig{MaxTorque: 3000, FrontBias: 0.6, ABS: ABSConfig{Enabled: true, SlipLimit: 0.15, MinFactor: 0.3}})
	assert.Equal(t, 1.0, b.ABS(0.1))
	assert.InDelta(t, 0.5, b.ABS(0.3), 1e-12)
	assert.Equal(t, 0.3, b.ABS(1))

	off := NewBrakes(BrakeConfig{MaxTorque: 3000})
	assert.Equal(t, 1.0, off.ABS(1))
}

func TestHandbrake(t *testing.T) {
	b := NewBrakes(BrakeConfig{HandbrakeTorque: 5000})
	assert.Equal(t, 5000.0, b.Handbrake(true))
	assert.Equal(t, 0.0, b.Handbrake(false))
}

func fourDriven(omegaFL, omegaFR, omegaRL, omegaRR float64) []Wheel {
	return []Wheel{
		{Front: true, Left: true, Omega: omegaFL},
		{Front: true, Left: false, Omega: omegaFR},
		{Front: false, Left: true, Omega: omegaRL},
		{Front: false, Left: false, Omega: omegaRR},
	}
}

func sum(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}

func TestDiffSplitByLayout(t *testing.T) {
	d := NewDifferential(DiffConfig{AccelLock: 0.5, DecelLock: 0.2, FrontBias: 0.4})
	w := fourDriven(10, 10, 10, 10)

	rwd := d.Split(1000, transmission.RWD, w)
	assert.Equal(t, []float64{0, 0, 500, 500}, rwd)

	fwd := d.Split(1000, transmission.FWD, w)
	assert.Equal(t, []float64{500, 500, 0, 0}, fwd)

	awd := d.Split(1000, transmission.AWD, w)
	assert.InDelta(t, 400, awd[0]+awd[1], 1e-9)
	assert.InDelta(t, 600, awd[2]+awd[3], 1e-9)
}

func TestDiffBiasesSlowerWheel(t *testing.T) {
	d := NewDifferential(DiffConfig{AccelLock: 0.6, DecelLock: 0.1})
	w := fourDriven(0, 0, 30, 10) // rear left spinning

	out := d.Split(1000, transmission.RWD, w)
	assert.Less(t, out[2], out[3])
	assert.InDelta(t, 1000, sum(out), 1e-9)

	coast := d.Split(-1000, transmission.RWD, w)
	assert.InDelta(t, -1000, sum(coast), 1e-9)
	// Looser lock off throttle keeps the split closer to even.
	assert.Less(t, coast[3]/coast[2], out[3]/out[2])
}

func TestDiffHandlesMissingWheel(t *testing.T) {
	d := NewDifferential(DiffConfig{AccelLock: 0.5})
	w := []Wheel{{Front: true, Left: true}, {Front: false, Left: true, Omega: 5}}
	out := d.Split(800, transmission.RWD, w)
	assert.Equal(t, []float64{0, 800}, out)
}

func TestDrivetrainUnmarshal(t *testing.T) {
	var d transmission.Drivetrain
	require.NoError(t, d.UnmarshalText([]byte("awd")))
	assert.Equal(t, transmission.AWD, d)
	assert.Error(t, d.UnmarshalText([]byte("6x6")))
	assert.True(t, transmission.RWD.Drives(false))
	assert.False(t, transmission.FWD.Drives(false))
}
