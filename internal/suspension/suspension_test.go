package suspension

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxd309/vds-engine/internal/tick"
)

func newTestModel(t *testing.T, mass float64) *Model {
	t.Helper()
	m, err := New(DefaultConfig(), mass)
	require.NoError(t, err)
	return m
}

func TestSpringRateFromFrequency(t *testing.T) {
	m := newTestModel(t, 1400)
	s := m.Spring(true, 0)
	// 350 kg corner at 2.3 Hz.
	want := 350 * math.Pow(2*math.Pi*2.3, 2)
	assert.InDelta(t, want, s.K, 1e-6)

	rebound := 2 * 0.35 * math.Sqrt(want*350)
	assert.InDelta(t, rebound*(1+2.0/3.0)*0.5*1.1, s.C, 1e-6)
}

func TestSpringFloors(t *testing.T) {
	m := newTestModel(t, 100) // 25 kg corners lift to 200 kg
	assert.Equal(t, 200.0, m.CornerMass(true))

	s := m.Spring(false, -1e6)
	assert.Equal(t, 1000.0, s.K)
}

func TestWeightShiftStiffensSprings(t *testing.T) {
	m := newTestModel(t, 1400)
	assert.InDelta(t, 10*500, m.Spring(true, 10).K-m.Spring(true, 0).K, 1e-6)
}

func TestMassBiasSplit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Bias = BiasRearHeavy
	m, err := New(cfg, 1500)
	require.NoError(t, err)
	assert.InDelta(t, 300, m.CornerMass(true), 1e-9)
	assert.InDelta(t, 450, m.CornerMass(false), 1e-9)

	var b MassBias
	require.NoError(t, json.Unmarshal([]byte(`"40/60"`), &b))
	assert.Equal(t, BiasRearHeavy, b)
	assert.Error(t, json.Unmarshal([]byte(`"70/30"`), &b))
}

func TestComfortPresets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Frequency = FrequencyComfort
	cfg.Damping = DampingComfort
	m, err := New(cfg, 1400)
	require.NoError(t, err)
	assert.Equal(t, 1.8, m.Frequency(true))
	assert.Equal(t, 1.5, m.Frequency(false))
	assert.Equal(t, 0.25, m.DampingRatio())
}

func TestConfigureRejectsBadMassAndClampsTravel(t *testing.T) {
	_, err := New(DefaultConfig(), 0)
	assert.ErrorIs(t, err, ErrInvalidMass)

	m := newTestModel(t, 1400)
	require.NoError(t, m.Configure(1400, 2, FrequencySport, DampingSport, BiasBalanced))
	assert.Equal(t, MaxTravel, m.Travel())
	require.NoError(t, m.Configure(1400, 0.01, FrequencySport, DampingSport, BiasBalanced))
	assert.Equal(t, MinTravel, m.Travel())
}

func TestSquatAndDive(t *testing.T) {
	m := newTestModel(t, 1400)

	m.Update(tick.Context{LongitudinalG: 0.05})
	f, r := m.Targets()
	assert.Equal(t, 0.5, f)
	assert.Equal(t, 0.5, r)

	m.Update(tick.Context{LongitudinalG: 1.5})
	f, r = m.Targets()
	assert.InDelta(t, 0.5-0.1*0.6, r, 1e-12, "rear squats")
	assert.InDelta(t, 0.5+0.05*0.6, f, 1e-12, "front lifts")

	m.Update(tick.Context{LongitudinalG: -3})
	f, r = m.Targets()
	assert.InDelta(t, 0.5-0.1*0.6, f, 1e-12, "front dives")
	assert.Greater(t, r, 0.5)
	assert.Equal(t, f, m.Spring(true, 0).Target)
}

func TestAntiRollForces(t *testing.T) {
	bar := NewAntiRoll(DefaultConfig().AntiRoll)
	left := Corner{Travel: 0.8, Grounded: true}
	right := Corner{Travel: 0.2, Grounded: true}

	fl, fr := bar.Forces(left, right, 0)
	assert.InDelta(t, -0.6*1000, fl, 1e-9)
	assert.InDelta(t, 0.6*1000, fr, 1e-9)
	assert.InDelta(t, 0, fl+fr, 1e-9)

	// Airborne corner gets nothing.
	fl, fr = bar.Forces(Corner{Travel: 1}, right, 0)
	assert.Equal(t, 0.0, fl)
	assert.Greater(t, fr, 0.0)

	// Level axle, no force.
	fl, fr = bar.Forces(right, right, 10)
	assert.Equal(t, 0.0, fl)
	assert.Equal(t, 0.0, fr)
}

func TestAntiRollIntensityAndShift(t *testing.T) {
	cfg := DefaultConfig().AntiRoll
	cfg.Intensity = AntiRollStiff
	bar := NewAntiRoll(cfg)
	assert.InDelta(t, 1000*1.5, bar.Stiffness(0), 1e-9)
	assert.InDelta(t, 1000*1.5*1.05, bar.Stiffness(10), 1e-9)

	cfg.Enabled = false
	fl, fr := NewAntiRoll(cfg).Forces(Corner{Travel: 1, Grounded: true}, Corner{Grounded: true}, 0)
	assert.Zero(t, fl)
	assert.Zero(t, fr)
}
