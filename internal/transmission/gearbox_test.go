package transmission

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxd309/vds-engine/internal/num"
	"github.com/cxd309/vds-engine/internal/tick"
)

const dt = 0.02

func newTestGearbox(t *testing.T) *Gearbox {
	t.Helper()
	g, err := New(DefaultConfig())
	require.NoError(t, err)
	return g
}

func TestGearTableRoundTrip(t *testing.T) {
	g := newTestGearbox(t)
	cfg := g.Config()
	assert.Equal(t, cfg.GearRatios[1]*cfg.FinalDrive, g.TotalRatioFor(2))
	assert.Equal(t, -cfg.ReverseRatio*cfg.FinalDrive, g.TotalRatioFor(Reverse))
	assert.Equal(t, 0.0, g.TotalRatioFor(Neutral))
	assert.Equal(t, 0.0, g.TotalRatioFor(len(cfg.GearRatios)+1))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty table", func(c *Config) { c.GearRatios = nil }},
		{"zero ratio", func(c *Config) { c.GearRatios = []float64{3, 0} }},
		{"zero final drive", func(c *Config) { c.FinalDrive = 0 }},
		{"inverted thresholds", func(c *Config) { c.DownshiftRPM = 6000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := New(cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestGateTransitions(t *testing.T) {
	g := newTestGearbox(t)
	assert.Equal(t, "N", g.GearDisplay())

	g.HandleInput(-1, 0)
	assert.Equal(t, Reverse, g.Gear())
	assert.Equal(t, "R", g.GearDisplay())

	g.HandleInput(1, 0)
	assert.Equal(t, 1, g.Gear())
	assert.Equal(t, ModeDrive, g.Mode())

	// Reverse request while rolling forward is a brake, not a gear change.
	g.HandleInput(-1, 10)
	assert.Equal(t, 1, g.Gear())

	g.HandleInput(-1, 0.1)
	assert.Equal(t, Reverse, g.Gear())
}

func TestNeutralPicksGearForSpeed(t *testing.T) {
	g := newTestGearbox(t)
	g.HandleInput(1, 30)
	assert.Greater(t, g.Gear(), 1)
	rpm := SpeedToRPM(30, g.TotalRatio(), g.Config().WheelRadius)
	assert.Less(t, rpm, g.Config().UpshiftRPM)
}

func TestShiftTimerBlocksGearChanges(t *testing.T) {
	g := newTestGearbox(t)
	g.HandleInput(1, 0)
	g.shiftTo(2)
	require.True(t, g.Shifting())

	g.HandleInput(-1, 0)
	assert.Equal(t, 2, g.Gear())

	var edges int
	for i := 0; i < 20; i++ {
		g.Update(tick.Context{Dt: dt, Speed: 10, Throttle: 1}, 3000)
		if g.JustShifted() {
			edges++
		}
	}
	assert.Equal(t, 1, edges)
	assert.False(t, g.Shifting())
}

func TestNoGearHunting(t *testing.T) {
	g := newTestGearbox(t)
	cfg := g.Config()
	g.HandleInput(1, 0)
	require.Equal(t, 1, g.Gear())

	prev := g.Gear()
	for i := 0; i < 3000; i++ {
		speed := float64(i) * dt // 1 m/s² ramp
		rpm := num.Clamp(SpeedToRPM(speed, g.TotalRatio(), cfg.WheelRadius), 800, 6500)
		g.Update(tick.Context{Dt: dt, Speed: speed, Throttle: 1}, rpm)
		require.GreaterOrEqual(t, g.Gear(), prev, "downshift at %.2f m/s", speed)
		prev = g.Gear()
	}
	assert.GreaterOrEqual(t, g.Gear(), 4)
}

func TestDownshiftHysteresis(t *testing.T) {
	g := newTestGearbox(t)
	g.gear = 3

	// The lower gear would land too close to the upshift point.
	g.Update(tick.Context{Dt: dt, Speed: 27}, 1900)
	assert.Equal(t, 3, g.Gear())

	g.Update(tick.Context{Dt: dt, Speed: 20}, 1900)
	assert.Equal(t, 2, g.Gear())
}

func TestUpshiftNeedsThrottle(t *testing.T) {
	g := newTestGearbox(t)
	g.gear = 2
	g.Update(tick.Context{Dt: dt, Speed: 20, Throttle: 0.1}, 6000)
	assert.Equal(t, 2, g.Gear())
	g.Update(tick.Context{Dt: dt, Speed: 20, Throttle: 1, Brake: 0.5}, 6000)
	assert.Equal(t, 2, g.Gear())
	g.Update(tick.Context{Dt: dt, Speed: 20, Throttle: 1}, 6000)
	assert.Equal(t, 3, g.Gear())
}

func TestStandstillFallsBackToFirst(t *testing.T) {
	g := newTestGearbox(t)
	g.gear = 4
	g.Update(tick.Context{Dt: dt, Speed: 0}, 800)
	assert.Equal(t, 1, g.Gear())
}

func TestClutchRateBound(t *testing.T) {
	g := newTestGearbox(t)
	g.HandleInput(1, 0)
	r := rand.New(rand.NewSource(7))
	bound := g.Config().MaxClutchRate()*dt + 1e-9

	prev := g.Clutch()
	for i := 0; i < 2000; i++ {
		ctx := tick.Context{
			Dt:       dt,
			Speed:    r.Float64() * 40,
			Throttle: r.Float64(),
		}
		if r.Intn(4) == 0 {
			ctx.Brake = 1
		}
		g.Update(ctx, 1000+r.Float64()*6000)
		require.LessOrEqual(t, math.Abs(g.Clutch()-prev), bound)
		require.GreaterOrEqual(t, g.Clutch(), 0.0)
		require.LessOrEqual(t, g.Clutch(), 1.0)
		prev = g.Clutch()
	}
}

func TestClutchTarget(t *testing.T) {
	assert.Equal(t, 0.0, ClutchTarget(Neutral, 10, 1, false))
	assert.Equal(t, 0.2, ClutchTarget(1, 1, 0, true))
	assert.InDelta(t, 0.7, ClutchTarget(1, 0, 1, false), 1e-9)
	assert.InDelta(t, 0.3, ClutchTarget(1, 0, 0, false), 1e-9)
	assert.Equal(t, 1.0, ClutchTarget(1, 5, 0, false))
	assert.Equal(t, 1.0, ClutchTarget(Reverse, -8, 0.5, false))

	mid := ClutchTarget(1, 3, 0.5, false)
	assert.Greater(t, mid, 0.65)
	assert.Less(t, mid, 1.0)
}

func TestSpeedToRPM(t *testing.T) {
	// One wheel revolution per second at 1:1.
	assert.InDelta(t, 60, SpeedToRPM(2*math.Pi*0.35, 1, 0.35), 1e-9)
	assert.InDelta(t, 600, SpeedToRPM(-2*math.Pi*0.35, -10, 0.35), 1e-9)
	assert.Equal(t, 0.0, SpeedToRPM(10, 5, 0))
}
