package engine

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := New(cfg)
	require.NoError(t, err)
	return e
}

func electricConfig() Config {
	cfg := DefaultConfig()
	cfg.Type = TypeElectric
	cfg.IdleRPM = 0
	cfg.MaxRPM = 16000
	cfg.PeakTorque = 400
	cfg.PeakPower = 200
	return cfg
}

func TestNewTorqueModelSelectsStrategy(t *testing.T) {
	m, err := NewTorqueModel(DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, TypeCombustion, m.Type())

	m, err = NewTorqueModel(electricConfig())
	require.NoError(t, err)
	assert.Equal(t, TypeElectric, m.Type())

	cfg := DefaultConfig()
	cfg.Type = "steam"
	_, err = NewTorqueModel(cfg)
	assert.Error(t, err)
}

func TestTypeUnmarshalJSON(t *testing.T) {
	var cfg Config
	require.NoError(t, json.Unmarshal([]byte(`{"type":"EV"}`), &cfg))
	assert.Equal(t, TypeElectric, cfg.Type)

	err := json.Unmarshal([]byte(`{"type":"rotary-turbine"}`), &cfg)
	assert.Error(t, err)
}

func TestValidateRejectsUnorderedAnchors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PeakPowerRPM = 3000 // below peak torque rpm
	_, err := New(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.PeakTorque = 0
	_, err = New(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestCombustionReachesConfiguredPeaks(t *testing.T) {
	cfg := DefaultConfig()
	c, err := NewCombustion(cfg)
	require.NoError(t, err)

	var maxTorque, maxPower float64
	for rpm := cfg.IdleRPM; rpm <= cfg.MaxRPM; rpm += 5 {
		tq := c.Torque(rpm, 1)
		maxTorque = math.Max(maxTorque, tq)
		maxPower = math.Max(maxPower, PowerKW(tq, rpm))
	}
	assert.InDelta(t, cfg.PeakTorque, maxTorque, 0.5)
	assert.InDelta(t, cfg.PeakTorque, c.Torque(cfg.PeakTorqueRPM, 1), 1e-6)
	assert.LessOrEqual(t, maxPower, cfg.PeakPower+1e-6)
	assert.InDelta(t, cfg.PeakPower, maxPower, cfg.PeakPower*0.01)
}

func TestTorqueCurveStaysWithinAnchors(t *testing.T) {
	rpm := []float64{400, 800, 2400, 4000, 4750, 5500, 6500}
	torque := []float64{60, 135, 255, 300, 280, 260, 195}
	c := newTorqueCurve(rpm, torque)

	for i := range rpm {
		assert.InDelta(t, torque[i], c.at(rpm[i]), 1e-9)
	}
	for i := 0; i+1 < len(rpm); i++ {
		lo, hi := math.Min(torque[i], torque[i+1]), math.Max(torque[i], torque[i+1])
		for x := rpm[i]; x <= rpm[i+1]; x += 10 {
			v := c.at(x)
			assert.GreaterOrEqual(t, v, lo-1e-9, "rpm %v", x)
			assert.LessOrEqual(t, v, hi+1e-9, "rpm %v", x)
		}
	}
	assert.Equal(t, torque[0], c.at(0))
	assert.Equal(t, torque[0], c.at(-100))
	assert.Equal(t, torque[len(torque)-1], c.at(9000))
}

func TestCombustionScalesWithThrottle(t *testing.T) {
	c, err := NewCombustion(DefaultConfig())
	require.NoError(t, err)
	full := c.Torque(3000, 1)
	assert.InDelta(t, full/2, c.Torque(3000, 0.5), 1e-9)
	assert.Equal(t, 0.0, c.Torque(3000, 0))
	assert.Equal(t, full, c.Torque(3000, 3), "throttle is clamped")
}

func TestElectricCrossover(t *testing.T) {
	cfg := electricConfig()
	e, err := NewElectric(cfg)
	require.NoError(t, err)

	below := e.CrossoverRPM() * 0.5
	above := e.CrossoverRPM() * 2
	assert.InDelta(t, cfg.PeakTorque, e.Torque(0, 1), 1e-9)
	assert.InDelta(t, cfg.PeakTorque, e.Torque(below, 1), 1e-9)
	assert.InDelta(t, cfg.PeakPower, PowerKW(e.Torque(above, 1), above), 1e-6)
}

func TestIdleConvergence(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	e.SetRPM(6500)
	for i := 0; i < 500; i++ { // 10 s
		e.FreeRev(0, 0.02)
		require.GreaterOrEqual(t, e.RPM(), e.Config().IdleRPM)
	}
	assert.InDelta(t, e.Config().IdleRPM, e.RPM(), e.Config().IdleRPM*0.01)
}

func TestElectricSettlesAtZero(t *testing.T) {
	e := newTestEngine(t, electricConfig())
	assert.Equal(t, 0.0, e.RPM())
	e.FreeRev(0, 0.02)
	assert.Equal(t, 0.0, e.RPM())
}

func TestRevLimiter(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	for i := 0; i < 500; i++ {
		e.FreeRev(1, 0.02)
		require.LessOrEqual(t, e.RPM(), e.Config().MaxRPM)
	}
	assert.Greater(t, e.RPM(), e.Config().MaxRPM*e.Config().LimiterStart*0.98)

	e.SetRPM(e.Config().MaxRPM)
	assert.Equal(t, 0.0, e.LimiterFactor())
	assert.LessOrEqual(t, e.NetTorque(1), e.Model().PeakTorque()*0.05)
}

func TestEngineBrakingOnlyOffThrottle(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	e.SetRPM(4000)
	assert.Greater(t, e.Losses(0), e.Losses(0.5))
	assert.Less(t, e.NetTorque(0), 0.0)
}

func TestFollowWheelsBlendsTowardTarget(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	e.SetRPM(1000)
	// 300 wheel rpm through 10:1 wants 3000 crank rpm.
	prev := e.RPM()
	for i := 0; i < 100; i++ {
		e.FollowWheels(300, 10, 0.02)
		require.GreaterOrEqual(t, e.RPM(), prev)
		prev = e.RPM()
	}
	assert.InDelta(t, 3000, e.RPM(), 1)

	e.FollowWheels(5000, 10, 10)
	assert.Equal(t, e.Config().MaxRPM, e.RPM(), "target is clamped to max")
}

func TestUpdateModeSelection(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	e.SetRPM(2000)
	e.Update(0, 0, 50, 0, 0.02) // neutral: free rev toward idle
	assert.Less(t, e.RPM(), 2000.0)

	e.SetRPM(2000)
	e.Update(0.5, 1, 300, 10, 0.02) // locked: pulled up toward 3000
	assert.Greater(t, e.RPM(), 2000.0)
}

func TestHorsepower(t *testing.T) {
	kw := PowerKW(300, 4000)
	assert.InDelta(t, 125.66, kw, 0.01)
	assert.InDelta(t, kw*1.341, Horsepower(kw), 1e-9)
}
