package sim

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxd309/vds-engine/internal/telemetry"
	"github.com/cxd309/vds-engine/internal/vehicle"
)

func testScenario() Scenario {
	return Scenario{
		Meta:    Meta{SimulationID: "launch", RunTime: 2, TimeStep: 0.02},
		Vehicle: VehicleSpec{Preset: "sportscar"},
		Controls: []Control{
			{T: 0, Throttle: 1},
		},
	}
}

func TestInputAtInterpolates(t *testing.T) {
	sc := Scenario{Controls: []Control{
		{T: 2, Throttle: 1, Steer: -1, Handbrake: true},
		{T: 0, Throttle: 0, Steer: 0},
		{T: 4, Throttle: -1, Steer: 1},
	}}
	require.ErrorIs(t, sc.Validate(), ErrInvalidScenario, "zero time step")
	sc.Meta.TimeStep = 0.1
	require.NoError(t, sc.Validate())

	tests := []struct {
		t    float64
		want vehicle.Input
	}{
		{-1, vehicle.Input{}},
		{0, vehicle.Input{}},
		{1, vehicle.Input{Throttle: 0.5, Steer: -0.5}},
		{2, vehicle.Input{Throttle: 1, Steer: -1, Handbrake: true}},
		{3, vehicle.Input{Throttle: 0, Steer: 0, Handbrake: true}},
		{10, vehicle.Input{Throttle: -1, Steer: 1}},
	}
	for _, tt := range tests {
		got := sc.InputAt(tt.t)
		assert.InDelta(t, tt.want.Throttle, got.Throttle, 1e-9, "t=%v", tt.t)
		assert.InDelta(t, tt.want.Steer, got.Steer, 1e-9, "t=%v", tt.t)
		assert.Equal(t, tt.want.Handbrake, got.Handbrake, "t=%v", tt.t)
	}
}

func TestInputAtWithoutControls(t *testing.T) {
	var sc Scenario
	assert.Equal(t, vehicle.Input{}, sc.InputAt(3))
}

func TestScenarioValidate(t *testing.T) {
	sc := testScenario()
	sc.Meta.RunTime = -1
	assert.ErrorIs(t, sc.Validate(), ErrInvalidScenario)

	sc = testScenario()
	sc.Vehicle.Preset = "hovercraft"
	_, err := NewRunner(sc)
	assert.Error(t, err)

	sc = testScenario()
	sc.Vehicle.Tuning = json.RawMessage(`{"mass": "heavy"}`)
	_, err = NewRunner(sc)
	assert.ErrorIs(t, err, ErrInvalidScenario)

	sc = testScenario()
	sc.Vehicle.Tuning = json.RawMessage(`{"mass": -10}`)
	_, err = NewRunner(sc)
	assert.ErrorIs(t, err, vehicle.ErrInvalidTuning)
}

func TestTuningOverlay(t *testing.T) {
	sc := testScenario()
	sc.Vehicle.Tuning = json.RawMessage(`{"mass": 999, "top_speed": 120, "drivetrain": "awd"}`)
	r, err := NewRunner(sc)
	require.NoError(t, err)

	s := r.Vehicle().State()
	assert.Equal(t, 999.0, s.Mass)
	assert.Equal(t, 120.0, s.TopSpeed)
	assert.EqualValues(t, "AWD", s.Drivetrain)
}

func TestRunProducesFrames(t *testing.T) {
	buf := &telemetry.Buffer{}
	r, err := NewRunner(testScenario(), WithSink(buf))
	require.NoError(t, err)

	log, err := r.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, r.Close())

	require.Len(t, log.Output, 100)
	assert.Equal(t, "launch", log.Meta.SimulationID)
	assert.Equal(t, "Sportscar", log.Vehicle)
	assert.Len(t, buf.Frames(), 100)

	last := log.Output[len(log.Output)-1]
	assert.InDelta(t, 2, last.Time, 1e-9)
	assert.Greater(t, last.Speed, 1.0)
	for i := 1; i < len(log.Output); i++ {
		assert.Greater(t, log.Output[i].Time, log.Output[i-1].Time)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	r, err := NewRunner(testScenario())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPushChangesVelocity(t *testing.T) {
	sc := testScenario()
	sc.Controls = nil
	sc.Meta.RunTime = 0.02
	sc.Pushes = []Push{{T: 0, DeltaV: [3]float64{0, 0, 5}}}
	r, err := NewRunner(sc)
	require.NoError(t, err)

	log, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, log.Output, 1)
	assert.InDelta(t, 5, log.Output[0].Speed, 0.5)
}

func TestOverrideWindow(t *testing.T) {
	sc := testScenario()
	sc.Meta.RunTime = 3
	sc.Overrides = []Override{
		{T: 0, Active: true},
		{T: 1.5, Active: false},
	}
	r, err := NewRunner(sc)
	require.NoError(t, err)

	log, err := r.Run(context.Background())
	require.NoError(t, err)
	held := log.Output[int(1.4/0.02)]
	assert.Equal(t, "N", held.GearLabel)
	assert.InDelta(t, 0, held.Speed, 1e-6)
	assert.Greater(t, log.Output[len(log.Output)-1].Speed, 1.0)
}

func TestAssistsSwitchTractionControl(t *testing.T) {
	sc := testScenario()
	sc.Meta.RunTime = 2
	sc.Assists = []Assist{
		{T: 1, TractionControl: true},
		{T: 0, TractionControl: false},
	}
	r, err := NewRunner(sc)
	require.NoError(t, err)
	tc := r.Vehicle().Rig().Traction

	log, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, tc.Enabled())
	for _, f := range log.Output[:int(0.98/0.02)] {
		assert.Equal(t, 1.0, f.Traction, "t=%.2f", f.Time)
	}

	sc.Assists = []Assist{{T: 0, TractionControl: false}}
	r, err = NewRunner(sc)
	require.NoError(t, err)
	_, err = r.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, r.Vehicle().Rig().Traction.Enabled())
}

func TestRunJSON(t *testing.T) {
	in := `{
		"simulation_meta": {"simulation_id": "json", "run_time": 1, "time_step": 0.05},
		"vehicle": {"preset": "heavy_van"},
		"controls": [{"t": 0, "throttle": 1}, {"t": 1, "throttle": 1, "steer": 0.5}]
	}`
	out, err := RunJSON(in)
	require.NoError(t, err)

	var log Log
	require.NoError(t, json.Unmarshal([]byte(out), &log))
	assert.Equal(t, "json", log.Meta.SimulationID)
	assert.Equal(t, "Heavy Van", log.Vehicle)
	require.Len(t, log.Output, 20)
	assert.Len(t, log.Output[0].Wheels, 4)
	assert.Positive(t, log.Summary.Distance)
	assert.Positive(t, log.Summary.TopSpeed)
}

func TestSummarize(t *testing.T) {
	var frames []telemetry.Frame
	v := 0.0
	for i := 0; i <= 200; i++ {
		tm := float64(i) * 0.1
		f := telemetry.Frame{Time: tm, Speed: v, SpeedKMH: v * 3.6}
		if tm >= 12 {
			f.Brake = 1
		}
		frames = append(frames, f)
		if tm < 12 {
			v += 3 * 0.1
		} else {
			v = math.Max(0, v-8*0.1)
		}
	}

	s := Summarize(frames)
	assert.InDelta(t, 36*3.6, s.TopSpeed, 1e-6)
	assert.InDelta(t, (100/3.6)/3, s.ZeroTo100, 0.1)
	assert.InDelta(t, 8, s.PeakDeceleration, 1e-6)
	assert.InDelta(t, BrakingDistance(100/3.6, 8), s.BrakingDistance100, 1e-6)
	assert.Greater(t, s.Distance, 0.5*3*12*12)
}

func TestSummarizeWithoutBraking(t *testing.T) {
	s := Summarize([]telemetry.Frame{{Time: 0, Speed: 10}, {Time: 1, Speed: 9}})
	assert.Zero(t, s.BrakingDistance100)
	assert.Zero(t, s.ZeroTo100)
	assert.InDelta(t, 9.5, s.Distance, 1e-9)
	assert.True(t, math.IsInf(BrakingDistance(10, 0), 1))
}

func TestRunJSONRejectsBadInput(t *testing.T) {
	_, err := RunJSON(`{"simulation_meta":`)
	assert.ErrorContains(t, err, "invalid input JSON")

	_, err = RunJSON(`{"simulation_meta": {"run_time": 1, "time_step": 0}}`)
	assert.ErrorIs(t, err, ErrInvalidScenario)
}
