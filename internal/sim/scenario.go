package sim

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/cxd309/vds-engine/internal/num"
	"github.com/cxd309/vds-engine/internal/telemetry"
	"github.com/cxd309/vds-engine/internal/vehicle"
)

// ErrInvalidScenario is returned for a scenario that cannot be run.
var ErrInvalidScenario = errors.New("invalid scenario")

// Meta holds the identity and timing of a run.
type Meta struct {
	SimulationID string  `json:"simulation_id"`
	RunTime      float64 `json:"run_time"`  // seconds
	TimeStep     float64 `json:"time_step"` // seconds
}

// VehicleSpec picks a preset and optionally overlays a partial tuning on it.
type VehicleSpec struct {
	Preset string          `json:"preset"`
	Tuning json.RawMessage `json:"tuning,omitempty"`
}

// Control is a driver input keyframe. Axes are interpolated linearly between
// keyframes; the handbrake holds its value until the next one.
type Control struct {
	T         float64 `json:"t"` // seconds
	Throttle  float64 `json:"throttle"`
	Steer     float64 `json:"steer"`
	Handbrake bool    `json:"handbrake"`
}

// Push changes the body velocity at time T, body frame, m/s.
type Push struct {
	T      float64    `json:"t"`
	DeltaV mgl64.Vec3 `json:"delta_v"`
}

// Override switches the input override at time T.
type Override struct {
	T         float64 `json:"t"`
	Active    bool    `json:"active"`
	Throttle  float64 `json:"throttle"`
	Steer     float64 `json:"steer"`
	Handbrake bool    `json:"handbrake"`
}

// Assist switches driver aids at time T.
type Assist struct {
	T               float64 `json:"t"`
	TractionControl bool    `json:"traction_control"`
}

// Scenario is the JSON input to a run.
type Scenario struct {
	Meta      Meta        `json:"simulation_meta"`
	Vehicle   VehicleSpec `json:"vehicle"`
	Controls  []Control   `json:"controls"`
	Pushes    []Push      `json:"pushes,omitempty"`
	Overrides []Override  `json:"overrides,omitempty"`
	Assists   []Assist    `json:"assists,omitempty"`
}

// Log is the complete output of a run.
type Log struct {
	Meta        Meta                 `json:"simulation_meta"`
	Vehicle     string               `json:"vehicle"`
	Output      []telemetry.Frame    `json:"output"`
	Summary     Summary              `json:"summary"`
	Diagnostics []vehicle.Diagnostic `json:"diagnostics,omitempty"`
}

// Validate checks timing and sorts every keyframe list by time.
func (s *Scenario) Validate() error {
	if !(s.Meta.TimeStep > 0) {
		return fmt.Errorf("%w: time step must be positive, got %v", ErrInvalidScenario, s.Meta.TimeStep)
	}
	if s.Meta.RunTime < 0 {
		return fmt.Errorf("%w: run time must not be negative, got %v", ErrInvalidScenario, s.Meta.RunTime)
	}
	sort.SliceStable(s.Controls, func(i, j int) bool { return s.Controls[i].T < s.Controls[j].T })
	sort.SliceStable(s.Pushes, func(i, j int) bool { return s.Pushes[i].T < s.Pushes[j].T })
	sort.SliceStable(s.Overrides, func(i, j int) bool { return s.Overrides[i].T < s.Overrides[j].T })
	sort.SliceStable(s.Assists, func(i, j int) bool { return s.Assists[i].T < s.Assists[j].T })
	return nil
}

// Tuning resolves the preset and applies the overlay.
func (s *Scenario) Tuning() (vehicle.Tuning, error) {
	p, err := vehicle.ParsePreset(s.Vehicle.Preset)
	if err != nil {
		return vehicle.Tuning{}, err
	}
	t, err := p.Tuning()
	if err != nil {
		return vehicle.Tuning{}, err
	}
	if len(s.Vehicle.Tuning) > 0 {
		if err := json.Unmarshal(s.Vehicle.Tuning, &t); err != nil {
			return vehicle.Tuning{}, fmt.Errorf("%w: tuning overlay: %w", ErrInvalidScenario, err)
		}
	}
	return t, nil
}

// InputAt returns the driver input at time t.
func (s *Scenario) InputAt(t float64) vehicle.Input {
	c := s.Controls
	switch {
	case len(c) == 0:
		return vehicle.Input{}
	case t <= c[0].T:
		return c[0].input()
	case t >= c[len(c)-1].T:
		return c[len(c)-1].input()
	}
	i := sort.Search(len(c), func(i int) bool { return c[i].T > t }) - 1
	a, b := c[i], c[i+1]
	f := num.InverseLerp(a.T, b.T, t)
	return vehicle.Input{
		Throttle:  num.Lerp(a.Throttle, b.Throttle, f),
		Steer:     num.Lerp(a.Steer, b.Steer, f),
		Handbrake: a.Handbrake,
	}
}

func (c Control) input() vehicle.Input {
	return vehicle.Input{Throttle: c.Throttle, Steer: c.Steer, Handbrake: c.Handbrake}
}
