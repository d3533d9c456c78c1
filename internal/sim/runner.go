package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/cxd309/vds-engine/internal/telemetry"
	"github.com/cxd309/vds-engine/internal/vehicle"
)

// Runner drives one vehicle through a scenario.
type Runner struct {
	scenario Scenario
	vehicle  *Vehicle
	sink     *telemetry.Fanout
	logger   *slog.Logger

	curTime      float64
	nextPush     int
	nextOverride int
	nextAssist   int
}

// NewRunner validates sc and assembles its vehicle.
func NewRunner(sc Scenario, opts ...Option) (*Runner, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	tuning, err := sc.Tuning()
	if err != nil {
		return nil, err
	}
	rig, err := vehicle.StandardRig(tuning)
	if err != nil {
		return nil, fmt.Errorf("building vehicle: %w", err)
	}
	o := newOptions(opts)
	v, err := New(rig, opts...)
	if err != nil {
		return nil, err
	}
	return &Runner{
		scenario: sc,
		vehicle:  v,
		sink:     telemetry.NewFanout(o.sinks...),
		logger:   o.logger,
	}, nil
}

// Vehicle returns the loop being driven.
func (r *Runner) Vehicle() *Vehicle { return r.vehicle }

// Run executes the full scenario and returns the log. Sink errors are logged
// and do not stop the run; cancellation of ctx does.
func (r *Runner) Run(ctx context.Context) (Log, error) {
	meta := r.scenario.Meta
	log := Log{
		Meta:        meta,
		Vehicle:     r.vehicle.rig.Tuning.Name,
		Diagnostics: r.vehicle.Diagnostics(),
	}
	steps := int(math.Floor(meta.RunTime/meta.TimeStep + 1e-9))
	log.Output = make([]telemetry.Frame, 0, steps)

	r.logger.Info("run started", "simulation_id", meta.SimulationID, "vehicle", log.Vehicle, "steps", steps)
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return Log{}, fmt.Errorf("at t=%.2f: %w", r.curTime, err)
		}
		frame := r.step()
		if err := r.sink.Record(ctx, frame); err != nil {
			r.logger.Warn("telemetry sink failed", "t", frame.Time, "error", err)
		}
		log.Output = append(log.Output, frame)
	}
	log.Summary = Summarize(log.Output)
	r.logger.Info("run finished", "simulation_id", meta.SimulationID, "frames", len(log.Output),
		"top_speed", log.Summary.TopSpeed, "distance", log.Summary.Distance)
	return log, nil
}

// step applies any events due at the current time and advances one tick.
func (r *Runner) step() telemetry.Frame {
	sc := &r.scenario
	dt := sc.Meta.TimeStep

	for r.nextOverride < len(sc.Overrides) && sc.Overrides[r.nextOverride].T <= r.curTime {
		o := sc.Overrides[r.nextOverride]
		r.vehicle.SetInputOverride(vehicle.Input{Throttle: o.Throttle, Steer: o.Steer, Handbrake: o.Handbrake}, o.Active)
		r.nextOverride++
	}
	for r.nextAssist < len(sc.Assists) && sc.Assists[r.nextAssist].T <= r.curTime {
		a := sc.Assists[r.nextAssist]
		r.vehicle.SetTractionControl(a.TractionControl)
		r.logger.Debug("assists changed", "t", r.curTime, "traction_control", a.TractionControl)
		r.nextAssist++
	}
	for r.nextPush < len(sc.Pushes) && sc.Pushes[r.nextPush].T <= r.curTime {
		p := sc.Pushes[r.nextPush]
		body := r.vehicle.rig.Body
		body.ApplyImpulse(p.DeltaV.Mul(body.Mass()))
		r.nextPush++
	}

	frame := r.vehicle.Step(sc.InputAt(r.curTime), dt)
	r.curTime += dt
	return frame
}

// Close closes every sink.
func (r *Runner) Close() error { return r.sink.Close() }

// RunJSON is the entry point shared by the CLI and WASM builds. It accepts a
// JSON Scenario, runs it, and returns the JSON Log.
func RunJSON(jsonInput string, opts ...Option) (string, error) {
	var sc Scenario
	if err := json.Unmarshal([]byte(jsonInput), &sc); err != nil {
		return "", fmt.Errorf("invalid input JSON: %w", err)
	}

	r, err := NewRunner(sc, opts...)
	if err != nil {
		return "", err
	}
	defer r.Close()

	simLog, err := r.Run(context.Background())
	if err != nil {
		return "", err
	}

	out, err := json.Marshal(simLog)
	if err != nil {
		return "", fmt.Errorf("marshaling output: %w", err)
	}
	return string(out), nil
}
