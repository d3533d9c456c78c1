// Package telemetry defines the per-tick frame the simulation publishes and
// the sinks that consume it.
package telemetry

import (
	"context"
	"errors"
	"sync"

	"github.com/cxd309/vds-engine/internal/engine"
	"github.com/cxd309/vds-engine/internal/transmission"
	"github.com/cxd309/vds-engine/internal/vehicle"
)

// Frame is the outbound snapshot of one tick.
type Frame struct {
	Time float64 `json:"time"` // seconds since start

	Speed      float64 `json:"speed"`     // signed forward, m/s
	SpeedKMH   float64 `json:"speed_kmh"` // signed forward
	RPM        float64 `json:"rpm"`
	Torque     float64 `json:"torque"` // net crank torque, N·m
	Gear       int     `json:"gear"`
	GearLabel  string  `json:"gear_label"`
	Clutch     float64 `json:"clutch"`
	Shifting   bool    `json:"shifting"`
	Horsepower float64 `json:"horsepower"` // estimate at the current RPM

	Throttle   float64 `json:"throttle"`
	Brake      float64 `json:"brake"`
	Steer      float64 `json:"steer"`
	SteerAngle float64 `json:"steer_angle"` // degrees at the road wheels
	Handbrake  bool    `json:"handbrake"`

	SlipAvg       float64 `json:"slip_avg"`
	SlipMax       float64 `json:"slip_max"`
	Traction      float64 `json:"traction"` // lowest traction control multiplier on a driven wheel, 1 when not cutting
	LateralG      float64 `json:"lateral_g"`
	LongitudinalG float64 `json:"longitudinal_g"`
	Suspension    float64 `json:"suspension"`   // average deflection, 0 extended..1 compressed
	WeightShift   float64 `json:"weight_shift"` // percent

	Drivetrain string  `json:"drivetrain"`
	TopSpeed   float64 `json:"top_speed"` // km/h
	Mass       float64 `json:"mass"`      // kg

	X       float64 `json:"x"`       // world, metres
	Z       float64 `json:"z"`       // world, metres
	Heading float64 `json:"heading"` // degrees, positive right of +z

	Engine  engine.State         `json:"engine"`
	Gearbox transmission.State   `json:"gearbox"`
	Wheels  []vehicle.WheelState `json:"wheels,omitempty"`
}

// Sink consumes frames. Implementations that talk to external services
// buffer internally so Record stays cheap.
type Sink interface {
	Record(ctx context.Context, f Frame) error
	Close() error
}

// Fanout forwards each frame to every sink and joins their errors.
type Fanout struct {
	sinks []Sink
}

// NewFanout returns a fanout over sinks, skipping nils.
func NewFanout(sinks ...Sink) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Add registers another sink.
func (f *Fanout) Add(s Sink) {
	if s != nil {
		f.sinks = append(f.sinks, s)
	}
}

// Len returns the number of sinks.
func (f *Fanout) Len() int { return len(f.sinks) }

func (f *Fanout) Record(ctx context.Context, fr Frame) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Record(ctx, fr); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink, even after a failure.
func (f *Fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Buffer keeps every frame in memory.
type Buffer struct {
	mu     sync.Mutex
	frames []Frame
}

func (b *Buffer) Record(_ context.Context, f Frame) error {
	b.mu.Lock()
	b.frames = append(b.frames, f)
	b.mu.Unlock()
	return nil
}

func (b *Buffer) Close() error { return nil }

// Frames returns a copy of the recorded frames.
func (b *Buffer) Frames() []Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Frame(nil), b.frames...)
}
