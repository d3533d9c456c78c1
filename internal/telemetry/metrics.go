package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// InstrumentationName names the meter the instruments are created on.
const InstrumentationName = "github.com/cxd309/vds-engine/internal/telemetry"

// Metrics publishes the latest frame as OpenTelemetry observable gauges and
// counts recorded frames and gear changes.
type Metrics struct {
	vehicle attribute.KeyValue

	speed  metric.Float64ObservableGauge
	rpm    metric.Float64ObservableGauge
	gear   metric.Int64ObservableGauge
	slip   metric.Float64ObservableGauge
	latG   metric.Float64ObservableGauge
	longG  metric.Float64ObservableGauge
	frames metric.Int64Counter
	shifts metric.Int64Counter
	reg    metric.Registration

	mu       sync.RWMutex
	last     Frame
	have     bool
	lastGear int
}

// NewMetrics registers the instruments for one vehicle on m. A nil meter
// records nothing.
func NewMetrics(m metric.Meter, vehicleName string) (*Metrics, error) {
	if m == nil {
		m = noop.NewMeterProvider().Meter(InstrumentationName)
	}
	s := &Metrics{vehicle: attribute.String("vehicle", vehicleName)}

	var err error
	gauges := []struct {
		dst  *metric.Float64ObservableGauge
		name string
		desc string
		unit string
	}{
		{&s.speed, "vehicle.speed", "Signed forward speed", "km/h"},
		{&s.rpm, "vehicle.engine.rpm", "Crank speed", "{rpm}"},
		{&s.slip, "vehicle.tyre.slip.max", "Largest forward slip ratio", "1"},
		{&s.latG, "vehicle.g.lateral", "Smoothed lateral acceleration", "{g}"},
		{&s.longG, "vehicle.g.longitudinal", "Smoothed longitudinal acceleration", "{g}"},
	}
	for _, g := range gauges {
		*g.dst, err = m.Float64ObservableGauge(g.name, metric.WithDescription(g.desc), metric.WithUnit(g.unit))
		if err != nil {
			return nil, fmt.Errorf("creating %s gauge: %w", g.name, err)
		}
	}
	s.gear, err = m.Int64ObservableGauge("vehicle.gear", metric.WithDescription("Selected gear, -1 reverse"))
	if err != nil {
		return nil, fmt.Errorf("creating gear gauge: %w", err)
	}

	s.reg, err = m.RegisterCallback(s.observe, s.speed, s.rpm, s.gear, s.slip, s.latG, s.longG)
	if err != nil {
		return nil, fmt.Errorf("registering telemetry callback: %w", err)
	}

	s.frames, err = m.Int64Counter("vehicle.frames", metric.WithDescription("Frames recorded"))
	if err != nil {
		return nil, fmt.Errorf("creating frame counter: %w", err)
	}
	s.shifts, err = m.Int64Counter("vehicle.gear.changes", metric.WithDescription("Gear changes observed"))
	if err != nil {
		return nil, fmt.Errorf("creating shift counter: %w", err)
	}
	return s, nil
}

func (s *Metrics) observe(_ context.Context, o metric.Observer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.have {
		return nil
	}
	attrs := metric.WithAttributes(s.vehicle)
	o.ObserveFloat64(s.speed, s.last.SpeedKMH, attrs)
	o.ObserveFloat64(s.rpm, s.last.RPM, attrs)
	o.ObserveInt64(s.gear, int64(s.last.Gear), attrs)
	o.ObserveFloat64(s.slip, s.last.SlipMax, attrs)
	o.ObserveFloat64(s.latG, s.last.LateralG, attrs)
	o.ObserveFloat64(s.longG, s.last.LongitudinalG, attrs)
	return nil
}

// Record stores f for the next collection.
func (s *Metrics) Record(ctx context.Context, f Frame) error {
	s.mu.Lock()
	changed := s.have && f.Gear != s.lastGear
	s.last, s.have, s.lastGear = f, true, f.Gear
	s.mu.Unlock()

	attrs := metric.WithAttributes(s.vehicle)
	s.frames.Add(ctx, 1, attrs)
	if changed {
		s.shifts.Add(ctx, 1, attrs)
	}
	return nil
}

// Last returns the most recent frame and whether one was recorded.
func (s *Metrics) Last() (Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.have
}

// Close unregisters the gauge callback.
func (s *Metrics) Close() error {
	if s.reg == nil {
		return nil
	}
	return s.reg.Unregister()
}
