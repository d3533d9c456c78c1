package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/cxd309/vds-engine/internal/audio"
	"github.com/cxd309/vds-engine/internal/chart"
	"github.com/cxd309/vds-engine/internal/config"
	"github.com/cxd309/vds-engine/internal/influx"
	"github.com/cxd309/vds-engine/internal/otel"
	"github.com/cxd309/vds-engine/internal/recorder"
	"github.com/cxd309/vds-engine/internal/sim"
	"github.com/cxd309/vds-engine/internal/telemetry"
	"github.com/cxd309/vds-engine/internal/vehicle"
)

// sinks holds the optional outputs a run fans frames to.
type sinks struct {
	recorder *recorder.Recorder
	influx   *influx.Sink
	metrics  *telemetry.Metrics
}

func openSinks(ctx context.Context, vehicleName string, meter metric.Meter, log zerolog.Logger) (*sinks, error) {
	s := &sinks{}

	if storage := config.GetStorageConfig(); storage.Type != "none" {
		rec, err := recorder.Open(storage, log)
		if err != nil {
			return nil, fmt.Errorf("opening run recorder: %w", err)
		}
		s.recorder = rec
	}

	if influxCfg := config.GetInfluxConfig(); influxCfg.Enabled {
		sink := influx.New(influxCfg, log)
		if err := sink.Connect(ctx); err != nil {
			s.abort()
			return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		s.influx = sink
	}

	m, err := telemetry.NewMetrics(meter, vehicleName)
	if err != nil {
		s.abort()
		return nil, err
	}
	s.metrics = m
	return s, nil
}

func (s *sinks) options() []sim.Option {
	var opts []sim.Option
	if s.recorder != nil {
		opts = append(opts, sim.WithSink(s.recorder))
	}
	if s.influx != nil {
		opts = append(opts, sim.WithSink(s.influx))
	}
	if s.metrics != nil {
		opts = append(opts, sim.WithSink(s.metrics))
	}
	return opts
}

// begin opens the run record and tags the time series with its id.
func (s *sinks) begin(ctx context.Context, meta sim.Meta, tuning vehicle.Tuning) error {
	runID := meta.SimulationID
	if s.recorder != nil {
		id, err := s.recorder.Begin(ctx, meta.SimulationID, meta.TimeStep, tuning)
		if err != nil {
			return err
		}
		runID = id
	}
	if s.influx != nil {
		s.influx.SetRun(runID, meta.SimulationID, tuning.Name, time.Now().UTC())
	}
	return nil
}

func (s *sinks) runID() string {
	if s.recorder == nil {
		return ""
	}
	return s.recorder.RunID()
}

// abort closes whatever was opened when the run never starts.
func (s *sinks) abort() {
	if s.recorder != nil {
		_ = s.recorder.Close()
	}
	if s.influx != nil {
		_ = s.influx.Close()
	}
	if s.metrics != nil {
		_ = s.metrics.Close()
	}
}

// logMetrics collects the run's instruments once, before the sinks close,
// and logs every data point.
func logMetrics(ctx context.Context, p *otel.Provider, logger *slog.Logger) {
	rm, err := p.Collect(ctx)
	if err != nil {
		logger.Warn("collecting metrics failed", "error", err)
		return
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch d := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range d.DataPoints {
					logger.Info("run metric", "name", m.Name, "value", dp.Value)
				}
			case metricdata.Gauge[int64]:
				for _, dp := range d.DataPoints {
					logger.Info("run metric", "name", m.Name, "value", dp.Value)
				}
			case metricdata.Gauge[float64]:
				for _, dp := range d.DataPoints {
					logger.Info("run metric", "name", m.Name, "value", dp.Value)
				}
			}
		}
	}
}

// writeOutputs renders the engine note and the chart when asked for.
func writeOutputs(f flags, simLog sim.Log, logger *slog.Logger) error {
	audioCfg := config.GetAudioConfig()
	if f.audio != "" {
		audioCfg.Output = f.audio
		audioCfg.Enabled = true
	}
	if audioCfg.Enabled {
		fh, err := os.Create(audioCfg.Output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", audioCfg.Output, err)
		}
		if err := audio.Render(fh, simLog.Output, audioCfg); err != nil {
			fh.Close()
			return fmt.Errorf("rendering engine note: %w", err)
		}
		if err := fh.Close(); err != nil {
			return err
		}
		logger.Info("engine note written", "path", audioCfg.Output)
	}

	if f.chart != "" {
		opts := chart.Options{Title: fmt.Sprintf("%s (%s)", simLog.Meta.SimulationID, simLog.Vehicle)}
		if err := chart.Save(f.chart, simLog.Output, nil, opts); err != nil {
			return fmt.Errorf("rendering chart: %w", err)
		}
		logger.Info("chart written", "path", f.chart)
	}
	return nil
}
