// Package influx streams telemetry frames to InfluxDB. When the server is
// unreachable the points are written as gzip-compressed line protocol to a
// backup file for later import.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/cxd309/vds-engine/internal/config"
	"github.com/cxd309/vds-engine/internal/telemetry"
)

// Measurement names.
const (
	VehicleMeasurement = "vehicle"
	WheelMeasurement   = "wheel"
)

const retention = 60 * 60 * 24 * 30 // seconds

// Sink is a telemetry.Sink writing to one bucket.
type Sink struct {
	Client       influxdb2.Client
	Writer       influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	Logger       zerolog.Logger

	cfg        config.InfluxConfig
	backupFile *os.File
	tags       map[string]string
	epoch      time.Time
	done       chan struct{}
}

var _ telemetry.Sink = (*Sink)(nil)

func New(cfg config.InfluxConfig, log zerolog.Logger) *Sink {
	return &Sink{
		cfg:    cfg,
		Logger: log,
		tags:   map[string]string{},
		epoch:  time.Now().UTC(),
	}
}

// Connect pings the server and prepares the bucket and write API. If the
// server cannot be reached the backup file is opened instead and Connect
// still succeeds.
func (s *Sink) Connect(ctx context.Context) error {
	if !s.cfg.Enabled {
		return errors.New("influx.enabled is false")
	}
	opts := influxdb2.DefaultOptions().SetBatchSize(uint(max(s.cfg.BatchSize, 1)))
	if s.cfg.FlushInterval > 0 {
		opts.SetFlushInterval(uint(s.cfg.FlushInterval.Milliseconds()))
	}
	s.Client = influxdb2.NewClientWithOptions(s.cfg.URL(), s.cfg.Token, opts)

	running, err := s.Client.Ping(ctx)
	if err != nil || !running {
		s.Logger.Warn().Err(err).Str("backupPath", s.cfg.BackupPath).
			Msg("InfluxDB unreachable, writing to backup file")
		return s.openBackup()
	}
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}

	s.Writer = s.Client.WriteAPI(s.cfg.Org, s.cfg.Bucket)
	s.done = make(chan struct{})
	go func(errs <-chan error) {
		defer close(s.done)
		for writeErr := range errs {
			s.Logger.Error().Err(writeErr).Str("bucket", s.cfg.Bucket).Msg("Error sending data to InfluxDB")
		}
	}(s.Writer.Errors())
	s.IsValid = true
	s.Logger.Info().Str("url", s.cfg.URL()).Str("bucket", s.cfg.Bucket).Msg("InfluxDB client initialized")
	return nil
}

func (s *Sink) openBackup() error {
	if s.BackupWriter != nil {
		return nil
	}
	file, err := os.OpenFile(s.cfg.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	s.backupFile = file
	s.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (s *Sink) ensureBucket(ctx context.Context) error {
	orgs := s.Client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, s.cfg.Org)
	if err != nil {
		s.Logger.Info().Str("org", s.cfg.Org).Msg("Organization not found, creating")
		if org, err = orgs.CreateOrganizationWithName(ctx, s.cfg.Org); err != nil {
			return fmt.Errorf("creating organization %s: %w", s.cfg.Org, err)
		}
	}
	if _, err := s.Client.BucketsAPI().FindBucketByName(ctx, s.cfg.Bucket); err == nil {
		return nil
	}
	s.Logger.Info().Str("bucket", s.cfg.Bucket).Msg("Bucket not found, creating")
	rule := domain.RetentionRuleTypeExpire
	_, err = s.Client.BucketsAPI().CreateBucketWithName(ctx, org, s.cfg.Bucket, domain.RetentionRule{
		Type:         &rule,
		EverySeconds: retention,
	})
	if err != nil {
		return fmt.Errorf("creating bucket %s: %w", s.cfg.Bucket, err)
	}
	return nil
}

// SetRun tags every following point with the run's identity. Frame times
// are offset from start.
func (s *Sink) SetRun(runID, simulationID, vehicle string, start time.Time) {
	s.tags = map[string]string{
		"run_id":        runID,
		"simulation_id": simulationID,
		"vehicle":       vehicle,
	}
	s.epoch = start.UTC()
}

// Record converts f to points and queues them.
func (s *Sink) Record(_ context.Context, f telemetry.Frame) error {
	for _, p := range Points(f, s.tags, s.epoch) {
		if err := s.writePoint(p); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sink) writePoint(p *influxdb2_write.Point) error {
	if s.IsValid {
		s.Writer.WritePoint(p)
		return nil
	}
	if s.BackupWriter == nil {
		return errors.New("influxDB client not initialized and backup writer not available")
	}
	line := influxdb2_write.PointToLineProtocol(p, time.Nanosecond)
	if _, err := s.BackupWriter.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// Close flushes queued points and releases the client and backup file.
func (s *Sink) Close() error {
	var errs []error
	if s.Writer != nil {
		s.Writer.Flush()
	}
	if s.Client != nil {
		s.Client.Close()
	}
	if s.done != nil {
		<-s.done
	}
	if s.BackupWriter != nil {
		errs = append(errs, s.BackupWriter.Close())
		errs = append(errs, s.backupFile.Close())
		s.BackupWriter = nil
	}
	return errors.Join(errs...)
}

// Points builds one vehicle point and one point per wheel for f, stamped at
// epoch plus the frame time.
func Points(f telemetry.Frame, tags map[string]string, epoch time.Time) []*influxdb2_write.Point {
	ts := epoch.Add(time.Duration(f.Time * float64(time.Second)))
	points := make([]*influxdb2_write.Point, 0, 1+len(f.Wheels))

	vp := influxdb2_write.NewPoint(VehicleMeasurement, tags, map[string]any{
		"speed":          f.Speed,
		"speed_kmh":      f.SpeedKMH,
		"rpm":            f.RPM,
		"torque":         f.Torque,
		"gear":           f.Gear,
		"clutch":         f.Clutch,
		"horsepower":     f.Horsepower,
		"throttle":       f.Throttle,
		"brake":          f.Brake,
		"steer":          f.Steer,
		"steer_angle":    f.SteerAngle,
		"handbrake":      f.Handbrake,
		"slip_avg":       f.SlipAvg,
		"slip_max":       f.SlipMax,
		"lateral_g":      f.LateralG,
		"longitudinal_g": f.LongitudinalG,
		"suspension":     f.Suspension,
		"weight_shift":   f.WeightShift,
		"x":              f.X,
		"z":              f.Z,
		"heading":        f.Heading,
	}, ts)
	if f.Drivetrain != "" {
		vp.AddTag("drivetrain", f.Drivetrain)
	}
	points = append(points, vp)

	for _, w := range f.Wheels {
		wp := influxdb2_write.NewPoint(WheelMeasurement, tags, map[string]any{
			"deflection":   w.Deflection,
			"forward_slip": w.ForwardSlip,
			"lateral_slip": w.LateralSlip,
			"grip":         w.Grip,
			"motor_torque": w.MotorTorque,
			"brake_torque": w.BrakeTorque,
			"grounded":     w.Grounded,
			"temperature":  w.Temperature,
			"rpm":          w.RPM,
		}, ts)
		wp.AddTag("wheel", w.Name)
		points = append(points, wp)
	}
	return points
}
