// Package recorder stores runs and their telemetry frames in a relational
// database through gorm. Postgres is used when configured and reachable;
// otherwise runs go to a local SQLite file.
package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/cxd309/vds-engine/internal/config"
	"github.com/cxd309/vds-engine/internal/telemetry"
	"github.com/cxd309/vds-engine/internal/vehicle"
)

// ErrNoRun is returned when frames are recorded before Begin.
var ErrNoRun = errors.New("recorder: no run started")

const defaultBatchSize = 500

// Recorder is a telemetry.Sink writing to the database. Frames are buffered
// and written in batches.
type Recorder struct {
	DB        *gorm.DB
	Logger    zerolog.Logger
	IsLocal   bool // true when writing to SQLite
	batchSize int

	run     *Run
	pending []Sample
}

var _ telemetry.Sink = (*Recorder)(nil)

// Open connects to the backend named by cfg.Type and migrates the schema.
// A postgres backend that cannot be reached falls back to SQLite.
func Open(cfg config.StorageConfig, log zerolog.Logger) (*Recorder, error) {
	r := &Recorder{Logger: log, batchSize: cfg.BatchSize}
	if r.batchSize <= 0 {
		r.batchSize = defaultBatchSize
	}

	var err error
	switch cfg.Type {
	case "postgres":
		r.DB, err = openPostgres(cfg.Postgres)
		if err != nil {
			log.Error().Err(err).Msg("Failed to connect to Postgres, falling back to SQLite")
			r.DB, err = openSQLite(cfg.SQLite.Path)
			r.IsLocal = true
		}
	case "sqlite", "":
		r.DB, err = openSQLite(cfg.SQLite.Path)
		r.IsLocal = true
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if r.IsLocal {
		log.Info().Str("path", cfg.SQLite.Path).Msg("Using local SQLite DB")
	} else {
		log.Info().Str("host", cfg.Postgres.Host).Msg("Connected to Postgres")
	}

	if err := r.DB.AutoMigrate(DatabaseModels...); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return r, nil
}

func openPostgres(cfg config.PostgresConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s connect_timeout=5",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, cfg.SSLMode)
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
}

func openSQLite(path string) (*gorm.DB, error) {
	if path == "" {
		path = "file::memory:?cache=shared"
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA foreign_keys = ON;",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}
	return db, nil
}

// Begin creates the run row that following frames attach to.
func (r *Recorder) Begin(ctx context.Context, simulationID string, timeStep float64, tuning vehicle.Tuning) (string, error) {
	if err := r.flush(ctx); err != nil {
		return "", err
	}
	snapshot, err := json.Marshal(tuning)
	if err != nil {
		return "", fmt.Errorf("encoding tuning: %w", err)
	}
	run := &Run{
		ID:           "run_" + uuid.NewString(),
		SimulationID: simulationID,
		Vehicle:      tuning.Name,
		TimeStep:     timeStep,
		Tuning:       datatypes.JSON(snapshot),
		StartedAt:    time.Now().UTC(),
	}
	if err := r.DB.WithContext(ctx).Create(run).Error; err != nil {
		return "", fmt.Errorf("creating run: %w", err)
	}
	r.run = run
	r.Logger.Debug().Str("run", run.ID).Str("simulation_id", simulationID).Msg("Run started")
	return run.ID, nil
}

// RunID returns the current run's id, or "" before Begin.
func (r *Recorder) RunID() string {
	if r.run == nil {
		return ""
	}
	return r.run.ID
}

// Record buffers f and writes a batch once enough frames are pending.
func (r *Recorder) Record(ctx context.Context, f telemetry.Frame) error {
	if r.run == nil {
		return ErrNoRun
	}
	s, err := newSample(r.run.ID, f)
	if err != nil {
		return fmt.Errorf("encoding frame at t=%.2f: %w", f.Time, err)
	}
	r.pending = append(r.pending, s)
	r.run.Frames++
	if len(r.pending) >= r.batchSize {
		return r.flush(ctx)
	}
	return nil
}

func (r *Recorder) flush(ctx context.Context) error {
	if len(r.pending) == 0 {
		return nil
	}
	start := time.Now()
	if err := r.DB.WithContext(ctx).Omit(clause.Associations).CreateInBatches(r.pending, r.batchSize).Error; err != nil {
		return fmt.Errorf("writing %d samples: %w", len(r.pending), err)
	}
	r.Logger.Debug().Int("samples", len(r.pending)).Dur("duration", time.Since(start)).Msg("Flushed samples")
	r.pending = r.pending[:0]
	return nil
}

// Finish writes pending frames and stamps the run as complete.
func (r *Recorder) Finish(ctx context.Context) error {
	if r.run == nil {
		return nil
	}
	if err := r.flush(ctx); err != nil {
		return err
	}
	now := time.Now().UTC()
	err := r.DB.WithContext(ctx).Model(r.run).Updates(map[string]any{
		"finished_at": now,
		"frames":      r.run.Frames,
	}).Error
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", r.run.ID, err)
	}
	r.Logger.Info().Str("run", r.run.ID).Int("frames", r.run.Frames).Msg("Run recorded")
	r.run = nil
	return nil
}

// Close finishes the current run and closes the connection.
func (r *Recorder) Close() error {
	err := r.Finish(context.Background())
	sqlDB, dbErr := r.DB.DB()
	if dbErr != nil {
		return errors.Join(err, dbErr)
	}
	return errors.Join(err, sqlDB.Close())
}

// Runs lists recorded runs, newest first.
func (r *Recorder) Runs(ctx context.Context) ([]Run, error) {
	var runs []Run
	err := r.DB.WithContext(ctx).Order("started_at desc").Find(&runs).Error
	return runs, err
}

// Frames loads a run's frames in time order.
func (r *Recorder) Frames(ctx context.Context, runID string) ([]telemetry.Frame, error) {
	var samples []Sample
	err := r.DB.WithContext(ctx).Where("run_id = ?", runID).Order("time asc").Find(&samples).Error
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", runID, err)
	}
	frames := make([]telemetry.Frame, 0, len(samples))
	for _, s := range samples {
		f, err := s.Frame()
		if err != nil {
			return nil, fmt.Errorf("decoding sample %d: %w", s.ID, err)
		}
		frames = append(frames, f)
	}
	return frames, nil
}

// Tuning decodes a run's tuning snapshot.
func (r *Recorder) Tuning(ctx context.Context, runID string) (vehicle.Tuning, error) {
	var run Run
	if err := r.DB.WithContext(ctx).First(&run, "id = ?", runID).Error; err != nil {
		return vehicle.Tuning{}, fmt.Errorf("loading run %s: %w", runID, err)
	}
	var t vehicle.Tuning
	if err := json.Unmarshal(run.Tuning, &t); err != nil {
		return vehicle.Tuning{}, fmt.Errorf("decoding tuning of run %s: %w", runID, err)
	}
	return t, nil
}
