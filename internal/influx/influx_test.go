package influx

import (
	"bufio"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxd309/vds-engine/internal/config"
	"github.com/cxd309/vds-engine/internal/telemetry"
	"github.com/cxd309/vds-engine/internal/vehicle"
)

func testFrame(t float64) telemetry.Frame {
	return telemetry.Frame{
		Time:       t,
		Speed:      12.5,
		RPM:        3200,
		Gear:       2,
		Drivetrain: "RWD",
		Wheels: []vehicle.WheelState{
			{Name: "rear_left", ForwardSlip: 0.1, Grounded: true},
			{Name: "rear_right", ForwardSlip: 0.12, Grounded: true},
		},
	}
}

func TestPoints(t *testing.T) {
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	points := Points(testFrame(1.5), map[string]string{"run_id": "r1"}, epoch)
	require.Len(t, points, 3)

	assert.Equal(t, VehicleMeasurement, points[0].Name())
	assert.Equal(t, epoch.Add(1500*time.Millisecond), points[0].Time())
	fields := map[string]any{}
	for _, f := range points[0].FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, 12.5, fields["speed"])
	assert.EqualValues(t, 2, fields["gear"])

	tags := map[string]string{}
	for _, tag := range points[1].TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, WheelMeasurement, points[1].Name())
	assert.Equal(t, "rear_left", tags["wheel"])
	assert.Equal(t, "r1", tags["run_id"])
}

func TestConnectDisabled(t *testing.T) {
	s := New(config.InfluxConfig{}, zerolog.Nop())
	assert.Error(t, s.Connect(context.Background()))
}

func TestUnreachableServerWritesBackup(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "backup.lp.gz")
	s := New(config.InfluxConfig{
		Enabled:    true,
		Protocol:   "http",
		Host:       "127.0.0.1",
		Port:       "1",
		Org:        "vds",
		Bucket:     "vehicle_telemetry",
		BatchSize:  10,
		BackupPath: backup,
	}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Connect(ctx))
	assert.False(t, s.IsValid)

	s.SetRun("run_1", "launch", "Sportscar", time.Unix(0, 0))
	require.NoError(t, s.Record(ctx, testFrame(0)))
	require.NoError(t, s.Record(ctx, testFrame(0.02)))
	require.NoError(t, s.Close())

	f, err := os.Open(backup)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)

	var lines []string
	sc := bufio.NewScanner(zr)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "vehicle,"), lines[0])
	assert.Contains(t, lines[0], "simulation_id=launch")
	assert.Contains(t, lines[0], "speed=12.5")
	assert.True(t, strings.HasPrefix(lines[1], "wheel,"), lines[1])
	assert.Contains(t, lines[1], "wheel=rear_left")
	assert.True(t, strings.HasSuffix(lines[3], " 20000000"), lines[3])
}

func TestRecordWithoutConnect(t *testing.T) {
	s := New(config.InfluxConfig{Enabled: true}, zerolog.Nop())
	assert.Error(t, s.Record(context.Background(), testFrame(0)))
	assert.NoError(t, s.Close())
}
