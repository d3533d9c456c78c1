package chart

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"

	"github.com/cxd309/vds-engine/internal/telemetry"
)

func frames(n int) []telemetry.Frame {
	out := make([]telemetry.Frame, n)
	for i := range out {
		t := float64(i) * 0.1
		out[i] = telemetry.Frame{
			Time:     t,
			SpeedKMH: t * 10,
			RPM:      1000 + t*500,
			Gear:     1 + i/10,
			Clutch:   1,
			Throttle: 1,
			SlipMax:  0.1,
			LateralG: 0.2,
		}
	}
	return out
}

func TestRenderWritesPNG(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, frames(50), nil, Options{Title: "test", Width: 4 * vg.Inch, PanelHeight: vg.Inch, DPI: 100})
	require.NoError(t, err)

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.InDelta(t, 400, img.Bounds().Dx(), 1)
	assert.InDelta(t, 600, img.Bounds().Dy(), 1)
}

func TestRenderNoFrames(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, Render(&buf, nil, nil, Options{}), ErrNoFrames)
	assert.Zero(t, buf.Len())
}

func TestXYsFollowTime(t *testing.T) {
	fs := frames(3)
	rpm := DefaultPanels()[1].Series[0]
	pts := XYs(fs, rpm)
	require.Len(t, pts, 3)
	assert.InDelta(t, 0.2, pts[2].X, 1e-9)
	assert.InDelta(t, 1100, pts[2].Y, 1e-9)
}

func TestSaveCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "run.png")
	custom := []Panel{{Title: "Gear", Series: []Series{
		{Name: "gear", Value: func(f telemetry.Frame) float64 { return float64(f.Gear) }},
	}}}
	require.NoError(t, Save(path, frames(20), custom, Options{}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
