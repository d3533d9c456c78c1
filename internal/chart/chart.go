// Package chart draws a run's frames as stacked time-series panels.
package chart

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/cxd309/vds-engine/internal/telemetry"
)

var ErrNoFrames = errors.New("no frames to plot")

// Series is one line drawn against time.
type Series struct {
	Name  string
	Value func(telemetry.Frame) float64
}

// Panel groups series that share a Y axis.
type Panel struct {
	Title  string
	YLabel string
	Series []Series
}

// DefaultPanels is speed, RPM, gear, clutch, slip and G.
func DefaultPanels() []Panel {
	return []Panel{
		{Title: "Speed", YLabel: "km/h", Series: []Series{
			{Name: "speed", Value: func(f telemetry.Frame) float64 { return f.SpeedKMH }},
		}},
		{Title: "Engine", YLabel: "rpm", Series: []Series{
			{Name: "rpm", Value: func(f telemetry.Frame) float64 { return f.RPM }},
		}},
		{Title: "Gear", YLabel: "gear", Series: []Series{
			{Name: "gear", Value: func(f telemetry.Frame) float64 { return float64(f.Gear) }},
		}},
		{Title: "Clutch", YLabel: "engagement", Series: []Series{
			{Name: "clutch", Value: func(f telemetry.Frame) float64 { return f.Clutch }},
			{Name: "throttle", Value: func(f telemetry.Frame) float64 { return f.Throttle }},
		}},
		{Title: "Slip", YLabel: "ratio", Series: []Series{
			{Name: "avg", Value: func(f telemetry.Frame) float64 { return f.SlipAvg }},
			{Name: "max", Value: func(f telemetry.Frame) float64 { return f.SlipMax }},
		}},
		{Title: "Acceleration", YLabel: "g", Series: []Series{
			{Name: "lateral", Value: func(f telemetry.Frame) float64 { return f.LateralG }},
			{Name: "longitudinal", Value: func(f telemetry.Frame) float64 { return f.LongitudinalG }},
		}},
	}
}

// Options sizes the image. Zero values take the defaults.
type Options struct {
	Title       string
	Width       vg.Length
	PanelHeight vg.Length
	DPI         int
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 8 * vg.Inch
	}
	if o.PanelHeight <= 0 {
		o.PanelHeight = 2 * vg.Inch
	}
	if o.DPI <= 0 {
		o.DPI = 96
	}
	return o
}

// XYs samples one series over frames.
func XYs(frames []telemetry.Frame, s Series) plotter.XYs {
	pts := make(plotter.XYs, len(frames))
	for i, f := range frames {
		pts[i].X = f.Time
		pts[i].Y = s.Value(f)
	}
	return pts
}

func newPlot(frames []telemetry.Frame, p Panel, last bool) (*plot.Plot, error) {
	pl := plot.New()
	pl.Title.Text = p.Title
	pl.Y.Label.Text = p.YLabel
	if last {
		pl.X.Label.Text = "time (s)"
	}
	pl.Add(plotter.NewGrid())

	for i, s := range p.Series {
		line, err := plotter.NewLine(XYs(frames, s))
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", p.Title, s.Name, err)
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = plotutil.Color(i)
		pl.Add(line)
		if len(p.Series) > 1 {
			pl.Legend.Add(s.Name, line)
		}
	}
	pl.Legend.Top = true
	return pl, nil
}

// Render draws panels stacked vertically and writes the PNG to w.
func Render(w io.Writer, frames []telemetry.Frame, panels []Panel, opts Options) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}
	if len(panels) == 0 {
		panels = DefaultPanels()
	}
	opts = opts.withDefaults()

	rows := make([][]*plot.Plot, len(panels))
	for i, p := range panels {
		pl, err := newPlot(frames, p, i == len(panels)-1)
		if err != nil {
			return err
		}
		rows[i] = []*plot.Plot{pl}
	}
	if opts.Title != "" {
		rows[0][0].Title.Text = opts.Title + ": " + rows[0][0].Title.Text
	}

	height := opts.PanelHeight * vg.Length(len(panels))
	c := vgimg.NewWith(vgimg.UseWH(opts.Width, height), vgimg.UseDPI(opts.DPI))
	dc := draw.New(c)

	tiles := draw.Tiles{
		Rows:      len(panels),
		Cols:      1,
		PadX:      vg.Millimeter,
		PadY:      vg.Millimeter,
		PadTop:    vg.Points(4),
		PadBottom: vg.Points(2),
		PadLeft:   vg.Points(2),
		PadRight:  vg.Points(6),
	}
	canvases := plot.Align(rows, tiles, dc)
	for i := range rows {
		rows[i][0].Draw(canvases[i][0])
	}

	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(w); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return nil
}

// Save renders to a file, creating its directory.
func Save(path string, frames []telemetry.Frame, panels []Panel, opts Options) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	if err := Render(f, frames, panels, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
