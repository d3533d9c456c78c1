// Package audio synthesises an engine note from a recorded RPM track and
// renders it to WAV.
package audio

import (
	"errors"
	"io"
	"math"
	"sort"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/wav"

	"github.com/cxd309/vds-engine/internal/config"
	"github.com/cxd309/vds-engine/internal/telemetry"
)

// ErrEmptyTrack is returned when there is nothing to render.
var ErrEmptyTrack = errors.New("audio: empty rpm track")

// Point is one sample of the engine state.
type Point struct {
	Time     float64 // seconds
	RPM      float64
	Throttle float64 // 0..1
}

// Track extracts the engine state from recorded frames.
func Track(frames []telemetry.Frame) []Point {
	track := make([]Point, len(frames))
	for i, f := range frames {
		track[i] = Point{Time: f.Time, RPM: f.RPM, Throttle: f.Throttle}
	}
	return track
}

// FiringFrequency is the combustion pulse rate of a four-stroke engine in Hz.
func FiringFrequency(rpm float64, cylinders int) float64 {
	return rpm / 60 * float64(cylinders) / 2
}

// engineNote is a beep.Streamer following the track.
type engineNote struct {
	track     []Point
	rate      beep.SampleRate
	cylinders int
	position  int
	total     int
	phase     float64 // cycles at half the firing rate, wrapped to [0, 1)
}

// NewEngineNote returns a streamer lasting as long as the track.
func NewEngineNote(track []Point, rate beep.SampleRate, cylinders int) (beep.Streamer, error) {
	if len(track) == 0 {
		return nil, ErrEmptyTrack
	}
	sorted := append([]Point(nil), track...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })
	if cylinders <= 0 {
		cylinders = 4
	}
	end := sorted[len(sorted)-1].Time
	return &engineNote{
		track:     sorted,
		rate:      rate,
		cylinders: cylinders,
		total:     rate.N(time.Duration(end * float64(time.Second))),
	}, nil
}

// at interpolates the track at t seconds.
func (e *engineNote) at(t float64) Point {
	tr := e.track
	i := sort.Search(len(tr), func(i int) bool { return tr[i].Time > t })
	switch {
	case i == 0:
		return tr[0]
	case i == len(tr):
		return tr[len(tr)-1]
	}
	a, b := tr[i-1], tr[i]
	f := (t - a.Time) / (b.Time - a.Time)
	return Point{
		Time:     t,
		RPM:      a.RPM + (b.RPM-a.RPM)*f,
		Throttle: a.Throttle + (b.Throttle-a.Throttle)*f,
	}
}

func (e *engineNote) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if e.position >= e.total {
			return i, i > 0
		}
		p := e.at(float64(e.position) / float64(e.rate))
		load := 0.35 + 0.65*math.Max(0, math.Min(1, p.Throttle))

		x := 2 * math.Pi * e.phase
		saw := 2*math.Mod(2*e.phase, 1) - 1
		v := 0.55*math.Sin(2*x) + 0.25*math.Sin(4*x) + 0.12*math.Sin(x) + 0.08*saw
		v = math.Max(-1, math.Min(1, v*load))

		samples[i][0] = v
		samples[i][1] = v

		e.phase += FiringFrequency(p.RPM, e.cylinders) / float64(e.rate) / 2
		e.phase -= math.Floor(e.phase)
		e.position++
	}
	return len(samples), true
}

func (e *engineNote) Err() error { return nil }

// withVolume scales s by a linear gain; zero or less is silent.
func withVolume(s beep.Streamer, gain float64) beep.Streamer {
	if gain <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Volume: 0, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(gain)}
}

// Render encodes the engine note for frames as 16-bit stereo WAV.
func Render(w io.WriteSeeker, frames []telemetry.Frame, cfg config.AudioConfig) error {
	rate := beep.SampleRate(cfg.SampleRate)
	if rate <= 0 {
		rate = 44100
	}
	note, err := NewEngineNote(Track(frames), rate, cfg.Cylinders)
	if err != nil {
		return err
	}
	format := beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2}
	return wav.Encode(w, withVolume(note, cfg.Volume), format)
}
