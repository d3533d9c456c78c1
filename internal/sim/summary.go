package sim

import (
	"math"

	"github.com/cxd309/vds-engine/internal/telemetry"
)

// Summary is the performance measured over a run.
type Summary struct {
	TopSpeed           float64 `json:"top_speed"`             // km/h
	Distance           float64 `json:"distance"`              // metres travelled
	ZeroTo100          float64 `json:"zero_to_100,omitempty"` // seconds, 0 if never reached
	PeakLateralG       float64 `json:"peak_lateral_g"`
	PeakLongitudinalG  float64 `json:"peak_longitudinal_g"`
	PeakDeceleration   float64 `json:"peak_deceleration"`              // m/s², positive
	BrakingDistance100 float64 `json:"braking_distance_100,omitempty"` // metres from 100 km/h at peak deceleration
}

const (
	restSpeed  = 1.0 / 3.6 // m/s
	speed100   = 100 / 3.6 // m/s
	minBraking = 0.5       // m/s², below this a slowdown is coasting
)

// BrakingDistance is the distance to stop from v at a constant deceleration.
func BrakingDistance(v, decel float64) float64 {
	if decel <= 0 {
		return math.Inf(1)
	}
	return v * v / (2 * decel)
}

// Summarize measures frames. Deceleration comes from frame-to-frame speed
// changes while the brake is applied.
func Summarize(frames []telemetry.Frame) Summary {
	var s Summary
	restAt := 0.0
	for i, f := range frames {
		speed := math.Abs(f.Speed)
		s.TopSpeed = math.Max(s.TopSpeed, math.Abs(f.SpeedKMH))
		s.PeakLateralG = math.Max(s.PeakLateralG, math.Abs(f.LateralG))
		s.PeakLongitudinalG = math.Max(s.PeakLongitudinalG, math.Abs(f.LongitudinalG))

		if speed < restSpeed {
			restAt = f.Time
		}
		if s.ZeroTo100 == 0 && speed >= speed100 {
			s.ZeroTo100 = f.Time - restAt
		}

		if i == 0 {
			continue
		}
		prev := frames[i-1]
		dt := f.Time - prev.Time
		if dt <= 0 {
			continue
		}
		s.Distance += (math.Abs(prev.Speed) + speed) / 2 * dt
		if f.Brake > 0 {
			decel := (math.Abs(prev.Speed) - speed) / dt
			s.PeakDeceleration = math.Max(s.PeakDeceleration, decel)
		}
	}
	if s.PeakDeceleration >= minBraking {
		s.BrakingDistance100 = BrakingDistance(speed100, s.PeakDeceleration)
	}
	return s
}
