package suspension

import (
	"errors"
	"fmt"
	"math"

	"github.com/cxd309/vds-engine/internal/num"
	"github.com/cxd309/vds-engine/internal/tick"
)

// ErrInvalidMass is returned when the sprung mass is not positive.
var ErrInvalidMass = errors.New("suspension mass must be positive")

const (
	minCornerMass = 200  // kg
	minSpringRate = 1000 // N/m
)

// Spring is the per-corner parameter set written to a contact proxy.
type Spring struct {
	K      float64 `json:"k"`      // N/m
	C      float64 `json:"c"`      // N·s/m
	Target float64 `json:"target"` // 0 compressed..1 extended
}

// Model holds the configured suspension for one vehicle.
type Model struct {
	cfg         Config
	mass        float64
	frontMass   float64 // per corner
	rearMass    float64 // per corner
	frontTarget float64
	rearTarget  float64
}

// New configures a model for mass kg.
func New(cfg Config, mass float64) (*Model, error) {
	m := &Model{cfg: cfg}
	if err := m.Configure(mass, cfg.Travel, cfg.Frequency, cfg.Damping, cfg.Bias); err != nil {
		return nil, err
	}
	if m.cfg.RestTarget <= 0 || m.cfg.RestTarget > 1 {
		m.cfg.RestTarget = 0.5
	}
	m.frontTarget, m.rearTarget = m.cfg.RestTarget, m.cfg.RestTarget
	return m, nil
}

// Configure applies presets, travel and the mass split. Travel is clamped to
// [MinTravel, MaxTravel].
func (m *Model) Configure(mass, travel float64, freq FrequencyPreset, damp DampingPreset, bias MassBias) error {
	if !(mass > 0) {
		return fmt.Errorf("%w: got %.1f", ErrInvalidMass, mass)
	}
	m.cfg.Travel = num.Clamp(travel, MinTravel, MaxTravel)
	m.cfg.Frequency = freq
	m.cfg.Damping = damp
	m.cfg.Bias = bias
	m.mass = mass
	front := bias.FrontShare()
	m.frontMass = mass * front / 2
	m.rearMass = mass * (1 - front) / 2
	return nil
}

// SetMass re-splits a new mass over the existing presets.
func (m *Model) SetMass(mass float64) error {
	return m.Configure(mass, m.cfg.Travel, m.cfg.Frequency, m.cfg.Damping, m.cfg.Bias)
}

func (m *Model) Config() Config  { return m.cfg }
func (m *Model) Travel() float64 { return m.cfg.Travel }
func (m *Model) Mass() float64   { return m.mass }

// CornerMass returns the sprung mass carried by one corner, floored at 200 kg.
func (m *Model) CornerMass(front bool) float64 {
	if front {
		return math.Max(m.frontMass, minCornerMass)
	}
	return math.Max(m.rearMass, minCornerMass)
}

// Frequency returns the natural ride frequency in Hz for an axle.
func (m *Model) Frequency(front bool) float64 {
	if m.cfg.Frequency == FrequencyComfort {
		if front {
			return 1.8
		}
		return 1.5
	}
	if front {
		return 2.3
	}
	return 1.9
}

// DampingRatio returns the rebound damping ratio.
func (m *Model) DampingRatio() float64 {
	if m.cfg.Damping == DampingComfort {
		return 0.25
	}
	return 0.35
}

// Spring returns the parameters for one corner at the given lateral weight
// shift. Stiffness is m(2πf)² raised by the shift, with the damper derived
// from the critical damping of that rate.
func (m *Model) Spring(front bool, weightShift float64) Spring {
	cm := m.CornerMass(front)
	w := 2 * math.Pi * m.Frequency(front)
	k := cm*w*w + weightShift*m.cfg.WeightShiftStiffness
	k = math.Max(num.Finite(k, minSpringRate), minSpringRate)

	rebound := 2 * m.DampingRatio() * math.Sqrt(k*cm)
	c := rebound * (1 + m.cfg.BumpScale) * 0.5 * m.cfg.DamperResponse

	target := m.rearTarget
	if front {
		target = m.frontTarget
	}
	return Spring{K: k, C: c, Target: target}
}

// Update recomputes squat and dive targets from the tick's longitudinal G.
// Acceleration compresses the rear and lifts the front; braking the reverse.
func (m *Model) Update(ctx tick.Context) {
	sd := m.cfg.SquatDive
	base := m.cfg.RestTarget
	var frontAdj, rearAdj float64

	if sd.Strength > 0 && sd.FullG > 0 {
		g := ctx.LongitudinalG
		switch {
		case g > sd.Threshold:
			f := num.Clamp01(g / sd.FullG)
			rearAdj = -(base - sd.RearSquat) * f * sd.Strength
			frontAdj = sd.OppositeExtend * f * sd.Strength
		case g < -sd.Threshold:
			f := num.Clamp01(-g / sd.FullG)
			frontAdj = -(base - sd.FrontDive) * f * sd.Strength
			rearAdj = sd.OppositeExtend * f * sd.Strength
		}
	}
	m.frontTarget = num.Clamp01(base + frontAdj)
	m.rearTarget = num.Clamp01(base + rearAdj)
}

// Targets returns the current front and rear ride targets.
func (m *Model) Targets() (front, rear float64) { return m.frontTarget, m.rearTarget }
