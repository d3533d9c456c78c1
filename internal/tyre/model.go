package tyre

import (
	"math"

	"github.com/cxd309/vds-engine/internal/num"
	"github.com/cxd309/vds-engine/internal/tick"
)

// Wheel is the per-wheel input the model needs each tick.
type Wheel struct {
	Front       bool
	Steered     bool
	ForwardSlip float64 // slip ratio read back from the contact proxy
	LateralSlip float64 // slip-angle tangent read back from the contact proxy
	Grip        float64 // load multiplier from weight transfer, 1 = static
}

// Friction is the curve pair written to one contact proxy.
type Friction struct {
	Forward  FrictionCurve `json:"forward"`
	Sideways FrictionCurve `json:"sideways"`
}

// Model holds the tyre tuning and per-wheel temperatures.
type Model struct {
	cfg   Config
	temps []float64
}

// New returns a model for n wheels at ambient temperature.
func New(cfg Config, n int) *Model {
	cfg.Validate()
	temps := make([]float64, n)
	for i := range temps {
		temps[i] = cfg.Temperature.Ambient
	}
	return &Model{cfg: cfg, temps: temps}
}

// Config returns the validated tuning.
func (m *Model) Config() Config { return m.cfg }

// Temperature returns wheel i's temperature in °C.
func (m *Model) Temperature(i int) float64 {
	if i < 0 || i >= len(m.temps) {
		return m.cfg.Temperature.Ambient
	}
	return m.temps[i]
}

// TemperatureGrip is the grip factor for wheel i: 1 at optimum, falling
// symmetrically either side, floored at MinGrip. Always 1 when disabled.
func (m *Model) TemperatureGrip(i int) float64 {
	t := m.cfg.Temperature
	if !t.Enabled {
		return 1
	}
	g := 1 - math.Abs(m.Temperature(i)-t.Optimum)/t.Window*t.MaxPenalty
	return num.Clamp(g, t.MinGrip, 1)
}

// PressureGrip is the grip factor from inflation pressure.
func (m *Model) PressureGrip() float64 {
	p := m.cfg.Pressure
	if !p.Enabled {
		return 1
	}
	return num.Clamp(p.PSI/p.GripRef, 0.9, 1.1)
}

// Responsiveness is the turn-in factor from inflation pressure.
func (m *Model) Responsiveness() float64 {
	p := m.cfg.Pressure
	if !p.Enabled {
		return 1
	}
	return num.Clamp(p.PSI/p.ResponseRef, 0.8, 1.2)
}

// SetPressure changes inflation pressure at runtime.
func (m *Model) SetPressure(psi float64) {
	m.cfg.Pressure.PSI = num.Clamp(psi, 15, 50)
}

// frontDriftShare is how much of the drift multiplier reaches the front axle
// when full drift is off.
const frontDriftShare = 0.25

// DriftFactor is the lateral multiplier for a wheel while the handbrake is held.
func (m *Model) DriftFactor(front bool) float64 {
	d := m.cfg.DriftMultiplier
	if front && !m.cfg.FullDrift {
		return num.Lerp(1, d, frontDriftShare)
	}
	return d
}

// TugFactor is the lateral stiffness factor for a steered front wheel
// spinning at forwardSlip.
func (m *Model) TugFactor(forwardSlip float64) float64 {
	tug := m.cfg.Tug
	if !tug.Enabled {
		return 1
	}
	excess := math.Abs(forwardSlip) - tug.SlipThreshold
	if excess <= 0 {
		return 1
	}
	return num.Lerp(1, tug.Reduction, excess/tug.Ramp)
}

// Update heats and cools the tyres and returns the curve pair for each wheel.
func (m *Model) Update(ctx tick.Context, rwd bool, wheels []Wheel) []Friction {
	if len(m.temps) < len(wheels) {
		grown := make([]float64, len(wheels))
		copy(grown, m.temps)
		for i := len(m.temps); i < len(wheels); i++ {
			grown[i] = m.cfg.Temperature.Ambient
		}
		m.temps = grown
	}
	m.updateTemperatures(ctx, wheels)

	long := m.cfg.Longitudinal
	lat := m.cfg.Lateral.Curve()
	pressure := m.PressureGrip()
	response := m.Responsiveness()

	out := make([]Friction, len(wheels))
	for i, w := range wheels {
		grip := num.Clamp(num.Finite(w.Grip, 1), 0, 2) * m.TemperatureGrip(i) * pressure
		if rwd && !w.Front {
			grip *= m.cfg.RearGripMultiplier
		}

		fwd := long.Scaled(grip)
		side := lat.Scaled(grip)
		side.Stiffness *= response
		if ctx.Handbrake {
			side.Stiffness *= m.DriftFactor(w.Front)
		}
		if w.Front && w.Steered {
			side.Stiffness *= m.TugFactor(w.ForwardSlip)
		}
		out[i] = Friction{Forward: fwd, Sideways: side}
	}
	return out
}

func (m *Model) updateTemperatures(ctx tick.Context, wheels []Wheel) {
	t := m.cfg.Temperature
	if !t.Enabled {
		return
	}
	for i, w := range wheels {
		slip := math.Max(math.Abs(w.ForwardSlip), math.Abs(w.LateralSlip))
		temp := m.temps[i] + num.Finite(slip, 0)*ctx.SpeedNorm*t.HeatRate*ctx.Dt
		temp = num.Approach(temp, t.Ambient, t.CoolRate, ctx.Dt)
		m.temps[i] = num.Clamp(temp, t.Ambient-10, 150)
	}
}
