package engine

import (
	"fmt"
	"math"
)

// Electric delivers constant torque up to the crossover speed where that
// torque reaches rated power, and constant power above it.
type Electric struct {
	peakTorque float64 // N·m
	peakPower  float64 // W
	crossover  float64 // rad/s
}

// NewElectric builds an electric motor model from cfg.
func NewElectric(cfg Config) (*Electric, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Type != TypeElectric {
		return nil, fmt.Errorf("%w: electric model built from %q config", ErrInvalidConfig, cfg.Type)
	}
	p := cfg.PeakPower * 1000
	return &Electric{
		peakTorque: cfg.PeakTorque,
		peakPower:  p,
		crossover:  p / cfg.PeakTorque,
	}, nil
}

func (e *Electric) Type() Type          { return TypeElectric }
func (e *Electric) PeakTorque() float64 { return e.peakTorque }

// CrossoverRPM is where delivery switches from constant torque to constant power.
func (e *Electric) CrossoverRPM() float64 { return e.crossover * 60 / (2 * math.Pi) }

func (e *Electric) Torque(rpm, throttle float64) float64 {
	w := rpmToRadPerSec(math.Abs(rpm))
	tq := e.peakTorque
	if w > e.crossover {
		tq = e.peakPower / w
	}
	return tq * clampThrottle(throttle)
}
