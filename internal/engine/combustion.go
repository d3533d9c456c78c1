package engine

import (
	"fmt"
	"math"
)

// Combustion is a procedural internal-combustion torque curve shaped by idle,
// peak-torque, peak-power and redline anchors. Above the peak-torque RPM the
// curve is capped by peak power, so the configured torque and power peaks are
// both reached and neither is exceeded.
type Combustion struct {
	peakTorque    float64 // N·m
	peakTorqueRPM float64
	peakPower     float64 // W
	curve         *torqueCurve
}

// NewCombustion builds the torque curve from cfg.
func NewCombustion(cfg Config) (*Combustion, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Type != TypeCombustion {
		return nil, fmt.Errorf("%w: combustion model built from %q config", ErrInvalidConfig, cfg.Type)
	}

	t := cfg.PeakTorque
	p := cfg.PeakPower * 1000
	// Torque at the power peak, never above the torque peak.
	tp := math.Min(p/rpmToRadPerSec(cfg.PeakPowerRPM), t)

	x := []float64{
		cfg.IdleRPM * 0.5,
		cfg.IdleRPM,
		(cfg.IdleRPM + cfg.PeakTorqueRPM) / 2,
		cfg.PeakTorqueRPM,
		(cfg.PeakTorqueRPM + cfg.PeakPowerRPM) / 2,
		cfg.PeakPowerRPM,
		cfg.MaxRPM,
	}
	y := []float64{
		t * 0.2,
		t * 0.45,
		t * 0.85,
		t,
		(t + tp) / 2,
		tp,
		tp * 0.75,
	}
	return &Combustion{
		peakTorque:    t,
		peakTorqueRPM: cfg.PeakTorqueRPM,
		peakPower:     p,
		curve:         newTorqueCurve(x, y),
	}, nil
}

func (c *Combustion) Type() Type          { return TypeCombustion }
func (c *Combustion) PeakTorque() float64 { return c.peakTorque }

func (c *Combustion) Torque(rpm, throttle float64) float64 {
	rpm = math.Max(rpm, 0)
	tq := c.curve.at(rpm)
	if rpm > c.peakTorqueRPM {
		tq = math.Min(tq, c.peakPower/rpmToRadPerSec(rpm))
	}
	return tq * clampThrottle(throttle)
}
