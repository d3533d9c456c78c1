// Package tyre builds the per-wheel friction curves each tick. A curve maps
// slip to a friction coefficient; the model compounds drivetrain bias, drift,
// temperature, pressure, steering tug and axle load into each wheel's pair of
// longitudinal and lateral curves.
package tyre

import "math"

// FrictionCurve is a slip-to-friction curve: a rising arc to the peak, a smooth
// fall to the asymptote, flat beyond. The whole curve is scaled by Stiffness.
type FrictionCurve struct {
	PeakSlip       float64 `json:"peak_slip" mapstructure:"peak_slip"`
	PeakValue      float64 `json:"peak_value" mapstructure:"peak_value"`
	AsymptoteSlip  float64 `json:"asymptote_slip" mapstructure:"asymptote_slip"`
	AsymptoteValue float64 `json:"asymptote_value" mapstructure:"asymptote_value"`
	Stiffness      float64 `json:"stiffness" mapstructure:"stiffness"`
}

// normalized returns a copy that is safe to evaluate: positive slips, the
// asymptote past the peak and never above it.
func (c FrictionCurve) normalized() FrictionCurve {
	if c.PeakSlip <= 0 {
		c.PeakSlip = 1e-3
	}
	if c.AsymptoteSlip <= c.PeakSlip {
		c.AsymptoteSlip = c.PeakSlip * 2
	}
	if c.PeakValue < 0 {
		c.PeakValue = 0
	}
	c.AsymptoteValue = math.Max(0, math.Min(c.AsymptoteValue, c.PeakValue))
	if c.Stiffness < 0 {
		c.Stiffness = 0
	}
	return c
}

// Evaluate returns the friction coefficient at |slip|.
func (c FrictionCurve) Evaluate(slip float64) float64 {
	c = c.normalized()
	s := math.Abs(slip)
	if math.IsNaN(s) {
		return 0
	}
	var v float64
	switch {
	case s <= c.PeakSlip:
		u := s / c.PeakSlip
		v = c.PeakValue * u * (2 - u)
	case s < c.AsymptoteSlip:
		u := (s - c.PeakSlip) / (c.AsymptoteSlip - c.PeakSlip)
		v = c.PeakValue + (c.AsymptoteValue-c.PeakValue)*u*u*(3-2*u)
	default:
		v = c.AsymptoteValue
	}
	return v * c.Stiffness
}

// Slope returns dEvaluate/d|slip|.
func (c FrictionCurve) Slope(slip float64) float64 {
	c = c.normalized()
	s := math.Abs(slip)
	switch {
	case s <= c.PeakSlip:
		u := s / c.PeakSlip
		return c.Stiffness * c.PeakValue * 2 * (1 - u) / c.PeakSlip
	case s < c.AsymptoteSlip:
		w := c.AsymptoteSlip - c.PeakSlip
		u := (s - c.PeakSlip) / w
		return c.Stiffness * (c.AsymptoteValue - c.PeakValue) * 6 * u * (1 - u) / w
	default:
		return 0
	}
}

// Peak returns the largest coefficient the curve produces.
func (c FrictionCurve) Peak() float64 {
	c = c.normalized()
	return c.PeakValue * c.Stiffness
}

// SlipAtPeak returns the slip at which the curve peaks.
func (c FrictionCurve) SlipAtPeak() float64 { return c.normalized().PeakSlip }

// Scaled multiplies the peak and asymptote values by grip.
func (c FrictionCurve) Scaled(grip float64) FrictionCurve {
	c.PeakValue *= grip
	c.AsymptoteValue *= grip
	return c
}
