// Package num holds the scalar helpers shared by every physics component:
// clamping, interpolation, rate-limited approach and guarded division.
package num

import "math"

// Epsilon is the smallest denominator magnitude treated as non-zero.
const Epsilon = 1e-6

// Clamp limits v to [lo, hi]. NaN collapses to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 limits v to [0, 1].
func Clamp01(v float64) float64 { return Clamp(v, 0, 1) }

// Lerp interpolates from a to b by t, with t clamped to [0, 1].
func Lerp(a, b, t float64) float64 { return a + (b-a)*Clamp01(t) }

// InverseLerp returns where v sits between a and b as a fraction in [0, 1].
// A degenerate range returns 0.
func InverseLerp(a, b, v float64) float64 {
	if math.Abs(b-a) < Epsilon {
		return 0
	}
	return Clamp01((v - a) / (b - a))
}

// MoveTowards moves current toward target by at most maxDelta.
func MoveTowards(current, target, maxDelta float64) float64 {
	if math.Abs(target-current) <= maxDelta {
		return target
	}
	if target > current {
		return current + maxDelta
	}
	return current - maxDelta
}

// Blend returns the interpolation factor for exponential smoothing at rate
// (per second) over dt seconds. Equal to 1-exp(-rate*dt), so repeated small
// steps match a single large one.
func Blend(rate, dt float64) float64 {
	if rate <= 0 || dt <= 0 {
		return 0
	}
	return 1 - math.Exp(-rate*dt)
}

// Approach smooths current toward target at rate per second.
func Approach(current, target, rate, dt float64) float64 {
	return current + (target-current)*Blend(rate, dt)
}

// SafeDiv returns a/b, or fallback when |b| is below Epsilon or the result is not finite.
func SafeDiv(a, b, fallback float64) float64 {
	if math.Abs(b) < Epsilon {
		return fallback
	}
	r := a / b
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return fallback
	}
	return r
}

// Finite replaces NaN and Inf with fallback.
func Finite(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

// Sign returns -1, 0 or 1.
func Sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
