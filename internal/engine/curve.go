package engine

import "gonum.org/v1/gonum/interp"

// torqueCurve interpolates torque anchors with a monotone piecewise cubic.
// It never overshoots its anchors, so the largest anchor is the largest
// value anywhere on the curve, and it holds the end values outside them.
type torqueCurve struct {
	lo, hi float64
	fb     interp.FritschButland
}

// newTorqueCurve fits rpm (strictly increasing) to torque.
func newTorqueCurve(rpm, torque []float64) *torqueCurve {
	c := &torqueCurve{lo: rpm[0], hi: rpm[len(rpm)-1]}
	_ = c.fb.Fit(rpm, torque)
	return c
}

func (c *torqueCurve) at(rpm float64) float64 {
	if rpm < c.lo {
		rpm = c.lo
	} else if rpm > c.hi {
		rpm = c.hi
	}
	return c.fb.Predict(rpm)
}
