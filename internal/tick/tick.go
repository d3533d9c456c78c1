// Package tick defines the read-only context handed to every vehicle
// component once per simulation step.
package tick

// Gravity is standard gravity, m/s².
const Gravity = 9.81

// Context is a snapshot of vehicle-level quantities at the start of a tick.
// Components read it and never write back into it.
type Context struct {
	Dt        float64 // seconds
	Speed     float64 // signed forward speed, m/s
	SpeedNorm float64 // |speed| / top speed, 0..1
	Throttle  float64 // 0..1
	Brake     float64 // 0..1
	Steer     float64 // -1..1
	Handbrake bool

	LongitudinalG float64 // previous tick, positive when accelerating
	LateralG      float64 // previous tick, positive toward the right
	WeightShift   float64 // lateral load transfer, percent
}

// Braking reports whether the driver is applying the service brake.
func (c Context) Braking() bool { return c.Brake > 0.05 }
