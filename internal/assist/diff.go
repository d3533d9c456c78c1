package assist

import (
	"math"

	"github.com/cxd309/vds-engine/internal/num"
	"github.com/cxd309/vds-engine/internal/transmission"
)

// DiffConfig tunes the limited-slip differentials.
type DiffConfig struct {
	AccelLock float64 `json:"accel_lock" mapstructure:"accel_lock"` // 0 open..1 locked, under power
	DecelLock float64 `json:"decel_lock" mapstructure:"decel_lock"` // 0 open..1 locked, on overrun
	FrontBias float64 `json:"front_bias" mapstructure:"front_bias"` // AWD share to the front axle
}

// Wheel identifies one driven wheel and its spin for the split.
type Wheel struct {
	Front bool
	Left  bool
	Omega float64 // rad/s
}

// Differential routes axle torque to the wheels.
type Differential struct {
	cfg DiffConfig
}

// NewDifferential returns a differential for cfg.
func NewDifferential(cfg DiffConfig) *Differential {
	cfg.AccelLock = num.Clamp01(cfg.AccelLock)
	cfg.DecelLock = num.Clamp01(cfg.DecelLock)
	if cfg.FrontBias <= 0 || cfg.FrontBias >= 1 {
		cfg.FrontBias = 0.4
	}
	return &Differential{cfg: cfg}
}

// Split distributes torque over wheels for the drivetrain. Undriven wheels
// get zero. Each driven axle shares its torque between left and right, biased
// toward the slower wheel by the lock ratio. The outputs sum to torque.
func (d *Differential) Split(torque float64, layout transmission.Drivetrain, wheels []Wheel) []float64 {
	out := make([]float64, len(wheels))
	frontShare := 0.0
	switch layout {
	case transmission.FWD:
		frontShare = 1
	case transmission.AWD:
		frontShare = d.cfg.FrontBias
	}

	lock := d.cfg.AccelLock
	if torque < 0 {
		lock = d.cfg.DecelLock
	}

	for _, front := range []bool{true, false} {
		share := frontShare
		if !front {
			share = 1 - frontShare
		}
		if share == 0 {
			continue
		}
		d.splitAxle(torque*share, lock, front, wheels, out)
	}
	return out
}

func (d *Differential) splitAxle(torque, lock float64, front bool, wheels []Wheel, out []float64) {
	left, right := -1, -1
	var driven []int
	for i, w := range wheels {
		if w.Front != front {
			continue
		}
		driven = append(driven, i)
		if w.Left && left < 0 {
			left = i
		} else if !w.Left && right < 0 {
			right = i
		}
	}
	switch {
	case len(driven) == 0:
		return
	case left < 0 || right < 0 || len(driven) != 2:
		for _, i := range driven {
			out[i] = torque / float64(len(driven))
		}
		return
	}

	wl, wr := math.Abs(wheels[left].Omega), math.Abs(wheels[right].Omega)
	delta := num.SafeDiv(wl-wr, wl+wr, 0) // positive when the left wheel is faster
	leftShare := num.Clamp01(0.5 - 0.5*lock*delta)
	out[left] = torque * leftShare
	out[right] = torque * (1 - leftShare)
}
