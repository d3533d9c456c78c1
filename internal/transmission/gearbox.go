// Package transmission implements the automatic gearbox: the
// Neutral/Drive/Reverse state machine, clutch engagement and the shift
// schedule with hysteresis.
package transmission

import (
	"math"
	"strconv"

	"github.com/cxd309/vds-engine/internal/num"
	"github.com/cxd309/vds-engine/internal/tick"
)

// Gear numbers outside the forward range.
const (
	Reverse = -1
	Neutral = 0
)

// Mode describes which side of the gate the box is in.
type Mode string

const (
	ModeReverse Mode = "reverse"
	ModeNeutral Mode = "neutral"
	ModeDrive   Mode = "drive"
)

const (
	inputThreshold = 0.1 // axis magnitude that counts as a request
	stoppedSpeed   = 0.5 // m/s
	launchSpeed    = 2   // m/s, below this braking opens the clutch
)

// Gearbox holds the live gear, clutch and shift timers.
type Gearbox struct {
	cfg         Config
	gear        int
	clutch      float64
	shiftTimer  float64
	sinceShift  float64
	justShifted bool
}

// New validates cfg and returns a gearbox in neutral with the clutch open.
func New(cfg Config) (*Gearbox, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Gearbox{cfg: cfg, gear: Neutral, sinceShift: cfg.ShiftCooldown}, nil
}

func (g *Gearbox) Config() Config      { return g.cfg }
func (g *Gearbox) Gear() int           { return g.gear }
func (g *Gearbox) Clutch() float64     { return g.clutch }
func (g *Gearbox) Shifting() bool      { return g.shiftTimer > 0 }
func (g *Gearbox) JustShifted() bool   { return g.justShifted }
func (g *Gearbox) NumGears() int       { return len(g.cfg.GearRatios) }
func (g *Gearbox) Efficiency() float64 { return g.cfg.Efficiency }

// Mode returns the gate position of the current gear.
func (g *Gearbox) Mode() Mode {
	switch {
	case g.gear == Reverse:
		return ModeReverse
	case g.gear == Neutral:
		return ModeNeutral
	default:
		return ModeDrive
	}
}

// RatioFor returns the gearbox ratio of gear, negative for reverse and zero
// for neutral or a gear outside the table.
func (g *Gearbox) RatioFor(gear int) float64 {
	switch {
	case gear == Reverse:
		return -g.cfg.ReverseRatio
	case gear >= 1 && gear <= len(g.cfg.GearRatios):
		return g.cfg.GearRatios[gear-1]
	default:
		return 0
	}
}

// TotalRatioFor returns the gear ratio times the final drive.
func (g *Gearbox) TotalRatioFor(gear int) float64 {
	return g.RatioFor(gear) * g.cfg.FinalDrive
}

// TotalRatio returns the ratio between crank and wheel for the current gear.
func (g *Gearbox) TotalRatio() float64 { return g.TotalRatioFor(g.gear) }

// SpeedToRPM converts road speed to crank RPM through totalRatio.
func SpeedToRPM(speed, totalRatio, wheelRadius float64) float64 {
	wheelRPM := num.SafeDiv(math.Abs(speed), 2*math.Pi*wheelRadius, 0) * 60
	return wheelRPM * math.Abs(totalRatio)
}

// GearDisplay is the driver-facing gear label: R, N or the gear number.
func (g *Gearbox) GearDisplay() string {
	switch g.gear {
	case Reverse:
		return "R"
	case Neutral:
		return "N"
	default:
		return strconv.Itoa(g.gear)
	}
}

// HandleInput applies the driver-requested gate changes. axis is the combined
// throttle/brake axis and speed is signed forward speed in m/s.
func (g *Gearbox) HandleInput(axis, speed float64) {
	if g.shiftTimer > 0 {
		return
	}
	stopped := math.Abs(speed) < stoppedSpeed
	forward := axis > inputThreshold
	backward := axis < -inputThreshold

	switch g.Mode() {
	case ModeNeutral:
		switch {
		case forward && speed > -stoppedSpeed:
			g.gear = g.gearForSpeed(speed)
		case backward && stopped:
			g.gear = Reverse
		}
	case ModeDrive:
		if backward && stopped {
			g.gear = Reverse
		}
	case ModeReverse:
		if forward && stopped {
			g.gear = 1
		}
	}
}

// gearForSpeed picks the lowest forward gear that keeps the crank below the
// upshift point at speed.
func (g *Gearbox) gearForSpeed(speed float64) int {
	for gear := 1; gear < len(g.cfg.GearRatios); gear++ {
		if SpeedToRPM(speed, g.TotalRatioFor(gear), g.cfg.WheelRadius) < g.cfg.UpshiftRPM {
			return gear
		}
	}
	return len(g.cfg.GearRatios)
}

// Update advances shift timers, runs the automatic shift schedule and moves
// the clutch toward its target at a bounded rate.
func (g *Gearbox) Update(ctx tick.Context, rpm float64) {
	dt := ctx.Dt
	g.justShifted = false
	g.sinceShift += dt

	if g.shiftTimer > 0 {
		g.shiftTimer -= dt
		g.clutch = num.MoveTowards(g.clutch, g.cfg.ShiftClutch, g.cfg.ShiftClutchRate*dt)
		if g.shiftTimer <= 0 {
			g.shiftTimer = 0
			g.justShifted = true
		}
		return
	}

	if g.autoShift(ctx, rpm) {
		return
	}
	target := ClutchTarget(g.gear, ctx.Speed, ctx.Throttle, ctx.Braking())
	g.clutch = num.Clamp01(num.MoveTowards(g.clutch, target, g.cfg.ClutchRate*dt))
}

// autoShift starts at most one shift and reports whether it did.
func (g *Gearbox) autoShift(ctx tick.Context, rpm float64) bool {
	if g.gear < 1 {
		return false
	}
	speed := math.Abs(ctx.Speed)

	if g.gear > 1 && speed < stoppedSpeed {
		g.shiftTo(1)
		return true
	}
	if g.sinceShift < g.cfg.ShiftCooldown {
		return false
	}

	if g.gear < len(g.cfg.GearRatios) &&
		rpm > g.cfg.UpshiftRPM &&
		speed > g.cfg.MinShiftSpeed &&
		ctx.Throttle > g.cfg.ShiftThrottle &&
		!ctx.Braking() {
		g.shiftTo(g.gear + 1)
		return true
	}

	if g.gear > 1 && rpm < g.cfg.DownshiftRPM && speed > launchSpeed {
		projected := SpeedToRPM(speed, g.TotalRatioFor(g.gear-1), g.cfg.WheelRadius)
		if projected < g.cfg.UpshiftRPM-g.cfg.DownshiftMargin {
			g.shiftTo(g.gear - 1)
			return true
		}
	}
	return false
}

func (g *Gearbox) shiftTo(gear int) {
	g.gear = gear
	g.shiftTimer = g.cfg.ShiftTime
	g.sinceShift = 0
	if g.shiftTimer == 0 {
		g.justShifted = true
	}
}

// ClutchTarget returns the engagement the clutch should settle at: open in
// neutral, slipping through launch, and fully closed once rolling.
func ClutchTarget(gear int, speed, throttle float64, braking bool) float64 {
	if gear == Neutral {
		return 0
	}
	v := math.Abs(speed)
	switch {
	case braking && v < launchSpeed:
		return 0.2
	case v < 1:
		return 0.3 + 0.4*throttle
	case v < 5:
		return num.Lerp(0.5+0.3*throttle, 1, num.InverseLerp(1, 5, v))
	default:
		return 1
	}
}

// State is a point-in-time snapshot of the gearbox.
type State struct {
	Gear        int     `json:"gear"`
	Display     string  `json:"display"`
	Mode        Mode    `json:"mode"`
	Clutch      float64 `json:"clutch"`
	ShiftTimer  float64 `json:"shift_timer"`
	TotalRatio  float64 `json:"total_ratio"`
	JustShifted bool    `json:"just_shifted"`
}

// State returns a snapshot for telemetry.
func (g *Gearbox) State() State {
	return State{
		Gear:        g.gear,
		Display:     g.GearDisplay(),
		Mode:        g.Mode(),
		Clutch:      g.clutch,
		ShiftTimer:  g.shiftTimer,
		TotalRatio:  g.TotalRatio(),
		JustShifted: g.justShifted,
	}
}
