package engine

import (
	"math"

	"github.com/cxd309/vds-engine/internal/num"
)

// throttleDeadzone is the throttle below which the engine is treated as
// off-throttle: engine braking applies and the crank settles to its floor.
const throttleDeadzone = 0.05

// State is a point-in-time snapshot of the engine.
type State struct {
	Type    Type    `json:"type"`
	RPM     float64 `json:"rpm"`
	IdleRPM float64 `json:"idle_rpm"`
	MaxRPM  float64 `json:"max_rpm"`
	Torque  float64 `json:"torque"` // last net crank torque, N·m
	Inertia float64 `json:"inertia"`
}

// Engine holds the live crank state of one power unit. The torque strategy is
// resolved once in New and never changes.
type Engine struct {
	cfg    Config
	model  TorqueModel
	rpm    float64
	torque float64
}

// New validates cfg and returns an engine resting at its floor RPM.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	model, err := NewTorqueModel(cfg)
	if err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, model: model, rpm: cfg.Floor()}, nil
}

// Config returns the validated configuration.
func (e *Engine) Config() Config { return e.cfg }

// Model returns the torque strategy.
func (e *Engine) Model() TorqueModel { return e.model }

// RPM returns current crank speed.
func (e *Engine) RPM() float64 { return e.rpm }

// SetRPM forces the crank speed, clamped to the valid range.
func (e *Engine) SetRPM(rpm float64) { e.rpm = e.clampRPM(rpm) }

// Torque returns the last net torque computed by NetTorque.
func (e *Engine) Torque() float64 { return e.torque }

// LimiterFactor is 1 below the limiter start and falls linearly to 0 at max RPM.
func (e *Engine) LimiterFactor() float64 {
	start := e.cfg.MaxRPM * e.cfg.LimiterStart
	if e.rpm <= start {
		return 1
	}
	return num.Clamp01((e.cfg.MaxRPM - e.rpm) / (e.cfg.MaxRPM - start))
}

// Losses returns internal friction, growing with RPM², plus engine braking
// proportional to RPM above the floor when off throttle.
func (e *Engine) Losses(throttle float64) float64 {
	r := num.SafeDiv(e.rpm, e.cfg.MaxRPM, 0)
	loss := e.cfg.FrictionTorque * r * r
	if throttle < throttleDeadzone {
		floor := e.cfg.Floor()
		loss += e.cfg.EngineBrakeTorque * num.InverseLerp(floor, e.cfg.MaxRPM, e.rpm)
	}
	return loss
}

// NetTorque returns gross torque after the rev limiter minus losses, and
// records it as the engine's current output.
func (e *Engine) NetTorque(throttle float64) float64 {
	throttle = clampThrottle(throttle)
	gross := e.model.Torque(e.rpm, throttle) * e.LimiterFactor()
	e.torque = num.Finite(gross-e.Losses(throttle), 0)
	return e.torque
}

// FreeRev integrates crank speed from net torque over the unloaded inertia.
// Used when the clutch is open or the gearbox is in neutral.
func (e *Engine) FreeRev(throttle, dt float64) {
	inertia := e.cfg.Inertia * e.cfg.FreeRevInertiaScale
	alpha := num.SafeDiv(e.NetTorque(throttle), inertia, 0) // rad/s²
	e.rpm = e.clampRPM(e.rpm + alpha*radPerSecToRPM(1)*dt)
}

// FollowWheels pulls crank speed toward the RPM implied by the driven wheels
// through the total ratio. Used when the clutch is fully engaged.
func (e *Engine) FollowWheels(wheelRPM, totalRatio, dt float64) {
	target := e.clampRPM(math.Abs(wheelRPM * totalRatio))
	e.rpm = e.clampRPM(num.Approach(e.rpm, target, e.cfg.LockRate, dt))
}

// Slip free-revs the crank and then blends it toward the wheel-implied RPM in
// proportion to clutch engagement.
func (e *Engine) Slip(throttle, clutch, wheelRPM, totalRatio, dt float64) {
	e.FreeRev(throttle, dt)
	target := e.clampRPM(math.Abs(wheelRPM * totalRatio))
	blended := num.Lerp(e.rpm, target, clutch)
	e.rpm = e.clampRPM(num.Approach(e.rpm, blended, e.cfg.SlipRate, dt))
}

// Update resolves crank RPM for one tick from clutch engagement and picks the
// matching mode, then returns net torque at the new RPM.
func (e *Engine) Update(throttle, clutch, wheelRPM, totalRatio, dt float64) float64 {
	switch {
	case math.Abs(totalRatio) < num.Epsilon || clutch < 0.1:
		e.FreeRev(throttle, dt)
	case clutch > 0.9:
		e.FollowWheels(wheelRPM, totalRatio, dt)
	default:
		e.Slip(throttle, clutch, wheelRPM, totalRatio, dt)
	}
	return e.NetTorque(throttle)
}

// State returns a snapshot for telemetry.
func (e *Engine) State() State {
	return State{
		Type:    e.model.Type(),
		RPM:     e.rpm,
		IdleRPM: e.cfg.Floor(),
		MaxRPM:  e.cfg.MaxRPM,
		Torque:  e.torque,
		Inertia: e.cfg.Inertia,
	}
}

func (e *Engine) clampRPM(rpm float64) float64 {
	return num.Clamp(rpm, e.cfg.Floor(), e.cfg.MaxRPM)
}

// PowerKW converts torque at a crank speed to kilowatts.
func PowerKW(torque, rpm float64) float64 {
	return torque * rpmToRadPerSec(rpm) / 1000
}

// Horsepower converts kilowatts to mechanical horsepower.
func Horsepower(kw float64) float64 { return kw * 1.341 }

func rpmToRadPerSec(rpm float64) float64 { return rpm * 2 * math.Pi / 60 }

func radPerSecToRPM(w float64) float64 { return w * 60 / (2 * math.Pi) }

func clampThrottle(t float64) float64 { return num.Clamp01(t) }
