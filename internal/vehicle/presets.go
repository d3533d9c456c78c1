package vehicle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cxd309/vds-engine/internal/assist"
	"github.com/cxd309/vds-engine/internal/chassis"
	"github.com/cxd309/vds-engine/internal/engine"
	"github.com/cxd309/vds-engine/internal/suspension"
	"github.com/cxd309/vds-engine/internal/transmission"
	"github.com/cxd309/vds-engine/internal/tyre"
	"github.com/cxd309/vds-engine/internal/weight"
)

// Preset names a factory tuning.
type Preset string

const (
	PresetHeavyVan      Preset = "heavy_van"
	PresetFamilySedan   Preset = "family_sedan"
	PresetSportscar     Preset = "sportscar"
	PresetRaceCar       Preset = "race_car"
	PresetElectricSedan Preset = "electric_sedan"
)

var presets = map[Preset]func() Tuning{
	PresetHeavyVan:      heavyVan,
	PresetFamilySedan:   familySedan,
	PresetSportscar:     sportscar,
	PresetRaceCar:       raceCar,
	PresetElectricSedan: electricSedan,
}

// Presets lists the known preset names in sorted order.
func Presets() []Preset {
	out := make([]Preset, 0, len(presets))
	for p := range presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParsePreset resolves a preset name, ignoring case and separators.
func ParsePreset(name string) (Preset, error) {
	key := strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(strings.TrimSpace(name)))
	switch key {
	case "":
		return PresetFamilySedan, nil
	case "heavyvan":
		key = string(PresetHeavyVan)
	case "familysedan", "sedan":
		key = string(PresetFamilySedan)
	case "racecar":
		key = string(PresetRaceCar)
	case "electricsedan", "ev":
		key = string(PresetElectricSedan)
	}
	if _, ok := presets[Preset(key)]; !ok {
		return "", fmt.Errorf("%w: unknown preset %q", ErrInvalidTuning, name)
	}
	return Preset(key), nil
}

// Tuning returns a fresh copy of the preset's tuning.
func (p Preset) Tuning() (Tuning, error) {
	build, ok := presets[p]
	if !ok {
		return Tuning{}, fmt.Errorf("%w: unknown preset %q", ErrInvalidTuning, string(p))
	}
	return build(), nil
}

// DefaultTuning is the family sedan.
func DefaultTuning() Tuning { return familySedan() }

// base is a road car every preset starts from.
func base() Tuning {
	return Tuning{
		Mass:            1500,
		Drivetrain:      transmission.RWD,
		TopSpeed:        200,
		MaxReverseSpeed: 10,
		GForceSmoothing: 5,
		Wheels:          WheelConfig{Radius: 0.35, VisualRadius: 0.35, Mass: 20},
		Steering:        SteeringConfig{MaxAngle: 30, AngleAtMaxSpeed: 10, FullRangeSpeed: 35, Rate: 120},
		ShiftKick:       ShiftKickConfig{Strength: 3, MinThrottle: 0.7},
		Body:            chassis.DefaultConfig(),
		Engine:          engine.DefaultConfig(),
		Transmission:    transmission.DefaultConfig(),
		Tyres:           tyre.DefaultConfig(),
		Suspension:      suspension.DefaultConfig(),
		Weight:          weight.DefaultConfig(),
		Brakes: assist.BrakeConfig{
			MaxTorque:       3000,
			FrontBias:       0.6,
			Pressure:        1,
			HandbrakeTorque: 4000,
			ABS:             assist.ABSConfig{Enabled: true, SlipLimit: 0.15, MinFactor: 0.3},
		},
		Traction: assist.TractionConfig{Enabled: true, SlipThreshold: 0.15, Gain: 3, Intensity: 0.8},
		CounterSteer: assist.CounterSteerConfig{
			Enabled:       true,
			Deadzone:      0.1,
			MinSpeed:      5,
			Intensity:     0.5,
			MaxCorrection: 8,
			Damping:       8,
		},
		Differential: assist.DiffConfig{AccelLock: 0.3, DecelLock: 0.1, FrontBias: 0.4},
	}
}

// combustion converts the familiar horsepower figure to the engine config.
func combustion(hp, powerRPM, torque, torqueRPM, idle, maxRPM, inertia, friction float64) engine.Config {
	c := engine.DefaultConfig()
	c.Type = engine.TypeCombustion
	c.PeakPower = hp / 1.341
	c.PeakPowerRPM = powerRPM
	c.PeakTorque = torque
	c.PeakTorqueRPM = torqueRPM
	c.IdleRPM = idle
	c.MaxRPM = maxRPM
	c.Inertia = inertia
	c.FrictionTorque = friction
	return c
}

func gearbox(ratios []float64, finalDrive, efficiency, up, down float64) transmission.Config {
	c := transmission.DefaultConfig()
	c.GearRatios = ratios
	c.FinalDrive = finalDrive
	c.Efficiency = efficiency
	c.UpshiftRPM = up
	c.DownshiftRPM = down
	return c
}

func heavyVan() Tuning {
	t := base()
	t.Name = "Heavy Van"
	t.Mass = 2200
	t.CenterOfMassOffset = -0.25
	t.MaxReverseSpeed = 8
	t.TopSpeed = 150
	t.Engine = combustion(180, 3500, 400, 2000, 700, 5000, 0.3, 20)
	t.Transmission = gearbox([]float64{4.0, 2.5, 1.6, 1.0, 0.75}, 4.1, 0.88, 4200, 1800)
	t.Brakes.MaxTorque = 4000
	t.Steering.MaxAngle, t.Steering.AngleAtMaxSpeed = 35, 15
	t.Suspension.Travel = 0.25
	t.Suspension.Frequency = suspension.FrequencyComfort
	t.Suspension.Damping = suspension.DampingComfort
	t.Suspension.Bias = suspension.BiasFrontHeavy
	t.Weight.CGHeight = 1.0
	t.Weight.Wheelbase = 3.2
	t.Weight.TrackWidth = 1.7
	t.Body.DragCoefficient = 0.38
	t.Body.FrontalArea = 3.4
	return t
}

func familySedan() Tuning {
	t := base()
	t.Name = "Family Sedan"
	t.Mass = 1400
	t.CenterOfMassOffset = -0.35
	t.Weight.CGHeight = 0.85
	t.MaxReverseSpeed = 10
	t.TopSpeed = 190
	t.Drivetrain = transmission.FWD
	t.Engine = combustion(160, 5500, 220, 3500, 750, 6500, 0.2, 12)
	t.Transmission = gearbox([]float64{3.5, 2.0, 1.4, 1.0, 0.8, 0.65}, 3.7, 0.92, 5800, 2000)
	t.Brakes.MaxTorque = 3000
	t.Steering.MaxAngle, t.Steering.AngleAtMaxSpeed = 32, 10
	t.Suspension.Travel = 0.18
	t.Suspension.Frequency = suspension.FrequencyComfort
	t.Suspension.Damping = suspension.DampingComfort
	t.Suspension.Bias = suspension.BiasFrontHeavy
	return t
}

func sportscar() Tuning {
	t := base()
	t.Name = "Sportscar"
	t.Mass = 1350
	t.CenterOfMassOffset = -0.45
	t.MaxReverseSpeed = 12
	t.TopSpeed = 280
	t.Engine = combustion(400, 7000, 450, 5000, 900, 8000, 0.15, 8)
	t.Transmission = gearbox([]float64{3.2, 2.1, 1.5, 1.15, 0.9, 0.75}, 3.4, 0.94, 7200, 3500)
	t.Brakes.MaxTorque = 4500
	t.Steering.MaxAngle, t.Steering.AngleAtMaxSpeed = 28, 6
	t.Suspension.Travel = 0.12
	t.Suspension.Bias = suspension.BiasRearHeavy
	t.Weight.CGHeight = 0.9
	t.Weight.Wheelbase = 2.5
	t.Weight.TrackWidth = 1.6
	t.Tyres.Longitudinal.PeakValue = 1.7
	t.Tyres.Lateral.PeakValue = 2.0
	t.Body.DragCoefficient = 0.32
	t.Body.FrontalArea = 2.0
	t.Body.LiftCoefficient = 0.3
	return t
}

func raceCar() Tuning {
	t := base()
	t.Name = "Race Car"
	t.Mass = 1100
	t.CenterOfMassOffset = -0.5
	t.MaxReverseSpeed = 15
	t.TopSpeed = 320
	t.Engine = combustion(550, 8000, 550, 6500, 1100, 9000, 0.12, 6)
	t.Transmission = gearbox([]float64{2.9, 2.0, 1.5, 1.2, 1.0, 0.85}, 3.2, 0.95, 8200, 4500)
	t.Transmission.ShiftTime = 0.15
	t.Brakes.MaxTorque = 6000
	t.Steering.MaxAngle, t.Steering.AngleAtMaxSpeed = 24, 5
	t.Suspension.Travel = 0.1
	t.Weight.CGHeight = 0.85
	t.Weight.Wheelbase = 2.7
	t.Weight.TrackWidth = 1.7
	t.Tyres.Longitudinal.PeakValue = 1.9
	t.Tyres.Lateral.PeakValue = 2.2
	t.Body.DragCoefficient = 0.7
	t.Body.FrontalArea = 1.6
	t.Body.LiftCoefficient = 1.5
	t.Differential.AccelLock = 0.6
	return t
}

func electricSedan() Tuning {
	t := base()
	t.Name = "Electric Sedan"
	t.Mass = 1900
	t.CenterOfMassOffset = -0.55
	t.MaxReverseSpeed = 10
	t.TopSpeed = 210
	t.Drivetrain = transmission.AWD
	t.Engine = engine.DefaultConfig()
	t.Engine.Type = engine.TypeElectric
	t.Engine.PeakTorque = 420
	t.Engine.PeakPower = 220
	t.Engine.IdleRPM = 0
	t.Engine.MaxRPM = 16000
	t.Engine.Inertia = 0.08
	t.Engine.FrictionTorque = 4
	t.Engine.EngineBrakeTorque = 60
	t.Transmission = gearbox([]float64{1.0}, 9.0, 0.97, 15500, 500)
	t.Transmission.ShiftTime = 0
	t.Brakes.MaxTorque = 3500
	t.Steering.MaxAngle, t.Steering.AngleAtMaxSpeed = 32, 8
	t.Suspension.Travel = 0.16
	t.Suspension.Frequency = suspension.FrequencyComfort
	t.Weight.CGHeight = 1.0
	t.Weight.Wheelbase = 2.9
	t.Body.DragCoefficient = 0.24
	return t
}
