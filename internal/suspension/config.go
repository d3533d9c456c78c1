// Package suspension synthesises per-corner spring and damper parameters from
// presets and the vehicle's mass split, offsets ride targets for squat and
// dive, and couples left and right corners through anti-roll bars.
package suspension

import (
	"fmt"
	"strings"
)

// FrequencyPreset selects natural ride frequencies.
type FrequencyPreset string

const (
	FrequencySport   FrequencyPreset = "sport"
	FrequencyComfort FrequencyPreset = "comfort"
)

// DampingPreset selects the rebound damping ratio.
type DampingPreset string

const (
	DampingSport   DampingPreset = "sport"
	DampingComfort DampingPreset = "comfort"
)

// MassBias is the static front/rear mass distribution, front first.
type MassBias string

const (
	BiasFrontHeavy MassBias = "60/40"
	BiasBalanced   MassBias = "50/50"
	BiasRearHeavy  MassBias = "40/60"
)

// UnmarshalText accepts the canonical split and a few aliases.
func (b *MassBias) UnmarshalText(text []byte) error {
	switch v := strings.ToLower(strings.TrimSpace(string(text))); v {
	case string(BiasFrontHeavy), "front", "sixtyforty":
		*b = BiasFrontHeavy
	case string(BiasBalanced), "balanced", "fiftyfifty", "":
		*b = BiasBalanced
	case string(BiasRearHeavy), "rear", "fortysixty":
		*b = BiasRearHeavy
	default:
		return fmt.Errorf("unknown mass bias %q", string(text))
	}
	return nil
}

// FrontShare returns the fraction of mass carried by the front axle.
func (b MassBias) FrontShare() float64 {
	switch b {
	case BiasFrontHeavy:
		return 0.6
	case BiasRearHeavy:
		return 0.4
	default:
		return 0.5
	}
}

// SquatDiveConfig shapes the pitch response to longitudinal G.
type SquatDiveConfig struct {
	Strength       float64 `json:"strength" mapstructure:"strength"`               // 0..1
	Threshold      float64 `json:"threshold" mapstructure:"threshold"`             // G
	FullG          float64 `json:"full_g" mapstructure:"full_g"`                   // G for full effect
	RearSquat      float64 `json:"rear_squat" mapstructure:"rear_squat"`           // rear target at full squat
	FrontDive      float64 `json:"front_dive" mapstructure:"front_dive"`           // front target at full dive
	OppositeExtend float64 `json:"opposite_extend" mapstructure:"opposite_extend"` // lift of the unloaded end
}

// AntiRollConfig sizes the anti-roll bars.
type AntiRollConfig struct {
	Enabled          bool              `json:"enabled" mapstructure:"enabled"`
	Stiffness        float64           `json:"stiffness" mapstructure:"stiffness"` // N per unit travel difference
	Intensity        AntiRollIntensity `json:"intensity" mapstructure:"intensity"`
	WeightShiftScale float64           `json:"weight_shift_scale" mapstructure:"weight_shift_scale"`
}

// Config is the full suspension tuning.
type Config struct {
	Travel               float64         `json:"travel" mapstructure:"travel"` // metres
	Frequency            FrequencyPreset `json:"frequency" mapstructure:"frequency"`
	Damping              DampingPreset   `json:"damping" mapstructure:"damping"`
	Bias                 MassBias        `json:"bias" mapstructure:"bias"`
	RestTarget           float64         `json:"rest_target" mapstructure:"rest_target"`                       // 0 compressed..1 extended
	WeightShiftStiffness float64         `json:"weight_shift_stiffness" mapstructure:"weight_shift_stiffness"` // N/m per percent
	BumpScale            float64         `json:"bump_scale" mapstructure:"bump_scale"`
	DamperResponse       float64         `json:"damper_response" mapstructure:"damper_response"`
	SquatDive            SquatDiveConfig `json:"squat_dive" mapstructure:"squat_dive"`
	AntiRoll             AntiRollConfig  `json:"anti_roll" mapstructure:"anti_roll"`
}

// Travel limits, metres.
const (
	MinTravel = 0.1
	MaxTravel = 0.3
)

// DefaultConfig is a sport setup on a balanced chassis.
func DefaultConfig() Config {
	return Config{
		Travel:               0.2,
		Frequency:            FrequencySport,
		Damping:              DampingSport,
		Bias:                 BiasBalanced,
		RestTarget:           0.5,
		WeightShiftStiffness: 500,
		BumpScale:            2.0 / 3.0,
		DamperResponse:       1.1,
		SquatDive: SquatDiveConfig{
			Strength:       0.6,
			Threshold:      0.1,
			FullG:          1.5,
			RearSquat:      0.4,
			FrontDive:      0.4,
			OppositeExtend: 0.05,
		},
		AntiRoll: AntiRollConfig{
			Enabled:          true,
			Stiffness:        1000,
			Intensity:        AntiRollMedium,
			WeightShiftScale: 0.5,
		},
	}
}
