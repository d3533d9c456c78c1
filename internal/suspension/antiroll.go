package suspension

import (
	"fmt"
	"strings"
)

// AntiRollIntensity scales bar stiffness.
type AntiRollIntensity string

const (
	AntiRollSoft   AntiRollIntensity = "soft"
	AntiRollMedium AntiRollIntensity = "medium"
	AntiRollStiff  AntiRollIntensity = "stiff"
)

// UnmarshalText rejects unknown intensities.
func (a *AntiRollIntensity) UnmarshalText(text []byte) error {
	switch v := AntiRollIntensity(strings.ToLower(strings.TrimSpace(string(text)))); v {
	case AntiRollSoft, AntiRollMedium, AntiRollStiff:
		*a = v
	case "":
		*a = AntiRollMedium
	default:
		return fmt.Errorf("unknown anti-roll intensity %q", string(text))
	}
	return nil
}

// Factor returns the stiffness multiplier.
func (a AntiRollIntensity) Factor() float64 {
	switch a {
	case AntiRollSoft:
		return 0.6
	case AntiRollStiff:
		return 1.5
	default:
		return 1
	}
}

// Corner is one end of an anti-roll bar.
type Corner struct {
	Travel   float64 // 0 compressed..1 extended; 1 when airborne
	Grounded bool
}

// AntiRoll couples the two corners of one axle.
type AntiRoll struct {
	cfg AntiRollConfig
}

// NewAntiRoll returns a bar for cfg.
func NewAntiRoll(cfg AntiRollConfig) *AntiRoll {
	return &AntiRoll{cfg: cfg}
}

// Stiffness returns the effective bar coefficient at a lateral weight shift.
func (a *AntiRoll) Stiffness(weightShift float64) float64 {
	return a.cfg.Stiffness * (1 + weightShift/100*a.cfg.WeightShiftScale) * a.cfg.Intensity.Factor()
}

// Forces returns the vertical force on each corner, positive upward. The
// extended corner is pulled down and the compressed corner pushed up by the
// same amount. An airborne corner receives no force.
func (a *AntiRoll) Forces(left, right Corner, weightShift float64) (fl, fr float64) {
	if !a.cfg.Enabled {
		return 0, 0
	}
	f := (left.Travel - right.Travel) * a.Stiffness(weightShift)
	if left.Grounded {
		fl = -f
	}
	if right.Grounded {
		fr = f
	}
	return fl, fr
}
