package transmission

import (
	"fmt"
	"strings"
)

// Drivetrain is the driven-axle layout.
type Drivetrain string

const (
	RWD Drivetrain = "RWD"
	FWD Drivetrain = "FWD"
	AWD Drivetrain = "AWD"
)

// UnmarshalText accepts the layout name in any case.
func (d *Drivetrain) UnmarshalText(text []byte) error {
	switch v := Drivetrain(strings.ToUpper(strings.TrimSpace(string(text)))); v {
	case RWD, FWD, AWD:
		*d = v
	case "":
		*d = RWD
	default:
		return fmt.Errorf("unknown drivetrain %q", string(text))
	}
	return nil
}

// Drives reports whether an axle receives engine torque.
func (d Drivetrain) Drives(front bool) bool {
	switch d {
	case AWD:
		return true
	case FWD:
		return front
	default:
		return !front
	}
}
