package vehicle

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/cxd309/vds-engine/internal/assist"
	"github.com/cxd309/vds-engine/internal/chassis"
	"github.com/cxd309/vds-engine/internal/engine"
	"github.com/cxd309/vds-engine/internal/suspension"
	"github.com/cxd309/vds-engine/internal/transmission"
	"github.com/cxd309/vds-engine/internal/tyre"
	"github.com/cxd309/vds-engine/internal/weight"
)

// Mount is one wheel position on the rig. Proxy is the physics contact; a
// mount without one is kept for bookkeeping but gets no forces.
type Mount struct {
	Name    string
	Front   bool
	Left    bool
	Steered bool
	Proxy   *chassis.Wheel
}

// Rig is a fully wired vehicle: every component built once from a validated
// tuning and handed to the simulation loop.
type Rig struct {
	Tuning Tuning
	Body   *chassis.Body
	Mounts []Mount

	Engine       *engine.Engine
	Gearbox      *transmission.Gearbox
	Tyres        *tyre.Model
	Suspension   *suspension.Model
	AntiRoll     *suspension.AntiRoll
	Weight       *weight.Transfer
	Brakes       *assist.Brakes
	Traction     *assist.TractionControl
	CounterSteer *assist.CounterSteer
	Differential *assist.Differential

	Diagnostics []Diagnostic
}

// StandardMounts lays out four wheels at the corners of the tuning's
// wheelbase and track, fronts steered.
func StandardMounts(t Tuning) []Mount {
	halfL := t.Weight.Wheelbase / 2
	halfW := t.Weight.TrackWidth / 2
	corners := []struct {
		name        string
		front, left bool
	}{
		{"front_left", true, true},
		{"front_right", true, false},
		{"rear_left", false, true},
		{"rear_right", false, false},
	}
	mounts := make([]Mount, 0, len(corners))
	for _, c := range corners {
		x, z := halfW, -halfL
		if c.left {
			x = -halfW
		}
		if c.front {
			z = halfL
		}
		mounts = append(mounts, Mount{
			Name:    c.name,
			Front:   c.front,
			Left:    c.left,
			Steered: c.front,
			Proxy: chassis.NewWheel(chassis.WheelConfig{
				Name:     c.name,
				Position: mgl64.Vec3{x, 0, z},
				Radius:   t.Wheels.Radius,
				Mass:     t.Wheels.Mass,
				Travel:   t.Suspension.Travel,
			}),
		})
	}
	return mounts
}

// CenterOfMass places the centre of mass on the centreline, fore or aft of
// the wheelbase midpoint by the suspension mass bias.
func CenterOfMass(t Tuning) mgl64.Vec3 {
	share := t.Suspension.Bias.FrontShare()
	return mgl64.Vec3{0, t.CenterOfMassOffset, t.Weight.Wheelbase * (share - 0.5)}
}

// Assemble validates t and builds every component over mounts. Mounts
// without a proxy are recorded as diagnostics; at least one proxy is required.
func Assemble(t Tuning, mounts []Mount) (*Rig, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	r := &Rig{Tuning: t, Mounts: mounts}

	var proxies []*chassis.Wheel
	for _, m := range mounts {
		if m.Proxy == nil {
			r.Diagnostics = append(r.Diagnostics, Diagnostic{
				Component: m.Name,
				Message:   "wheel mount has no contact proxy; torque, brake and friction are skipped",
			})
			continue
		}
		m.Proxy.SetTravel(t.Suspension.Travel)
		proxies = append(proxies, m.Proxy)
	}
	if len(proxies) == 0 {
		return nil, fmt.Errorf("%w: no wheel mount has a contact proxy", ErrInvalidTuning)
	}

	var err error
	body := t.Body
	body.Mass = t.Mass
	body.CenterOfMass = CenterOfMass(t)
	body.CGHeight = t.CGHeight()
	if r.Body, err = chassis.New(body, proxies); err != nil {
		return nil, fmt.Errorf("assembling chassis: %w", err)
	}
	if r.Engine, err = engine.New(t.Engine); err != nil {
		return nil, fmt.Errorf("assembling engine: %w", err)
	}
	if r.Gearbox, err = transmission.New(t.Transmission); err != nil {
		return nil, fmt.Errorf("assembling gearbox: %w", err)
	}
	if r.Suspension, err = suspension.New(t.Suspension, t.Mass); err != nil {
		return nil, fmt.Errorf("assembling suspension: %w", err)
	}
	r.Tyres = tyre.New(t.Tyres, len(mounts))
	r.AntiRoll = suspension.NewAntiRoll(t.Suspension.AntiRoll)
	wcfg := t.Weight
	wcfg.CGHeight = t.CGHeight()
	r.Weight = weight.New(wcfg)
	r.Brakes = assist.NewBrakes(t.Brakes)
	r.Traction = assist.NewTractionControl(t.Traction)
	r.CounterSteer = assist.NewCounterSteer(t.CounterSteer)
	r.Differential = assist.NewDifferential(t.Differential)
	return r, nil
}

// StandardRig assembles t over StandardMounts.
func StandardRig(t Tuning) (*Rig, error) {
	return Assemble(t, StandardMounts(t))
}
