package sim

import "github.com/cxd309/vds-engine/internal/num"

const visualRate = 15 // 1/s

// Visual is the render-rate view of the wheels, eased between ticks.
type Visual struct {
	SteerAngle float64   `json:"steer_angle"` // degrees
	Deflection []float64 `json:"deflection"`  // per mount, 0 extended..1 compressed
}

// Visual eases the render view toward the latest tick over frameDt seconds
// and returns a copy.
func (v *Vehicle) Visual(frameDt float64) Visual {
	a := num.Blend(visualRate, frameDt)
	v.visual.SteerAngle = num.Lerp(v.visual.SteerAngle, v.steerAngle, a)
	for i, w := range v.wheels {
		v.visual.Deflection[i] = num.Lerp(v.visual.Deflection[i], w.Deflection, a)
	}
	return Visual{
		SteerAngle: v.visual.SteerAngle,
		Deflection: append([]float64(nil), v.visual.Deflection...),
	}
}
