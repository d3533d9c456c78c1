package recorder

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/cxd309/vds-engine/internal/telemetry"
	"github.com/cxd309/vds-engine/internal/vehicle"
)

// Run is one recorded simulation.
type Run struct {
	ID           string         `json:"id" gorm:"primaryKey;size:64"`
	SimulationID string         `json:"simulationId" gorm:"size:127;index:idx_run_simulation_id"`
	Vehicle      string         `json:"vehicle" gorm:"size:127"`
	TimeStep     float64        `json:"timeStep"` // seconds
	Tuning       datatypes.JSON `json:"tuning"`
	StartedAt    time.Time      `json:"startedAt" gorm:"index:idx_run_started_at"`
	FinishedAt   *time.Time     `json:"finishedAt"`
	Frames       int            `json:"frames"`
}

// Sample is one telemetry frame of a run.
type Sample struct {
	ID            uint           `json:"id" gorm:"primarykey"`
	RunID         string         `json:"runId" gorm:"size:64;index:idx_sample_run_time,priority:1"`
	Run           Run            `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignKey:RunID"`
	Time          float64        `json:"time" gorm:"index:idx_sample_run_time,priority:2"`
	Speed         float64        `json:"speed"`
	RPM           float64        `json:"rpm"`
	Torque        float64        `json:"torque"`
	Gear          int            `json:"gear"`
	GearLabel     string         `json:"gearLabel" gorm:"size:4"`
	Clutch        float64        `json:"clutch"`
	Throttle      float64        `json:"throttle"`
	Brake         float64        `json:"brake"`
	Steer         float64        `json:"steer"`
	SteerAngle    float64        `json:"steerAngle"`
	Handbrake     bool           `json:"handbrake"`
	SlipAvg       float64        `json:"slipAvg"`
	SlipMax       float64        `json:"slipMax"`
	LateralG      float64        `json:"lateralG"`
	LongitudinalG float64        `json:"longitudinalG"`
	Suspension    float64        `json:"suspension"`
	WeightShift   float64        `json:"weightShift"`
	X             float64        `json:"x"`
	Z             float64        `json:"z"`
	Heading       float64        `json:"heading"`
	Wheels        datatypes.JSON `json:"wheels"`
}

// DatabaseModels lists every table the recorder migrates.
var DatabaseModels = []any{&Run{}, &Sample{}}

func newSample(runID string, f telemetry.Frame) (Sample, error) {
	wheels, err := json.Marshal(f.Wheels)
	if err != nil {
		return Sample{}, err
	}
	return Sample{
		RunID:         runID,
		Time:          f.Time,
		Speed:         f.Speed,
		RPM:           f.RPM,
		Torque:        f.Torque,
		Gear:          f.Gear,
		GearLabel:     f.GearLabel,
		Clutch:        f.Clutch,
		Throttle:      f.Throttle,
		Brake:         f.Brake,
		Steer:         f.Steer,
		SteerAngle:    f.SteerAngle,
		Handbrake:     f.Handbrake,
		SlipAvg:       f.SlipAvg,
		SlipMax:       f.SlipMax,
		LateralG:      f.LateralG,
		LongitudinalG: f.LongitudinalG,
		Suspension:    f.Suspension,
		WeightShift:   f.WeightShift,
		X:             f.X,
		Z:             f.Z,
		Heading:       f.Heading,
		Wheels:        datatypes.JSON(wheels),
	}, nil
}

// Frame rebuilds the telemetry frame. Fields not stored are left zero.
func (s Sample) Frame() (telemetry.Frame, error) {
	f := telemetry.Frame{
		Time:          s.Time,
		Speed:         s.Speed,
		SpeedKMH:      s.Speed * 3.6,
		RPM:           s.RPM,
		Torque:        s.Torque,
		Gear:          s.Gear,
		GearLabel:     s.GearLabel,
		Clutch:        s.Clutch,
		Throttle:      s.Throttle,
		Brake:         s.Brake,
		Steer:         s.Steer,
		SteerAngle:    s.SteerAngle,
		Handbrake:     s.Handbrake,
		SlipAvg:       s.SlipAvg,
		SlipMax:       s.SlipMax,
		LateralG:      s.LateralG,
		LongitudinalG: s.LongitudinalG,
		Suspension:    s.Suspension,
		WeightShift:   s.WeightShift,
		X:             s.X,
		Z:             s.Z,
		Heading:       s.Heading,
	}
	if len(s.Wheels) > 0 {
		var wheels []vehicle.WheelState
		if err := json.Unmarshal(s.Wheels, &wheels); err != nil {
			return telemetry.Frame{}, err
		}
		f.Wheels = wheels
	}
	return f, nil
}
