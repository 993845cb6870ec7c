package domain

import "time"

type PumpStatus string

const (
	PumpOn  PumpStatus = "on"
	PumpOff PumpStatus = "off"
)

// PumpAction is a control command for a pump. Only the two listed values
// are valid; ParsePumpAction rejects anything else.
type PumpAction string

const (
	ActionOn  PumpAction = "on"
	ActionOff PumpAction = "off"
)

func ParsePumpAction(s string) (PumpAction, error) {
	switch PumpAction(s) {
	case ActionOn, ActionOff:
		return PumpAction(s), nil
	}
	return "", Validationf("invalid pump action %q", s)
}

// Pump is the persisted on/off state and level of one device's pump.
// Invariant: ThresholdWarning < ThresholdStop <= MaxLevel.
type Pump struct {
	ID               int64      `db:"id" json:"id"`
	DeviceID         string     `db:"device_id" json:"device_id"`
	Status           PumpStatus `db:"status" json:"status"`
	CurrentLevel     float64    `db:"current_level" json:"current_level"`
	MaxLevel         float64    `db:"max_level" json:"max_level"`
	ThresholdWarning float64    `db:"threshold_warning" json:"threshold_warning"`
	ThresholdStop    float64    `db:"threshold_stop" json:"threshold_stop"`
	LastUpdated      time.Time  `db:"last_updated" json:"last_updated"`
}

func (p *Pump) ShouldStop() bool { return p.CurrentLevel >= p.ThresholdStop }
func (p *Pump) ShouldWarn() bool { return p.CurrentLevel >= p.ThresholdWarning }

func (p *Pump) LevelPercentage() float64 {
	if p.MaxLevel == 0 {
		return 0
	}
	return p.CurrentLevel / p.MaxLevel * 100
}

// PumpStatusView is the advisory snapshot returned by pump operations.
// ShouldWarn/ShouldStop are recomputed from the level on every update;
// they are not separate pump states.
type PumpStatusView struct {
	Pump            Pump    `json:"pump"`
	LevelPercentage float64 `json:"level_percentage"`
	ShouldWarn      bool    `json:"should_warn"`
	ShouldStop      bool    `json:"should_stop"`
}

func NewPumpStatusView(p *Pump) PumpStatusView {
	return PumpStatusView{
		Pump:            *p,
		LevelPercentage: p.LevelPercentage(),
		ShouldWarn:      p.ShouldWarn(),
		ShouldStop:      p.ShouldStop(),
	}
}

// FlowReading is one append-only fact reported by a flow sensor.
// TotalVolume is cumulative for the device, either supplied by the caller
// or derived from the pulse counter.
type FlowReading struct {
	ID          int64     `db:"id" json:"id"`
	DeviceID    string    `db:"device_id" json:"device_id"`
	Timestamp   time.Time `db:"timestamp" json:"timestamp"`
	FlowRate    float64   `db:"flow_rate" json:"flow_rate"`
	TotalVolume float64   `db:"total_volume" json:"total_volume"`
	PulseCount  *int64    `db:"pulse_count" json:"pulse_count,omitempty"`
	Unit        string    `db:"unit" json:"unit"`
	Temperature *float64  `db:"temperature" json:"temperature,omitempty"`
	Pressure    *float64  `db:"pressure" json:"pressure,omitempty"`
}

type FillingStatus string

const (
	FillingActive    FillingStatus = "active"
	FillingCompleted FillingStatus = "completed"
	FillingCancelled FillingStatus = "cancelled"
)

// Filling is one pour session. Transitions are one-way: active to
// completed or cancelled, both terminal. At most one active filling
// exists per device, enforced by a partial unique index in the store.
// ActualVolume and Efficiency stay nil until the session is completed;
// cancelled sessions do not get them computed.
type Filling struct {
	ID              int64         `db:"id" json:"id"`
	DeviceID        string        `db:"device_id" json:"device_id"`
	StartTime       time.Time     `db:"start_time" json:"start_time"`
	EndTime         *time.Time    `db:"end_time" json:"end_time,omitempty"`
	TargetVolume    float64       `db:"target_volume" json:"target_volume"`
	InitialVolume   float64       `db:"initial_volume" json:"initial_volume"`
	FinalVolume     *float64      `db:"final_volume" json:"final_volume,omitempty"`
	ActualVolume    *float64      `db:"actual_volume" json:"actual_volume,omitempty"`
	Status          FillingStatus `db:"status" json:"status"`
	Efficiency      *float64      `db:"efficiency" json:"efficiency,omitempty"`
	DurationSeconds *float64      `db:"duration_seconds" json:"duration_seconds,omitempty"`
	AvgFlowRate     *float64      `db:"avg_flow_rate" json:"avg_flow_rate,omitempty"`
}
