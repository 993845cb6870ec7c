package domain

import "time"

// FlowMetrics summarizes readings for one device over a window.
// TotalVolume is the volume dispensed during the window (last cumulative
// value minus first). Efficiency here is a flow-stability score, not
// filling efficiency.
type FlowMetrics struct {
	AvgFlowRate float64   `json:"avg_flow_rate"`
	MinFlowRate float64   `json:"min_flow_rate"`
	MaxFlowRate float64   `json:"max_flow_rate"`
	TotalVolume float64   `json:"total_volume"`
	Efficiency  float64   `json:"efficiency"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

// FillingMetrics summarizes filling sessions over a window. The averages
// cover completed sessions only; CompletionRate is completed over
// completed+cancelled, 0 when that denominator is 0.
type FillingMetrics struct {
	TotalFillings        int       `json:"total_fillings"`
	CompletedFillings    int       `json:"completed_fillings"`
	CancelledFillings    int       `json:"cancelled_fillings"`
	CompletionRate       float64   `json:"completion_rate"`
	AvgDurationSeconds   float64   `json:"avg_duration_seconds"`
	AvgVolume            float64   `json:"avg_volume"`
	AvgEfficiency        float64   `json:"avg_efficiency"`
	TotalVolumeDispensed float64   `json:"total_volume_dispensed"`
	PeriodStart          time.Time `json:"period_start"`
	PeriodEnd            time.Time `json:"period_end"`
}

type BusinessMetrics struct {
	Revenue           float64        `json:"revenue"`
	FillingsByHour    map[int]int    `json:"fillings_by_hour"`
	FillingsByDay     map[string]int `json:"fillings_by_day"`
	PeakHours         []int          `json:"peak_hours"`
	AvgFillingsPerDay float64        `json:"avg_fillings_per_day"`
	WaterEfficiency   float64        `json:"water_efficiency"`
}

type EfficiencyStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// EfficiencyReport bundles the windowed metrics with per-session
// efficiency statistics. Stats is nil when the window has no completed
// sessions.
type EfficiencyReport struct {
	Flow         FlowMetrics      `json:"flow_metrics"`
	Filling      FillingMetrics   `json:"filling_metrics"`
	Stats        *EfficiencyStats `json:"efficiency_stats,omitempty"`
	Distribution map[string]int   `json:"efficiency_distribution"`
}

type Anomaly struct {
	ReadingID int64     `json:"id"`
	FlowRate  float64   `json:"flow_rate"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason"`
}

type AnomalyReport struct {
	Anomalies      []Anomaly `json:"anomalies"`
	TotalAnomalies int       `json:"total_anomalies"`
	MeanFlowRate   float64   `json:"mean_flow_rate"`
	StdFlowRate    float64   `json:"std_flow_rate"`
	UpperBound     float64   `json:"upper_bound"`
	LowerBound     float64   `json:"lower_bound"`
}
