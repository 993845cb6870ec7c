package service

import (
	"github.com/rs/zerolog/log"

	"github.com/hidrotek/water-dispenser-system/internal/domain"
)

// Notifier receives advisory events from the pump and filling services.
// The services call it inline, so implementations must return quickly
// and do any network delivery on their own goroutine; delivery failures
// never fail the triggering operation.
type Notifier interface {
	PumpWarning(p *domain.Pump)
	PumpStop(p *domain.Pump)
	FillingCompleted(f *domain.Filling)
	AnomaliesDetected(deviceID string, rep *domain.AnomalyReport)
}

// ConsoleNotifier logs events instead of pushing them; the default when
// cloud services are disabled.
type ConsoleNotifier struct{}

func (ConsoleNotifier) PumpWarning(p *domain.Pump) {
	log.Warn().
		Str("device_id", p.DeviceID).
		Float64("level", p.CurrentLevel).
		Float64("threshold", p.ThresholdWarning).
		Msg("pump level warning threshold reached")
}

func (ConsoleNotifier) PumpStop(p *domain.Pump) {
	log.Warn().
		Str("device_id", p.DeviceID).
		Float64("level", p.CurrentLevel).
		Float64("threshold", p.ThresholdStop).
		Msg("pump level stop threshold reached")
}

func (ConsoleNotifier) AnomaliesDetected(deviceID string, rep *domain.AnomalyReport) {
	log.Warn().
		Str("device_id", deviceID).
		Int("anomalies", rep.TotalAnomalies).
		Float64("mean_flow_rate", rep.MeanFlowRate).
		Msg("flow anomalies detected")
}

func (ConsoleNotifier) FillingCompleted(f *domain.Filling) {
	ev := log.Info().
		Str("device_id", f.DeviceID).
		Int64("filling_id", f.ID)
	if f.ActualVolume != nil {
		ev = ev.Float64("actual_volume", *f.ActualVolume)
	}
	if f.Efficiency != nil {
		ev = ev.Float64("efficiency", *f.Efficiency)
	}
	ev.Msg("filling completed")
}
