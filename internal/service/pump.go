package service

import (
	"time"

	"github.com/hidrotek/water-dispenser-system/internal/domain"
)

type PumpDefaults struct {
	MaxLevel         float64
	ThresholdWarning float64
	ThresholdStop    float64
}

// PumpService owns pump state. A device's pump record is created on its
// first level update with the configured defaults; control of a device
// that never reported a level is a not-found error.
type PumpService struct {
	store    PumpStore
	notifier Notifier
	defaults PumpDefaults
	locks    *keyedMutex
	now      func() time.Time
}

func NewPumpService(store PumpStore, notifier Notifier, defaults PumpDefaults) *PumpService {
	if notifier == nil {
		notifier = ConsoleNotifier{}
	}
	if defaults.MaxLevel <= 0 {
		defaults = PumpDefaults{MaxLevel: 100, ThresholdWarning: 80, ThresholdStop: 95}
	}
	return &PumpService{
		store:    store,
		notifier: notifier,
		defaults: defaults,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

// UpdateLevel stores the reported level and recomputes the advisories.
// Crossing into the warning or stop band fires a notification once per
// crossing; the advisories themselves are recomputed on every update.
func (s *PumpService) UpdateLevel(deviceID string, newLevel float64) (*domain.PumpStatusView, error) {
	if deviceID == "" {
		return nil, domain.Validationf("device id is required")
	}

	defer s.locks.Lock(deviceID)()

	p, err := s.store.PumpByDevice(deviceID)
	if err != nil {
		if !domain.IsNotFound(err) {
			return nil, err
		}
		p = &domain.Pump{
			DeviceID:         deviceID,
			Status:           domain.PumpOff,
			MaxLevel:         s.defaults.MaxLevel,
			ThresholdWarning: s.defaults.ThresholdWarning,
			ThresholdStop:    s.defaults.ThresholdStop,
		}
	}

	if newLevel < 0 || newLevel > p.MaxLevel {
		return nil, domain.Validationf(
			"level %.2f out of range [0, %.2f] for device %s", newLevel, p.MaxLevel, deviceID)
	}

	wasWarn, wasStop := p.ShouldWarn(), p.ShouldStop()
	p.CurrentLevel = newLevel
	p.LastUpdated = s.now()
	if err := s.store.SavePump(p); err != nil {
		return nil, err
	}

	switch {
	case p.ShouldStop() && !wasStop:
		s.notifier.PumpStop(p)
	case p.ShouldWarn() && !wasWarn:
		s.notifier.PumpWarning(p)
	}

	view := domain.NewPumpStatusView(p)
	return &view, nil
}

// Control turns the pump on or off. Off always succeeds; on is refused
// while the level sits at or above the stop threshold.
func (s *PumpService) Control(deviceID string, action domain.PumpAction) (*domain.PumpStatusView, error) {
	defer s.locks.Lock(deviceID)()

	p, err := s.store.PumpByDevice(deviceID)
	if err != nil {
		return nil, err
	}

	switch action {
	case domain.ActionOn:
		if p.ShouldStop() {
			return nil, domain.Capacityf(
				"cannot turn pump on for device %s: level %.2f at or above stop threshold %.2f",
				deviceID, p.CurrentLevel, p.ThresholdStop)
		}
		p.Status = domain.PumpOn
	case domain.ActionOff:
		p.Status = domain.PumpOff
	default:
		return nil, domain.Validationf("invalid pump action %q", action)
	}

	p.LastUpdated = s.now()
	if err := s.store.SavePump(p); err != nil {
		return nil, err
	}
	view := domain.NewPumpStatusView(p)
	return &view, nil
}

func (s *PumpService) Status(deviceID string) (*domain.PumpStatusView, error) {
	p, err := s.store.PumpByDevice(deviceID)
	if err != nil {
		return nil, err
	}
	view := domain.NewPumpStatusView(p)
	return &view, nil
}
