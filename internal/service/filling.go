package service

import (
	"time"

	"github.com/hidrotek/water-dispenser-system/internal/domain"
)

// FillingService drives pour sessions through their lifecycle. The
// single-active-session invariant is enforced twice: the per-device lock
// serializes check-then-create inside this process, and the store's
// unique partial index catches races between service instances.
type FillingService struct {
	store    FillingStore
	notifier Notifier
	locks    *keyedMutex
	now      func() time.Time
}

func NewFillingService(store FillingStore, notifier Notifier) *FillingService {
	if notifier == nil {
		notifier = ConsoleNotifier{}
	}
	return &FillingService{
		store:    store,
		notifier: notifier,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

func (s *FillingService) Start(deviceID string, targetVolume, initialVolume float64) (*domain.Filling, error) {
	if deviceID == "" {
		return nil, domain.Validationf("device id is required")
	}
	if targetVolume <= 0 {
		return nil, domain.Validationf("target volume must be positive, got %g", targetVolume)
	}
	if initialVolume < 0 {
		return nil, domain.Validationf("initial volume cannot be negative, got %g", initialVolume)
	}

	defer s.locks.Lock(deviceID)()

	active, err := s.store.ActiveFilling(deviceID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, domain.Conflictf("filling %d already in progress for device %s", active.ID, deviceID)
	}

	f := &domain.Filling{
		DeviceID:      deviceID,
		StartTime:     s.now(),
		TargetVolume:  targetVolume,
		InitialVolume: initialVolume,
		Status:        domain.FillingActive,
	}
	if err := s.store.InsertFilling(f); err != nil {
		return nil, err
	}
	return f, nil
}

// Complete closes an active session and computes its final figures:
// actualVolume = finalVolume - initialVolume, avg flow in L/min over the
// session duration, and efficiency as actual/target percent. Efficiency
// is not clamped, so an overfilled session reads above 100.
func (s *FillingService) Complete(fillingID int64, finalVolume float64) (*domain.Filling, error) {
	f, err := s.store.FillingByID(fillingID)
	if err != nil {
		return nil, err
	}

	defer s.locks.Lock(f.DeviceID)()

	// Re-read under the lock: a concurrent complete/cancel may have won.
	f, err = s.store.FillingByID(fillingID)
	if err != nil {
		return nil, err
	}
	if f.Status != domain.FillingActive {
		return nil, domain.InvalidStatef("filling %d is %s, not active", f.ID, f.Status)
	}

	end := s.now()
	dur := end.Sub(f.StartTime).Seconds()
	if dur <= 0 {
		return nil, domain.InvalidStatef("filling %d has non-positive duration", f.ID)
	}

	actual := finalVolume - f.InitialVolume
	eff := actual / f.TargetVolume * 100
	avg := actual / (dur / 60)

	f.EndTime = &end
	f.FinalVolume = &finalVolume
	f.ActualVolume = &actual
	f.Efficiency = &eff
	f.DurationSeconds = &dur
	f.AvgFlowRate = &avg
	f.Status = domain.FillingCompleted

	if err := s.store.UpdateFilling(f); err != nil {
		return nil, err
	}
	s.notifier.FillingCompleted(f)
	return f, nil
}

// Cancel closes an active session without computing volume figures;
// partial progress stays unreported.
func (s *FillingService) Cancel(fillingID int64) (*domain.Filling, error) {
	f, err := s.store.FillingByID(fillingID)
	if err != nil {
		return nil, err
	}

	defer s.locks.Lock(f.DeviceID)()

	f, err = s.store.FillingByID(fillingID)
	if err != nil {
		return nil, err
	}
	if f.Status != domain.FillingActive {
		return nil, domain.InvalidStatef("filling %d is %s, not active", f.ID, f.Status)
	}

	end := s.now()
	f.EndTime = &end
	f.Status = domain.FillingCancelled

	if err := s.store.UpdateFilling(f); err != nil {
		return nil, err
	}
	return f, nil
}

// Active returns the device's active session, or nil when there is none.
func (s *FillingService) Active(deviceID string) (*domain.Filling, error) {
	return s.store.ActiveFilling(deviceID)
}

func (s *FillingService) List(deviceID string, limit int) ([]domain.Filling, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.store.FillingsByDevice(deviceID, limit)
}
