package service

import (
	"sync"

	"github.com/hidrotek/water-dispenser-system/internal/domain"
)

// DefaultPulsesPerLiter matches the YF-S201 class of hall-effect flow
// sensors the dispensers ship with.
const DefaultPulsesPerLiter = 7.5

type pulseState struct {
	pulseCount  int64
	totalVolume float64
}

// VolumeAccumulator converts a device's cumulative pulse counter into
// cumulative dispensed volume. State is keyed per device and seeded
// lazily from the latest stored reading, so a process restart does not
// double-count pulses already accounted for.
//
// Callers must apply one device's readings in timestamp order and
// serialize calls per device; ReadingService does both. Calls for
// different devices are safe concurrently.
type VolumeAccumulator struct {
	store ReadingStore
	mu    sync.Mutex
	state map[string]pulseState
}

func NewVolumeAccumulator(store ReadingStore) *VolumeAccumulator {
	return &VolumeAccumulator{store: store, state: make(map[string]pulseState)}
}

// ComputeVolume returns the device's cumulative volume after applying
// pulseCount. A count lower than the previous one means the sensor
// counter reset (device reboot); the new count is then taken as the
// whole diff so volume never moves backward.
func (a *VolumeAccumulator) ComputeVolume(deviceID string, pulseCount int64, calibrationFactor float64) (float64, error) {
	if pulseCount < 0 {
		return 0, domain.Validationf("pulse count cannot be negative, got %d", pulseCount)
	}
	if calibrationFactor <= 0 {
		return 0, domain.Validationf("calibration factor must be positive, got %g", calibrationFactor)
	}

	a.mu.Lock()
	st, known := a.state[deviceID]
	a.mu.Unlock()

	if !known {
		last, err := a.store.LatestReading(deviceID)
		if err != nil {
			return 0, err
		}
		if last != nil && last.PulseCount != nil {
			st = pulseState{pulseCount: *last.PulseCount, totalVolume: last.TotalVolume}
			known = true
		}
	}

	var total float64
	switch {
	case !known:
		total = float64(pulseCount) / calibrationFactor
	case pulseCount >= st.pulseCount:
		total = st.totalVolume + float64(pulseCount-st.pulseCount)/calibrationFactor
	default:
		// Counter reset: the new count is the progress since reboot.
		total = st.totalVolume + float64(pulseCount)/calibrationFactor
	}

	a.mu.Lock()
	a.state[deviceID] = pulseState{pulseCount: pulseCount, totalVolume: total}
	a.mu.Unlock()
	return total, nil
}

// SyncVolume folds a caller-supplied cumulative volume into the device
// state so later pulse-based readings continue from it instead of from
// the last pulse-derived value.
func (a *VolumeAccumulator) SyncVolume(deviceID string, totalVolume float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.state[deviceID]
	if ok && totalVolume > st.totalVolume {
		st.totalVolume = totalVolume
		a.state[deviceID] = st
	}
}
