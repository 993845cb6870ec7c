package service

import (
	"time"

	"github.com/hidrotek/water-dispenser-system/internal/domain"
)

type RecordReadingInput struct {
	DeviceID    string
	FlowRate    float64
	TotalVolume *float64
	PulseCount  *int64
	Unit        string
	Temperature *float64
	Pressure    *float64
	Timestamp   time.Time // zero value means now
}

// ReadingService is the ingestion path for sensor telemetry. It derives
// cumulative volume from the pulse counter (or validates a supplied
// cumulative volume) and appends the reading to the store. All work for
// one device is serialized on a per-device lock.
type ReadingService struct {
	store       ReadingStore
	acc         *VolumeAccumulator
	calibration float64
	locks       *keyedMutex
	now         func() time.Time
}

func NewReadingService(store ReadingStore, acc *VolumeAccumulator, calibration float64) *ReadingService {
	if calibration <= 0 {
		calibration = DefaultPulsesPerLiter
	}
	return &ReadingService{
		store:       store,
		acc:         acc,
		calibration: calibration,
		locks:       newKeyedMutex(),
		now:         time.Now,
	}
}

func (s *ReadingService) Record(in RecordReadingInput) (*domain.FlowReading, error) {
	if in.DeviceID == "" {
		return nil, domain.Validationf("device id is required")
	}
	if in.FlowRate < 0 {
		return nil, domain.Validationf("flow rate cannot be negative, got %g", in.FlowRate)
	}
	if in.TotalVolume == nil && in.PulseCount == nil {
		return nil, domain.Validationf("either total_volume or pulse_count is required")
	}

	ts := in.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	unit := in.Unit
	if unit == "" {
		unit = "L/min"
	}

	defer s.locks.Lock(in.DeviceID)()

	var total float64
	if in.TotalVolume != nil {
		if *in.TotalVolume < 0 {
			return nil, domain.Validationf("total volume cannot be negative, got %g", *in.TotalVolume)
		}
		last, err := s.store.LatestReading(in.DeviceID)
		if err != nil {
			return nil, err
		}
		if last != nil && *in.TotalVolume < last.TotalVolume {
			return nil, domain.Computationf(
				"cumulative volume for device %s went backward: %.3f < %.3f",
				in.DeviceID, *in.TotalVolume, last.TotalVolume)
		}
		total = *in.TotalVolume
		s.acc.SyncVolume(in.DeviceID, total)
	} else {
		var err error
		total, err = s.acc.ComputeVolume(in.DeviceID, *in.PulseCount, s.calibration)
		if err != nil {
			return nil, err
		}
	}

	rd := &domain.FlowReading{
		DeviceID:    in.DeviceID,
		Timestamp:   ts,
		FlowRate:    in.FlowRate,
		TotalVolume: total,
		PulseCount:  in.PulseCount,
		Unit:        unit,
		Temperature: in.Temperature,
		Pressure:    in.Pressure,
	}
	if err := s.store.InsertReading(rd); err != nil {
		return nil, err
	}
	return rd, nil
}

// Latest returns the most recent reading for a device.
func (s *ReadingService) Latest(deviceID string) (*domain.FlowReading, error) {
	rd, err := s.store.LatestReading(deviceID)
	if err != nil {
		return nil, err
	}
	if rd == nil {
		return nil, domain.NotFoundf("no readings for device %s", deviceID)
	}
	return rd, nil
}

func (s *ReadingService) List(deviceID string, limit int) ([]domain.FlowReading, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.store.ReadingsByDevice(deviceID, limit)
}
