package service

import (
	"sort"
	"sync"
	"time"

	"github.com/hidrotek/water-dispenser-system/internal/domain"
)

// memStore is an in-memory stand-in for repository.Repos. It mirrors the
// Postgres behavior the services rely on, including the unique-active
// constraint on filling inserts.
type memStore struct {
	mu       sync.Mutex
	pumps    map[string]domain.Pump
	readings []domain.FlowReading
	fillings map[int64]domain.Filling
	nextID   int64
}

func newMemStore() *memStore {
	return &memStore{
		pumps:    make(map[string]domain.Pump),
		fillings: make(map[int64]domain.Filling),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) PumpByDevice(deviceID string) (*domain.Pump, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pumps[deviceID]
	if !ok {
		return nil, domain.NotFoundf("no pump for device %s", deviceID)
	}
	cp := p
	return &cp, nil
}

func (m *memStore) SavePump(p *domain.Pump) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		p.ID = m.id()
	}
	m.pumps[p.DeviceID] = *p
	return nil
}

func (m *memStore) InsertReading(rd *domain.FlowReading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rd.ID = m.id()
	m.readings = append(m.readings, *rd)
	return nil
}

func (m *memStore) LatestReading(deviceID string) (*domain.FlowReading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *domain.FlowReading
	for i := range m.readings {
		rd := m.readings[i]
		if rd.DeviceID != deviceID {
			continue
		}
		if latest == nil || !rd.Timestamp.Before(latest.Timestamp) {
			cp := rd
			latest = &cp
		}
	}
	return latest, nil
}

func (m *memStore) ReadingsByDevice(deviceID string, limit int) ([]domain.FlowReading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.FlowReading
	for _, rd := range m.readings {
		if rd.DeviceID == deviceID {
			out = append(out, rd)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ReadingsInRange(deviceID string, start, end time.Time) ([]domain.FlowReading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.FlowReading
	for _, rd := range m.readings {
		if rd.DeviceID == deviceID && !rd.Timestamp.Before(start) && !rd.Timestamp.After(end) {
			out = append(out, rd)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *memStore) InsertFilling(f *domain.Filling) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.Status == domain.FillingActive {
		for _, existing := range m.fillings {
			if existing.DeviceID == f.DeviceID && existing.Status == domain.FillingActive {
				return domain.Conflictf("filling already in progress for device %s", f.DeviceID)
			}
		}
	}
	f.ID = m.id()
	m.fillings[f.ID] = *f
	return nil
}

func (m *memStore) FillingByID(id int64) (*domain.Filling, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.fillings[id]
	if !ok {
		return nil, domain.NotFoundf("filling %d not found", id)
	}
	cp := f
	return &cp, nil
}

func (m *memStore) UpdateFilling(f *domain.Filling) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.fillings[f.ID]; !ok {
		return domain.NotFoundf("filling %d not found", f.ID)
	}
	m.fillings[f.ID] = *f
	return nil
}

func (m *memStore) ActiveFilling(deviceID string) (*domain.Filling, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.fillings {
		if f.DeviceID == deviceID && f.Status == domain.FillingActive {
			cp := f
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) FillingsByDevice(deviceID string, limit int) ([]domain.Filling, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Filling
	for _, f := range m.fillings {
		if f.DeviceID == deviceID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) FillingsInRange(deviceID string, start, end time.Time) ([]domain.Filling, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Filling
	for _, f := range m.fillings {
		if f.DeviceID == deviceID && !f.StartTime.Before(start) && !f.StartTime.After(end) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

// recordingNotifier captures events for assertions.
type recordingNotifier struct {
	mu        sync.Mutex
	warnings  []string
	stops     []string
	completed []int64
	anomalies []string
}

func (n *recordingNotifier) PumpWarning(p *domain.Pump) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.warnings = append(n.warnings, p.DeviceID)
}

func (n *recordingNotifier) PumpStop(p *domain.Pump) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stops = append(n.stops, p.DeviceID)
}

func (n *recordingNotifier) FillingCompleted(f *domain.Filling) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, f.ID)
}

func (n *recordingNotifier) AnomaliesDetected(deviceID string, _ *domain.AnomalyReport) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.anomalies = append(n.anomalies, deviceID)
}

func (n *recordingNotifier) counts() (warnings, stops, completed int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.warnings), len(n.stops), len(n.completed)
}

func ptrF(v float64) *float64 { return &v }
func ptrI(v int64) *int64     { return &v }
