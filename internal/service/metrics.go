package service

import (
	"math"
	"sort"
	"time"

	"github.com/hidrotek/water-dispenser-system/internal/domain"
)

const (
	peakHourCount = 3

	// anomalyAlertFloor is how many anomalous readings a single scan must
	// find before the notifier is told about it.
	anomalyAlertFloor = 5
)

// MetricsService computes windowed statistics over stored readings and
// filling sessions. It holds no state of its own; every call reads the
// stores and folds the rows in one pass.
type MetricsService struct {
	readings ReadingStore
	fillings FillingStore
	notifier Notifier
}

func NewMetricsService(readings ReadingStore, fillings FillingStore, notifier Notifier) *MetricsService {
	if notifier == nil {
		notifier = ConsoleNotifier{}
	}
	return &MetricsService{readings: readings, fillings: fillings, notifier: notifier}
}

func (s *MetricsService) Flow(deviceID string, start, end time.Time) (*domain.FlowMetrics, error) {
	rows, err := s.readings.ReadingsInRange(deviceID, start, end)
	if err != nil {
		return nil, err
	}

	m := &domain.FlowMetrics{PeriodStart: start, PeriodEnd: end}
	if len(rows) == 0 {
		return m, nil
	}

	rates := make([]float64, len(rows))
	for i, r := range rows {
		rates[i] = r.FlowRate
	}
	m.AvgFlowRate = mean(rates)
	m.MinFlowRate, m.MaxFlowRate = minMax(rates)
	// Volume dispensed during the window, not the lifetime cumulative
	// value; rows are already scoped to one device.
	m.TotalVolume = rows[len(rows)-1].TotalVolume - rows[0].TotalVolume

	// Flow-stability score: how consistently the sensor delivered its
	// nominal rate over the window.
	if m.AvgFlowRate > 0 {
		m.Efficiency = math.Max(0, 100-stddev(rates)/m.AvgFlowRate*100)
	}
	return m, nil
}

func (s *MetricsService) Filling(deviceID string, start, end time.Time) (*domain.FillingMetrics, error) {
	rows, err := s.fillings.FillingsInRange(deviceID, start, end)
	if err != nil {
		return nil, err
	}

	m := &domain.FillingMetrics{PeriodStart: start, PeriodEnd: end, TotalFillings: len(rows)}

	var durations, volumes, efficiencies []float64
	for _, f := range rows {
		switch f.Status {
		case domain.FillingCompleted:
			m.CompletedFillings++
			if f.DurationSeconds != nil {
				durations = append(durations, *f.DurationSeconds)
			}
			if f.ActualVolume != nil {
				volumes = append(volumes, *f.ActualVolume)
				m.TotalVolumeDispensed += *f.ActualVolume
			}
			if f.Efficiency != nil {
				efficiencies = append(efficiencies, *f.Efficiency)
			}
		case domain.FillingCancelled:
			m.CancelledFillings++
		}
	}

	if terminal := m.CompletedFillings + m.CancelledFillings; terminal > 0 {
		m.CompletionRate = float64(m.CompletedFillings) / float64(terminal)
	}
	m.AvgDurationSeconds = mean(durations)
	m.AvgVolume = mean(volumes)
	m.AvgEfficiency = mean(efficiencies)
	return m, nil
}

func (s *MetricsService) Business(deviceID string, start, end time.Time, pricePerLiter float64) (*domain.BusinessMetrics, error) {
	fm, err := s.Filling(deviceID, start, end)
	if err != nil {
		return nil, err
	}
	rows, err := s.fillings.FillingsInRange(deviceID, start, end)
	if err != nil {
		return nil, err
	}

	m := &domain.BusinessMetrics{
		Revenue:         fm.TotalVolumeDispensed * pricePerLiter,
		FillingsByHour:  make(map[int]int),
		FillingsByDay:   make(map[string]int),
		WaterEfficiency: fm.AvgEfficiency,
	}

	completedByHour := make(map[int]int)
	for _, f := range rows {
		m.FillingsByHour[f.StartTime.Hour()]++
		m.FillingsByDay[f.StartTime.Format("2006-01-02")]++
		if f.Status == domain.FillingCompleted {
			completedByHour[f.StartTime.Hour()]++
		}
	}
	m.PeakHours = peakHours(completedByHour, peakHourCount)

	m.AvgFillingsPerDay = float64(fm.TotalFillings) / float64(daysSpanned(start, end))
	return m, nil
}

// Report combines the windowed metrics with per-session efficiency
// statistics and a quality distribution.
func (s *MetricsService) Report(deviceID string, start, end time.Time) (*domain.EfficiencyReport, error) {
	flow, err := s.Flow(deviceID, start, end)
	if err != nil {
		return nil, err
	}
	filling, err := s.Filling(deviceID, start, end)
	if err != nil {
		return nil, err
	}
	rows, err := s.fillings.FillingsInRange(deviceID, start, end)
	if err != nil {
		return nil, err
	}

	rep := &domain.EfficiencyReport{
		Flow:         *flow,
		Filling:      *filling,
		Distribution: make(map[string]int),
	}

	var effs []float64
	for _, f := range rows {
		if f.Efficiency == nil {
			continue
		}
		e := *f.Efficiency
		effs = append(effs, e)
		switch {
		case e > 95:
			rep.Distribution["excellent (>95%)"]++
		case e >= 85:
			rep.Distribution["good (85-95%)"]++
		case e >= 70:
			rep.Distribution["fair (70-85%)"]++
		default:
			rep.Distribution["poor (<70%)"]++
		}
	}
	if len(effs) > 0 {
		mn, mx := minMax(effs)
		rep.Stats = &domain.EfficiencyStats{
			Mean:   mean(effs),
			Median: median(effs),
			Std:    stddev(effs),
			Min:    mn,
			Max:    mx,
		}
	}
	return rep, nil
}

// Anomalies scans the most recent readings for flow rates outside a
// three-sigma band or above an absolute threshold.
func (s *MetricsService) Anomalies(deviceID string, threshold float64) (*domain.AnomalyReport, error) {
	if threshold <= 0 {
		threshold = 100
	}
	rows, err := s.readings.ReadingsByDevice(deviceID, 1000)
	if err != nil {
		return nil, err
	}

	rep := &domain.AnomalyReport{Anomalies: []domain.Anomaly{}}
	if len(rows) == 0 {
		return rep, nil
	}

	rates := make([]float64, len(rows))
	for i, r := range rows {
		rates[i] = r.FlowRate
	}
	rep.MeanFlowRate = mean(rates)
	rep.StdFlowRate = stddev(rates)
	rep.UpperBound = rep.MeanFlowRate + 3*rep.StdFlowRate
	rep.LowerBound = math.Max(0, rep.MeanFlowRate-3*rep.StdFlowRate)

	for _, r := range rows {
		switch {
		case r.FlowRate > rep.UpperBound || r.FlowRate < rep.LowerBound:
			rep.Anomalies = append(rep.Anomalies, domain.Anomaly{
				ReadingID: r.ID, FlowRate: r.FlowRate, Timestamp: r.Timestamp,
				Reason: "outside statistical range",
			})
		case r.FlowRate > threshold:
			rep.Anomalies = append(rep.Anomalies, domain.Anomaly{
				ReadingID: r.ID, FlowRate: r.FlowRate, Timestamp: r.Timestamp,
				Reason: "exceeds threshold",
			})
		}
	}
	rep.TotalAnomalies = len(rep.Anomalies)
	if rep.TotalAnomalies >= anomalyAlertFloor {
		s.notifier.AnomaliesDetected(deviceID, rep)
	}
	return rep, nil
}

// peakHours returns the n hours with the most entries, ties broken by
// the earlier hour. Hours with no entries are never reported.
func peakHours(byHour map[int]int, n int) []int {
	hours := make([]int, 0, len(byHour))
	for h := range byHour {
		hours = append(hours, h)
	}
	sort.Slice(hours, func(i, j int) bool {
		if byHour[hours[i]] != byHour[hours[j]] {
			return byHour[hours[i]] > byHour[hours[j]]
		}
		return hours[i] < hours[j]
	})
	if len(hours) > n {
		hours = hours[:n]
	}
	return hours
}

// daysSpanned counts the distinct calendar days touched by [start, end],
// never less than 1.
func daysSpanned(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location())
	days := int(e.Sub(s).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev is the sample standard deviation; 0 for fewer than two values.
func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var sq float64
	for _, x := range xs {
		d := x - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(xs)-1))
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func minMax(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	mn, mx := xs[0], xs[0]
	for _, x := range xs[1:] {
		if x < mn {
			mn = x
		}
		if x > mx {
			mx = x
		}
	}
	return mn, mx
}
