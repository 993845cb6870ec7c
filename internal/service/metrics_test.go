package service

import (
	"reflect"
	"testing"
	"time"

	"github.com/hidrotek/water-dispenser-system/internal/domain"
)

var metricsBase = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

func insertReading(t *testing.T, st *memStore, device string, ts time.Time, flowRate, totalVolume float64) {
	t.Helper()
	if err := st.InsertReading(&domain.FlowReading{
		DeviceID: device, Timestamp: ts, FlowRate: flowRate, TotalVolume: totalVolume, Unit: "L/min",
	}); err != nil {
		t.Fatalf("InsertReading failed: %v", err)
	}
}

func insertCompleted(t *testing.T, st *memStore, device string, start time.Time, actual, efficiency, durationSec float64) {
	t.Helper()
	end := start.Add(time.Duration(durationSec) * time.Second)
	if err := st.InsertFilling(&domain.Filling{
		DeviceID:        device,
		StartTime:       start,
		EndTime:         &end,
		TargetVolume:    actual,
		FinalVolume:     ptrF(actual),
		ActualVolume:    ptrF(actual),
		Status:          domain.FillingCompleted,
		Efficiency:      ptrF(efficiency),
		DurationSeconds: ptrF(durationSec),
		AvgFlowRate:     ptrF(actual / (durationSec / 60)),
	}); err != nil {
		t.Fatalf("InsertFilling failed: %v", err)
	}
}

func insertCancelled(t *testing.T, st *memStore, device string, start time.Time) {
	t.Helper()
	end := start.Add(time.Minute)
	if err := st.InsertFilling(&domain.Filling{
		DeviceID:  device,
		StartTime: start,
		EndTime:   &end,
		Status:    domain.FillingCancelled,
	}); err != nil {
		t.Fatalf("InsertFilling failed: %v", err)
	}
}

func TestFlowMetricsWindow(t *testing.T) {
	t.Parallel()
	st := newMemStore()
	ms := NewMetricsService(st, st, nil)

	insertReading(t, st, "dev-1", metricsBase.Add(1*time.Minute), 10, 100)
	insertReading(t, st, "dev-1", metricsBase.Add(2*time.Minute), 12, 105)
	insertReading(t, st, "dev-1", metricsBase.Add(3*time.Minute), 14, 112)
	// Another device's readings must not leak into the window.
	insertReading(t, st, "dev-2", metricsBase.Add(2*time.Minute), 99, 9000)

	m, err := ms.Flow("dev-1", metricsBase, metricsBase.Add(time.Hour))
	if err != nil {
		t.Fatalf("Flow failed: %v", err)
	}
	if !almostEqual(m.AvgFlowRate, 12) || !almostEqual(m.MinFlowRate, 10) || !almostEqual(m.MaxFlowRate, 14) {
		t.Fatalf("unexpected flow stats: %+v", m)
	}
	// Volume dispensed during the window, not the cumulative total.
	if !almostEqual(m.TotalVolume, 12) {
		t.Fatalf("expected window volume 12, got %v", m.TotalVolume)
	}
	// Sample std of 10,12,14 is 2: stability = 100 - 2/12*100
	if !almostEqual(m.Efficiency, 100-2.0/12*100) {
		t.Fatalf("unexpected stability score %v", m.Efficiency)
	}
}

func TestFlowMetricsEmptyWindow(t *testing.T) {
	t.Parallel()
	st := newMemStore()
	ms := NewMetricsService(st, st, nil)

	m, err := ms.Flow("dev-1", metricsBase, metricsBase.Add(time.Hour))
	if err != nil {
		t.Fatalf("Flow failed: %v", err)
	}
	if m.AvgFlowRate != 0 || m.TotalVolume != 0 || m.Efficiency != 0 {
		t.Fatalf("expected zeroed metrics for empty window, got %+v", m)
	}
}

func TestFillingMetricsCompletionRate(t *testing.T) {
	t.Parallel()
	st := newMemStore()
	ms := NewMetricsService(st, st, nil)

	insertCompleted(t, st, "dev-1", metricsBase.Add(1*time.Hour), 10, 100, 60)
	insertCompleted(t, st, "dev-1", metricsBase.Add(2*time.Hour), 20, 95, 120)
	insertCompleted(t, st, "dev-1", metricsBase.Add(3*time.Hour), 30, 90, 180)
	insertCancelled(t, st, "dev-1", metricsBase.Add(4*time.Hour))

	m, err := ms.Filling("dev-1", metricsBase, metricsBase.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("Filling failed: %v", err)
	}
	if m.TotalFillings != 4 || m.CompletedFillings != 3 || m.CancelledFillings != 1 {
		t.Fatalf("unexpected counts: %+v", m)
	}
	if !almostEqual(m.CompletionRate, 0.75) {
		t.Fatalf("expected completion rate 0.75, got %v", m.CompletionRate)
	}
	if !almostEqual(m.TotalVolumeDispensed, 60) {
		t.Fatalf("expected 60 L dispensed, got %v", m.TotalVolumeDispensed)
	}
	// Averages cover completed sessions only.
	if !almostEqual(m.AvgDurationSeconds, 120) || !almostEqual(m.AvgVolume, 20) || !almostEqual(m.AvgEfficiency, 95) {
		t.Fatalf("unexpected averages: %+v", m)
	}
}

func TestFillingMetricsEmptyWindowNoDivisionError(t *testing.T) {
	t.Parallel()
	st := newMemStore()
	ms := NewMetricsService(st, st, nil)

	m, err := ms.Filling("dev-1", metricsBase, metricsBase.Add(time.Hour))
	if err != nil {
		t.Fatalf("Filling failed: %v", err)
	}
	if m.CompletionRate != 0 || m.AvgEfficiency != 0 {
		t.Fatalf("expected zeroed metrics, got %+v", m)
	}
}

func TestBusinessMetrics(t *testing.T) {
	t.Parallel()
	st := newMemStore()
	ms := NewMetricsService(st, st, nil)

	day := func(d, hour int) time.Time { return metricsBase.AddDate(0, 0, d).Add(time.Duration(hour) * time.Hour) }
	insertCompleted(t, st, "dev-1", day(0, 9), 10, 100, 60)
	insertCompleted(t, st, "dev-1", day(0, 14), 5, 100, 60)
	insertCompleted(t, st, "dev-1", day(1, 9), 3, 100, 60)
	insertCompleted(t, st, "dev-1", day(1, 14), 2, 100, 60)
	insertCompleted(t, st, "dev-1", day(2, 7), 1, 100, 60)
	insertCancelled(t, st, "dev-1", day(2, 9))

	start, end := metricsBase, metricsBase.AddDate(0, 0, 2).Add(12*time.Hour)
	m, err := ms.Business("dev-1", start, end, 2.0)
	if err != nil {
		t.Fatalf("Business failed: %v", err)
	}
	if !almostEqual(m.Revenue, 42) {
		t.Fatalf("expected revenue 42, got %v", m.Revenue)
	}
	// Hour 9 has two completed and one cancelled start; the cancelled one
	// counts in the histogram but not toward peak hours.
	if m.FillingsByHour[9] != 3 || m.FillingsByHour[14] != 2 || m.FillingsByHour[7] != 1 {
		t.Fatalf("unexpected hour histogram: %v", m.FillingsByHour)
	}
	if !reflect.DeepEqual(m.PeakHours, []int{9, 14, 7}) {
		t.Fatalf("expected peak hours [9 14 7], got %v", m.PeakHours)
	}
	// Six fillings over three calendar days.
	if !almostEqual(m.AvgFillingsPerDay, 2) {
		t.Fatalf("expected 2 fillings/day, got %v", m.AvgFillingsPerDay)
	}
	if !almostEqual(m.WaterEfficiency, 100) {
		t.Fatalf("expected water efficiency 100, got %v", m.WaterEfficiency)
	}
}

func TestBusinessMetricsSingleInstantRange(t *testing.T) {
	t.Parallel()
	st := newMemStore()
	ms := NewMetricsService(st, st, nil)

	// Zero-width range still divides by one day.
	m, err := ms.Business("dev-1", metricsBase, metricsBase, 1.0)
	if err != nil {
		t.Fatalf("Business failed: %v", err)
	}
	if m.AvgFillingsPerDay != 0 {
		t.Fatalf("expected 0 fillings/day, got %v", m.AvgFillingsPerDay)
	}
}

func TestPeakHoursTieBreak(t *testing.T) {
	t.Parallel()

	got := peakHours(map[int]int{9: 2, 14: 2, 7: 1, 3: 2}, 3)
	if !reflect.DeepEqual(got, []int{3, 9, 14}) {
		t.Fatalf("expected ties broken by earlier hour, got %v", got)
	}

	if got := peakHours(map[int]int{}, 3); len(got) != 0 {
		t.Fatalf("expected no peak hours, got %v", got)
	}
}

func TestEfficiencyReport(t *testing.T) {
	t.Parallel()
	st := newMemStore()
	ms := NewMetricsService(st, st, nil)

	insertCompleted(t, st, "dev-1", metricsBase.Add(1*time.Hour), 10, 98, 60)
	insertCompleted(t, st, "dev-1", metricsBase.Add(2*time.Hour), 10, 90, 60)
	insertCompleted(t, st, "dev-1", metricsBase.Add(3*time.Hour), 10, 75, 60)
	insertCompleted(t, st, "dev-1", metricsBase.Add(4*time.Hour), 10, 60, 60)

	rep, err := ms.Report("dev-1", metricsBase, metricsBase.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	want := map[string]int{
		"excellent (>95%)": 1,
		"good (85-95%)":    1,
		"fair (70-85%)":    1,
		"poor (<70%)":      1,
	}
	if !reflect.DeepEqual(rep.Distribution, want) {
		t.Fatalf("unexpected distribution: %v", rep.Distribution)
	}
	if rep.Stats == nil {
		t.Fatalf("expected efficiency stats")
	}
	if !almostEqual(rep.Stats.Mean, 80.75) || !almostEqual(rep.Stats.Median, 82.5) {
		t.Fatalf("unexpected stats: %+v", rep.Stats)
	}
	if !almostEqual(rep.Stats.Min, 60) || !almostEqual(rep.Stats.Max, 98) {
		t.Fatalf("unexpected min/max: %+v", rep.Stats)
	}
}

func TestAnomaliesStatisticalOutlier(t *testing.T) {
	t.Parallel()
	st := newMemStore()
	ms := NewMetricsService(st, st, nil)

	for i := 0; i < 10; i++ {
		insertReading(t, st, "dev-1", metricsBase.Add(time.Duration(i)*time.Minute), 10, float64(i))
	}
	insertReading(t, st, "dev-1", metricsBase.Add(time.Hour), 500, 100)

	rep, err := ms.Anomalies("dev-1", 1000)
	if err != nil {
		t.Fatalf("Anomalies failed: %v", err)
	}
	if rep.TotalAnomalies != 1 {
		t.Fatalf("expected one anomaly, got %+v", rep)
	}
	if rep.Anomalies[0].Reason != "outside statistical range" {
		t.Fatalf("unexpected reason %q", rep.Anomalies[0].Reason)
	}
}

func TestAnomaliesThreshold(t *testing.T) {
	t.Parallel()
	st := newMemStore()
	ms := NewMetricsService(st, st, nil)

	for i, rate := range []float64{10, 10, 10, 10, 150} {
		insertReading(t, st, "dev-1", metricsBase.Add(time.Duration(i)*time.Minute), rate, float64(i))
	}

	rep, err := ms.Anomalies("dev-1", 100)
	if err != nil {
		t.Fatalf("Anomalies failed: %v", err)
	}
	if rep.TotalAnomalies != 1 {
		t.Fatalf("expected one anomaly, got %+v", rep)
	}
	if rep.Anomalies[0].Reason != "exceeds threshold" {
		t.Fatalf("unexpected reason %q", rep.Anomalies[0].Reason)
	}
}

func TestAnomaliesAlertOnHighCount(t *testing.T) {
	t.Parallel()
	st := newMemStore()
	n := &recordingNotifier{}
	ms := NewMetricsService(st, st, n)

	for i := 0; i < 20; i++ {
		insertReading(t, st, "dev-1", metricsBase.Add(time.Duration(i)*time.Minute), 10, float64(i))
	}
	for i := 0; i < 6; i++ {
		insertReading(t, st, "dev-1", metricsBase.Add(time.Duration(20+i)*time.Minute), 150, float64(20+i))
	}

	rep, err := ms.Anomalies("dev-1", 100)
	if err != nil {
		t.Fatalf("Anomalies failed: %v", err)
	}
	if rep.TotalAnomalies != 6 {
		t.Fatalf("expected six anomalies, got %d", rep.TotalAnomalies)
	}
	n.mu.Lock()
	alerts := len(n.anomalies)
	n.mu.Unlock()
	if alerts != 1 {
		t.Fatalf("expected one anomaly alert, got %d", alerts)
	}
}

func TestAnomaliesEmptyDevice(t *testing.T) {
	t.Parallel()
	st := newMemStore()
	ms := NewMetricsService(st, st, nil)

	rep, err := ms.Anomalies("ghost", 100)
	if err != nil {
		t.Fatalf("Anomalies failed: %v", err)
	}
	if rep.TotalAnomalies != 0 || len(rep.Anomalies) != 0 {
		t.Fatalf("expected empty report, got %+v", rep)
	}
}
