package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hidrotek/water-dispenser-system/internal/domain"
)

// ReportService generates efficiency reports and, when an archiver is
// configured, stores a JSON copy and returns its download URL. Archive
// failures are logged, never surfaced: the report itself is the product.
type ReportService struct {
	metrics  *MetricsService
	archiver ReportArchiver
}

func NewReportService(metrics *MetricsService, archiver ReportArchiver) *ReportService {
	return &ReportService{metrics: metrics, archiver: archiver}
}

func (s *ReportService) Efficiency(deviceID string, start, end time.Time) (*domain.EfficiencyReport, string, error) {
	rep, err := s.metrics.Report(deviceID, start, end)
	if err != nil {
		return nil, "", err
	}

	var url string
	if s.archiver != nil {
		data, err := json.Marshal(rep)
		if err != nil {
			return nil, "", err
		}
		key := archiveKey(deviceID, start, end)
		url, err = s.archiver.UploadReport(key, data, "application/json")
		if err != nil {
			log.Error().Err(err).Str("device_id", deviceID).Str("key", key).Msg("report archive failed")
			url = ""
		}
	}
	return rep, url, nil
}

// Archived lists report keys previously stored for a device; empty when
// no archiver is configured.
func (s *ReportService) Archived(deviceID string) ([]string, error) {
	if s.archiver == nil {
		return nil, nil
	}
	return s.archiver.ListReports("reports/" + deviceID + "/")
}

func archiveKey(deviceID string, start, end time.Time) string {
	return fmt.Sprintf("reports/%s/%s_%s.json",
		deviceID, start.Format("20060102"), end.Format("20060102"))
}
