package service

import (
	"time"

	"github.com/hidrotek/water-dispenser-system/internal/domain"
)

// The store interfaces are what the services need from persistence;
// *repository.Repos satisfies all of them. LatestReading and
// ActiveFilling return nil without error when there is nothing yet.

type ReadingStore interface {
	InsertReading(rd *domain.FlowReading) error
	LatestReading(deviceID string) (*domain.FlowReading, error)
	ReadingsByDevice(deviceID string, limit int) ([]domain.FlowReading, error)
	ReadingsInRange(deviceID string, start, end time.Time) ([]domain.FlowReading, error)
}

type PumpStore interface {
	PumpByDevice(deviceID string) (*domain.Pump, error)
	SavePump(p *domain.Pump) error
}

// FillingStore must reject InsertFilling with a conflict error when the
// device already has an active session (the Postgres implementation does
// this with a partial unique index).
type FillingStore interface {
	InsertFilling(f *domain.Filling) error
	FillingByID(id int64) (*domain.Filling, error)
	UpdateFilling(f *domain.Filling) error
	ActiveFilling(deviceID string) (*domain.Filling, error)
	FillingsByDevice(deviceID string, limit int) ([]domain.Filling, error)
	FillingsInRange(deviceID string, start, end time.Time) ([]domain.Filling, error)
}

// TokenStore keeps push-notification tokens registered per device.
type TokenStore interface {
	RegisterToken(deviceID, token string) error
	TokensForDevice(deviceID string) ([]string, error)
}

// ReportArchiver stores generated reports and hands back a download URL.
type ReportArchiver interface {
	UploadReport(key string, data []byte, contentType string) (string, error)
	ListReports(prefix string) ([]string, error)
}
