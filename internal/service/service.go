package service

import (
	"github.com/jmoiron/sqlx"

	"github.com/hidrotek/water-dispenser-system/internal/repository"
)

type Services struct {
	Readings *ReadingService
	Pumps    *PumpService
	Fillings *FillingService
	Metrics  *MetricsService
	Reports  *ReportService
	Tokens   TokenStore // nil when the push-token registry is disabled
}

// Options carries the collaborators and tunables the services need.
// Zero values fall back to sensible defaults (console notifier, stock
// calibration, stock pump thresholds, no archiver, no token registry).
type Options struct {
	Notifier     Notifier
	Archiver     ReportArchiver
	Tokens       TokenStore
	Calibration  float64
	PumpDefaults PumpDefaults
}

func New(db *sqlx.DB, opts Options) *Services {
	repos := repository.New(db)
	if opts.Notifier == nil {
		opts.Notifier = ConsoleNotifier{}
	}

	acc := NewVolumeAccumulator(repos)
	metrics := NewMetricsService(repos, repos, opts.Notifier)
	return &Services{
		Readings: NewReadingService(repos, acc, opts.Calibration),
		Pumps:    NewPumpService(repos, opts.Notifier, opts.PumpDefaults),
		Fillings: NewFillingService(repos, opts.Notifier),
		Metrics:  metrics,
		Reports:  NewReportService(metrics, opts.Archiver),
		Tokens:   opts.Tokens,
	}
}
