package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/hidrotek/water-dispenser-system/internal/domain"
)

const pgUniqueViolation = "23505"

type Repos struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Repos { return &Repos{db: db} }

func (r *Repos) PumpByDevice(deviceID string) (*domain.Pump, error) {
	var p domain.Pump
	err := r.db.Get(&p, `SELECT * FROM pumps WHERE device_id = $1`, deviceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("no pump for device %s", deviceID)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repos) SavePump(p *domain.Pump) error {
	return r.db.Get(&p.ID, `
		INSERT INTO pumps (device_id, status, current_level, max_level, threshold_warning, threshold_stop, last_updated)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (device_id) DO UPDATE SET
			status = EXCLUDED.status,
			current_level = EXCLUDED.current_level,
			max_level = EXCLUDED.max_level,
			threshold_warning = EXCLUDED.threshold_warning,
			threshold_stop = EXCLUDED.threshold_stop,
			last_updated = EXCLUDED.last_updated
		RETURNING id`,
		p.DeviceID, p.Status, p.CurrentLevel, p.MaxLevel, p.ThresholdWarning, p.ThresholdStop, p.LastUpdated)
}

func (r *Repos) InsertReading(rd *domain.FlowReading) error {
	return r.db.Get(&rd.ID, `
		INSERT INTO flow_readings (device_id, timestamp, flow_rate, total_volume, pulse_count, unit, temperature, pressure)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id`,
		rd.DeviceID, rd.Timestamp, rd.FlowRate, rd.TotalVolume, rd.PulseCount, rd.Unit, rd.Temperature, rd.Pressure)
}

// LatestReading returns nil without error when the device has no readings.
func (r *Repos) LatestReading(deviceID string) (*domain.FlowReading, error) {
	var rd domain.FlowReading
	err := r.db.Get(&rd, `
		SELECT * FROM flow_readings WHERE device_id = $1
		ORDER BY timestamp DESC LIMIT 1`, deviceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rd, nil
}

func (r *Repos) ReadingsByDevice(deviceID string, limit int) ([]domain.FlowReading, error) {
	var out []domain.FlowReading
	err := r.db.Select(&out, `
		SELECT * FROM flow_readings WHERE device_id = $1
		ORDER BY timestamp DESC LIMIT $2`, deviceID, limit)
	return out, err
}

func (r *Repos) ReadingsInRange(deviceID string, start, end time.Time) ([]domain.FlowReading, error) {
	var out []domain.FlowReading
	err := r.db.Select(&out, `
		SELECT * FROM flow_readings
		WHERE device_id = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp ASC`, deviceID, start, end)
	return out, err
}

func (r *Repos) InsertFilling(f *domain.Filling) error {
	err := r.db.Get(&f.ID, `
		INSERT INTO fillings (device_id, start_time, end_time, target_volume, initial_volume, final_volume, actual_volume, status, efficiency, duration_seconds, avg_flow_rate)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id`,
		f.DeviceID, f.StartTime, f.EndTime, f.TargetVolume, f.InitialVolume, f.FinalVolume, f.ActualVolume, f.Status, f.Efficiency, f.DurationSeconds, f.AvgFlowRate)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return domain.Conflictf("filling already in progress for device %s", f.DeviceID)
	}
	return err
}

func (r *Repos) FillingByID(id int64) (*domain.Filling, error) {
	var f domain.Filling
	err := r.db.Get(&f, `SELECT * FROM fillings WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("filling %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *Repos) UpdateFilling(f *domain.Filling) error {
	res, err := r.db.Exec(`
		UPDATE fillings SET
			end_time = $1, final_volume = $2, actual_volume = $3, status = $4,
			efficiency = $5, duration_seconds = $6, avg_flow_rate = $7
		WHERE id = $8`,
		f.EndTime, f.FinalVolume, f.ActualVolume, f.Status, f.Efficiency, f.DurationSeconds, f.AvgFlowRate, f.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFoundf("filling %d not found", f.ID)
	}
	return nil
}

// ActiveFilling returns nil without error when no session is active.
func (r *Repos) ActiveFilling(deviceID string) (*domain.Filling, error) {
	var f domain.Filling
	err := r.db.Get(&f, `
		SELECT * FROM fillings WHERE device_id = $1 AND status = $2`,
		deviceID, domain.FillingActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *Repos) FillingsByDevice(deviceID string, limit int) ([]domain.Filling, error) {
	var out []domain.Filling
	err := r.db.Select(&out, `
		SELECT * FROM fillings WHERE device_id = $1
		ORDER BY start_time DESC LIMIT $2`, deviceID, limit)
	return out, err
}

func (r *Repos) FillingsInRange(deviceID string, start, end time.Time) ([]domain.Filling, error) {
	var out []domain.Filling
	err := r.db.Select(&out, `
		SELECT * FROM fillings
		WHERE device_id = $1 AND start_time >= $2 AND start_time <= $3
		ORDER BY start_time ASC`, deviceID, start, end)
	return out, err
}
