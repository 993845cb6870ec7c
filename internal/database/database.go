package database

import (
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/viper"
)

func Connect() (*sqlx.DB, error) {
	dsn := viper.GetString("DB_DSN")
	return sqlx.Connect("pgx", dsn)
}

// The partial unique index on fillings is what makes "start if none
// active" atomic across service instances: a second concurrent insert
// for the same device fails with a unique violation.
const schema = `
CREATE TABLE IF NOT EXISTS pumps (
	id BIGSERIAL PRIMARY KEY,
	device_id TEXT NOT NULL UNIQUE,
	status TEXT NOT NULL,
	current_level DOUBLE PRECISION NOT NULL,
	max_level DOUBLE PRECISION NOT NULL,
	threshold_warning DOUBLE PRECISION NOT NULL,
	threshold_stop DOUBLE PRECISION NOT NULL,
	last_updated TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS flow_readings (
	id BIGSERIAL PRIMARY KEY,
	device_id TEXT NOT NULL,
	timestamp TIMESTAMPTZ NOT NULL,
	flow_rate DOUBLE PRECISION NOT NULL,
	total_volume DOUBLE PRECISION NOT NULL,
	pulse_count BIGINT,
	unit TEXT NOT NULL DEFAULT 'L/min',
	temperature DOUBLE PRECISION,
	pressure DOUBLE PRECISION
);
CREATE INDEX IF NOT EXISTS flow_readings_device_ts ON flow_readings (device_id, timestamp);

CREATE TABLE IF NOT EXISTS fillings (
	id BIGSERIAL PRIMARY KEY,
	device_id TEXT NOT NULL,
	start_time TIMESTAMPTZ NOT NULL,
	end_time TIMESTAMPTZ,
	target_volume DOUBLE PRECISION NOT NULL,
	initial_volume DOUBLE PRECISION NOT NULL,
	final_volume DOUBLE PRECISION,
	actual_volume DOUBLE PRECISION,
	status TEXT NOT NULL,
	efficiency DOUBLE PRECISION,
	duration_seconds DOUBLE PRECISION,
	avg_flow_rate DOUBLE PRECISION
);
CREATE INDEX IF NOT EXISTS fillings_device_start ON fillings (device_id, start_time);
CREATE UNIQUE INDEX IF NOT EXISTS fillings_one_active_per_device
	ON fillings (device_id) WHERE status = 'active';
`

func Migrate(db *sqlx.DB) error {
	_, err := db.Exec(schema)
	return err
}
