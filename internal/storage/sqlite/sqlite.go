// Package sqlite stores measurements in a local SQLite file for
// installations without a database server.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/types"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS measurement (
    id TEXT PRIMARY KEY,
    station TEXT NOT NULL,
    timestamp INTEGER NOT NULL,
    channel INTEGER NOT NULL,
    battery TEXT NOT NULL,
    temperature REAL NOT NULL,
    humidity REAL NOT NULL,
    raw TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS measurement_station_timestamp_idx
    ON measurement (station, timestamp DESC);`

const insertSQL = `
INSERT INTO measurement (id, station, timestamp, channel, battery, temperature, humidity, raw)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

const selectColumns = `SELECT id, station, timestamp, channel, battery, temperature, humidity, raw FROM measurement`

// Storage is a SQLite backed MeasurementStore
type Storage struct {
	db     *sql.DB
	path   string
	logger *zap.SugaredLogger
}

// New opens (or creates) the database at path. ":memory:" keeps everything
// in RAM for the lifetime of the Storage.
func New(ctx context.Context, path string, logger *zap.SugaredLogger) (*Storage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// An in-memory database only exists on the connection that created it.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	logger.Infof("creating measurement table in %s...", path)
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create measurement table: %w", err)
	}

	return &Storage{db: db, path: path, logger: logger}, nil
}

// StoreMeasurement implements storage.MeasurementSink
func (s *Storage) StoreMeasurement(ctx context.Context, m types.Measurement) error {
	_, err := s.db.ExecContext(ctx, insertSQL,
		m.ID,
		m.Station.String(),
		m.CapturedAt.UnixNano(),
		int(m.Channel),
		m.Battery.String(),
		m.Temperature,
		m.Humidity,
		m.Raw,
	)
	if err != nil {
		return fmt.Errorf("could not store measurement: %w", err)
	}
	return nil
}

// Recent implements storage.MeasurementStore
func (s *Storage) Recent(ctx context.Context, limit int) ([]types.Measurement, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying recent measurements: %w", err)
	}
	return scanMeasurements(rows)
}

// RecentByStation implements storage.MeasurementStore
func (s *Storage) RecentByStation(ctx context.Context, station types.Station, limit int) ([]types.Measurement, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` WHERE station = ? ORDER BY timestamp DESC LIMIT ?`, station.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("error querying %s measurements: %w", station, err)
	}
	return scanMeasurements(rows)
}

func scanMeasurements(rows *sql.Rows) ([]types.Measurement, error) {
	defer rows.Close()

	out := []types.Measurement{}
	for rows.Next() {
		var (
			m       types.Measurement
			ts      int64
			channel int
		)
		if err := rows.Scan(&m.ID, &m.Station, &ts, &channel, &m.Battery, &m.Temperature, &m.Humidity, &m.Raw); err != nil {
			return nil, fmt.Errorf("failed to scan measurement: %w", err)
		}
		m.CapturedAt = time.Unix(0, ts).UTC()
		m.Channel = uint8(channel)
		out = append(out, m)
	}
	return out, rows.Err()
}

// CheckHealth implements storage.HealthChecker
func (s *Storage) CheckHealth(ctx context.Context) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM measurement`).Scan(&n); err != nil {
		return fmt.Errorf("SQLite query test failed: %w", err)
	}
	return nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}
