// Package timescaledb stores measurements in PostgreSQL, optionally as a
// TimescaleDB hypertable.
package timescaledb

import (
	"context"
	"fmt"

	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/database"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/types"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/pkg/config"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Storage holds the connection of a TimescaleDB storage backend
type Storage struct {
	TimescaleDBConn *gorm.DB
	logger          *zap.SugaredLogger
}

// New connects to the database and makes sure the schema exists.
func New(ctx context.Context, c *config.TimescaleDBData, logger *zap.SugaredLogger) (*Storage, error) {
	db, err := database.CreateConnection(c.ConnectionString)
	if err != nil {
		return nil, err
	}

	t := NewWithConn(db, logger)
	if err := t.Bootstrap(ctx, c.Hypertable); err != nil {
		return nil, err
	}
	return t, nil
}

// NewWithConn wraps an already opened connection.
func NewWithConn(db *gorm.DB, logger *zap.SugaredLogger) *Storage {
	return &Storage{TimescaleDBConn: db, logger: logger}
}

type bootstrapStep struct {
	name string
	sql  string
}

// Bootstrap creates the measurement table and its index. With hypertable
// set, the TimescaleDB extension is enabled and the table converted.
func (t *Storage) Bootstrap(ctx context.Context, hypertable bool) error {
	steps := []bootstrapStep{
		{"measurement table", createTableSQL},
		{"station index", createStationIndexSQL},
	}
	if hypertable {
		steps = append(steps,
			bootstrapStep{"TimescaleDB extension", createExtensionSQL},
			bootstrapStep{"hypertable", createHypertableSQL},
		)
	}

	for _, s := range steps {
		t.logger.Infof("creating %s...", s.name)
		if err := t.TimescaleDBConn.WithContext(ctx).Exec(s.sql).Error; err != nil {
			return fmt.Errorf("could not create %s: %w", s.name, err)
		}
	}
	return nil
}

// StoreMeasurement stores a measurement in TimescaleDB
func (t *Storage) StoreMeasurement(ctx context.Context, m types.Measurement) error {
	if err := t.TimescaleDBConn.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("could not store measurement: %w", err)
	}
	return nil
}

// Recent implements storage.MeasurementStore
func (t *Storage) Recent(ctx context.Context, limit int) ([]types.Measurement, error) {
	var out []types.Measurement
	err := t.TimescaleDBConn.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("error querying database for recent measurements: %w", err)
	}
	return nonNil(out), nil
}

// RecentByStation implements storage.MeasurementStore
func (t *Storage) RecentByStation(ctx context.Context, station types.Station, limit int) ([]types.Measurement, error) {
	var out []types.Measurement
	err := t.TimescaleDBConn.WithContext(ctx).
		Where("station = ?", station.String()).
		Order("timestamp DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("error querying database for %s measurements: %w", station, err)
	}
	return nonNil(out), nil
}

func (t *Storage) Close() error {
	sqlDB, err := t.TimescaleDBConn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func nonNil(ms []types.Measurement) []types.Measurement {
	if ms == nil {
		return []types.Measurement{}
	}
	return ms
}
