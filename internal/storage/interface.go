// Package storage defines the measurement sinks the decoder writes to and
// the history stores the REST server reads from.
package storage

import (
	"context"

	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/types"
)

// MeasurementSink accepts one accepted measurement per burst. Writes are
// synchronous; an error means the measurement was not persisted.
type MeasurementSink interface {
	StoreMeasurement(ctx context.Context, m types.Measurement) error
}

// MeasurementStore is a sink that can also answer history queries.
type MeasurementStore interface {
	MeasurementSink
	// Recent returns up to limit measurements, newest first.
	Recent(ctx context.Context, limit int) ([]types.Measurement, error)
	// RecentByStation returns up to limit measurements of one station, newest first.
	RecentByStation(ctx context.Context, station types.Station, limit int) ([]types.Measurement, error)
	Close() error
}

// HealthChecker is implemented by engines that can probe their backend.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}
