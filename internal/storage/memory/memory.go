// Package memory is a MeasurementStore that keeps everything in RAM. It is
// used for dry runs without a database and as the fake in tests.
package memory

import (
	"context"
	"sync"

	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/types"
)

// Store holds measurements in arrival order.
type Store struct {
	mu           sync.RWMutex
	measurements []types.Measurement

	// FailWith, when set, is returned by every StoreMeasurement call.
	FailWith error
}

func New() *Store {
	return &Store{}
}

// StoreMeasurement implements storage.MeasurementSink
func (s *Store) StoreMeasurement(_ context.Context, m types.Measurement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWith != nil {
		return s.FailWith
	}
	s.measurements = append(s.measurements, m)
	return nil
}

// Recent implements storage.MeasurementStore
func (s *Store) Recent(_ context.Context, limit int) ([]types.Measurement, error) {
	return s.filter(limit, func(types.Measurement) bool { return true }), nil
}

// RecentByStation implements storage.MeasurementStore
func (s *Store) RecentByStation(_ context.Context, station types.Station, limit int) ([]types.Measurement, error) {
	return s.filter(limit, func(m types.Measurement) bool { return m.Station == station }), nil
}

func (s *Store) filter(limit int, keep func(types.Measurement) bool) []types.Measurement {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []types.Measurement{}
	for i := len(s.measurements) - 1; i >= 0 && len(out) < limit; i-- {
		if keep(s.measurements[i]) {
			out = append(out, s.measurements[i])
		}
	}
	return out
}

// All returns every stored measurement in arrival order.
func (s *Store) All() []types.Measurement {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]types.Measurement(nil), s.measurements...)
}

// CheckHealth implements storage.HealthChecker
func (s *Store) CheckHealth(context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}
