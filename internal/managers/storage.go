package managers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/storage"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/storage/grpcstream"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/storage/memory"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/storage/mqtt"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/storage/sqlite"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/storage/timescaledb"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/types"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/pkg/config"
	"go.uber.org/zap"
)

// StorageManager holds our active storage backends and writes every
// measurement to all of them before returning.
type StorageManager struct {
	Engines []StorageEngine
	Health  *storage.HealthManager

	history storage.MeasurementStore
	logger  *zap.SugaredLogger
}

// StorageEngine is one configured backend. Store engines persist
// measurements and their failures are fatal; publish engines only forward
// them and their failures are logged.
type StorageEngine struct {
	Name    string
	Sink    storage.MeasurementSink
	Publish bool
}

// NewStorageManager creates a StorageManager object, populated with all
// configured storage engines. Without a database engine, measurements are
// kept in memory so the history API still works.
func NewStorageManager(ctx context.Context, wg *sync.WaitGroup, c *config.StorageData, logger *zap.SugaredLogger) (*StorageManager, error) {
	s := NewEmptyStorageManager(logger)

	// Check the configuration for the supported storage backends
	// and enable them if found
	if c.TimescaleDB != nil {
		if err := s.AddEngine(ctx, wg, "timescaledb", c); err != nil {
			s.Close()
			return nil, fmt.Errorf("could not add TimescaleDB storage backend: %v", err)
		}
	}
	if c.SQLite != nil {
		if err := s.AddEngine(ctx, wg, "sqlite", c); err != nil {
			s.Close()
			return nil, fmt.Errorf("could not add SQLite storage backend: %v", err)
		}
	}
	if s.history == nil {
		logger.Warn("no database configured, measurements are only kept in memory")
		if err := s.AddEngine(ctx, wg, "memory", c); err != nil {
			return nil, err
		}
	}
	if c.MQTT != nil {
		if err := s.AddEngine(ctx, wg, "mqtt", c); err != nil {
			s.Close()
			return nil, fmt.Errorf("could not add MQTT storage backend: %v", err)
		}
	}
	if c.GRPC != nil {
		if err := s.AddEngine(ctx, wg, "grpc", c); err != nil {
			s.Close()
			return nil, fmt.Errorf("could not add gRPC storage backend: %v", err)
		}
	}

	return s, nil
}

// NewEmptyStorageManager creates a manager without engines.
func NewEmptyStorageManager(logger *zap.SugaredLogger) *StorageManager {
	return &StorageManager{
		Health: storage.NewHealthManager(),
		logger: logger,
	}
}

// AddEngine creates the StorageEngine engineName from c and adds it
func (s *StorageManager) AddEngine(ctx context.Context, wg *sync.WaitGroup, engineName string, c *config.StorageData) error {
	switch engineName {
	case "timescaledb":
		t, err := timescaledb.New(ctx, c.TimescaleDB, s.logger.Named("timescaledb"))
		if err != nil {
			return err
		}
		s.Add(engineName, t, false)
	case "sqlite":
		st, err := sqlite.New(ctx, c.SQLite.Path, s.logger.Named("sqlite"))
		if err != nil {
			return err
		}
		s.Add(engineName, st, false)
	case "memory":
		s.Add(engineName, memory.New(), false)
	case "mqtt":
		p, err := mqtt.New(ctx, c.MQTT, s.logger.Named("mqtt"))
		if err != nil {
			return err
		}
		s.Add(engineName, p, true)
	case "grpc":
		g, err := grpcstream.New(c.GRPC, s.logger.Named("grpc"))
		if err != nil {
			return err
		}
		if err := g.Start(ctx, wg); err != nil {
			return err
		}
		s.Add(engineName, g, true)
	default:
		return fmt.Errorf("unknown storage engine: %s", engineName)
	}

	s.logger.Infof("added %s storage engine", engineName)
	return nil
}

// Add registers an already created engine. The first store engine that
// can answer history queries becomes the history store.
func (s *StorageManager) Add(name string, sink storage.MeasurementSink, publish bool) {
	s.Engines = append(s.Engines, StorageEngine{Name: name, Sink: sink, Publish: publish})
	if st, ok := sink.(storage.MeasurementStore); ok && !publish && s.history == nil {
		s.history = st
	}
}

// History returns the store serving history queries, or nil.
func (s *StorageManager) History() storage.MeasurementStore {
	return s.history
}

// StoreMeasurement implements storage.MeasurementSink by writing m to every
// engine in order. The returned error joins the failures of all store
// engines.
func (s *StorageManager) StoreMeasurement(ctx context.Context, m types.Measurement) error {
	var errs []error
	for _, e := range s.Engines {
		err := e.Sink.StoreMeasurement(ctx, m)
		if err == nil {
			continue
		}
		if e.Publish {
			s.logger.Warnf("%s could not publish measurement %s: %v", e.Name, m.ID, err)
			continue
		}
		errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
	}
	return errors.Join(errs...)
}

// StartHealthMonitors probes every engine that supports it on interval.
func (s *StorageManager) StartHealthMonitors(ctx context.Context, wg *sync.WaitGroup, interval time.Duration) {
	for _, e := range s.Engines {
		if hc, ok := e.Sink.(storage.HealthChecker); ok {
			storage.StartHealthMonitor(ctx, wg, e.Name, hc, s.Health, interval, s.logger)
		}
	}
}

// Close closes every engine and returns the joined errors.
func (s *StorageManager) Close() error {
	var errs []error
	for _, e := range s.Engines {
		if c, ok := e.Sink.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
			}
		}
	}
	return errors.Join(errs...)
}
