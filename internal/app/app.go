package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/controllers/restserver"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/decoder"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/edgesource"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/managers"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/metrics"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/pkg/config"
	"go.uber.org/zap"
)

const healthCheckInterval = time.Minute

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

// Run starts the application and blocks until a shutdown signal, the end of
// a finite capture or a fatal pipeline error.
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	decoderConfig, err := DecoderConfig(cfg)
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	storageManager, err := managers.NewStorageManager(ctx, &wg, &cfg.Storage, a.logger.Named("storage"))
	if err != nil {
		return err
	}
	defer storageManager.Close()
	storageManager.StartHealthMonitors(ctx, &wg, healthCheckInterval)

	producer, err := managers.NewCaptureProducer(&cfg.Capture, a.logger.Named("capture"))
	if err != nil {
		return err
	}
	queue := edgesource.NewQueue(cfg.Capture.QueueSize, m)
	edgesource.Start(ctx, &wg, producer, queue, a.logger.Named("capture"))

	if cfg.REST != nil {
		rest, err := restserver.NewController(ctx, &wg, *cfg.REST, storageManager.History(), storageManager.Health, m, a.logger.Named("rest"))
		if err != nil {
			return err
		}
		if err := rest.StartController(); err != nil {
			return err
		}
	}

	pipeline := decoder.New(decoderConfig, storageManager, m, a.logger.Named("decoder"))
	pipelineErr := make(chan error, 1)
	go func() {
		pipelineErr <- pipeline.Run(ctx, queue)
	}()

	a.logger.Info("Application started successfully")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	var runErr error
	pipelineDone := false
	select {
	case <-sigs:
		a.logger.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		a.logger.Info("context cancelled, shutting down...")
	case runErr = <-pipelineErr:
		pipelineDone = true
		if runErr != nil {
			a.logger.Errorf("decoder pipeline stopped: %v", runErr)
		} else {
			a.logger.Info("decoder pipeline finished, shutting down...")
		}
	}

	// Cancel context to signal all goroutines to stop
	cancel()
	if !pipelineDone {
		runErr = <-pipelineErr
	}

	a.logger.Info("waiting for all workers to terminate...")
	wg.Wait()
	a.logger.Info("shutdown complete")

	return runErr
}

// DecoderConfig converts the decoder and capture sections into the
// pipeline's configuration.
func DecoderConfig(cfg *config.ConfigData) (decoder.Config, error) {
	policy, err := decoder.ParseDriftPolicy(cfg.Decoder.DriftPolicy)
	if err != nil {
		return decoder.Config{}, err
	}
	poll, err := cfg.Capture.PollIntervalDuration()
	if err != nil {
		return decoder.Config{}, err
	}

	return decoder.Config{
		PartTimeout:  cfg.Decoder.PartTimeout,
		PollInterval: poll,
		Limits: decoder.Limits{
			MinTemperature: cfg.Decoder.MinTemperature,
			MaxTemperature: cfg.Decoder.MaxTemperature,
			DriftTolerance: cfg.Decoder.DriftTolerance,
			DriftPolicy:    policy,
		},
	}, nil
}
