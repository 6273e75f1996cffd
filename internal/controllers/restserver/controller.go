package restserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/metrics"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/storage"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/pkg/config"
	"go.uber.org/zap"
)

// Controller represents the REST server controller
type Controller struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	restConfig config.RESTServerData
	Server     http.Server
	History    storage.MeasurementStore
	Health     *storage.HealthManager
	Metrics    *metrics.Metrics
	logger     *zap.SugaredLogger
	handlers   *Handlers
}

// NewController creates a new REST server controller. Metrics are served on
// /metrics when m is non-nil.
func NewController(ctx context.Context, wg *sync.WaitGroup, rc config.RESTServerData, history storage.MeasurementStore, health *storage.HealthManager, m *metrics.Metrics, logger *zap.SugaredLogger) (*Controller, error) {
	if history == nil {
		return nil, errors.New("REST server requires a history store")
	}

	ctrl := &Controller{
		ctx:        ctx,
		wg:         wg,
		restConfig: rc,
		History:    history,
		Health:     health,
		Metrics:    m,
		logger:     logger,
	}

	// If a ListenAddr was not provided, listen on all interfaces
	if rc.ListenAddr == "" {
		logger.Info("rest.listen-addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		rc.ListenAddr = "0.0.0.0"
	}

	if rc.Port == 0 {
		logger.Info("rest.port not provided; defaulting to 8080")
		rc.Port = 8080
	}
	ctrl.restConfig = rc

	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", rc.ListenAddr, rc.Port)
	ctrl.Server.Handler = ctrl.setupRouter()

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	c.logger.Infof("Starting REST server on %v...", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		var err error
		if c.restConfig.Cert != "" && c.restConfig.Key != "" {
			err = c.Server.ListenAndServeTLS(c.restConfig.Cert, c.restConfig.Key)
		} else {
			err = c.Server.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			c.logger.Errorf("REST server error: %v", err)
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		<-c.ctx.Done()
		c.logger.Info("Shutting down the REST server...")
		c.Server.Shutdown(context.Background())
	}()

	return nil
}

// Handler returns the configured router.
func (c *Controller) Handler() http.Handler {
	return c.Server.Handler
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/measurements", c.handlers.GetMeasurements).Methods(http.MethodGet)
	router.HandleFunc("/measurements/{station}", c.handlers.GetStationMeasurements).Methods(http.MethodGet)
	router.HandleFunc("/latest", c.handlers.GetLatest).Methods(http.MethodGet)
	router.HandleFunc("/healthz", c.handlers.GetHealth).Methods(http.MethodGet)

	if c.Metrics != nil {
		router.Handle("/metrics", c.Metrics.Handler()).Methods(http.MethodGet)
	}

	return router
}
