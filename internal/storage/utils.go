package storage

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StartHealthMonitor probes an engine once immediately and then on every
// interval until ctx is cancelled, recording the results in hm.
func StartHealthMonitor(ctx context.Context, wg *sync.WaitGroup, engine string, checker HealthChecker, hm *HealthManager, interval time.Duration, logger *zap.SugaredLogger) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		updateHealth := func() {
			checkCtx, cancel := context.WithTimeout(ctx, interval/2)
			defer cancel()

			h := hm.UpdateHealth(engine, checker.CheckHealth(checkCtx))
			if !h.Healthy() {
				logger.Errorf("%s health check failed: %v", engine, h.Error)
			} else {
				logger.Debugf("updated %s health status: %s", engine, h.Status)
			}
		}

		updateHealth()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				updateHealth()
			case <-ctx.Done():
				logger.Infof("stopping %s health monitor", engine)
				return
			}
		}
	}()
}
