package edgesource

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Producer captures edge events and feeds them into a queue until ctx is
// cancelled or its input ends. Returning nil means a clean end of input.
type Producer interface {
	Name() string
	Capture(ctx context.Context, q *Queue) error
}

// Start runs p in its own goroutine and closes q when it returns, passing on
// any capture error so the consumer can treat it as a disconnect.
func Start(ctx context.Context, wg *sync.WaitGroup, p Producer, q *Queue, logger *zap.SugaredLogger) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Infof("starting %s edge capture", p.Name())
		err := p.Capture(ctx, q)
		switch {
		case err == nil:
			logger.Infof("%s edge capture finished", p.Name())
		case errors.Is(err, context.Canceled):
			logger.Infof("cancellation request received. Stopping %s edge capture", p.Name())
			err = nil
		default:
			logger.Errorf("%s edge capture failed: %v", p.Name(), err)
		}
		q.Close(err)
	}()
}
