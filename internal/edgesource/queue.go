// Package edgesource delivers edge events from the capture hardware to the
// decoder through a bounded FIFO.
package edgesource

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/metrics"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/types"
)

var (
	// ErrQueueDrained is returned by Next once a queue closed without error
	// has handed out its last event.
	ErrQueueDrained = errors.New("edge queue drained")
	// ErrSourceDisconnected is returned by Next once a queue closed with an
	// error has handed out its last event.
	ErrSourceDisconnected = errors.New("edge source disconnected")
	// ErrQueueClosed is returned when pushing into a closed queue.
	ErrQueueClosed = errors.New("edge queue closed")
)

// EdgeSource is the consumer side of the capture boundary. Next never
// blocks: ok is false when no event is queued right now.
type EdgeSource interface {
	Next() (ev types.EdgeEvent, ok bool, err error)
}

// Queue is a bounded FIFO filled by one capture producer and drained by the
// decoder pipeline.
type Queue struct {
	events  chan types.EdgeEvent
	metrics *metrics.Metrics

	mu       sync.Mutex
	closed   bool
	closeErr error
}

// NewQueue creates a queue holding up to size events.
func NewQueue(size int, m *metrics.Metrics) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{
		events:  make(chan types.EdgeEvent, size),
		metrics: m,
	}
}

// Offer enqueues ev without blocking. It returns false when the event was
// dropped because the queue is full or closed. Real-time producers use it
// so a slow consumer never stalls edge capture.
func (q *Queue) Offer(ev types.EdgeEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	select {
	case q.events <- ev:
		return true
	default:
		q.metrics.ObserveDropped()
		return false
	}
}

// Push enqueues ev, waiting for room. Producers replaying recorded data
// use it so no event is lost.
func (q *Queue) Push(ctx context.Context, ev types.EdgeEvent) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return ErrQueueClosed
	}

	select {
	case q.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close marks the end of the stream. A nil err means the producer finished
// normally; anything else is reported to the consumer as a disconnect. Only
// the first call has an effect.
func (q *Queue) Close(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.closeErr = err
}

// Next implements EdgeSource.
func (q *Queue) Next() (types.EdgeEvent, bool, error) {
	q.mu.Lock()
	closed, closeErr := q.closed, q.closeErr
	q.mu.Unlock()

	select {
	case ev := <-q.events:
		return ev, true, nil
	default:
	}

	if !closed {
		return types.EdgeEvent{}, false, nil
	}
	if closeErr != nil {
		return types.EdgeEvent{}, false, fmt.Errorf("%w: %w", ErrSourceDisconnected, closeErr)
	}
	return types.EdgeEvent{}, false, ErrQueueDrained
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	return len(q.events)
}
