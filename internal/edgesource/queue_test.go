package edgesource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/metrics"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(4, nil)

	for i := uint64(1); i <= 3; i++ {
		if !q.Offer(types.EdgeEvent{Timestamp: i * 100, Level: uint8(i % 2)}) {
			t.Fatalf("Offer %d rejected", i)
		}
	}
	if q.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", q.Len())
	}

	for i := uint64(1); i <= 3; i++ {
		ev, ok, err := q.Next()
		if err != nil || !ok {
			t.Fatalf("Next() = %v, %v", ok, err)
		}
		if ev.Timestamp != i*100 {
			t.Errorf("event %d has timestamp %d", i, ev.Timestamp)
		}
	}

	if _, ok, err := q.Next(); ok || err != nil {
		t.Errorf("Next() on empty open queue = %v, %v; want false, nil", ok, err)
	}
}

func TestQueueOfferDropsWhenFull(t *testing.T) {
	m := metrics.New()
	q := NewQueue(2, m)

	q.Offer(types.EdgeEvent{Timestamp: 1})
	q.Offer(types.EdgeEvent{Timestamp: 2})
	if q.Offer(types.EdgeEvent{Timestamp: 3}) {
		t.Error("Offer on a full queue succeeded")
	}
	if got := testutil.ToFloat64(m.EdgesDropped); got != 1 {
		t.Errorf("dropped counter = %v, want 1", got)
	}
}

func TestQueueClose(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{name: "clean end", err: nil, wantErr: ErrQueueDrained},
		{name: "capture failure", err: errors.New("gpio chip removed"), wantErr: ErrSourceDisconnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQueue(4, nil)
			q.Offer(types.EdgeEvent{Timestamp: 42})
			q.Close(tt.err)
			q.Close(errors.New("second close is ignored"))

			if q.Offer(types.EdgeEvent{Timestamp: 43}) {
				t.Error("Offer on a closed queue succeeded")
			}
			if err := q.Push(context.Background(), types.EdgeEvent{}); !errors.Is(err, ErrQueueClosed) {
				t.Errorf("Push on a closed queue = %v, want ErrQueueClosed", err)
			}

			ev, ok, err := q.Next()
			if err != nil || !ok || ev.Timestamp != 42 {
				t.Fatalf("queued event lost after close: %+v, %v, %v", ev, ok, err)
			}

			_, ok, err = q.Next()
			if ok || !errors.Is(err, tt.wantErr) {
				t.Errorf("Next() after drain = %v, %v; want %v", ok, err, tt.wantErr)
			}
			if tt.err != nil && !errors.Is(err, tt.err) {
				t.Errorf("Next() = %v, want it to wrap %v", err, tt.err)
			}
		})
	}
}

func TestQueuePushWaitsForRoom(t *testing.T) {
	q := NewQueue(1, nil)
	q.Offer(types.EdgeEvent{Timestamp: 1})

	done := make(chan error, 1)
	go func() {
		done <- q.Push(context.Background(), types.EdgeEvent{Timestamp: 2})
	}()

	select {
	case err := <-done:
		t.Fatalf("Push returned %v before room was available", err)
	case <-time.After(20 * time.Millisecond):
	}

	if _, ok, _ := q.Next(); !ok {
		t.Fatal("expected the first event")
	}
	if err := <-done; err != nil {
		t.Fatalf("Push: %v", err)
	}
	if ev, ok, _ := q.Next(); !ok || ev.Timestamp != 2 {
		t.Errorf("Next() = %+v, %v; want the pushed event", ev, ok)
	}
}

func TestQueuePushCancelled(t *testing.T) {
	q := NewQueue(1, nil)
	q.Offer(types.EdgeEvent{Timestamp: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Push(ctx, types.EdgeEvent{Timestamp: 2}); !errors.Is(err, context.Canceled) {
		t.Errorf("Push() = %v, want context.Canceled", err)
	}
}
