package edgesource

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/types"
	"go.uber.org/zap"
)

// ReplayCapture feeds a recorded edge dump (as written by piscope or the
// ook-simulator) into the queue. Timestamps are rebased so the first record
// is at zero. The dump is replayed as fast as the decoder consumes it.
type ReplayCapture struct {
	path   string
	logger *zap.SugaredLogger
}

func NewReplayCapture(path string, logger *zap.SugaredLogger) *ReplayCapture {
	return &ReplayCapture{path: path, logger: logger}
}

func (r *ReplayCapture) Name() string {
	return "replay"
}

// Capture implements Producer.
func (r *ReplayCapture) Capture(ctx context.Context, q *Queue) error {
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("could not open edge dump: %w", err)
	}
	defer f.Close()

	return r.replay(ctx, f, q)
}

func (r *ReplayCapture) replay(ctx context.Context, rd io.Reader, q *Queue) error {
	var offset uint64
	haveOffset := false

	rebase := func(ts uint64) uint64 {
		if !haveOffset {
			offset, haveOffset = ts, true
		}
		if ts < offset {
			// Out of order records collapse onto the start of the dump.
			return 0
		}
		return ts - offset
	}

	return feedLines(ctx, rd, r.path, r.logger, rebase, func(ev types.EdgeEvent) error {
		return q.Push(ctx, ev)
	})
}
