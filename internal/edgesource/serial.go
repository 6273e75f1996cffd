package edgesource

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/types"
	serial "github.com/tarm/goserial"
	"go.uber.org/zap"
)

// SerialCapture reads edge records from a microcontroller that timestamps
// the receiver output itself and forwards "<µs> <level>" lines over a
// serial port. The microcontroller's 32-bit microsecond counter wraps about
// every 71 minutes; wraps are folded into a 64-bit timeline.
type SerialCapture struct {
	device string
	baud   int
	logger *zap.SugaredLogger

	openPort func(*serial.Config) (io.ReadWriteCloser, error)
}

func NewSerialCapture(device string, baud int, logger *zap.SugaredLogger) *SerialCapture {
	return &SerialCapture{
		device:   device,
		baud:     baud,
		logger:   logger,
		openPort: serial.OpenPort,
	}
}

func (s *SerialCapture) Name() string {
	return "serial"
}

// Capture implements Producer.
func (s *SerialCapture) Capture(ctx context.Context, q *Queue) error {
	sc := &serial.Config{Name: s.device, Baud: s.baud}
	rwc, err := s.openPort(sc)
	if err != nil {
		return fmt.Errorf("could not open serial port %s: %w", s.device, err)
	}

	// Closing the port is the only way to interrupt a blocked read.
	var closeOnce sync.Once
	closePort := func() { closeOnce.Do(func() { rwc.Close() }) }
	defer closePort()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			closePort()
		case <-done:
		}
	}()

	ext := &wrapExtender{}
	err = feedLines(ctx, rwc, s.device, s.logger, ext.extend, func(ev types.EdgeEvent) error {
		q.Offer(ev)
		return nil
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		// A serial line has no natural end; EOF means the device went away.
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("serial port %s: %w", s.device, err)
}

// wrapExtender turns a wrapping 32-bit microsecond counter into a
// monotonic 64-bit one.
type wrapExtender struct {
	last    uint64
	epoch   uint64
	started bool
}

const counterSpan = uint64(1) << 32

func (w *wrapExtender) extend(ts uint64) uint64 {
	if ts >= counterSpan {
		return ts
	}
	if w.started && ts < w.last && w.last-ts > counterSpan/2 {
		w.epoch += counterSpan
	}
	w.last, w.started = ts, true
	return w.epoch + ts
}
