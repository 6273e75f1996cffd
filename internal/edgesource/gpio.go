package edgesource

import (
	"context"
	"fmt"
	"time"

	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/types"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// edgeWait bounds how long a single WaitForEdge blocks, so cancellation is
// noticed even when the receiver is silent.
const edgeWait = 200 * time.Millisecond

// GPIOCapture timestamps every edge of the receiver's data pin on the host
// (e.g. BCM GPIO23 on a Raspberry Pi).
type GPIOCapture struct {
	pin    string
	logger *zap.SugaredLogger
}

func NewGPIOCapture(pin string, logger *zap.SugaredLogger) *GPIOCapture {
	return &GPIOCapture{pin: pin, logger: logger}
}

func (g *GPIOCapture) Name() string {
	return "gpio"
}

// Capture implements Producer.
func (g *GPIOCapture) Capture(ctx context.Context, q *Queue) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("could not initialize periph host drivers: %w", err)
	}

	pin := gpioreg.ByName(g.pin)
	if pin == nil {
		return fmt.Errorf("gpio pin %q not found", g.pin)
	}
	if err := pin.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return fmt.Errorf("could not configure %s for edge detection: %w", g.pin, err)
	}
	defer pin.Halt()

	g.logger.Infof("capturing edges on %s", pin.Name())

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !pin.WaitForEdge(edgeWait) {
			continue
		}

		var level uint8
		if pin.Read() == gpio.High {
			level = 1
		}
		q.Offer(types.EdgeEvent{
			Timestamp: uint64(time.Since(start).Microseconds()),
			Level:     level,
		})
	}
}
