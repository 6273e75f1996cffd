package managers

import (
	"fmt"

	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/edgesource"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/pkg/config"
	"go.uber.org/zap"
)

// NewCaptureProducer creates the edge capture producer selected by the
// configuration.
func NewCaptureProducer(c *config.CaptureData, logger *zap.SugaredLogger) (edgesource.Producer, error) {
	switch c.Type {
	case config.CaptureGPIO:
		logger.Infof("initializing GPIO capture on pin [%v]", c.Pin)
		return edgesource.NewGPIOCapture(c.Pin, logger), nil
	case config.CaptureSerial:
		logger.Infof("initializing serial capture on [%v] at %d baud", c.SerialDevice, c.Baud)
		return edgesource.NewSerialCapture(c.SerialDevice, c.Baud, logger), nil
	case config.CaptureReplay:
		logger.Infof("initializing replay of [%v]", c.ReplayFile)
		return edgesource.NewReplayCapture(c.ReplayFile, logger), nil
	default:
		return nil, fmt.Errorf("unknown capture type: %s", c.Type)
	}
}
