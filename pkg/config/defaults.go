package config

import (
	"errors"
	"fmt"
	"time"
)

// Defaults for unset values
const (
	DefaultQueueSize      = 4096
	DefaultPollInterval   = "1s"
	DefaultBaud           = 115200
	DefaultPartTimeout    = 2000
	DefaultMinTemperature = -20
	DefaultMaxTemperature = 50
	DefaultDriftTolerance = 10
	DefaultDriftPolicy    = "rolling"
	DefaultTopicPrefix    = "funkthermometer"
	DefaultGRPCPort       = 50051
	DefaultRESTPort       = 8080
)

// ApplyDefaults fills in every value left unset. The temperature range is
// only defaulted when both bounds are zero.
func (c *ConfigData) ApplyDefaults() {
	if c.Capture.QueueSize == 0 {
		c.Capture.QueueSize = DefaultQueueSize
	}
	if c.Capture.PollInterval == "" {
		c.Capture.PollInterval = DefaultPollInterval
	}
	if c.Capture.Type == CaptureSerial && c.Capture.Baud == 0 {
		c.Capture.Baud = DefaultBaud
	}

	if c.Decoder.PartTimeout == 0 {
		c.Decoder.PartTimeout = DefaultPartTimeout
	}
	if c.Decoder.MinTemperature == 0 && c.Decoder.MaxTemperature == 0 {
		c.Decoder.MinTemperature = DefaultMinTemperature
		c.Decoder.MaxTemperature = DefaultMaxTemperature
	}
	if c.Decoder.DriftTolerance == 0 {
		c.Decoder.DriftTolerance = DefaultDriftTolerance
	}
	if c.Decoder.DriftPolicy == "" {
		c.Decoder.DriftPolicy = DefaultDriftPolicy
	}

	if c.Storage.MQTT != nil && c.Storage.MQTT.TopicPrefix == "" {
		c.Storage.MQTT.TopicPrefix = DefaultTopicPrefix
	}
	if c.Storage.GRPC != nil && c.Storage.GRPC.Port == 0 {
		c.Storage.GRPC.Port = DefaultGRPCPort
	}
	if c.REST != nil && c.REST.Port == 0 {
		c.REST.Port = DefaultRESTPort
	}
}

// PollIntervalDuration parses the capture poll interval.
func (c *CaptureData) PollIntervalDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid poll interval %q: %w", c.PollInterval, err)
	}
	return d, nil
}

// Validate reports every problem in the configuration at once.
func (c *ConfigData) Validate() error {
	var errs []error

	switch c.Capture.Type {
	case CaptureGPIO:
		if c.Capture.Pin == "" {
			errs = append(errs, errors.New("capture: gpio capture requires a pin"))
		}
	case CaptureSerial:
		if c.Capture.SerialDevice == "" {
			errs = append(errs, errors.New("capture: serial capture requires a serial device"))
		}
		if c.Capture.Baud <= 0 {
			errs = append(errs, fmt.Errorf("capture: invalid baud rate %d", c.Capture.Baud))
		}
	case CaptureReplay:
		if c.Capture.ReplayFile == "" {
			errs = append(errs, errors.New("capture: replay capture requires a replay file"))
		}
	default:
		errs = append(errs, fmt.Errorf("capture: unknown type %q (use %s, %s or %s)", c.Capture.Type, CaptureGPIO, CaptureSerial, CaptureReplay))
	}
	if c.Capture.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("capture: invalid queue size %d", c.Capture.QueueSize))
	}
	if d, err := c.Capture.PollIntervalDuration(); err != nil {
		errs = append(errs, fmt.Errorf("capture: %w", err))
	} else if d <= 0 {
		errs = append(errs, fmt.Errorf("capture: poll interval must be positive, got %s", d))
	}

	if c.Decoder.PartTimeout == 0 {
		errs = append(errs, errors.New("decoder: part timeout must be positive"))
	}
	if c.Decoder.MinTemperature >= c.Decoder.MaxTemperature {
		errs = append(errs, fmt.Errorf("decoder: temperature range %.1f..%.1f is empty", c.Decoder.MinTemperature, c.Decoder.MaxTemperature))
	}
	if c.Decoder.DriftTolerance <= 0 {
		errs = append(errs, fmt.Errorf("decoder: drift tolerance must be positive, got %.1f", c.Decoder.DriftTolerance))
	}
	if c.Decoder.DriftPolicy != "fixed" && c.Decoder.DriftPolicy != "rolling" {
		errs = append(errs, fmt.Errorf("decoder: unknown drift policy %q", c.Decoder.DriftPolicy))
	}

	if s := c.Storage.TimescaleDB; s != nil && s.ConnectionString == "" {
		errs = append(errs, errors.New("storage: timescaledb requires a connection string"))
	}
	if s := c.Storage.SQLite; s != nil && s.Path == "" {
		errs = append(errs, errors.New("storage: sqlite requires a path"))
	}
	if s := c.Storage.MQTT; s != nil {
		if s.Broker == "" {
			errs = append(errs, errors.New("storage: mqtt requires a broker"))
		}
		if s.QoS > 2 {
			errs = append(errs, fmt.Errorf("storage: invalid mqtt qos %d", s.QoS))
		}
	}
	if s := c.Storage.GRPC; s != nil {
		if (s.Cert == "") != (s.Key == "") {
			errs = append(errs, errors.New("storage: grpc needs both cert and key for TLS"))
		}
	}
	if c.REST != nil && (c.REST.Cert == "") != (c.REST.Key == "") {
		errs = append(errs, errors.New("rest: needs both cert and key for TLS"))
	}
	if c.Metrics.Enabled && c.REST == nil {
		errs = append(errs, errors.New("metrics: served on the REST server, which is not configured"))
	}

	return errors.Join(errs...)
}
