// Package mqtt publishes accepted measurements to an MQTT broker, one JSON
// message per measurement on "<prefix>/<station>".
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/types"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/pkg/config"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// client is the part of paho.Client the publisher needs.
type client interface {
	Connect() paho.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

// Publisher implements storage.MeasurementSink on top of an MQTT client
type Publisher struct {
	client client
	cfg    config.MQTTData
	logger *zap.SugaredLogger
}

// New connects to the configured broker. The client reconnects on its own
// after the first connection succeeded.
func New(ctx context.Context, cfg *config.MQTTData, logger *zap.SugaredLogger) (*Publisher, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "funkthermometer-" + uuid.NewString()[:8]
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ paho.Client) {
		logger.Infow("mqtt connected", "broker", cfg.Broker, "client_id", clientID)
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.Warnw("mqtt connection lost", "error", err)
	})

	p := NewWithClient(paho.NewClient(opts), cfg, logger)
	if err := p.connect(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(c client, cfg *config.MQTTData, logger *zap.SugaredLogger) *Publisher {
	return &Publisher{client: c, cfg: *cfg, logger: logger}
}

func (p *Publisher) connect(ctx context.Context) error {
	token := p.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// Topic returns the topic a measurement is published on.
func (p *Publisher) Topic(m types.Measurement) string {
	return fmt.Sprintf("%s/%s", p.cfg.TopicPrefix, m.Station)
}

// StoreMeasurement implements storage.MeasurementSink
func (p *Publisher) StoreMeasurement(ctx context.Context, m types.Measurement) error {
	if !p.client.IsConnected() {
		return errors.New("mqtt client not connected")
	}

	data, err := json.Marshal(m.ToMap())
	if err != nil {
		return fmt.Errorf("marshal measurement: %w", err)
	}

	topic := p.Topic(m)
	token := p.client.Publish(topic, p.cfg.QoS, p.cfg.Retain, data)

	timeout := publishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish measurement: %w", err)
	}

	p.logger.Debugw("published measurement", "topic", topic, "id", m.ID)
	return nil
}

// CheckHealth implements storage.HealthChecker
func (p *Publisher) CheckHealth(context.Context) error {
	if !p.client.IsConnected() {
		return errors.New("not connected to broker")
	}
	return nil
}

// Close disconnects from the broker, giving in-flight messages 250ms.
func (p *Publisher) Close() error {
	p.client.Disconnect(250)
	p.logger.Info("mqtt disconnected")
	return nil
}
