package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pburkhalter/TEKO-S3-Funkthermometer/pkg/config"
)

func main() {
	yamlFile := flag.String("yaml", "", "Path to YAML configuration file")
	flag.Parse()

	if *yamlFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <config.yaml>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("Configuration Test")
	fmt.Println("==================")
	fmt.Printf("Loading YAML configuration: %s\n", *yamlFile)

	cfg, err := config.NewYAMLProvider(*yamlFile).LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML config: %v\n", err)
		os.Exit(1)
	}

	if ok := report(os.Stdout, cfg); !ok {
		os.Exit(1)
	}
}

// report prints the effective configuration after defaults and every
// validation problem. It returns false when the configuration is invalid.
func report(w io.Writer, cfg *config.ConfigData) bool {
	fmt.Fprintln(w, "\nCapture:")
	fmt.Fprintf(w, "  type: %s\n", cfg.Capture.Type)
	switch cfg.Capture.Type {
	case config.CaptureGPIO:
		fmt.Fprintf(w, "  pin: %s\n", cfg.Capture.Pin)
	case config.CaptureSerial:
		fmt.Fprintf(w, "  device: %s @ %d baud\n", cfg.Capture.SerialDevice, cfg.Capture.Baud)
	case config.CaptureReplay:
		fmt.Fprintf(w, "  file: %s\n", cfg.Capture.ReplayFile)
	}
	fmt.Fprintf(w, "  queue size: %d, poll interval: %s\n", cfg.Capture.QueueSize, cfg.Capture.PollInterval)

	fmt.Fprintln(w, "\nDecoder:")
	fmt.Fprintf(w, "  part timeout: %d µs\n", cfg.Decoder.PartTimeout)
	fmt.Fprintf(w, "  temperature range: (%.1f, %.1f) °C\n", cfg.Decoder.MinTemperature, cfg.Decoder.MaxTemperature)
	fmt.Fprintf(w, "  drift: ±%.1f °C, %s reference\n", cfg.Decoder.DriftTolerance, cfg.Decoder.DriftPolicy)

	fmt.Fprintln(w, "\nStorage:")
	engines := 0
	if s := cfg.Storage.TimescaleDB; s != nil {
		fmt.Fprintf(w, "  timescaledb (hypertable: %v)\n", s.Hypertable)
		engines++
	}
	if s := cfg.Storage.SQLite; s != nil {
		fmt.Fprintf(w, "  sqlite: %s\n", s.Path)
		engines++
	}
	if s := cfg.Storage.MQTT; s != nil {
		fmt.Fprintf(w, "  mqtt: %s, topic prefix %s, qos %d\n", s.Broker, s.TopicPrefix, s.QoS)
		engines++
	}
	if s := cfg.Storage.GRPC; s != nil {
		fmt.Fprintf(w, "  grpc: %s:%d\n", s.ListenAddr, s.Port)
		engines++
	}
	if cfg.Storage.TimescaleDB == nil && cfg.Storage.SQLite == nil {
		fmt.Fprintln(w, "  memory (no database configured, history is lost on restart)")
	}
	if engines == 0 {
		fmt.Fprintln(w, "  no storage engines configured")
	}

	if cfg.REST != nil {
		fmt.Fprintf(w, "\nREST server: %s:%d (metrics: %v)\n", cfg.REST.ListenAddr, cfg.REST.Port, cfg.Metrics.Enabled)
	}

	fmt.Fprintln(w, "\nValidation:")
	err := cfg.Validate()
	if err == nil {
		fmt.Fprintln(w, "✓ Configuration is valid")
		return true
	}

	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			fmt.Fprintf(w, "✗ %v\n", e)
		}
	} else {
		fmt.Fprintf(w, "✗ %v\n", err)
	}
	return false
}
