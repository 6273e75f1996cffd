package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from YAML file. Defaults are
// applied to the result but it is not validated.
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	config, err := parseYAML(cfgFile)
	if err != nil {
		return nil, err
	}

	y.config = config
	return config, nil
}

func parseYAML(data []byte) (*ConfigData, error) {
	// Load into temporary struct with YAML tags
	var yamlConfig struct {
		Capture CaptureYAML     `yaml:"capture"`
		Decoder DecoderYAML     `yaml:"decoder,omitempty"`
		Storage StorageYAML     `yaml:"storage,omitempty"`
		REST    *RESTServerYAML `yaml:"rest,omitempty"`
		Metrics MetricsYAML     `yaml:"metrics,omitempty"`
	}

	if err := yaml.UnmarshalStrict(data, &yamlConfig); err != nil {
		return nil, err
	}

	// Convert to our internal format
	config := &ConfigData{
		Capture: CaptureData{
			Type:         yamlConfig.Capture.Type,
			Pin:          yamlConfig.Capture.Pin,
			SerialDevice: yamlConfig.Capture.SerialDevice,
			Baud:         yamlConfig.Capture.Baud,
			ReplayFile:   yamlConfig.Capture.ReplayFile,
			QueueSize:    yamlConfig.Capture.QueueSize,
			PollInterval: yamlConfig.Capture.PollInterval,
		},
		Decoder: DecoderData{
			PartTimeout:    yamlConfig.Decoder.PartTimeout,
			MinTemperature: yamlConfig.Decoder.MinTemperature,
			MaxTemperature: yamlConfig.Decoder.MaxTemperature,
			DriftTolerance: yamlConfig.Decoder.DriftTolerance,
			DriftPolicy:    yamlConfig.Decoder.DriftPolicy,
		},
		Metrics: MetricsData{
			Enabled: yamlConfig.Metrics.Enabled,
		},
	}

	// Convert storage
	if yamlConfig.Storage.TimescaleDB != nil {
		config.Storage.TimescaleDB = &TimescaleDBData{
			ConnectionString: yamlConfig.Storage.TimescaleDB.ConnectionString,
			Hypertable:       yamlConfig.Storage.TimescaleDB.Hypertable,
		}
	}
	if yamlConfig.Storage.SQLite != nil {
		config.Storage.SQLite = &SQLiteData{
			Path: yamlConfig.Storage.SQLite.Path,
		}
	}
	if yamlConfig.Storage.MQTT != nil {
		config.Storage.MQTT = &MQTTData{
			Broker:      yamlConfig.Storage.MQTT.Broker,
			TopicPrefix: yamlConfig.Storage.MQTT.TopicPrefix,
			ClientID:    yamlConfig.Storage.MQTT.ClientID,
			Username:    yamlConfig.Storage.MQTT.Username,
			Password:    yamlConfig.Storage.MQTT.Password,
			QoS:         yamlConfig.Storage.MQTT.QoS,
			Retain:      yamlConfig.Storage.MQTT.Retain,
		}
	}
	if yamlConfig.Storage.GRPC != nil {
		config.Storage.GRPC = &GRPCData{
			Cert:       yamlConfig.Storage.GRPC.Cert,
			Key:        yamlConfig.Storage.GRPC.Key,
			ListenAddr: yamlConfig.Storage.GRPC.ListenAddr,
			Port:       yamlConfig.Storage.GRPC.Port,
		}
	}

	if yamlConfig.REST != nil {
		config.REST = &RESTServerData{
			Cert:       yamlConfig.REST.Cert,
			Key:        yamlConfig.REST.Key,
			Port:       yamlConfig.REST.Port,
			ListenAddr: yamlConfig.REST.ListenAddr,
		}
	}

	config.ApplyDefaults()
	return config, nil
}

// GetCaptureConfig returns the capture configuration
func (y *YAMLProvider) GetCaptureConfig() (*CaptureData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return &y.config.Capture, nil
}

// GetStorageConfig returns storage configuration
func (y *YAMLProvider) GetStorageConfig() (*StorageData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return &y.config.Storage, nil
}

// IsReadOnly returns true since YAML files are read-only through this interface
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs with proper YAML tags
type CaptureYAML struct {
	Type         string `yaml:"type"`
	Pin          string `yaml:"pin,omitempty"`
	SerialDevice string `yaml:"serialdevice,omitempty"`
	Baud         int    `yaml:"baud,omitempty"`
	ReplayFile   string `yaml:"replay-file,omitempty"`
	QueueSize    int    `yaml:"queue-size,omitempty"`
	PollInterval string `yaml:"poll-interval,omitempty"`
}

type DecoderYAML struct {
	PartTimeout    uint64  `yaml:"part-timeout,omitempty"`
	MinTemperature float64 `yaml:"min-temperature,omitempty"`
	MaxTemperature float64 `yaml:"max-temperature,omitempty"`
	DriftTolerance float64 `yaml:"drift-tolerance,omitempty"`
	DriftPolicy    string  `yaml:"drift-policy,omitempty"`
}

type StorageYAML struct {
	TimescaleDB *TimescaleDBYAML `yaml:"timescaledb,omitempty"`
	SQLite      *SQLiteYAML      `yaml:"sqlite,omitempty"`
	MQTT        *MQTTYAML        `yaml:"mqtt,omitempty"`
	GRPC        *GRPCYAML        `yaml:"grpc,omitempty"`
}

type TimescaleDBYAML struct {
	ConnectionString string `yaml:"connection-string"`
	Hypertable       bool   `yaml:"hypertable,omitempty"`
}

type SQLiteYAML struct {
	Path string `yaml:"path"`
}

type MQTTYAML struct {
	Broker      string `yaml:"broker"`
	TopicPrefix string `yaml:"topic-prefix,omitempty"`
	ClientID    string `yaml:"client-id,omitempty"`
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	QoS         byte   `yaml:"qos,omitempty"`
	Retain      bool   `yaml:"retain,omitempty"`
}

type GRPCYAML struct {
	Cert       string `yaml:"cert,omitempty"`
	Key        string `yaml:"key,omitempty"`
	ListenAddr string `yaml:"listen-addr,omitempty"`
	Port       int    `yaml:"port,omitempty"`
}

type RESTServerYAML struct {
	Cert       string `yaml:"cert,omitempty"`
	Key        string `yaml:"key,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	ListenAddr string `yaml:"listen-addr,omitempty"`
}

type MetricsYAML struct {
	Enabled bool `yaml:"enabled,omitempty"`
}
