package config

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetCaptureConfig() (*CaptureData, error)
	GetStorageConfig() (*StorageData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Capture CaptureData     `json:"capture"`
	Decoder DecoderData     `json:"decoder"`
	Storage StorageData     `json:"storage,omitempty"`
	REST    *RESTServerData `json:"rest,omitempty"`
	Metrics MetricsData     `json:"metrics,omitempty"`
}

// Capture types
const (
	CaptureGPIO   = "gpio"
	CaptureSerial = "serial"
	CaptureReplay = "replay"
)

// CaptureData selects and configures the edge capture producer
type CaptureData struct {
	Type         string `json:"type"`
	Pin          string `json:"pin,omitempty"`
	SerialDevice string `json:"serial_device,omitempty"`
	Baud         int    `json:"baud,omitempty"`
	ReplayFile   string `json:"replay_file,omitempty"`
	QueueSize    int    `json:"queue_size,omitempty"`
	// PollInterval is a Go duration string such as "1s".
	PollInterval string `json:"poll_interval,omitempty"`
}

// DecoderData holds the burst timing and plausibility limits
type DecoderData struct {
	// PartTimeout is the silence in microseconds that closes a burst.
	PartTimeout    uint64  `json:"part_timeout,omitempty"`
	MinTemperature float64 `json:"min_temperature,omitempty"`
	MaxTemperature float64 `json:"max_temperature,omitempty"`
	DriftTolerance float64 `json:"drift_tolerance,omitempty"`
	DriftPolicy    string  `json:"drift_policy,omitempty"`
}

// StorageData holds the configuration for various storage backends
type StorageData struct {
	TimescaleDB *TimescaleDBData `json:"timescaledb,omitempty"`
	SQLite      *SQLiteData      `json:"sqlite,omitempty"`
	MQTT        *MQTTData        `json:"mqtt,omitempty"`
	GRPC        *GRPCData        `json:"grpc,omitempty"`
}

// Storage backend configuration structs
type TimescaleDBData struct {
	ConnectionString string `json:"connection_string"`
	// Hypertable converts the measurement table into a TimescaleDB hypertable.
	Hypertable bool `json:"hypertable,omitempty"`
}

type SQLiteData struct {
	Path string `json:"path"`
}

type MQTTData struct {
	Broker      string `json:"broker"`
	TopicPrefix string `json:"topic_prefix,omitempty"`
	ClientID    string `json:"client_id,omitempty"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty"`
	QoS         byte   `json:"qos,omitempty"`
	Retain      bool   `json:"retain,omitempty"`
}

type GRPCData struct {
	Cert       string `json:"cert,omitempty"`
	Key        string `json:"key,omitempty"`
	ListenAddr string `json:"listen_addr,omitempty"`
	Port       int    `json:"port,omitempty"`
}

type RESTServerData struct {
	Cert       string `json:"cert,omitempty"`
	Key        string `json:"key,omitempty"`
	Port       int    `json:"port,omitempty"`
	ListenAddr string `json:"listen_addr,omitempty"`
}

type MetricsData struct {
	Enabled bool `json:"enabled,omitempty"`
}
