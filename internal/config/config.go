// internal/config/config.go
package config

type Config struct {
	WiFi         WiFiConfig         `yaml:"wifi"`
	WebSocket    WebSocketConfig    `yaml:"websocket"`
	Broker       BrokerConfig       `yaml:"broker"`
	Provisioning ProvisioningConfig `yaml:"provisioning"`
	Serial       SerialConfig       `yaml:"serial"`
	Store        StoreConfig        `yaml:"store"`
	Transport    TransportConfig    `yaml:"transport"`
	Logger       LoggerConfig       `yaml:"logger"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// ---- WIFI ----

type WiFiConfig struct {
	DefaultSSID      string `yaml:"default_ssid"`
	DefaultPassword  string `yaml:"default_password"`
	Interface        string `yaml:"interface"`
	MaxRetry         int    `yaml:"max_retry"`
	RetryIntervalMs  int    `yaml:"retry_interval_ms"`
	ConnectTimeoutMs int    `yaml:"connect_timeout_ms"`
}

// ---- TRANSPORTS ----

type WebSocketConfig struct {
	URL                 string `yaml:"url"`
	ReconnectIntervalMs int    `yaml:"reconnect_interval_ms"`
	SendTimeoutMs       int    `yaml:"send_timeout_ms"`
}

type BrokerConfig struct {
	URL         string `yaml:"url"`
	ClientID    string `yaml:"client_id"` // empty => generated
	KeepAliveS  int    `yaml:"keepalive_s"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// TransportConfig holds sequencing policy shared by both transports.
type TransportConfig struct {
	OnlinePolicy string `yaml:"online_policy"` // latch | retract
}

// ---- PROVISIONING ----

type ProvisioningConfig struct {
	DeviceName  string `yaml:"device_name"`
	Adapter     string `yaml:"adapter"`
	MaxWriteLen int    `yaml:"max_write_len"`
}

// ---- BOARD LINK ----

type SerialConfig struct {
	Port          string `yaml:"port"`
	Baud          int    `yaml:"baud"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms"`
	BufferSize    int    `yaml:"buffer_size"`
}

// ---- AMBIENT ----

type StoreConfig struct {
	Path string `yaml:"path"` // empty => in-memory
}

type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen"` // empty => disabled
}
