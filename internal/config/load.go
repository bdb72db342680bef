// internal/config/load.go
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		WiFi: WiFiConfig{
			DefaultSSID:      "PNOID_AP",
			DefaultPassword:  "pnoid1234",
			Interface:        "wlan0",
			MaxRetry:         5,
			RetryIntervalMs:  3000,
			ConnectTimeoutMs: 15000,
		},
		WebSocket: WebSocketConfig{
			URL:                 "ws://192.168.1.100:8080/ws",
			ReconnectIntervalMs: 5000,
			SendTimeoutMs:       5000,
		},
		Broker: BrokerConfig{
			URL:         "mqtt://broker.hivemq.com",
			ClientID:    "pnoid_esp32c5",
			KeepAliveS:  30,
			TopicPrefix: "pnoid/",
		},
		Provisioning: ProvisioningConfig{
			DeviceName:  "PNOID-Robot",
			Adapter:     "hci0",
			MaxWriteLen: 255,
		},
		Serial: SerialConfig{
			Port:          "/dev/ttyS1",
			Baud:          115200,
			ReadTimeoutMs: 100,
			BufferSize:    1024,
		},
		Store: StoreConfig{
			Path: "/var/lib/linkd/linkd.db",
		},
		Transport: TransportConfig{
			OnlinePolicy: "latch",
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads a YAML config file over the defaults, applies LINKD_* env
// overrides, validates and normalizes. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case os.IsNotExist(err):
			// defaults only
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := ApplyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	Normalize(cfg)

	return cfg, nil
}

// ApplyEnvOverrides maps LINKD_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"LINKD_WIFI_DEFAULT_SSID":       &cfg.WiFi.DefaultSSID,
		"LINKD_WIFI_DEFAULT_PASSWORD":   &cfg.WiFi.DefaultPassword,
		"LINKD_WIFI_INTERFACE":          &cfg.WiFi.Interface,
		"LINKD_WEBSOCKET_URL":           &cfg.WebSocket.URL,
		"LINKD_BROKER_URL":              &cfg.Broker.URL,
		"LINKD_BROKER_CLIENT_ID":        &cfg.Broker.ClientID,
		"LINKD_BROKER_TOPIC_PREFIX":     &cfg.Broker.TopicPrefix,
		"LINKD_PROVISIONING_ADAPTER":    &cfg.Provisioning.Adapter,
		"LINKD_SERIAL_PORT":             &cfg.Serial.Port,
		"LINKD_STORE_PATH":              &cfg.Store.Path,
		"LINKD_TRANSPORT_ONLINE_POLICY": &cfg.Transport.OnlinePolicy,
		"LINKD_LOGGER_LEVEL":            &cfg.Logger.Level,
		"LINKD_LOGGER_FORMAT":           &cfg.Logger.Format,
		"LINKD_METRICS_LISTEN":          &cfg.Metrics.Listen,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"LINKD_WIFI_MAX_RETRY": &cfg.WiFi.MaxRetry,
		"LINKD_SERIAL_BAUD":    &cfg.Serial.Baud,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}
	return nil
}
