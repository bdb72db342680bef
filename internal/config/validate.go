// internal/config/validate.go
package config

import (
	"fmt"
	"net/url"
	"strings"
)

var (
	websocketSchemes = map[string]bool{"ws": true, "wss": true}
	brokerSchemes    = map[string]bool{
		"mqtt": true, "mqtts": true, "tcp": true, "ssl": true, "tls": true,
		"ws": true, "wss": true, "nats": true,
	}
)

// Validate checks configuration correctness.
// It performs declarative validation only and returns the first problem.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}

	// ------------------------------------------------------------
	// WIFI
	// ------------------------------------------------------------

	w := cfg.WiFi
	if w.DefaultSSID == "" {
		return fmt.Errorf("wifi: default_ssid is required")
	}
	if w.Interface == "" {
		return fmt.Errorf("wifi: interface is required")
	}
	if w.MaxRetry < 0 {
		return fmt.Errorf("wifi: max_retry must be >= 0 (got %d)", w.MaxRetry)
	}
	if w.RetryIntervalMs <= 0 {
		return fmt.Errorf("wifi: retry_interval_ms must be > 0")
	}
	if w.ConnectTimeoutMs <= 0 {
		return fmt.Errorf("wifi: connect_timeout_ms must be > 0")
	}

	// ------------------------------------------------------------
	// TRANSPORTS
	// ------------------------------------------------------------

	if err := checkURL("websocket: url", cfg.WebSocket.URL, websocketSchemes); err != nil {
		return err
	}
	if cfg.WebSocket.ReconnectIntervalMs <= 0 {
		return fmt.Errorf("websocket: reconnect_interval_ms must be > 0")
	}
	if cfg.WebSocket.SendTimeoutMs <= 0 {
		return fmt.Errorf("websocket: send_timeout_ms must be > 0")
	}

	if err := checkURL("broker: url", cfg.Broker.URL, brokerSchemes); err != nil {
		return err
	}
	if cfg.Broker.KeepAliveS <= 0 {
		return fmt.Errorf("broker: keepalive_s must be > 0")
	}

	switch cfg.Transport.OnlinePolicy {
	case "", "latch", "retract":
	default:
		return fmt.Errorf("transport: online_policy must be latch or retract (got %q)", cfg.Transport.OnlinePolicy)
	}

	// ------------------------------------------------------------
	// PROVISIONING
	// ------------------------------------------------------------

	p := cfg.Provisioning
	if p.DeviceName == "" {
		return fmt.Errorf("provisioning: device_name is required")
	}
	for i := 0; i < len(p.DeviceName); i++ {
		if p.DeviceName[i] > 0x7F {
			return fmt.Errorf("provisioning: device_name must contain ASCII characters only")
		}
	}
	if p.Adapter == "" {
		return fmt.Errorf("provisioning: adapter is required")
	}
	if p.MaxWriteLen <= 0 || p.MaxWriteLen > 512 {
		return fmt.Errorf("provisioning: max_write_len must be in 1..512 (got %d)", p.MaxWriteLen)
	}

	// ------------------------------------------------------------
	// SERIAL
	// ------------------------------------------------------------

	s := cfg.Serial
	if s.Port == "" {
		return fmt.Errorf("serial: port is required")
	}
	if s.Baud <= 0 {
		return fmt.Errorf("serial: baud must be > 0")
	}
	if s.ReadTimeoutMs <= 0 {
		return fmt.Errorf("serial: read_timeout_ms must be > 0")
	}
	if s.BufferSize < 2 {
		return fmt.Errorf("serial: buffer_size must be >= 2")
	}

	// ------------------------------------------------------------
	// AMBIENT
	// ------------------------------------------------------------

	switch strings.ToLower(cfg.Logger.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logger: format must be text or json (got %q)", cfg.Logger.Format)
	}

	return nil
}

func checkURL(field, raw string, schemes map[string]bool) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if !schemes[strings.ToLower(u.Scheme)] {
		return fmt.Errorf("%s: unsupported scheme %q", field, u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%s: missing host", field)
	}
	return nil
}
