// internal/bridge/builder.go
package bridge

import (
	"fmt"
	"log/slog"

	"github.com/goburrow/serial"
)

// Open opens the serial device (8N1) and wraps it in a Bridge.
// Fails fast: the daemon cannot run without the board link.
func Open(cfg Config, logger *slog.Logger) (*Bridge, error) {
	if cfg.Port == "" {
		return nil, fmt.Errorf("bridge: port required")
	}
	if cfg.Baud <= 0 {
		cfg.Baud = DefaultBaud
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}

	port, err := serial.Open(&serial.Config{
		Address:  cfg.Port,
		BaudRate: cfg.Baud,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("bridge: open %s: %w", cfg.Port, err)
	}

	b, err := New(cfg, port, logger)
	if err != nil {
		port.Close()
		return nil, err
	}
	return b, nil
}
