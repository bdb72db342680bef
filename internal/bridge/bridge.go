// internal/bridge/bridge.go
package bridge

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Bridge moves raw bytes between the board and the daemon.
// No framing: one read is one frame.
type Bridge struct {
	cfg    Config
	port   Port
	logger *slog.Logger

	wmu sync.Mutex

	rxFrames atomic.Uint64
	txBytes  atomic.Uint64
}

// New creates a bridge over an already open port.
func New(cfg Config, port Port, logger *slog.Logger) (*Bridge, error) {
	if port == nil {
		return nil, errors.New("bridge: port required")
	}
	if cfg.ReadTimeout <= 0 {
		return nil, errors.New("bridge: read timeout must be > 0")
	}
	if cfg.BufferSize < 2 {
		return nil, errors.New("bridge: buffer size must be >= 2")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		cfg:    cfg,
		port:   port,
		logger: logger.With("component", "bridge", "port", cfg.Port),
	}, nil
}

// Send writes p to the board. Concurrent senders never interleave.
func (b *Bridge) Send(p []byte) error {
	b.wmu.Lock()
	defer b.wmu.Unlock()

	for len(p) > 0 {
		n, err := b.port.Write(p)
		b.txBytes.Add(uint64(n))
		if err != nil {
			return fmt.Errorf("bridge: write: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("bridge: write: %w", io.ErrShortWrite)
		}
		p = p[n:]
	}
	return nil
}

func (b *Bridge) SendString(s string) error {
	return b.Send([]byte(s))
}

// Frames is the number of frames read from the board.
func (b *Bridge) Frames() uint64 { return b.rxFrames.Load() }

// BytesSent is the number of bytes written to the board.
func (b *Bridge) BytesSent() uint64 { return b.txBytes.Load() }

func (b *Bridge) Close() error {
	return b.port.Close()
}
