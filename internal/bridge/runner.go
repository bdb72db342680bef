// internal/bridge/runner.go
package bridge

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/goburrow/serial"
)

// Run reads the port and emits every non-empty read on out.
// Reads are bounded by the port timeout so ctx is honoured promptly.
// Read errors are logged and retried after one read timeout.
func (b *Bridge) Run(ctx context.Context, out chan<- []byte) {
	buf := make([]byte, b.cfg.BufferSize)

	for {
		if ctx.Err() != nil {
			return
		}

		n, err := b.port.Read(buf[:len(buf)-1])
		if n > 0 {
			frame := make([]byte, n)
			copy(frame, buf[:n])
			b.rxFrames.Add(1)

			select {
			case out <- frame:
			case <-ctx.Done():
				return
			}
		}

		if err == nil || errors.Is(err, serial.ErrTimeout) {
			continue
		}
		if !errors.Is(err, io.EOF) {
			b.logger.Warn("serial read failed", "err", err)
		}

		t := time.NewTimer(b.cfg.ReadTimeout)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}
