// internal/bridge/types.go
package bridge

import (
	"io"
	"time"

	"github.com/tamzrod/linkd/internal/status"
)

// Defaults match the board UART.
const (
	DefaultBaud        = 115200
	DefaultReadTimeout = 100 * time.Millisecond
	DefaultBufferSize  = status.ReadBufferSize
)

// Port is the serial device. goburrow/serial ports satisfy it.
type Port = io.ReadWriteCloser

// Config is the minimal runtime config the bridge needs.
type Config struct {
	Port        string
	Baud        int
	ReadTimeout time.Duration
	BufferSize  int
}
