// internal/wifi/types.go
package wifi

import (
	"context"
	"errors"
	"time"
)

// Radio limits for station credentials.
const (
	MaxSSIDLen     = 32
	MaxPasswordLen = 64
)

// Defaults.
const (
	DefaultMaxRetry       = 5
	DefaultRetryInterval  = 3 * time.Second
	DefaultConnectTimeout = 15 * time.Second
)

var (
	ErrConnectFailed  = errors.New("wifi: connect failed after max retries")
	ErrConnectTimeout = errors.New("wifi: connect timed out")
	ErrSuperseded     = errors.New("wifi: connect superseded by a newer attempt")
	ErrCanceled       = errors.New("wifi: connect canceled by disconnect")
	ErrStopped        = errors.New("wifi: link stopped")
)

// StatusCode is the value reported on the status stream.
type StatusCode int

const (
	StatusDisconnected    StatusCode = 0
	StatusConnecting      StatusCode = 1
	StatusAddressAcquired StatusCode = 2
)

func (c StatusCode) String() string {
	switch c {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusAddressAcquired:
		return "address_acquired"
	default:
		return "unknown"
	}
}

// Status is one link status report.
// Disconnected does not imply that retries are over unless Final is set.
type Status struct {
	Code    StatusCode
	Attempt int    // retry number, 0 for the initial attempt
	Final   bool   // retries exhausted or link stopped
	Address string // set with StatusAddressAcquired
}

// LinkState is the connection state machine.
type LinkState int32

const (
	LinkIdle LinkState = iota
	LinkConnecting
	LinkConnected
	LinkFailed
)

func (s LinkState) String() string {
	switch s {
	case LinkIdle:
		return "idle"
	case LinkConnecting:
		return "connecting"
	case LinkConnected:
		return "connected"
	case LinkFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Credentials of one WiFi network.
type Credentials struct {
	SSID     string
	Password string
}

// Normalize truncates the fields to the radio limits.
func (c Credentials) Normalize() Credentials {
	if len(c.SSID) > MaxSSIDLen {
		c.SSID = c.SSID[:MaxSSIDLen]
	}
	if len(c.Password) > MaxPasswordLen {
		c.Password = c.Password[:MaxPasswordLen]
	}
	return c
}

// ---- driver boundary ----

// DriverEventKind is what the radio stack reports.
type DriverEventKind int

const (
	DriverDisconnected DriverEventKind = iota
	DriverGotAddress
)

// DriverEvent is emitted by a Driver.
type DriverEvent struct {
	Kind    DriverEventKind
	Address string
	Reason  string
}

// Driver is the station radio stack.
// Associate starts exactly one association attempt; its outcome arrives
// later on Events as DriverGotAddress or DriverDisconnected.
type Driver interface {
	Associate(ctx context.Context, c Credentials) error
	Disconnect(ctx context.Context) error
	Events() <-chan DriverEvent
}

// Config is the runtime configuration of a Link.
type Config struct {
	MaxRetry       int
	RetryInterval  time.Duration
	ConnectTimeout time.Duration
	Defaults       Credentials
}

func (c Config) withDefaults() Config {
	if c.MaxRetry < 0 {
		c.MaxRetry = 0
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = DefaultRetryInterval
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	return c
}
