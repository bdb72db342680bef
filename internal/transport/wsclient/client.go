// internal/transport/wsclient/client.go
package wsclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"

	"github.com/tamzrod/linkd/internal/transport"
)

const (
	DefaultURL               = "ws://192.168.1.100:8080/ws"
	DefaultReconnectInterval = 5 * time.Second
	DefaultSendTimeout       = 5 * time.Second

	breakerFailures = 5
	breakerTimeout  = 30 * time.Second
	eventBuffer     = 256
)

// Options for a Client.
type Options struct {
	URL               string
	ReconnectInterval time.Duration
	SendTimeout       time.Duration
}

// Client is a transport.WebSocket that redials until stopped.
type Client struct {
	opts    Options
	logger  *slog.Logger
	breaker  *gobreaker.CircuitBreaker[*websocket.Conn]
	events   chan transport.Event
	statuses *transport.StatusFeed

	mu      sync.Mutex
	url     string
	conn    *websocket.Conn
	cancel  context.CancelFunc
	running chan struct{}
}

func New(opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = DefaultReconnectInterval
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = DefaultSendTimeout
	}
	logger = logger.With("component", "websocket")

	c := &Client{
		opts:     opts,
		logger:   logger,
		events:   make(chan transport.Event, eventBuffer),
		statuses: transport.NewStatusFeed(transport.DefaultStatusBuffer),
		url:      opts.URL,
	}
	c.breaker = gobreaker.NewCircuitBreaker[*websocket.Conn](gobreaker.Settings{
		Name:        "websocket",
		MaxRequests: 1,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return c
}

func (c *Client) Events() <-chan transport.Event { return c.events }

func (c *Client) Statuses() <-chan transport.Event { return c.statuses.C() }

// SetURL takes effect on the next dial.
func (c *Client) SetURL(url string) {
	c.mu.Lock()
	c.url = url
	c.mu.Unlock()
}

func (c *Client) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Start begins dialing. A running client is left alone.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = make(chan struct{})
	go c.run(runCtx, c.running)
}

// Stop closes the session and stops redialing. It does not wait; the
// Closed status arrives on Events.
func (c *Client) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel == nil {
		return
	}
	c.cancel()
	c.cancel = nil
}

// Wait blocks until the current session goroutine has exited.
func (c *Client) Wait() {
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()
	if running != nil {
		<-running
	}
}

func (c *Client) SendText(ctx context.Context, text string) error {
	return c.send(ctx, websocket.MessageText, []byte(text))
}

func (c *Client) SendBinary(ctx context.Context, data []byte) error {
	return c.send(ctx, websocket.MessageBinary, data)
}

func (c *Client) send(ctx context.Context, typ websocket.MessageType, data []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return transport.ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.SendTimeout)
	defer cancel()
	if err := conn.Write(ctx, typ, data); err != nil {
		return fmt.Errorf("websocket: write: %w", err)
	}
	return nil
}

// ---- session loop ----

func (c *Client) run(ctx context.Context, running chan struct{}) {
	defer close(running)

	limiter := rate.NewLimiter(rate.Every(c.opts.ReconnectInterval), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		url := c.URL()
		c.status(transport.StatusConnecting)

		conn, err := c.breaker.Execute(func() (*websocket.Conn, error) {
			conn, _, err := websocket.Dial(ctx, url, nil)
			return conn, err
		})
		if err != nil {
			c.status(transport.StatusClosed)
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, gobreaker.ErrOpenState) {
				c.logger.Debug("dial skipped, circuit open", "url", url)
			} else {
				c.logger.Warn("dial failed", "url", url, "err", err)
			}
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		c.logger.Info("connected", "url", url)
		c.status(transport.StatusOpen)

		err = c.read(ctx, conn)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "")
		c.status(transport.StatusClosed)

		if ctx.Err() != nil {
			c.logger.Info("disconnected", "url", url)
			return
		}
		c.logger.Warn("connection lost", "url", url, "err", err)
	}
}

func (c *Client) read(ctx context.Context, conn *websocket.Conn) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		ev := transport.Event{Source: transport.SourceWebSocket, Type: transport.EventText, Payload: data}
		if typ == websocket.MessageBinary {
			ev.Type = transport.EventBinary
		}
		c.emit(ev)
	}
}

func (c *Client) status(s transport.Status) {
	ev := transport.Event{Source: transport.SourceWebSocket, Type: transport.EventStatus, Status: s}
	if c.statuses.Publish(ev) {
		c.logger.Warn("stale status discarded, reader behind", "status", s.String())
	}
}

// emit queues inbound data; data is dropped when the reader falls behind.
func (c *Client) emit(ev transport.Event) {
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("message dropped, queue full", "type", int(ev.Type))
	}
}
