// internal/transport/broker/client.go
package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/tamzrod/linkd/internal/transport"
)

const (
	DefaultURL               = "mqtt://broker.hivemq.com"
	DefaultClientID          = "pnoid_esp32c5"
	DefaultKeepAlive         = 30 * time.Second
	DefaultReconnectInterval = 5 * time.Second
	DefaultOpTimeout         = 5 * time.Second

	eventBuffer = 256
)

// Options for a Client.
type Options struct {
	URL               string
	ClientID          string
	KeepAlive         time.Duration
	ReconnectInterval time.Duration
	OpTimeout         time.Duration
}

// backend is one protocol implementation, built per Start.
type backend interface {
	start()
	stop()
	publish(topic string, payload []byte) error
	subscribe(topic string) error
	connected() bool
}

// Client is a transport.Broker. The protocol is picked from the URL scheme
// each time the client starts.
type Client struct {
	opts     Options
	logger   *slog.Logger
	events   chan transport.Event
	statuses *transport.StatusFeed

	mu      sync.Mutex
	url     string
	backend backend
}

func New(opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.ClientID == "" {
		opts.ClientID = "linkd-" + ulid.Make().String()
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = DefaultKeepAlive
	}
	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = DefaultReconnectInterval
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = DefaultOpTimeout
	}
	return &Client{
		opts:     opts,
		logger:   logger.With("component", "broker"),
		events:   make(chan transport.Event, eventBuffer),
		statuses: transport.NewStatusFeed(transport.DefaultStatusBuffer),
		url:      opts.URL,
	}
}

func (c *Client) Events() <-chan transport.Event { return c.events }

func (c *Client) Statuses() <-chan transport.Event { return c.statuses.C() }

func (c *Client) ClientID() string { return c.opts.ClientID }

// SetURL takes effect on the next Start.
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

// Start connects in the background. A running client is left alone.
func (c *Client) Start(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.backend != nil {
		return
	}
	b, err := c.build(c.url)
	if err != nil {
		c.logger.Error("broker not started", "url", c.url, "err", err)
		c.emit(transport.Event{Source: transport.SourceBroker, Type: transport.EventStatus, Status: transport.StatusClosed})
		return
	}
	c.backend = b
	c.logger.Info("starting", "url", c.url, "client_id", c.opts.ClientID)
	b.start()
}

func (c *Client) Stop() {
	c.mu.Lock()
	b := c.backend
	c.backend = nil
	c.mu.Unlock()

	if b != nil {
		b.stop()
	}
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	b := c.backend
	c.mu.Unlock()
	return b != nil && b.connected()
}

func (c *Client) Publish(topic string, payload []byte) error {
	b, err := c.active()
	if err != nil {
		return err
	}
	return b.publish(topic, payload)
}

func (c *Client) Subscribe(topic string) error {
	b, err := c.active()
	if err != nil {
		return err
	}
	return b.subscribe(topic)
}

func (c *Client) active() (backend, error) {
	c.mu.Lock()
	b := c.backend
	c.mu.Unlock()
	if b == nil || !b.connected() {
		return nil, transport.ErrNotConnected
	}
	return b, nil
}

func (c *Client) build(raw string) (backend, error) {
	kind, addr, err := parseURL(raw)
	if err != nil {
		return nil, err
	}
	switch kind {
	case kindMQTT:
		return newMQTT(addr, c.opts, c.emit, c.logger), nil
	case kindNATS:
		return newNATS(addr, c.opts, c.emit, c.logger), nil
	default:
		return nil, fmt.Errorf("broker: unsupported url %q", raw)
	}
}

// emit routes status events to the status feed; messages are dropped when
// the reader falls behind.
func (c *Client) emit(ev transport.Event) {
	ev.Source = transport.SourceBroker
	if ev.Type == transport.EventStatus {
		if c.statuses.Publish(ev) {
			c.logger.Warn("stale status discarded, reader behind", "status", ev.Status.String())
		}
		return
	}
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("message dropped, queue full", "topic", ev.Topic)
	}
}
