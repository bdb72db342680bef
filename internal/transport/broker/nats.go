// internal/transport/broker/nats.go
package broker

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/tamzrod/linkd/internal/transport"
)

type natsBackend struct {
	addr   string
	opts   Options
	emit   func(transport.Event)
	logger *slog.Logger

	mu   sync.Mutex
	conn *nats.Conn
	subs map[string]*nats.Subscription
}

func newNATS(addr string, opts Options, emit func(transport.Event), logger *slog.Logger) *natsBackend {
	return &natsBackend{
		addr:   addr,
		opts:   opts,
		emit:   emit,
		logger: logger,
		subs:   make(map[string]*nats.Subscription),
	}
}

func (b *natsBackend) connectionOptions() []nats.Option {
	return []nats.Option{
		nats.Name(b.opts.ClientID),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(b.opts.ReconnectInterval),
		nats.PingInterval(b.opts.KeepAlive),
		nats.Timeout(b.opts.OpTimeout),
		nats.RetryOnFailedConnect(true),
		nats.ConnectHandler(func(*nats.Conn) {
			b.logger.Info("connected", "addr", b.addr)
			b.status(transport.StatusOpen)
		}),
		nats.ReconnectHandler(func(*nats.Conn) {
			b.logger.Info("reconnected", "addr", b.addr)
			b.status(transport.StatusOpen)
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			b.logger.Warn("disconnected", "addr", b.addr, "err", err)
			b.status(transport.StatusConnecting)
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			b.status(transport.StatusClosed)
		}),
	}
}

func (b *natsBackend) start() {
	b.status(transport.StatusConnecting)
	conn, err := nats.Connect(b.addr, b.connectionOptions()...)
	if err != nil {
		b.logger.Error("connect failed", "addr", b.addr, "err", err)
		b.status(transport.StatusClosed)
		return
	}
	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()
}

func (b *natsBackend) stop() {
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.subs = make(map[string]*nats.Subscription)
	b.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

func (b *natsBackend) connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil && b.conn.IsConnected()
}

func (b *natsBackend) publish(topic string, payload []byte) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return transport.ErrNotConnected
	}
	if err := conn.Publish(natsSubject(topic), payload); err != nil {
		return fmt.Errorf("broker: publish %s: %w", topic, err)
	}
	return nil
}

// subscribe is idempotent per topic; the NATS client restores
// subscriptions on reconnect by itself.
func (b *natsBackend) subscribe(topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return transport.ErrNotConnected
	}
	if _, ok := b.subs[topic]; ok {
		return nil
	}
	sub, err := b.conn.Subscribe(natsSubject(topic), func(m *nats.Msg) {
		b.emit(transport.Event{Type: transport.EventMessage, Topic: topicFromSubject(m.Subject), Payload: m.Data})
	})
	if err != nil {
		return fmt.Errorf("broker: subscribe %s: %w", topic, err)
	}
	b.subs[topic] = sub
	return nil
}

func (b *natsBackend) status(s transport.Status) {
	b.emit(transport.Event{Type: transport.EventStatus, Status: s})
}
