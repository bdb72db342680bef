// internal/transport/broker/mqtt.go
package broker

import (
	"errors"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tamzrod/linkd/internal/transport"
)

const disconnectQuiesce = 250 // ms

type mqttBackend struct {
	client  mqtt.Client
	timeout time.Duration
	emit    func(transport.Event)
	logger  *slog.Logger
}

func newMQTT(addr string, opts Options, emit func(transport.Event), logger *slog.Logger) *mqttBackend {
	b := &mqttBackend{timeout: opts.OpTimeout, emit: emit, logger: logger}

	o := mqtt.NewClientOptions().
		AddBroker(addr).
		SetClientID(opts.ClientID).
		SetKeepAlive(opts.KeepAlive).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(opts.ReconnectInterval).
		SetMaxReconnectInterval(opts.ReconnectInterval)

	o.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("connected", "addr", addr)
		b.status(transport.StatusOpen)
	})
	o.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("connection lost", "addr", addr, "err", err)
		b.status(transport.StatusClosed)
	})
	o.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		b.status(transport.StatusConnecting)
	})

	b.client = mqtt.NewClient(o)
	return b
}

func (b *mqttBackend) start() {
	b.status(transport.StatusConnecting)
	// with connect retry enabled the token completes only once connected
	b.client.Connect()
}

func (b *mqttBackend) stop() {
	b.client.Disconnect(disconnectQuiesce)
	b.status(transport.StatusClosed)
}

func (b *mqttBackend) connected() bool {
	return b.client.IsConnectionOpen()
}

func (b *mqttBackend) publish(topic string, payload []byte) error {
	return b.wait(b.client.Publish(topic, 0, false, payload))
}

func (b *mqttBackend) subscribe(topic string) error {
	return b.wait(b.client.Subscribe(topic, 0, func(_ mqtt.Client, m mqtt.Message) {
		b.emit(transport.Event{Type: transport.EventMessage, Topic: m.Topic(), Payload: m.Payload()})
	}))
}

func (b *mqttBackend) wait(tok mqtt.Token) error {
	if !tok.WaitTimeout(b.timeout) {
		return errors.New("broker: operation timed out")
	}
	return tok.Error()
}

func (b *mqttBackend) status(s transport.Status) {
	b.emit(transport.Event{Type: transport.EventStatus, Status: s})
}
