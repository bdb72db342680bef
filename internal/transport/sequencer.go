// internal/transport/sequencer.go
package transport

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/tamzrod/linkd/internal/state"
	"github.com/tamzrod/linkd/internal/wifi"
)

// Options for a Sequencer.
type Options struct {
	Topics        Topics
	Policy        OnlinePolicy
	InboundBuffer int

	// OnStatus, if set, observes every recorded transport status.
	OnStatus func(Source, Status)
}

// Sequencer brings the transports up once the link has an address and
// derives the Online state from their statuses.
type Sequencer struct {
	hub    *state.Hub
	ws     WebSocket
	broker Broker
	opts   Options
	logger *slog.Logger

	inbound chan Event

	wsStatus     atomic.Int32
	brokerStatus atomic.Int32
	online       atomic.Bool

	// loop only
	up bool
}

func NewSequencer(hub *state.Hub, ws WebSocket, broker Broker, opts Options, logger *slog.Logger) *Sequencer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.InboundBuffer <= 0 {
		opts.InboundBuffer = 64
	}
	return &Sequencer{
		hub:     hub,
		ws:      ws,
		broker:  broker,
		opts:    opts,
		logger:  logger.With("component", "sequencer"),
		inbound: make(chan Event, opts.InboundBuffer),
	}
}

// Inbound carries data events (WebSocket text/binary, broker messages).
func (s *Sequencer) Inbound() <-chan Event { return s.inbound }

func (s *Sequencer) WebSocketStatus() Status { return Status(s.wsStatus.Load()) }
func (s *Sequencer) BrokerStatus() Status    { return Status(s.brokerStatus.Load()) }

// Online is the derived "both transports open" signal under the policy.
func (s *Sequencer) Online() bool { return s.online.Load() }

func (s *Sequencer) Policy() OnlinePolicy { return s.opts.Policy }

// Run consumes link statuses and transport events until ctx is done.
func (s *Sequencer) Run(ctx context.Context, link <-chan wifi.Status) error {
	wsEvents := s.ws.Events()
	brokerEvents := s.broker.Events()
	wsStatuses := s.ws.Statuses()
	brokerStatuses := s.broker.Statuses()

	for {
		select {
		case <-ctx.Done():
			s.bringDown()
			return ctx.Err()

		case st, ok := <-link:
			if !ok {
				link = nil
				continue
			}
			s.handleLink(ctx, st)

		case ev, ok := <-wsEvents:
			if !ok {
				wsEvents = nil
				continue
			}
			s.handleTransport(ctx, ev)

		case ev, ok := <-brokerEvents:
			if !ok {
				brokerEvents = nil
				continue
			}
			s.handleTransport(ctx, ev)

		case ev, ok := <-wsStatuses:
			if !ok {
				wsStatuses = nil
				continue
			}
			s.handleTransport(ctx, ev)

		case ev, ok := <-brokerStatuses:
			if !ok {
				brokerStatuses = nil
				continue
			}
			s.handleTransport(ctx, ev)
		}
	}
}

func (s *Sequencer) handleLink(ctx context.Context, st wifi.Status) {
	switch st.Code {
	case wifi.StatusConnecting:
		s.bringDown()
		s.hub.SetConnectivity(state.ConnectingWifi)

	case wifi.StatusAddressAcquired:
		s.hub.SetConnectivity(state.ConnectingTransports)
		s.bringUp(ctx)

	case wifi.StatusDisconnected:
		s.bringDown()
		if st.Final {
			s.hub.SetConnectivity(state.Offline)
		} else {
			s.hub.SetConnectivity(state.ConnectingWifi)
		}
	}
}

func (s *Sequencer) handleTransport(ctx context.Context, ev Event) {
	if ev.Type != EventStatus {
		select {
		case s.inbound <- ev:
		case <-ctx.Done():
		}
		return
	}

	// a transport stopped on WiFi loss may still report late opens
	if ev.Status == StatusOpen && !s.up {
		return
	}

	switch ev.Source {
	case SourceWebSocket:
		s.wsStatus.Store(int32(ev.Status))
	case SourceBroker:
		s.brokerStatus.Store(int32(ev.Status))
		if ev.Status == StatusOpen {
			s.subscribe()
		}
	}
	s.logger.Info("transport status", "transport", ev.Source.String(), "status", ev.Status.String())
	if s.opts.OnStatus != nil {
		s.opts.OnStatus(ev.Source, ev.Status)
	}

	s.recompute()
}

func (s *Sequencer) subscribe() {
	for _, topic := range []string{s.opts.Topics.Command(), s.opts.Topics.Config()} {
		if err := s.broker.Subscribe(topic); err != nil {
			s.logger.Warn("subscribe failed", "topic", topic, "err", err)
		}
	}
}

func (s *Sequencer) recompute() {
	both := s.WebSocketStatus() == StatusOpen && s.BrokerStatus() == StatusOpen

	switch {
	case both && !s.online.Load():
		s.online.Store(true)
		s.hub.SetConnectivity(state.Online)

	case !both && s.online.Load() && s.opts.Policy == RetractOnDrop:
		s.online.Store(false)
		s.hub.SetConnectivity(state.ConnectingTransports)
	}
}

func (s *Sequencer) bringUp(ctx context.Context) {
	if s.up {
		return
	}
	s.up = true
	s.logger.Info("starting transports")
	s.ws.Start(ctx)
	s.broker.Start(ctx)
}

func (s *Sequencer) bringDown() {
	s.online.Store(false)
	if !s.up {
		return
	}
	s.up = false
	s.logger.Info("stopping transports")
	s.ws.Stop()
	s.broker.Stop()
	s.wsStatus.Store(int32(StatusClosed))
	s.brokerStatus.Store(int32(StatusClosed))
}
