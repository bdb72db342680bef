// internal/provision/service.go
package provision

import (
	"log/slog"
	"sync"
)

// Service accepts network configuration from a peer while advertising.
//
// Write handling only updates the pending config and queues saves; it never
// waits on network I/O.
type Service struct {
	opts       Options
	peripheral Peripheral
	logger     *slog.Logger

	mu          sync.Mutex
	advertising bool // requested, not necessarily on air while a peer is attached
	peer        bool
	pending     Config

	saves chan Config
}

func New(p Peripheral, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	opts = opts.withDefaults()
	return &Service{
		opts:       opts,
		peripheral: p,
		logger:     logger.With("component", "provision"),
		saves:      make(chan Config, opts.SaveBuffer),
	}
}

// Saves delivers a snapshot of the pending config for every SAVE write.
func (s *Service) Saves() <-chan Config { return s.saves }

// State is derived: an attached peer wins over the advertising request.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.peer:
		return StateConnected
	case s.advertising:
		return StateAdvertising
	default:
		return StateStopped
	}
}

// Active reports whether advertising is requested. A peer left attached
// after StopAdvertising does not keep the service active.
func (s *Service) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advertising
}

// Peer reports whether a peer is attached.
func (s *Service) Peer() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer
}

// Pending returns a copy of the pending config.
func (s *Service) Pending() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// StartAdvertising requests advertising. With a peer attached the radio
// starts advertising when the peer leaves.
func (s *Service) StartAdvertising() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.advertising {
		return nil
	}
	if !s.peer {
		if err := s.peripheral.Advertise(s.opts.DeviceName); err != nil {
			return err
		}
	}
	s.advertising = true
	s.logger.Info("advertising", "name", s.opts.DeviceName, "peer", s.peer)
	return nil
}

// StopAdvertising withdraws the request. An attached peer stays attached and
// may keep writing, but advertising does not resume when it leaves.
func (s *Service) StopAdvertising() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.advertising {
		return nil
	}
	s.advertising = false
	s.logger.Info("advertising stopped", "peer", s.peer)
	return s.peripheral.StopAdvertise()
}

// HandleConnect records an attached peer. Ignored unless advertising is
// requested or when a peer is already attached.
func (s *Service) HandleConnect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.peer || !s.advertising {
		return false
	}
	s.peer = true
	s.logger.Info("peer connected")
	return true
}

// HandleDisconnect forgets the peer and resumes advertising if it is still
// requested.
func (s *Service) HandleDisconnect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.peer {
		return false
	}
	s.peer = false
	if !s.advertising {
		s.logger.Info("peer disconnected")
		return true
	}
	if err := s.peripheral.Advertise(s.opts.DeviceName); err != nil {
		s.logger.Warn("resume advertising failed", "err", err)
	}
	s.logger.Info("peer disconnected, advertising resumed")
	return true
}

// HandleWrite applies one write from the peer. Writes without a connected
// peer are rejected. Payloads over the write bound are truncated.
func (s *Service) HandleWrite(target Target, payload []byte) bool {
	s.mu.Lock()

	if !s.peer {
		s.mu.Unlock()
		s.logger.Debug("write rejected, no peer", "target", target.String())
		return false
	}

	if len(payload) > s.opts.MaxWriteLen {
		s.logger.Warn("write truncated",
			"target", target.String(),
			"len", len(payload),
			"max", s.opts.MaxWriteLen,
		)
		payload = payload[:s.opts.MaxWriteLen]
	}
	value := string(payload)

	switch target {
	case TargetSSID:
		s.pending.SSID = value
	case TargetPassword:
		s.pending.Password = value
	case TargetWebSocketURL:
		s.pending.WebSocketURL = value
	case TargetBrokerURL:
		s.pending.BrokerURL = value
	case TargetSave:
		snapshot := s.pending
		s.mu.Unlock()
		s.queueSave(snapshot)
		return true
	default:
		s.mu.Unlock()
		return false
	}

	s.mu.Unlock()
	s.logger.Debug("field written", "target", target.String(), "len", len(value))
	return true
}

func (s *Service) queueSave(c Config) {
	select {
	case s.saves <- c:
		s.logger.Info("save requested", "ssid", c.SSID)
	default:
		s.logger.Warn("save dropped, queue full", "ssid", c.SSID)
	}
}
