// internal/transport/types.go
package transport

import (
	"context"
	"errors"
	"fmt"
)

var ErrNotConnected = errors.New("transport: not connected")

// Status of one transport.
type Status int32

const (
	StatusClosed Status = iota
	StatusConnecting
	StatusOpen
)

func (s Status) String() string {
	switch s {
	case StatusClosed:
		return "closed"
	case StatusConnecting:
		return "connecting"
	case StatusOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Source identifies the transport an event came from.
type Source int

const (
	SourceWebSocket Source = iota
	SourceBroker
)

func (s Source) String() string {
	switch s {
	case SourceWebSocket:
		return "websocket"
	case SourceBroker:
		return "broker"
	default:
		return "unknown"
	}
}

// EventType discriminates Event.
type EventType int

const (
	EventStatus EventType = iota
	EventText
	EventBinary
	EventMessage
)

// Event is a status change or an inbound payload.
// Topic is set for EventMessage only.
type Event struct {
	Source  Source
	Type    EventType
	Status  Status
	Topic   string
	Payload []byte
}

// Events carries inbound data and may drop under pressure. Statuses carries
// EventStatus only and is fed through a StatusFeed.

// WebSocket is a self-reconnecting WebSocket client.
type WebSocket interface {
	Start(ctx context.Context)
	Stop()
	SetURL(url string)
	SendText(ctx context.Context, text string) error
	SendBinary(ctx context.Context, data []byte) error
	Connected() bool
	Events() <-chan Event
	Statuses() <-chan Event
}

// Broker is a publish/subscribe client.
type Broker interface {
	Start(ctx context.Context)
	Stop()
	SetURL(url string)
	Publish(topic string, payload []byte) error
	Subscribe(topic string) error
	Connected() bool
	Events() <-chan Event
	Statuses() <-chan Event
}

// ---- topics ----

const DefaultTopicPrefix = "pnoid/"

// Topics builds broker topic names under a prefix.
type Topics struct {
	Prefix string
}

func (t Topics) Telemetry() string { return t.Prefix + "telemetry" }
func (t Topics) Command() string   { return t.Prefix + "cmd" }
func (t Topics) Config() string    { return t.Prefix + "config" }

// ---- online policy ----

// OnlinePolicy decides what a transport drop does to the online signal.
type OnlinePolicy int

const (
	// LatchOnline keeps Online until WiFi is lost.
	LatchOnline OnlinePolicy = iota
	// RetractOnDrop leaves Online as soon as either transport leaves Open.
	RetractOnDrop
)

func (p OnlinePolicy) String() string {
	switch p {
	case LatchOnline:
		return "latch"
	case RetractOnDrop:
		return "retract"
	default:
		return "unknown"
	}
}

func ParseOnlinePolicy(s string) (OnlinePolicy, error) {
	switch s {
	case "", "latch":
		return LatchOnline, nil
	case "retract":
		return RetractOnDrop, nil
	default:
		return 0, fmt.Errorf("transport: unknown online policy %q", s)
	}
}
