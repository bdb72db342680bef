// internal/transport/fake_test.go
package transport

import (
	"context"
	"sync"
)

// fakeTransport satisfies both WebSocket and Broker.
type fakeTransport struct {
	source   Source
	events   chan Event
	statuses chan Event

	mu         sync.Mutex
	starts     int
	stops      int
	subscribed []string
	connected  bool
}

func newFake(source Source) *fakeTransport {
	return &fakeTransport{source: source, events: make(chan Event, 16), statuses: make(chan Event, 16)}
}

func (f *fakeTransport) Start(context.Context) {
	f.mu.Lock()
	f.starts++
	f.mu.Unlock()
}

func (f *fakeTransport) Stop() {
	f.mu.Lock()
	f.stops++
	f.connected = false
	f.mu.Unlock()
}

func (f *fakeTransport) SetURL(string) {}

func (f *fakeTransport) SendText(context.Context, string) error   { return nil }
func (f *fakeTransport) SendBinary(context.Context, []byte) error { return nil }
func (f *fakeTransport) Publish(string, []byte) error             { return nil }

func (f *fakeTransport) Subscribe(topic string) error {
	f.mu.Lock()
	f.subscribed = append(f.subscribed, topic)
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) Events() <-chan Event   { return f.events }
func (f *fakeTransport) Statuses() <-chan Event { return f.statuses }

func (f *fakeTransport) status(s Status) {
	f.mu.Lock()
	f.connected = s == StatusOpen
	f.mu.Unlock()
	f.statuses <- Event{Source: f.source, Type: EventStatus, Status: s}
}

func (f *fakeTransport) counts() (starts, stops int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops
}

func (f *fakeTransport) topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.subscribed...)
}
