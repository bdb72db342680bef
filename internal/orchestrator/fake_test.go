// internal/orchestrator/fake_test.go
package orchestrator

import (
	"context"
	"errors"
	"sync"

	"github.com/tamzrod/linkd/internal/transport"
	"github.com/tamzrod/linkd/internal/wifi"
)

// ---- wifi driver ----

// fakeDriver grants an address only to the accepted SSID.
type fakeDriver struct {
	accept string
	events chan wifi.DriverEvent

	mu          sync.Mutex
	attempts    []string
	disconnects int
}

func newFakeDriver(accept string) *fakeDriver {
	return &fakeDriver{accept: accept, events: make(chan wifi.DriverEvent, 64)}
}

func (f *fakeDriver) Associate(_ context.Context, c wifi.Credentials) error {
	f.mu.Lock()
	f.attempts = append(f.attempts, c.SSID)
	f.mu.Unlock()

	if c.SSID == f.accept {
		f.events <- wifi.DriverEvent{Kind: wifi.DriverGotAddress, Address: "192.168.1.50"}
	} else {
		f.events <- wifi.DriverEvent{Kind: wifi.DriverDisconnected, Reason: "no ap"}
	}
	return nil
}

func (f *fakeDriver) Disconnect(context.Context) error {
	f.mu.Lock()
	f.disconnects++
	f.mu.Unlock()
	return nil
}

func (f *fakeDriver) disconnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnects
}

func (f *fakeDriver) tried(ssid string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.attempts {
		if s == ssid {
			return true
		}
	}
	return false
}

func (f *fakeDriver) Events() <-chan wifi.DriverEvent { return f.events }

// ---- peripheral ----

type fakePeripheral struct {
	mu         sync.Mutex
	advertised int
}

func (f *fakePeripheral) Advertise(string) error {
	f.mu.Lock()
	f.advertised++
	f.mu.Unlock()
	return nil
}

func (f *fakePeripheral) StopAdvertise() error { return nil }

func (f *fakePeripheral) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.advertised
}

// ---- transports ----

type fakeTransport struct {
	source   transport.Source
	events   chan transport.Event
	statuses chan transport.Event
	fail     error

	mu        sync.Mutex
	starts    int
	connected bool
	url       string
	published []string
	binary    [][]byte
}

func newFakeTransport(source transport.Source) *fakeTransport {
	return &fakeTransport{
		source:   source,
		events:   make(chan transport.Event, 16),
		statuses: make(chan transport.Event, 16),
	}
}

func (f *fakeTransport) Start(context.Context) {
	f.mu.Lock()
	f.starts++
	f.mu.Unlock()
}

func (f *fakeTransport) Stop() {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
}

func (f *fakeTransport) SetURL(url string) {
	f.mu.Lock()
	f.url = url
	f.mu.Unlock()
}

func (f *fakeTransport) SendText(context.Context, string) error { return f.fail }

func (f *fakeTransport) SendBinary(_ context.Context, p []byte) error {
	if f.fail != nil {
		return f.fail
	}
	f.mu.Lock()
	f.binary = append(f.binary, append([]byte(nil), p...))
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Publish(topic string, _ []byte) error {
	if f.fail != nil {
		return f.fail
	}
	f.mu.Lock()
	f.published = append(f.published, topic)
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Subscribe(string) error { return nil }

func (f *fakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) Events() <-chan transport.Event   { return f.events }
func (f *fakeTransport) Statuses() <-chan transport.Event { return f.statuses }

func (f *fakeTransport) setConnected(v bool) {
	f.mu.Lock()
	f.connected = v
	f.mu.Unlock()
}

func (f *fakeTransport) open() {
	f.setConnected(true)
	f.statuses <- transport.Event{Source: f.source, Type: transport.EventStatus, Status: transport.StatusOpen}
}

func (f *fakeTransport) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func (f *fakeTransport) snapshot() (url string, published []string, binary int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url, append([]string(nil), f.published...), len(f.binary)
}

// ---- board ----

var errBoardClosed = errors.New("board closed")

type fakeBoard struct {
	frames chan []byte

	mu     sync.Mutex
	lines  []string
	closed bool
}

func newFakeBoard() *fakeBoard {
	return &fakeBoard{frames: make(chan []byte, 4)}
}

func (b *fakeBoard) Run(ctx context.Context, out chan<- []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-b.frames:
			select {
			case out <- f:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (b *fakeBoard) Send(p []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errBoardClosed
	}
	b.lines = append(b.lines, string(p))
	return nil
}

func (b *fakeBoard) written() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.lines...)
}
