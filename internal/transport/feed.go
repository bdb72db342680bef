// internal/transport/feed.go
package transport

import "sync"

// DefaultStatusBuffer is the status backlog a client keeps for a slow reader.
const DefaultStatusBuffer = 16

// StatusFeed carries status events apart from inbound data, so a data burst
// can never crowd a status change out. Publish never blocks. If the reader
// falls a full buffer behind, the oldest pending status is discarded; the
// most recent status is always delivered.
type StatusFeed struct {
	mu sync.Mutex
	ch chan Event
}

func NewStatusFeed(size int) *StatusFeed {
	if size <= 0 {
		size = DefaultStatusBuffer
	}
	return &StatusFeed{ch: make(chan Event, size)}
}

func (f *StatusFeed) C() <-chan Event { return f.ch }

// Publish queues ev and reports whether an older status had to be discarded.
func (f *StatusFeed) Publish(ev Event) (discarded bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	select {
	case f.ch <- ev:
		return false
	default:
	}

	// only the reader competes with us here, so one slot frees up either way
	select {
	case <-f.ch:
		discarded = true
	default:
	}
	select {
	case f.ch <- ev:
	default:
	}
	return discarded
}
