// internal/state/hub.go
package state

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Hub stores the system and connectivity states and notifies subscribers
// when either changes.
//
// A single mutex guards both values and both subscriber lists. It is held
// only while mutating or snapshotting, never while a subscriber runs.
// Transitions of one dimension are delivered in commit order; there is no
// ordering between the two dimensions.
type Hub struct {
	mu     sync.Mutex
	conn   dimension[ConnectivityState]
	sys    dimension[SystemState]
	logger *slog.Logger
}

type subscription[S comparable] struct {
	id     int
	fn     func(S)
	active atomic.Bool
}

type delivery[S comparable] struct {
	from S
	to   S
	subs []*subscription[S]
}

// dimension is one independently notified state value.
// pending/draining implement a commit-ordered queue: the goroutine that
// finds draining == false becomes the drainer until the queue is empty.
type dimension[S comparable] struct {
	name     string
	current  S
	subs     []*subscription[S]
	nextID   int
	pending  []delivery[S]
	draining bool
}

// NewHub creates a hub in SystemBooting / Offline.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		conn:   dimension[ConnectivityState]{name: "connectivity", current: Offline},
		sys:    dimension[SystemState]{name: "system", current: SystemBooting},
		logger: logger,
	}
}

// ---- connectivity ----

// SetConnectivity commits s and notifies subscribers if it differs from the
// current value. It reports whether a transition was committed.
func (h *Hub) SetConnectivity(s ConnectivityState) bool {
	return set(h, &h.conn, s)
}

// Connectivity returns the current connectivity state.
func (h *Hub) Connectivity() ConnectivityState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn.current
}

// SubscribeConnectivity registers fn and returns its id.
func (h *Hub) SubscribeConnectivity(fn func(ConnectivityState)) int {
	return subscribe(h, &h.conn, fn)
}

// UnsubscribeConnectivity removes the subscription. Every delivery, including
// one already queued, checks the subscription before calling it, so id gets
// nothing once this returns except a call that had already passed that check
// on another goroutine.
func (h *Hub) UnsubscribeConnectivity(id int) {
	unsubscribe(h, &h.conn, id)
}

// ---- system ----

// SetSystem commits s and notifies subscribers if it differs from the
// current value. It reports whether a transition was committed.
func (h *Hub) SetSystem(s SystemState) bool {
	return set(h, &h.sys, s)
}

// System returns the current system state.
func (h *Hub) System() SystemState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sys.current
}

// SubscribeSystem registers fn and returns its id.
func (h *Hub) SubscribeSystem(fn func(SystemState)) int {
	return subscribe(h, &h.sys, fn)
}

// UnsubscribeSystem removes the subscription, with the same delivery
// guarantee as UnsubscribeConnectivity.
func (h *Hub) UnsubscribeSystem(id int) {
	unsubscribe(h, &h.sys, id)
}

// ---- generic plumbing ----

func set[S comparable](h *Hub, d *dimension[S], s S) bool {
	h.mu.Lock()
	if d.current == s {
		h.mu.Unlock()
		return false
	}
	from := d.current
	d.current = s

	subs := make([]*subscription[S], len(d.subs))
	copy(subs, d.subs)
	d.pending = append(d.pending, delivery[S]{from: from, to: s, subs: subs})

	if d.draining {
		// Another goroutine (possibly our own caller's subscriber) is
		// delivering; it will pick this one up in order.
		h.mu.Unlock()
		return true
	}
	d.draining = true
	h.mu.Unlock()

	drain(h, d)
	return true
}

func drain[S comparable](h *Hub, d *dimension[S]) {
	for {
		h.mu.Lock()
		if len(d.pending) == 0 {
			d.draining = false
			h.mu.Unlock()
			return
		}
		next := d.pending[0]
		d.pending[0] = delivery[S]{}
		d.pending = d.pending[1:]
		h.mu.Unlock()

		h.logger.Info("state transition", "dimension", d.name, "from", next.from, "to", next.to)

		for _, sub := range next.subs {
			if !sub.active.Load() {
				continue
			}
			h.invoke(d.name, sub.id, func() { sub.fn(next.to) })
		}
	}
}

func (h *Hub) invoke(dim string, id int, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("state subscriber panicked",
				"dimension", dim,
				"subscription", id,
				"panic", r,
			)
		}
	}()
	fn()
}

func subscribe[S comparable](h *Hub, d *dimension[S], fn func(S)) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	d.nextID++
	sub := &subscription[S]{id: d.nextID, fn: fn}
	sub.active.Store(true)
	d.subs = append(d.subs, sub)
	return sub.id
}

func unsubscribe[S comparable](h *Hub, d *dimension[S], id int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, sub := range d.subs {
		if sub.id == id {
			sub.active.Store(false)
			d.subs = append(d.subs[:i:i], d.subs[i+1:]...)
			return
		}
	}
}
