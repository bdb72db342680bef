// internal/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tamzrod/linkd/internal/metrics"
	"github.com/tamzrod/linkd/internal/state"
	"github.com/tamzrod/linkd/internal/store"
	"github.com/tamzrod/linkd/internal/transport"
	"github.com/tamzrod/linkd/internal/wifi"
)

// ErrStopped is returned by Start after Stop. An Orchestrator runs once.
var ErrStopped = errors.New("orchestrator: stopped")

const (
	frameBuffer = 16
	stopTimeout = 3 * time.Second
)

// Deps are the collaborators. Metrics may be nil.
type Deps struct {
	Hub       *state.Hub
	Link      Link
	Provision Provisioner
	Sequencer *transport.Sequencer
	WebSocket transport.WebSocket
	Broker    transport.Broker
	Board     Board
	Store     store.Store
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Orchestrator applies the connectivity policy and moves data between the
// board and the backend.
type Orchestrator struct {
	hub     *state.Hub
	link    Link
	prov    Provisioner
	seq     *transport.Sequencer
	ws      transport.WebSocket
	broker  transport.Broker
	board   Board
	store   store.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
	topics  transport.Topics

	mu       sync.Mutex
	cancel   context.CancelFunc
	stopped  bool
	subID    int
	wg       sync.WaitGroup
	stopping atomic.Bool
}

func New(d Deps, topics transport.Topics) (*Orchestrator, error) {
	switch {
	case d.Hub == nil:
		return nil, errors.New("orchestrator: hub required")
	case d.Link == nil:
		return nil, errors.New("orchestrator: link required")
	case d.Provision == nil:
		return nil, errors.New("orchestrator: provisioning required")
	case d.Sequencer == nil || d.WebSocket == nil || d.Broker == nil:
		return nil, errors.New("orchestrator: transports required")
	case d.Board == nil:
		return nil, errors.New("orchestrator: board required")
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		hub:     d.Hub,
		link:    d.Link,
		prov:    d.Provision,
		seq:     d.Sequencer,
		ws:      d.WebSocket,
		broker:  d.Broker,
		board:   d.Board,
		store:   d.Store,
		metrics: d.Metrics,
		logger:  logger.With("component", "orchestrator"),
		topics:  topics,
	}, nil
}

// Start marks the system running, starts every loop and begins the first
// connection with saved or default credentials. It does not wait for the
// connection outcome. Teardown belongs to Stop; ctx should outlive the
// process signal handling.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	switch {
	case o.stopped:
		o.mu.Unlock()
		return ErrStopped
	case o.cancel != nil:
		o.mu.Unlock()
		return errors.New("orchestrator: already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.subID = o.hub.SubscribeConnectivity(o.onConnectivity)
	o.mu.Unlock()

	o.hub.SetSystem(state.SystemRunning)

	frames := make(chan []byte, frameBuffer)
	o.spawn(func() { o.board.Run(runCtx, frames) })
	o.spawn(func() { o.uplink(runCtx, frames) })
	o.spawn(func() { _ = o.link.Run(runCtx) })
	o.spawn(func() { _ = o.seq.Run(runCtx, o.link.Statuses()) })
	o.spawn(func() { o.downlink(runCtx) })
	o.spawn(func() { o.saveLoop(runCtx) })

	o.hub.SetConnectivity(state.ConnectingWifi)

	o.spawn(func() {
		if err := o.link.AutoConnect(runCtx); err != nil {
			o.logger.Warn("initial connect did not complete", "err", err)
		}
	})

	o.logger.Info("started")
	return nil
}

// Stop tears the network down and reports Offline without entering
// provisioning.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	cancel := o.cancel
	o.cancel = nil
	if cancel != nil {
		o.stopped = true
	}
	subID := o.subID
	o.mu.Unlock()

	if cancel == nil {
		return
	}
	o.stopping.Store(true)

	ctx, done := context.WithTimeout(context.Background(), stopTimeout)
	// a link that already exited has dropped its association itself
	if err := o.link.Disconnect(ctx); err != nil && !errors.Is(err, wifi.ErrStopped) {
		o.logger.Warn("wifi disconnect failed", "err", err)
	}
	done()

	cancel()
	o.wg.Wait()

	if err := o.prov.StopAdvertising(); err != nil {
		o.logger.Warn("stop advertising failed", "err", err)
	}
	o.hub.SetConnectivity(state.Offline)
	o.hub.UnsubscribeConnectivity(subID)

	o.logger.Info("stopped")
}

func (o *Orchestrator) spawn(fn func()) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		fn()
	}()
}

func (o *Orchestrator) sendLine(p []byte) {
	if err := o.board.Send(p); err != nil {
		o.logger.Warn("board write failed", "err", err)
	}
}
