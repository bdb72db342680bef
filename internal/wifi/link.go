// internal/wifi/link.go
package wifi

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tamzrod/linkd/internal/store"
)

const teardownTimeout = 3 * time.Second

// Link drives the station radio through a Driver.
//
// All state transitions happen on the goroutine running Run. Public methods
// only send commands to it or read atomics.
type Link struct {
	cfg    Config
	driver Driver
	store  store.Store
	logger *slog.Logger

	cmds     chan any
	statuses chan Status
	done     chan struct{}
	ran      atomic.Bool

	state    atomic.Int32
	retries  atomic.Int32
	failures atomic.Int64
	address  atomic.Value // string

	// owner goroutine only
	creds  Credentials
	waiter chan error
	retry  *time.Timer
	retryC <-chan time.Time
}

type connectCmd struct {
	creds Credentials
	reply chan error
}

type disconnectCmd struct {
	reply chan struct{}
}

// NewLink builds a Link. Run must be started before Connect is used.
func NewLink(cfg Config, driver Driver, s store.Store, logger *slog.Logger) *Link {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Link{
		cfg:      cfg.withDefaults(),
		driver:   driver,
		store:    s,
		logger:   logger.With("component", "wifi"),
		cmds:     make(chan any),
		statuses: make(chan Status, 32),
		done:     make(chan struct{}),
	}
	l.address.Store("")
	return l
}

// Statuses is the link status stream. Statuses are delivered in the order
// the link produced them.
func (l *Link) Statuses() <-chan Status { return l.statuses }

func (l *Link) State() LinkState { return LinkState(l.state.Load()) }

// Retries is the retry count of the current attempt cycle.
func (l *Link) Retries() int { return int(l.retries.Load()) }

// Failures counts attempt cycles that exhausted their retries.
func (l *Link) Failures() int64 { return l.failures.Load() }

// Address is the acquired address, empty when not connected.
func (l *Link) Address() string { return l.address.Load().(string) }

// Connect starts a new attempt cycle with the given credentials and blocks
// until an address is acquired, retries are exhausted, the attempt is
// superseded or the connect timeout elapses. A timeout does not stop the
// cycle; the link keeps retrying in the background.
func (l *Link) Connect(ctx context.Context, ssid, password string) error {
	reply := make(chan error, 1)
	cmd := connectCmd{creds: Credentials{SSID: ssid, Password: password}.Normalize(), reply: reply}

	select {
	case l.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}

	timer := time.NewTimer(l.cfg.ConnectTimeout)
	defer timer.Stop()

	select {
	case err := <-reply:
		return err
	case <-timer.C:
		return ErrConnectTimeout
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

// AutoConnect connects with the saved credentials, or with the configured
// defaults when nothing usable is saved.
func (l *Link) AutoConnect(ctx context.Context) error {
	c, ok := l.LoadCredentials()
	if ok {
		l.logger.Info("using saved credentials", "ssid", c.SSID)
	} else {
		c = l.cfg.Defaults
		l.logger.Info("no saved credentials, using defaults", "ssid", c.SSID)
	}
	return l.Connect(ctx, c.SSID, c.Password)
}

// Disconnect stops any attempt cycle and drops the association.
func (l *Link) Disconnect(ctx context.Context) error {
	reply := make(chan struct{})
	select {
	case l.cmds <- disconnectCmd{reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Link) LoadCredentials() (Credentials, bool) {
	return LoadCredentials(l.store)
}

func (l *Link) SaveCredentials(c Credentials) error {
	return SaveCredentials(l.store, c)
}

// Run owns the state machine until ctx is done, then drops any association.
// A Link runs once; later calls return ErrStopped.
func (l *Link) Run(ctx context.Context) error {
	if !l.ran.CompareAndSwap(false, true) {
		return ErrStopped
	}
	defer close(l.done)
	defer l.stopRetry()

	events := l.driver.Events()

	for {
		select {
		case <-ctx.Done():
			l.resolve(ErrStopped)
			l.teardown(ctx)
			return ctx.Err()

		case cmd := <-l.cmds:
			switch c := cmd.(type) {
			case connectCmd:
				l.startCycle(ctx, c)
			case disconnectCmd:
				l.stop(ctx)
				close(c.reply)
			}

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			l.handleEvent(ctx, ev)

		case <-l.retryC:
			l.retryC = nil
			if l.State() != LinkConnecting {
				continue
			}
			l.attempt(ctx)
		}
	}
}

// ---- owner goroutine ----

func (l *Link) startCycle(ctx context.Context, c connectCmd) {
	l.resolve(ErrSuperseded)
	l.stopRetry()

	l.creds = c.creds
	l.waiter = c.reply
	l.retries.Store(0)
	l.address.Store("")
	l.setState(LinkConnecting)

	l.logger.Info("connecting", "ssid", l.creds.SSID)
	l.attempt(ctx)
}

func (l *Link) attempt(ctx context.Context) {
	l.emit(ctx, Status{Code: StatusConnecting, Attempt: l.Retries()})
	if err := l.driver.Associate(ctx, l.creds); err != nil {
		l.handleEvent(ctx, DriverEvent{Kind: DriverDisconnected, Reason: err.Error()})
	}
}

func (l *Link) handleEvent(ctx context.Context, ev DriverEvent) {
	switch ev.Kind {
	case DriverGotAddress:
		if l.State() == LinkIdle {
			return
		}
		l.stopRetry()
		l.retries.Store(0)
		l.address.Store(ev.Address)
		l.setState(LinkConnected)
		l.logger.Info("address acquired", "ssid", l.creds.SSID, "addr", ev.Address)

		if err := l.SaveCredentials(l.creds); err != nil {
			l.logger.Warn("save credentials failed", "err", err)
		}
		l.emit(ctx, Status{Code: StatusAddressAcquired, Address: ev.Address})
		l.resolve(nil)

	case DriverDisconnected:
		switch l.State() {
		case LinkIdle, LinkFailed:
			return
		}
		if l.retryC != nil {
			// a retry is already scheduled for this failure
			return
		}
		l.address.Store("")

		n := l.Retries()
		if n < l.cfg.MaxRetry {
			n++
			l.retries.Store(int32(n))
			l.setState(LinkConnecting)
			l.logger.Warn("disconnected, retrying",
				"attempt", n,
				"max_retry", l.cfg.MaxRetry,
				"reason", ev.Reason,
			)
			l.emit(ctx, Status{Code: StatusDisconnected, Attempt: n})
			l.retry = time.NewTimer(l.cfg.RetryInterval)
			l.retryC = l.retry.C
			return
		}

		l.setState(LinkFailed)
		l.failures.Add(1)
		l.logger.Error("connect failed, retries exhausted",
			"ssid", l.creds.SSID,
			"max_retry", l.cfg.MaxRetry,
			"reason", ev.Reason,
		)
		l.emit(ctx, Status{Code: StatusDisconnected, Attempt: n, Final: true})
		l.resolve(ErrConnectFailed)
	}
}

func (l *Link) stop(ctx context.Context) {
	l.stopRetry()
	l.resolve(ErrCanceled)

	prev := l.State()
	l.setState(LinkIdle)
	l.retries.Store(0)
	l.address.Store("")

	if err := l.driver.Disconnect(ctx); err != nil {
		l.logger.Warn("driver disconnect failed", "err", err)
	}
	if prev != LinkIdle {
		l.emit(ctx, Status{Code: StatusDisconnected, Final: true})
	}
}

// teardown disassociates after ctx is done. No status is emitted; nobody is
// left to read it.
func (l *Link) teardown(ctx context.Context) {
	prev := l.State()
	l.setState(LinkIdle)
	l.retries.Store(0)
	l.address.Store("")
	if prev == LinkIdle {
		return
	}

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
	defer cancel()
	if err := l.driver.Disconnect(dctx); err != nil {
		l.logger.Warn("driver disconnect on shutdown failed", "err", err)
	}
}

func (l *Link) resolve(err error) {
	if l.waiter == nil {
		return
	}
	l.waiter <- err
	l.waiter = nil
}

func (l *Link) stopRetry() {
	if l.retry != nil {
		l.retry.Stop()
		l.retry = nil
	}
	l.retryC = nil
}

func (l *Link) setState(s LinkState) {
	l.state.Store(int32(s))
}

func (l *Link) emit(ctx context.Context, s Status) {
	select {
	case l.statuses <- s:
	case <-ctx.Done():
	}
}
