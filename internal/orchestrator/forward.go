// internal/orchestrator/forward.go
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tamzrod/linkd/internal/status"
	"github.com/tamzrod/linkd/internal/transport"
)

// ---- UPLINK ----

func (o *Orchestrator) uplink(ctx context.Context, frames <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-frames:
			if err := o.forward(ctx, f); err != nil {
				o.logger.Debug("uplink incomplete", "len", len(f), "err", err)
			}
		}
	}
}

// forward sends one board frame to every connected transport.
// Transports are attempted independently; failures are accumulated and
// never stop the other transport.
func (o *Orchestrator) forward(ctx context.Context, frame []byte) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	fail := func(src transport.Source, err error) {
		mu.Lock()
		errs = append(errs, fmt.Errorf("uplink: %s: %w", src, err))
		mu.Unlock()
	}

	if o.broker.Connected() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := o.broker.Publish(o.topics.Telemetry(), frame)
			o.metrics.Uplink(transport.SourceBroker, err)
			if err != nil {
				fail(transport.SourceBroker, err)
			}
		}()
	}

	if o.ws.Connected() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := o.ws.SendBinary(ctx, frame)
			o.metrics.Uplink(transport.SourceWebSocket, err)
			if err != nil {
				fail(transport.SourceWebSocket, err)
			}
		}()
	}

	wg.Wait()
	return errors.Join(errs...)
}

// ---- DOWNLINK ----

func (o *Orchestrator) downlink(ctx context.Context) {
	inbound := o.seq.Inbound()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-inbound:
			o.relay(ev)
		}
	}
}

// relay writes one inbound event to the board in line protocol form.
func (o *Orchestrator) relay(ev transport.Event) {
	var (
		line []byte
		kind string
	)
	switch ev.Type {
	case transport.EventText:
		line, kind = status.EncodeText(ev.Payload), "text"
	case transport.EventBinary:
		line, kind = ev.Payload, "binary"
	case transport.EventMessage:
		line, kind = status.EncodeBrokerMessage(ev.Topic, ev.Payload), "broker"
	default:
		return
	}

	if err := o.board.Send(line); err != nil {
		o.logger.Warn("downlink write failed", "kind", kind, "err", err)
		return
	}
	o.metrics.Downlink(kind)
}
