// internal/orchestrator/policy.go
package orchestrator

import (
	"context"
	"errors"

	"github.com/tamzrod/linkd/internal/provision"
	"github.com/tamzrod/linkd/internal/state"
	"github.com/tamzrod/linkd/internal/status"
	"github.com/tamzrod/linkd/internal/store"
	"github.com/tamzrod/linkd/internal/wifi"
)

// onConnectivity is the single connectivity subscriber.
func (o *Orchestrator) onConnectivity(s state.ConnectivityState) {
	o.sendLine(status.EncodeState(s))
	o.metrics.SetConnectivity(s)

	switch s {
	case state.Offline:
		if o.stopping.Load() {
			return
		}
		o.fallback()

	case state.Online:
		if err := o.prov.StopAdvertising(); err != nil {
			o.logger.Warn("stop advertising failed", "err", err)
		}
	}
}

// fallback enters provisioning once per failure episode. The episode is
// the provisioning service being active: a repeated Offline during it only
// restores ConfigBLE.
func (o *Orchestrator) fallback() {
	if o.prov.Active() {
		o.hub.SetConnectivity(state.ConfigBLE)
		return
	}

	if err := o.prov.StartAdvertising(); err != nil {
		o.logger.Error("provisioning fallback failed", "err", err)
		return
	}
	o.metrics.Fallback()
	o.logger.Info("wifi unreachable, provisioning started")
	o.hub.SetConnectivity(state.ConfigBLE)
}

func (o *Orchestrator) saveLoop(ctx context.Context) {
	saves := o.prov.Saves()
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-saves:
			o.applySave(ctx, c)
		}
	}
}

// applySave persists a provisioned config and reconnects with it.
func (o *Orchestrator) applySave(ctx context.Context, c provision.Config) {
	if c.SSID == "" {
		o.logger.Warn("save ignored, ssid empty")
		return
	}
	o.metrics.Save()

	creds := wifi.Credentials{SSID: c.SSID, Password: c.Password}
	if err := o.link.SaveCredentials(creds); err != nil {
		o.logger.Warn("save credentials failed", "err", err)
	}
	if c.WebSocketURL != "" {
		o.persist(store.KeyWebSocketURL, c.WebSocketURL)
		o.ws.SetURL(c.WebSocketURL)
	}
	if c.BrokerURL != "" {
		o.persist(store.KeyBrokerURL, c.BrokerURL)
		o.broker.SetURL(c.BrokerURL)
	}

	if err := o.prov.StopAdvertising(); err != nil {
		o.logger.Warn("stop advertising failed", "err", err)
	}
	o.hub.SetConnectivity(state.ConnectingWifi)

	// a later save supersedes this attempt inside the link
	o.spawn(func() {
		err := o.link.Connect(ctx, creds.SSID, creds.Password)
		switch {
		case err == nil:
			o.logger.Info("connected with provisioned credentials", "ssid", creds.SSID)
		case errors.Is(err, wifi.ErrSuperseded), errors.Is(err, wifi.ErrCanceled),
			errors.Is(err, wifi.ErrStopped), errors.Is(err, context.Canceled):
			o.logger.Debug("provisioned connect abandoned", "ssid", creds.SSID, "err", err)
		default:
			o.logger.Warn("provisioned connect failed", "ssid", creds.SSID, "err", err)
		}
	})
}

func (o *Orchestrator) persist(key, value string) {
	if o.store == nil {
		return
	}
	if err := o.store.Set(key, value); err != nil {
		o.logger.Warn("persist failed", "key", key, "err", err)
	}
}
