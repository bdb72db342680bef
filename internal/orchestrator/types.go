// internal/orchestrator/types.go
package orchestrator

import (
	"context"

	"github.com/tamzrod/linkd/internal/provision"
	"github.com/tamzrod/linkd/internal/store"
	"github.com/tamzrod/linkd/internal/wifi"
)

// Link is the station link contract used here. *wifi.Link satisfies it.
type Link interface {
	Run(ctx context.Context) error
	Statuses() <-chan wifi.Status
	Connect(ctx context.Context, ssid, password string) error
	AutoConnect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	SaveCredentials(c wifi.Credentials) error
}

// Provisioner is the provisioning contract. *provision.Service satisfies it.
type Provisioner interface {
	StartAdvertising() error
	StopAdvertising() error
	Active() bool
	Saves() <-chan provision.Config
}

// Board is the serial link to the compute board. *bridge.Bridge satisfies it.
type Board interface {
	Run(ctx context.Context, out chan<- []byte)
	Send(p []byte) error
}

// Endpoints are the backend URLs in effect.
type Endpoints struct {
	WebSocketURL string
	BrokerURL    string
}

// LoadEndpoints returns the provisioned URLs, falling back to def for
// anything not stored.
func LoadEndpoints(s store.Store, def Endpoints) Endpoints {
	return Endpoints{
		WebSocketURL: store.LookupOr(s, store.KeyWebSocketURL, def.WebSocketURL),
		BrokerURL:    store.LookupOr(s, store.KeyBrokerURL, def.BrokerURL),
	}
}
