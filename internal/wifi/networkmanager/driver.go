// internal/wifi/networkmanager/driver.go
package networkmanager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/tamzrod/linkd/internal/wifi"
)

// NetworkManager D-Bus constants
const (
	nmService         = "org.freedesktop.NetworkManager"
	nmPath            = "/org/freedesktop/NetworkManager"
	nmInterface       = "org.freedesktop.NetworkManager"
	nmDeviceInterface = "org.freedesktop.NetworkManager.Device"
	nmIP4Interface    = "org.freedesktop.NetworkManager.IP4Config"
	nmConnInterface   = "org.freedesktop.NetworkManager.Settings.Connection"
)

// NMDeviceState values used here
const (
	deviceDisconnected uint32 = 30
	deviceActivated    uint32 = 100
	deviceFailed       uint32 = 120
)

// Driver is a wifi.Driver on top of NetworkManager.
type Driver struct {
	conn   *dbus.Conn
	device dbus.ObjectPath
	logger *slog.Logger

	signals chan *dbus.Signal
	events  chan wifi.DriverEvent

	mu      sync.Mutex
	profile dbus.ObjectPath
}

// Open connects to the system bus and binds to the wireless interface.
func Open(iface string, logger *slog.Logger) (*Driver, error) {
	if iface == "" {
		return nil, errors.New("networkmanager: interface required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("networkmanager: system bus: %w", err)
	}

	var device dbus.ObjectPath
	err = conn.Object(nmService, nmPath).
		Call(nmInterface+".GetDeviceByIpIface", 0, iface).
		Store(&device)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("networkmanager: device %s: %w", iface, err)
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(device),
		dbus.WithMatchInterface(nmDeviceInterface),
		dbus.WithMatchMember("StateChanged"),
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("networkmanager: match StateChanged: %w", err)
	}

	d := &Driver{
		conn:    conn,
		device:  device,
		logger:  logger.With("component", "networkmanager", "iface", iface),
		signals: make(chan *dbus.Signal, 16),
		events:  make(chan wifi.DriverEvent, 16),
	}
	conn.Signal(d.signals)
	go d.pump()

	return d, nil
}

func (d *Driver) Events() <-chan wifi.DriverEvent { return d.events }

// Associate replaces the previous profile with one for c and activates it.
func (d *Driver) Associate(ctx context.Context, c wifi.Credentials) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.deleteProfile(ctx)

	var profile, active dbus.ObjectPath
	err := d.conn.Object(nmService, nmPath).
		CallWithContext(ctx, nmInterface+".AddAndActivateConnection", 0,
			connectionSettings(c), d.device, dbus.ObjectPath("/")).
		Store(&profile, &active)
	if err != nil {
		return fmt.Errorf("networkmanager: activate %q: %w", c.SSID, err)
	}
	d.profile = profile
	return nil
}

func (d *Driver) Disconnect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.conn.Object(nmService, d.device).
		CallWithContext(ctx, nmDeviceInterface+".Disconnect", 0).Err
	d.deleteProfile(ctx)
	return err
}

// Close releases the bus connection; Events is closed afterwards.
func (d *Driver) Close() error {
	d.mu.Lock()
	d.deleteProfile(context.Background())
	d.mu.Unlock()
	return d.conn.Close()
}

func (d *Driver) deleteProfile(ctx context.Context) {
	if d.profile == "" {
		return
	}
	if err := d.conn.Object(nmService, d.profile).
		CallWithContext(ctx, nmConnInterface+".Delete", 0).Err; err != nil {
		d.logger.Debug("delete profile failed", "profile", d.profile, "err", err)
	}
	d.profile = ""
}

func (d *Driver) pump() {
	defer close(d.events)

	for sig := range d.signals {
		if sig.Path != d.device || sig.Name != nmDeviceInterface+".StateChanged" {
			continue
		}
		newState, oldState, reason, ok := stateChange(sig.Body)
		if !ok {
			continue
		}
		ev, emit := translate(newState, oldState, reason)
		if !emit {
			continue
		}
		if ev.Kind == wifi.DriverGotAddress {
			ev.Address = d.address()
		}
		d.events <- ev
	}
}

func (d *Driver) address() string {
	v, err := d.conn.Object(nmService, d.device).GetProperty(nmDeviceInterface + ".Ip4Config")
	if err != nil {
		return ""
	}
	path, ok := v.Value().(dbus.ObjectPath)
	if !ok || path == "/" {
		return ""
	}
	data, err := d.conn.Object(nmService, path).GetProperty(nmIP4Interface + ".AddressData")
	if err != nil {
		return ""
	}
	return firstAddress(data.Value())
}

// ---- pure helpers ----

func connectionSettings(c wifi.Credentials) map[string]map[string]dbus.Variant {
	s := map[string]map[string]dbus.Variant{
		"connection": {
			"id":          dbus.MakeVariant("linkd-" + c.SSID),
			"type":        dbus.MakeVariant("802-11-wireless"),
			"autoconnect": dbus.MakeVariant(false),
		},
		"802-11-wireless": {
			"ssid": dbus.MakeVariant([]byte(c.SSID)),
			"mode": dbus.MakeVariant("infrastructure"),
		},
		"ipv4": {
			"method": dbus.MakeVariant("auto"),
		},
	}
	if c.Password != "" {
		s["802-11-wireless-security"] = map[string]dbus.Variant{
			"key-mgmt": dbus.MakeVariant("wpa-psk"),
			"psk":      dbus.MakeVariant(c.Password),
		}
	}
	return s
}

func stateChange(body []interface{}) (newState, oldState, reason uint32, ok bool) {
	if len(body) != 3 {
		return 0, 0, 0, false
	}
	n, ok1 := body[0].(uint32)
	o, ok2 := body[1].(uint32)
	r, ok3 := body[2].(uint32)
	return n, o, r, ok1 && ok2 && ok3
}

// translate maps a device state change onto a driver event.
func translate(newState, oldState, reason uint32) (wifi.DriverEvent, bool) {
	switch {
	case newState == deviceActivated:
		return wifi.DriverEvent{Kind: wifi.DriverGotAddress}, true
	case newState == deviceFailed:
		return wifi.DriverEvent{Kind: wifi.DriverDisconnected, Reason: fmt.Sprintf("activation failed (reason %d)", reason)}, true
	case newState <= deviceDisconnected && oldState == deviceActivated:
		return wifi.DriverEvent{Kind: wifi.DriverDisconnected, Reason: fmt.Sprintf("link lost (reason %d)", reason)}, true
	default:
		return wifi.DriverEvent{}, false
	}
}

func firstAddress(v interface{}) string {
	entries, ok := v.([]map[string]dbus.Variant)
	if !ok || len(entries) == 0 {
		return ""
	}
	addr, _ := entries[0]["address"].Value().(string)
	return addr
}
