// internal/provision/bluez/peripheral.go
package bluez

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"

	"github.com/tamzrod/linkd/internal/provision"
)

// BlueZ D-Bus constants
const (
	bluezService       = "org.bluez"
	adapterInterface   = "org.bluez.Adapter1"
	deviceInterface    = "org.bluez.Device1"
	gattManager        = "org.bluez.GattManager1"
	advManager         = "org.bluez.LEAdvertisingManager1"
	gattServiceIface   = "org.bluez.GattService1"
	gattCharIface      = "org.bluez.GattCharacteristic1"
	advertisementIface = "org.bluez.LEAdvertisement1"
	objectManagerIface = "org.freedesktop.DBus.ObjectManager"
	propertiesIface    = "org.freedesktop.DBus.Properties"

	appPath     = dbus.ObjectPath("/org/linkd/provision")
	servicePath = dbus.ObjectPath("/org/linkd/provision/service0")
	advPath     = dbus.ObjectPath("/org/linkd/provision/advertisement0")
)

// Handler receives peer activity. Implemented by provision.Service.
type Handler interface {
	HandleConnect() bool
	HandleDisconnect() bool
	HandleWrite(target provision.Target, payload []byte) bool
}

// Peripheral exposes the provisioning GATT service through BlueZ.
type Peripheral struct {
	conn    *dbus.Conn
	adapter dbus.ObjectPath
	logger  *slog.Logger

	advProps *prop.Properties
	signals  chan *dbus.Signal

	mu          sync.Mutex
	handler     Handler
	advertising bool
}

// Open connects to the system bus for the given adapter (e.g. "hci0").
func Open(adapter string, logger *slog.Logger) (*Peripheral, error) {
	if adapter == "" {
		return nil, errors.New("bluez: adapter required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("bluez: system bus: %w", err)
	}
	return &Peripheral{
		conn:    conn,
		adapter: dbus.ObjectPath("/org/bluez/" + adapter),
		logger:  logger.With("component", "bluez", "adapter", adapter),
		signals: make(chan *dbus.Signal, 16),
	}, nil
}

// Bind exports the GATT application, registers it with the adapter and
// starts forwarding peer connection changes to h.
func (p *Peripheral) Bind(h Handler) error {
	p.mu.Lock()
	p.handler = h
	p.mu.Unlock()

	if err := p.conn.Object(bluezService, p.adapter).
		SetProperty(adapterInterface+".Powered", dbus.MakeVariant(true)); err != nil {
		p.logger.Warn("power on adapter failed", "err", err)
	}

	if err := p.export(); err != nil {
		return err
	}

	err := p.conn.Object(bluezService, p.adapter).
		Call(gattManager+".RegisterApplication", 0, appPath, map[string]dbus.Variant{}).Err
	if err != nil {
		return fmt.Errorf("bluez: register application: %w", err)
	}

	if err := p.conn.AddMatchSignal(
		dbus.WithMatchInterface(propertiesIface),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchPathNamespace(p.adapter),
	); err != nil {
		return fmt.Errorf("bluez: match PropertiesChanged: %w", err)
	}
	p.conn.Signal(p.signals)
	go p.watch()

	return nil
}

// Advertise registers the LE advertisement under name.
func (p *Peripheral) Advertise(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.advertising {
		return nil
	}
	p.advProps.SetMust(advertisementIface, "LocalName", name)

	err := p.conn.Object(bluezService, p.adapter).
		Call(advManager+".RegisterAdvertisement", 0, advPath, map[string]dbus.Variant{}).Err
	if err != nil {
		return fmt.Errorf("bluez: register advertisement: %w", err)
	}
	p.advertising = true
	return nil
}

func (p *Peripheral) StopAdvertise() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.advertising {
		return nil
	}
	p.advertising = false
	err := p.conn.Object(bluezService, p.adapter).
		Call(advManager+".UnregisterAdvertisement", 0, advPath).Err
	if err != nil {
		return fmt.Errorf("bluez: unregister advertisement: %w", err)
	}
	return nil
}

// Close unregisters everything and releases the bus connection.
func (p *Peripheral) Close() error {
	_ = p.StopAdvertise()
	_ = p.conn.Object(bluezService, p.adapter).
		Call(gattManager+".UnregisterApplication", 0, appPath).Err
	return p.conn.Close()
}

func (p *Peripheral) currentHandler() Handler {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handler
}

// ---- exported objects ----

type application struct {
	objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
}

func (a *application) GetManagedObjects() (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, *dbus.Error) {
	return a.objects, nil
}

type characteristic struct {
	target provision.Target
	p      *Peripheral
}

func (c *characteristic) WriteValue(value []byte, _ map[string]dbus.Variant) *dbus.Error {
	h := c.p.currentHandler()
	if h == nil || !h.HandleWrite(c.target, value) {
		return dbus.NewError("org.bluez.Error.NotPermitted", nil)
	}
	return nil
}

type advertisement struct {
	logger *slog.Logger
}

func (a *advertisement) Release() *dbus.Error {
	a.logger.Debug("advertisement released")
	return nil
}

func (p *Peripheral) export() error {
	objects := managedObjects()

	if err := p.conn.Export(&application{objects: objects}, appPath, objectManagerIface); err != nil {
		return fmt.Errorf("bluez: export application: %w", err)
	}

	for _, t := range provision.Targets {
		path := characteristicPath(t)
		if err := p.conn.Export(&characteristic{target: t, p: p}, path, gattCharIface); err != nil {
			return fmt.Errorf("bluez: export %s: %w", t, err)
		}
		if _, err := prop.Export(p.conn, path, propMap(objects[path])); err != nil {
			return fmt.Errorf("bluez: export %s properties: %w", t, err)
		}
	}

	if _, err := prop.Export(p.conn, servicePath, propMap(objects[servicePath])); err != nil {
		return fmt.Errorf("bluez: export service properties: %w", err)
	}

	if err := p.conn.Export(&advertisement{logger: p.logger}, advPath, advertisementIface); err != nil {
		return fmt.Errorf("bluez: export advertisement: %w", err)
	}
	props, err := prop.Export(p.conn, advPath, prop.Map{
		advertisementIface: {
			"Type":         {Value: "peripheral", Emit: prop.EmitFalse},
			"ServiceUUIDs": {Value: []string{UUID(provision.ServiceUUID)}, Emit: prop.EmitFalse},
			"LocalName":    {Value: provision.DefaultDeviceName, Writable: true, Emit: prop.EmitFalse},
		},
	})
	if err != nil {
		return fmt.Errorf("bluez: export advertisement properties: %w", err)
	}
	p.advProps = props
	return nil
}

func (p *Peripheral) watch() {
	for sig := range p.signals {
		connected, ok := deviceConnected(sig)
		if !ok {
			continue
		}
		h := p.currentHandler()
		if h == nil {
			continue
		}
		if connected {
			h.HandleConnect()
		} else {
			h.HandleDisconnect()
		}
	}
}

// ---- pure helpers ----

// UUID expands a 16-bit UUID onto the Bluetooth base UUID.
func UUID(short uint16) string {
	return fmt.Sprintf("0000%04x-0000-1000-8000-00805f9b34fb", short)
}

func characteristicPath(t provision.Target) dbus.ObjectPath {
	return dbus.ObjectPath(fmt.Sprintf("%s/char%d", servicePath, int(t)))
}

func managedObjects() map[dbus.ObjectPath]map[string]map[string]dbus.Variant {
	out := map[dbus.ObjectPath]map[string]map[string]dbus.Variant{
		servicePath: {
			gattServiceIface: {
				"UUID":    dbus.MakeVariant(UUID(provision.ServiceUUID)),
				"Primary": dbus.MakeVariant(true),
			},
		},
	}
	for _, t := range provision.Targets {
		out[characteristicPath(t)] = map[string]map[string]dbus.Variant{
			gattCharIface: {
				"UUID":    dbus.MakeVariant(UUID(t.UUID())),
				"Service": dbus.MakeVariant(servicePath),
				"Flags":   dbus.MakeVariant([]string{"write", "write-without-response"}),
			},
		}
	}
	return out
}

func propMap(ifaces map[string]map[string]dbus.Variant) prop.Map {
	m := prop.Map{}
	for iface, props := range ifaces {
		m[iface] = map[string]*prop.Prop{}
		for name, v := range props {
			m[iface][name] = &prop.Prop{Value: v.Value(), Emit: prop.EmitFalse}
		}
	}
	return m
}

// deviceConnected extracts a Device1.Connected change from a
// PropertiesChanged signal.
func deviceConnected(sig *dbus.Signal) (bool, bool) {
	if sig == nil || sig.Name != propertiesIface+".PropertiesChanged" || len(sig.Body) < 2 {
		return false, false
	}
	if !strings.HasPrefix(string(sig.Path), "/org/bluez/") {
		return false, false
	}
	iface, ok := sig.Body[0].(string)
	if !ok || iface != deviceInterface {
		return false, false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return false, false
	}
	v, ok := changed["Connected"]
	if !ok {
		return false, false
	}
	connected, ok := v.Value().(bool)
	return connected, ok
}
