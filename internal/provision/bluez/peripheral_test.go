// internal/provision/bluez/peripheral_test.go
package bluez

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/linkd/internal/provision"
)

func TestUUID(t *testing.T) {
	assert.Equal(t, "0000ff01-0000-1000-8000-00805f9b34fb", UUID(provision.ServiceUUID))
	assert.Equal(t, "0000ff0c-0000-1000-8000-00805f9b34fb", UUID(provision.WebSocketURLUUID))
}

func TestManagedObjects(t *testing.T) {
	objs := managedObjects()
	require.Len(t, objs, 1+len(provision.Targets))

	svc := objs[servicePath][gattServiceIface]
	assert.Equal(t, UUID(0xFF01), svc["UUID"].Value())

	save := objs[characteristicPath(provision.TargetSave)][gattCharIface]
	assert.Equal(t, UUID(0xFF09), save["UUID"].Value())
	assert.Equal(t, servicePath, save["Service"].Value())
}

func TestDeviceConnected(t *testing.T) {
	sig := &dbus.Signal{
		Path: "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF",
		Name: propertiesIface + ".PropertiesChanged",
		Body: []interface{}{
			deviceInterface,
			map[string]dbus.Variant{"Connected": dbus.MakeVariant(true)},
			[]string{},
		},
	}
	connected, ok := deviceConnected(sig)
	assert.True(t, ok)
	assert.True(t, connected)

	sig.Body[1] = map[string]dbus.Variant{"RSSI": dbus.MakeVariant(int16(-60))}
	_, ok = deviceConnected(sig)
	assert.False(t, ok)

	sig.Body[0] = adapterInterface
	_, ok = deviceConnected(sig)
	assert.False(t, ok)
}

type recordingHandler struct {
	writes map[provision.Target]string
	accept bool
}

func (h *recordingHandler) HandleConnect() bool    { return true }
func (h *recordingHandler) HandleDisconnect() bool { return true }
func (h *recordingHandler) HandleWrite(t provision.Target, b []byte) bool {
	if !h.accept {
		return false
	}
	h.writes[t] = string(b)
	return true
}

func TestCharacteristic_WriteValue(t *testing.T) {
	h := &recordingHandler{writes: map[provision.Target]string{}, accept: true}
	p := &Peripheral{handler: h}
	c := &characteristic{target: provision.TargetSSID, p: p}

	assert.Nil(t, c.WriteValue([]byte("Home"), nil))
	assert.Equal(t, "Home", h.writes[provision.TargetSSID])

	h.accept = false
	assert.NotNil(t, c.WriteValue([]byte("Other"), nil))
}
