// internal/provision/service_test.go
package provision

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePeripheral struct {
	mu         sync.Mutex
	advertised int
	stopped    int
	name       string
	failNext   error
}

func (f *fakePeripheral) Advertise(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.advertised++
	f.name = name
	return nil
}

func (f *fakePeripheral) StopAdvertise() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
	return nil
}

func connected(t *testing.T) (*Service, *fakePeripheral) {
	t.Helper()
	p := &fakePeripheral{}
	s := New(p, Options{}, nil)
	require.NoError(t, s.StartAdvertising())
	require.True(t, s.HandleConnect())
	return s, p
}

func TestStartAdvertising_Idempotent(t *testing.T) {
	p := &fakePeripheral{}
	s := New(p, Options{}, nil)

	require.NoError(t, s.StartAdvertising())
	require.NoError(t, s.StartAdvertising())

	assert.Equal(t, 1, p.advertised)
	assert.Equal(t, DefaultDeviceName, p.name)
	assert.Equal(t, StateAdvertising, s.State())
	assert.True(t, s.Active())
}

func TestStartAdvertising_PeripheralError(t *testing.T) {
	p := &fakePeripheral{failNext: errors.New("adapter off")}
	s := New(p, Options{}, nil)

	assert.Error(t, s.StartAdvertising())
	assert.Equal(t, StateStopped, s.State())
}

func TestStopAdvertising_Idempotent(t *testing.T) {
	p := &fakePeripheral{}
	s := New(p, Options{}, nil)

	require.NoError(t, s.StopAdvertising())
	assert.Equal(t, 0, p.stopped)

	require.NoError(t, s.StartAdvertising())
	require.NoError(t, s.StopAdvertising())
	require.NoError(t, s.StopAdvertising())
	assert.Equal(t, 1, p.stopped)
	assert.False(t, s.Active())
}

func TestWrite_RejectedWithoutPeer(t *testing.T) {
	p := &fakePeripheral{}
	s := New(p, Options{}, nil)
	require.NoError(t, s.StartAdvertising())

	assert.False(t, s.HandleWrite(TargetSSID, []byte("Home")))
	assert.False(t, s.HandleWrite(TargetSave, []byte{1}))
	assert.Equal(t, Config{}, s.Pending())
	assert.Empty(t, s.Saves())
}

func TestWrite_PartialSave(t *testing.T) {
	s, _ := connected(t)

	require.True(t, s.HandleWrite(TargetSSID, []byte("Home")))
	require.True(t, s.HandleWrite(TargetPassword, []byte("secret123")))
	require.True(t, s.HandleWrite(TargetSave, []byte{1}))

	require.Len(t, s.Saves(), 1)
	got := <-s.Saves()
	assert.Equal(t, Config{SSID: "Home", Password: "secret123"}, got)
	assert.Empty(t, got.WebSocketURL)
	assert.Empty(t, got.BrokerURL)
}

func TestWrite_FieldsOverwrittenNeverCleared(t *testing.T) {
	s, _ := connected(t)

	s.HandleWrite(TargetSSID, []byte("Home"))
	s.HandleWrite(TargetBrokerURL, []byte("mqtt://broker.local"))
	s.HandleWrite(TargetSave, nil)
	<-s.Saves()

	s.HandleWrite(TargetSSID, []byte("Office"))
	s.HandleWrite(TargetSave, nil)

	got := <-s.Saves()
	assert.Equal(t, "Office", got.SSID)
	assert.Equal(t, "mqtt://broker.local", got.BrokerURL)
}

func TestWrite_Truncated(t *testing.T) {
	s, _ := connected(t)

	long := bytes.Repeat([]byte("u"), 300)
	require.True(t, s.HandleWrite(TargetWebSocketURL, long))
	assert.Len(t, s.Pending().WebSocketURL, DefaultMaxWriteLen)
}

func TestWrite_SaveDroppedWhenQueueFull(t *testing.T) {
	p := &fakePeripheral{}
	s := New(p, Options{SaveBuffer: 1}, nil)
	require.NoError(t, s.StartAdvertising())
	require.True(t, s.HandleConnect())

	s.HandleWrite(TargetSSID, []byte("A"))
	assert.True(t, s.HandleWrite(TargetSave, nil))
	s.HandleWrite(TargetSSID, []byte("B"))
	assert.True(t, s.HandleWrite(TargetSave, nil))

	require.Len(t, s.Saves(), 1)
	assert.Equal(t, "A", (<-s.Saves()).SSID)
}

func TestDisconnect_ResumesAdvertising(t *testing.T) {
	s, p := connected(t)

	require.True(t, s.HandleDisconnect())
	assert.Equal(t, StateAdvertising, s.State())
	assert.Equal(t, 2, p.advertised)
}

func TestStopWhileConnected_NoResume(t *testing.T) {
	s, p := connected(t)

	require.NoError(t, s.StopAdvertising())
	assert.False(t, s.Active())
	assert.Equal(t, StateConnected, s.State(), "peer stays attached")

	assert.True(t, s.HandleDisconnect())
	assert.Equal(t, StateStopped, s.State())
	assert.Equal(t, 1, p.advertised)
}

func TestPeerSurvivesAdvertisingRestart(t *testing.T) {
	s, p := connected(t)

	require.True(t, s.HandleWrite(TargetSSID, []byte("Home")))
	require.True(t, s.HandleWrite(TargetSave, nil))
	<-s.Saves()

	require.NoError(t, s.StopAdvertising())
	require.NoError(t, s.StartAdvertising())

	assert.True(t, s.Peer())
	assert.True(t, s.Active())
	assert.Equal(t, StateConnected, s.State())
	assert.Equal(t, 1, p.advertised, "no radio advertising while the peer is attached")

	require.True(t, s.HandleWrite(TargetPassword, []byte("secret123")))
	assert.Equal(t, Config{SSID: "Home", Password: "secret123"}, s.Pending())

	assert.False(t, s.HandleConnect(), "same peer is not counted twice")

	require.True(t, s.HandleDisconnect())
	assert.Equal(t, StateAdvertising, s.State())
	assert.Equal(t, 2, p.advertised)
}

func TestConnect_IgnoredWhenStopped(t *testing.T) {
	s := New(&fakePeripheral{}, Options{}, nil)
	assert.False(t, s.HandleConnect())
	assert.Equal(t, StateStopped, s.State())
}

func TestTarget_UUIDs(t *testing.T) {
	want := map[Target]uint16{
		TargetSSID:         0xFF05,
		TargetPassword:     0xFF06,
		TargetWebSocketURL: 0xFF0C,
		TargetBrokerURL:    0xFF0D,
		TargetSave:         0xFF09,
	}
	for _, tg := range Targets {
		assert.Equal(t, want[tg], tg.UUID(), tg.String())
	}
}
