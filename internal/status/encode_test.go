// internal/status/encode_test.go
package status

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tamzrod/linkd/internal/state"
)

func TestEncodeState(t *testing.T) {
	assert.Equal(t, "STATE:CONFIG_BLE\n", string(EncodeState(state.ConfigBLE)))
	assert.Equal(t, "STATE:CONNECTING_TRANSPORTS\n", string(EncodeState(state.ConnectingTransports)))
	assert.Equal(t, "STATE:ONLINE\n", string(EncodeState(state.Online)))
}

func TestEncodeBrokerMessage(t *testing.T) {
	got := EncodeBrokerMessage("pnoid/cmd", []byte("move:fwd"))
	assert.Equal(t, "MQTT:pnoid/cmd:move:fwd\n", string(got))

	empty := EncodeBrokerMessage("pnoid/config", nil)
	assert.Equal(t, "MQTT:pnoid/config:\n", string(empty))
}

func TestEncodeText(t *testing.T) {
	assert.Equal(t, "hello\n", string(EncodeText([]byte("hello"))))
	assert.Equal(t, "\n", string(EncodeText(nil)))
}
