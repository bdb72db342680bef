// internal/provision/types.go
package provision

// Provisioning GATT layout. 16-bit UUIDs.
const (
	ServiceUUID         uint16 = 0xFF01
	SSIDUUID            uint16 = 0xFF05
	PasswordUUID        uint16 = 0xFF06
	SaveUUID            uint16 = 0xFF09
	WebSocketURLUUID    uint16 = 0xFF0C
	BrokerURLUUID       uint16 = 0xFF0D
	DefaultDeviceName          = "PNOID-Robot"
	DefaultMaxWriteLen         = 255
	defaultSaveBuffer          = 4
)

// Target is a writable field of the provisioning service.
type Target int

const (
	TargetSSID Target = iota
	TargetPassword
	TargetWebSocketURL
	TargetBrokerURL
	TargetSave
)

func (t Target) String() string {
	switch t {
	case TargetSSID:
		return "ssid"
	case TargetPassword:
		return "password"
	case TargetWebSocketURL:
		return "websocket_url"
	case TargetBrokerURL:
		return "broker_url"
	case TargetSave:
		return "save"
	default:
		return "unknown"
	}
}

// UUID returns the characteristic UUID of t.
func (t Target) UUID() uint16 {
	switch t {
	case TargetSSID:
		return SSIDUUID
	case TargetPassword:
		return PasswordUUID
	case TargetWebSocketURL:
		return WebSocketURLUUID
	case TargetBrokerURL:
		return BrokerURLUUID
	case TargetSave:
		return SaveUUID
	default:
		return 0
	}
}

// Targets lists every writable field, in characteristic order.
var Targets = []Target{TargetSSID, TargetPassword, TargetWebSocketURL, TargetBrokerURL, TargetSave}

// State of the provisioning service.
type State int

const (
	StateStopped State = iota
	StateAdvertising
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateAdvertising:
		return "advertising"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Config is the pending provisioning data. Empty fields were never written.
type Config struct {
	SSID         string
	Password     string
	WebSocketURL string
	BrokerURL    string
}

// Peripheral is the radio side of provisioning.
type Peripheral interface {
	Advertise(name string) error
	StopAdvertise() error
}

// Options for a Service.
type Options struct {
	DeviceName  string
	MaxWriteLen int
	SaveBuffer  int
}

func (o Options) withDefaults() Options {
	if o.DeviceName == "" {
		o.DeviceName = DefaultDeviceName
	}
	if o.MaxWriteLen <= 0 {
		o.MaxWriteLen = DefaultMaxWriteLen
	}
	if o.SaveBuffer <= 0 {
		o.SaveBuffer = defaultSaveBuffer
	}
	return o
}
