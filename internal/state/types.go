// internal/state/types.go
package state

// SystemState is the process lifecycle.
type SystemState int

const (
	SystemBooting SystemState = iota
	SystemRunning
	SystemError
	SystemUpdatingFirmware
)

// String returns the wire name of the system state.
func (s SystemState) String() string {
	switch s {
	case SystemBooting:
		return "BOOTING"
	case SystemRunning:
		return "RUNNING"
	case SystemError:
		return "ERROR"
	case SystemUpdatingFirmware:
		return "UPDATING_FIRMWARE"
	default:
		return "UNKNOWN"
	}
}

// ConnectivityState is the network reachability of the module.
// Exactly one value is current at any instant. No transition table is
// enforced here; policy belongs to the orchestrator.
type ConnectivityState int

const (
	Offline ConnectivityState = iota
	ConnectingWifi
	WifiPortal
	ConfigBLE
	// ConnectingTransports goes out as CONNECTING_TRANSPORTS. Older board
	// firmware expects CONNECTING_WS for this phase.
	ConnectingTransports
	Online
)

// String returns the wire name used on the serial status line.
func (s ConnectivityState) String() string {
	switch s {
	case Offline:
		return "OFFLINE"
	case ConnectingWifi:
		return "CONNECTING_WIFI"
	case WifiPortal:
		return "WIFI_PORTAL"
	case ConfigBLE:
		return "CONFIG_BLE"
	case ConnectingTransports:
		return "CONNECTING_TRANSPORTS"
	case Online:
		return "ONLINE"
	default:
		return "UNKNOWN"
	}
}
