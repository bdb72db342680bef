// internal/store/store.go
package store

import "errors"

// Persistent keys. Values are opaque strings.
const (
	KeyWifiSSID     = "wifi_ssid"
	KeyWifiPassword = "wifi_pass"
	KeyWebSocketURL = "ws_url"
	KeyBrokerURL    = "mqtt_url"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store: closed")

// Store is a string key/value store.
// A missing key is reported as ok == false with a nil error; it is a
// valid "nothing saved" state, not a failure.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Close() error
}

// Lookup reads key and folds every failure into "no data".
func Lookup(s Store, key string) (string, bool) {
	if s == nil {
		return "", false
	}
	v, ok, err := s.Get(key)
	if err != nil || !ok {
		return "", false
	}
	return v, true
}

// LookupOr returns the stored value for key, or def when nothing usable is
// stored.
func LookupOr(s Store, key, def string) string {
	if v, ok := Lookup(s, key); ok && v != "" {
		return v
	}
	return def
}
