// internal/wifi/credentials.go
package wifi

import (
	"errors"

	"github.com/tamzrod/linkd/internal/store"
)

// LoadCredentials reads saved credentials. Store failures and a missing or
// empty SSID all read as "nothing saved".
func LoadCredentials(s store.Store) (Credentials, bool) {
	ssid, ok := store.Lookup(s, store.KeyWifiSSID)
	if !ok || ssid == "" {
		return Credentials{}, false
	}
	pass, ok := store.Lookup(s, store.KeyWifiPassword)
	if !ok {
		return Credentials{}, false
	}
	return Credentials{SSID: ssid, Password: pass}.Normalize(), true
}

// SaveCredentials overwrites the saved credentials.
func SaveCredentials(s store.Store, c Credentials) error {
	if s == nil {
		return errors.New("wifi: no credential store")
	}
	c = c.Normalize()
	if err := s.Set(store.KeyWifiSSID, c.SSID); err != nil {
		return err
	}
	return s.Set(store.KeyWifiPassword, c.Password)
}
