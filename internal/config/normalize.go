// internal/config/normalize.go
package config

// Radio and advertisement limits applied by Normalize.
const (
	maxSSIDLen       = 32
	maxPasswordLen   = 64
	maxDeviceNameLen = 29
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// Default credentials: truncate to radio limits
	if len(cfg.WiFi.DefaultSSID) > maxSSIDLen {
		cfg.WiFi.DefaultSSID = cfg.WiFi.DefaultSSID[:maxSSIDLen]
	}
	if len(cfg.WiFi.DefaultPassword) > maxPasswordLen {
		cfg.WiFi.DefaultPassword = cfg.WiFi.DefaultPassword[:maxPasswordLen]
	}

	// device_name: ASCII already validated; must fit a legacy advertisement
	if len(cfg.Provisioning.DeviceName) > maxDeviceNameLen {
		cfg.Provisioning.DeviceName = cfg.Provisioning.DeviceName[:maxDeviceNameLen]
	}

	if cfg.Transport.OnlinePolicy == "" {
		cfg.Transport.OnlinePolicy = "latch"
	}
}
