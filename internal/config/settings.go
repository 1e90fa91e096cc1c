package config

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/sweeney/tide-clock/internal/tideclock"
)

var stationPattern = regexp.MustCompile(`^[0-9]{7}$`)

// Keys of the settings that can be changed with "config set" and persisted.
const (
	KeyStation = "station"
	KeyFace    = "face"
	KeyMotor   = "motor"
)

// SettingKeys lists the persisted setting keys in sorted order.
func SettingKeys() []string {
	keys := []string{KeyStation, KeyFace, KeyMotor}
	sort.Strings(keys)
	return keys
}

// Set validates value and stores it under key.
func (c *Config) Set(key, value string) error {
	switch key {
	case KeyStation:
		if !stationPattern.MatchString(value) {
			return fmt.Errorf("station %q is not a 7-digit station id", value)
		}
		c.Tides.Station = value
	case KeyFace:
		if _, err := tideclock.ParseFace(value); err != nil {
			return err
		}
		c.Clock.Face = value
	case KeyMotor:
		if _, err := tideclock.ProfileFor(value); err != nil {
			return err
		}
		c.Clock.Motor = value
	default:
		return fmt.Errorf("unknown setting %q (want one of %v)", key, SettingKeys())
	}
	return nil
}

// Get returns the current value of a setting.
func (c Config) Get(key string) (string, bool) {
	switch key {
	case KeyStation:
		return c.Tides.Station, true
	case KeyFace:
		return c.Clock.Face, true
	case KeyMotor:
		return c.Clock.Motor, true
	}
	return "", false
}

// Apply overlays persisted settings. Every setting is validated.
func (c *Config) Apply(settings map[string]string) error {
	for _, key := range SettingKeys() {
		value, ok := settings[key]
		if !ok {
			continue
		}
		if err := c.Set(key, value); err != nil {
			return fmt.Errorf("stored setting %s: %w", key, err)
		}
	}
	return nil
}
