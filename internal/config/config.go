// Package config loads the tide clock configuration from a TOML file and
// overlays the settings persisted from the command line.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/sweeney/tide-clock/internal/tideclock"
)

// DefaultPath is read when no --config flag is given. A missing file at this
// path is not an error.
const DefaultPath = "/etc/tide-clock/tide-clock.toml"

// GPIO backends.
const (
	BackendGPIOCDev = "gpiocdev"
	BackendSerial   = "serial"
)

// Duration is a time.Duration written as a string such as "2m" or "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config represents the entire TOML configuration.
type Config struct {
	Clock   Clock   `toml:"clock"`
	GPIO    GPIO    `toml:"gpio"`
	Tides   Tides   `toml:"tides"`
	MQTT    MQTT    `toml:"mqtt"`
	HTTP    HTTP    `toml:"http"`
	Metrics Metrics `toml:"metrics"`
	Store   Store   `toml:"store"`
	Log     Log     `toml:"log"`
}

type Clock struct {
	Face          string   `toml:"face"`
	Motor         string   `toml:"motor"`
	QueryInterval Duration `toml:"query_interval"`
}

type GPIO struct {
	Backend    string `toml:"backend"`
	Chip       string `toml:"chip"`
	Tick       int    `toml:"tick"`
	Tock       int    `toml:"tock"`
	SerialPort string `toml:"serial_port"`
	Baud       int    `toml:"baud"`
}

type Tides struct {
	Station     string   `toml:"station"`
	Server      string   `toml:"server"`
	Application string   `toml:"application"`
	Timeout     Duration `toml:"timeout"`
}

type MQTT struct {
	// Broker is empty to disable publishing.
	Broker    string   `toml:"broker"`
	ClientID  string   `toml:"client_id"`
	Heartbeat Duration `toml:"heartbeat"`
}

type HTTP struct {
	// Addr is empty to disable the status page.
	Addr string `toml:"addr"`
}

type Metrics struct {
	// Addr is the DogStatsD agent address; empty disables metrics.
	Addr      string   `toml:"addr"`
	Namespace string   `toml:"namespace"`
	Tags      []string `toml:"tags"`
}

type Store struct {
	Path string `toml:"path"`
}

type Log struct {
	Level string `toml:"level"`
	// File is empty to log to stderr.
	File string `toml:"file"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Clock: Clock{
			Face:          string(tideclock.Nonlinear),
			Motor:         tideclock.MotorLavet,
			QueryInterval: Duration{tideclock.DefaultQueryInterval},
		},
		GPIO: GPIO{
			Backend:    BackendGPIOCDev,
			Chip:       "gpiochip0",
			Tick:       17,
			Tock:       27,
			SerialPort: "/dev/ttyACM0",
			Baud:       115200,
		},
		Tides: Tides{
			Station:     "9444900",
			Server:      "https://api.tidesandcurrents.noaa.gov/api/prod/datagetter",
			Application: "tide-clock",
			Timeout:     Duration{20 * time.Second},
		},
		MQTT: MQTT{
			ClientID:  "tide-clock",
			Heartbeat: Duration{15 * time.Minute},
		},
		HTTP:    HTTP{Addr: ":80"},
		Metrics: Metrics{Namespace: "tideclock."},
		Store:   Store{Path: "/var/lib/tide-clock/tide-clock.db"},
		Log:     Log{Level: "info"},
	}
}

// Load decodes the file at path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !(errors.Is(err, fs.ErrNotExist) && path == DefaultPath) {
			return Config{}, fmt.Errorf("failed to parse TOML config at %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error

	if _, err := tideclock.ParseFace(c.Clock.Face); err != nil {
		errs = append(errs, fmt.Errorf("clock.face: %w", err))
	}
	if _, err := tideclock.ProfileFor(c.Clock.Motor); err != nil {
		errs = append(errs, fmt.Errorf("clock.motor: %w", err))
	}
	if !stationPattern.MatchString(c.Tides.Station) {
		errs = append(errs, fmt.Errorf("tides.station: %q is not a 7-digit station id", c.Tides.Station))
	}
	if c.Tides.Server == "" {
		errs = append(errs, errors.New("tides.server is empty"))
	}

	switch c.GPIO.Backend {
	case BackendGPIOCDev:
		if c.GPIO.Tick == c.GPIO.Tock {
			errs = append(errs, fmt.Errorf("gpio.tick and gpio.tock both use line %d", c.GPIO.Tick))
		}
	case BackendSerial:
		if c.GPIO.SerialPort == "" {
			errs = append(errs, errors.New("gpio.serial_port is empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("gpio.backend: unknown backend %q", c.GPIO.Backend))
	}

	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is empty"))
	}

	return errors.Join(errs...)
}

// LogLevel returns the zerolog level named in the config.
func (c Config) LogLevel() zerolog.Level {
	return ParseLogLevel(c.Log.Level)
}

// ParseLogLevel maps a level name to a zerolog level, defaulting to info.
func ParseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Encode writes the config as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
