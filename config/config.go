// Package config loads the pmicctl configuration file.
//
// A missing file is not an error: every field has a default, and command
// line flags override whatever the file sets.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/pmicpanel/pmicsync/peripheral"
	"github.com/pmicpanel/pmicsync/shell"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// FieldError reports one invalid field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrInvalid }

// MQTT configures the optional state mirror.
type MQTT struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"clientId"`
	Prefix   string `yaml:"prefix"`
}

// Config is the pmicctl configuration.
type Config struct {
	Port     string        `yaml:"port"`
	Baud     int           `yaml:"baud"`
	Timeout  time.Duration `yaml:"timeout"`
	Offline  bool          `yaml:"offline"`
	Model    string        `yaml:"model"`
	Settings string        `yaml:"settings"`
	LogLevel string        `yaml:"logLevel"`
	MQTT     MQTT          `yaml:"mqtt"`
}

// DefaultBaud is the evaluation kit's shell baud rate.
const DefaultBaud = 115200

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Baud:     DefaultBaud,
		Timeout:  shell.CommandTimeout,
		Model:    string(peripheral.NPM1300),
		Settings: defaultSettingsPath(),
		LogLevel: "info",
		MQTT: MQTT{
			ClientID: "pmicctl",
			Prefix:   "pmicsync",
		},
	}
}

func defaultSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".pmicsync-settings.yaml"
	}
	return filepath.Join(dir, "pmicsync", "settings.yaml")
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "pmicctl.yaml"
	}
	return filepath.Join(dir, "pmicsync", "pmicctl.yaml")
}

// Load reads path over the defaults and validates the result. A missing
// file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field and returns the first *FieldError.
func (c Config) Validate() error {
	if c.Baud <= 0 {
		return &FieldError{Field: "baud", Reason: "must be positive"}
	}
	if c.Timeout <= 0 {
		return &FieldError{Field: "timeout", Reason: "must be positive"}
	}
	if c.Offline {
		if _, err := peripheral.LayoutFor(peripheral.Model(c.Model)); err != nil {
			return &FieldError{Field: "model", Reason: err.Error()}
		}
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return &FieldError{Field: "logLevel", Reason: err.Error()}
	}
	if c.MQTT.Broker != "" && c.MQTT.Prefix == "" {
		return &FieldError{Field: "mqtt.prefix", Reason: "required with a broker"}
	}
	return nil
}

// Level returns the parsed log level, info when unset or invalid.
func (c Config) Level() zerolog.Level {
	l, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return l
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
