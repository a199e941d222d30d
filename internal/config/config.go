// Package config loads the vdx.json project configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNotFound reports that no vdx.json exists at the looked-up path.
// Callers distinguish it from a malformed file, which is always an error.
var ErrNotFound = errors.New("config: " + ConfigFileName + " not found")

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "vdx.json"

	// DefaultAddr is the default server listen address.
	DefaultAddr = ":8420"
)

// Config represents the complete vdx.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Addr is the server listen address.
	Addr string `json:"addr,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"logLevel,omitempty"`

	// Tracing enables a trace span per flush.
	Tracing bool `json:"tracing,omitempty"`

	// Reactive tunes the engine's loop guards.
	Reactive ReactiveConfig `json:"reactive,omitempty"`

	// Session configures websocket sessions.
	Session SessionConfig `json:"session,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ReactiveConfig tunes the scheduler guard rails. Zero values keep the
// engine defaults.
type ReactiveConfig struct {
	// MaxEffectRuns is the per-effect run ceiling within one flush.
	MaxEffectRuns int `json:"maxEffectRuns,omitempty"`

	// MaxFlushIterations is the total execution ceiling per flush.
	MaxFlushIterations int `json:"maxFlushIterations,omitempty"`
}

// SessionConfig configures websocket sessions.
type SessionConfig struct {
	// ReadTimeout is the idle disconnect window (e.g. "60s").
	ReadTimeout string `json:"readTimeout,omitempty"`

	// WriteTimeout bounds individual frame writes (e.g. "10s").
	WriteTimeout string `json:"writeTimeout,omitempty"`
}

// New returns a config with defaults applied.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads vdx.json from dir.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w in %s", ErrNotFound, filepath.Dir(path))
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return fmt.Errorf("config: no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Session.ReadTimeout == "" {
		c.Session.ReadTimeout = "60s"
	}
	if c.Session.WriteTimeout == "" {
		c.Session.WriteTimeout = "10s"
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid logLevel %q", c.LogLevel)
	}
	if c.Reactive.MaxEffectRuns < 0 {
		return fmt.Errorf("config: maxEffectRuns must not be negative")
	}
	if c.Reactive.MaxFlushIterations < 0 {
		return fmt.Errorf("config: maxFlushIterations must not be negative")
	}
	if _, err := c.ReadTimeout(); err != nil {
		return err
	}
	if _, err := c.WriteTimeout(); err != nil {
		return err
	}
	return nil
}

// ReadTimeout parses the session read timeout.
func (c *Config) ReadTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Session.ReadTimeout)
	if err != nil {
		return 0, fmt.Errorf("config: invalid readTimeout %q: %w", c.Session.ReadTimeout, err)
	}
	return d, nil
}

// WriteTimeout parses the session write timeout.
func (c *Config) WriteTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Session.WriteTimeout)
	if err != nil {
		return 0, fmt.Errorf("config: invalid writeTimeout %q: %w", c.Session.WriteTimeout, err)
	}
	return d, nil
}
