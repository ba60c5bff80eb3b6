// Package config loads client configuration for bidriver connections.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values exported for documentation and validation
const (
	DefaultEndpoint         = "ws://127.0.0.1:4444/session"
	DefaultDialTimeoutMs    = 10000
	DefaultCommandTimeoutMs = 30000
	DefaultWriteTimeoutMs   = 10000
)

// Config holds connection settings for the protocol client.
type Config struct {
	// Endpoint is the websocket URL of the remote protocol end.
	Endpoint string `yaml:"endpoint"`

	DialTimeoutMs    int `yaml:"dial_timeout_ms"`
	CommandTimeoutMs int `yaml:"command_timeout_ms"`
	WriteTimeoutMs   int `yaml:"write_timeout_ms"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Endpoint:         DefaultEndpoint,
		DialTimeoutMs:    DefaultDialTimeoutMs,
		CommandTimeoutMs: DefaultCommandTimeoutMs,
		WriteTimeoutMs:   DefaultWriteTimeoutMs,
	}
}

// Load reads configuration from a yaml file, layering it over the
// defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for usable values.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("endpoint scheme must be ws or wss, got %q", u.Scheme)
	}
	if c.DialTimeoutMs < 0 || c.CommandTimeoutMs < 0 || c.WriteTimeoutMs < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// DialTimeout returns the dial timeout.
func (c Config) DialTimeout() time.Duration {
	if c.DialTimeoutMs == 0 {
		return DefaultDialTimeoutMs * time.Millisecond
	}
	return time.Duration(c.DialTimeoutMs) * time.Millisecond
}

// CommandTimeout returns the per-command timeout.
func (c Config) CommandTimeout() time.Duration {
	if c.CommandTimeoutMs == 0 {
		return DefaultCommandTimeoutMs * time.Millisecond
	}
	return time.Duration(c.CommandTimeoutMs) * time.Millisecond
}

// WriteTimeout returns the frame write timeout.
func (c Config) WriteTimeout() time.Duration {
	if c.WriteTimeoutMs == 0 {
		return DefaultWriteTimeoutMs * time.Millisecond
	}
	return time.Duration(c.WriteTimeoutMs) * time.Millisecond
}
