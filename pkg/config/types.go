package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent reel configuration stored as config.toml
// in the .reel/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version int           `toml:"version"`
	Client  ClientConfig  `toml:"client"`
	History HistoryConfig `toml:"history"`
	Mock    MockConfig    `toml:"mock"`
}

// ClientConfig holds the settings for talking to the remote agent service.
type ClientConfig struct {
	// BaseURL is the service root (scheme + host + port).
	BaseURL string `toml:"base_url,omitempty"`

	// StreamingDefault selects streaming delivery for chat unless a command
	// flag says otherwise.
	StreamingDefault bool `toml:"streaming_default"`

	// SSEBufferKiB sizes the stream read buffer. Valid values are
	// MinSSEBufferKiB through MaxSSEBufferKiB in SSEBufferStepKiB steps.
	SSEBufferKiB uint `toml:"sse_buffer_kib,omitempty"`
}

// HistoryConfig holds local transcript persistence settings.
type HistoryConfig struct {
	Enabled bool `toml:"enabled"`

	// SQLitePath overrides the history database location. Empty means
	// history.db inside the resolved .reel/ directory.
	SQLitePath string `toml:"sqlite_path,omitempty"`
}

// MockConfig holds settings for the local development mock service.
type MockConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// SSE buffer bounds. The knob is advisory sizing for the framing buffer, so
// the range is narrow and quantized rather than free-form.
const (
	MinSSEBufferKiB  = 16
	MaxSSEBufferKiB  = 512
	SSEBufferStepKiB = 16
)

// ValidateSSEBufferKiB checks a buffer size against the allowed range and
// step.
func ValidateSSEBufferKiB(kib uint) error {
	if kib < MinSSEBufferKiB || kib > MaxSSEBufferKiB {
		return fmt.Errorf("sse_buffer_kib must be between %d and %d, got %d",
			MinSSEBufferKiB, MaxSSEBufferKiB, kib)
	}
	if kib%SSEBufferStepKiB != 0 {
		return fmt.Errorf("sse_buffer_kib must be a multiple of %d, got %d",
			SSEBufferStepKiB, kib)
	}
	return nil
}

// Validate checks cross-field constraints on a fully-merged Config.
func (c *Config) Validate() error {
	if err := ValidateSSEBufferKiB(c.Client.SSEBufferKiB); err != nil {
		return err
	}
	return nil
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.base_url": {
		get: func(c *Config) string { return c.Client.BaseURL },
		set: func(c *Config, v string) error { c.Client.BaseURL = v; return nil },
	},
	"client.streaming_default": {
		get: func(c *Config) string { return strconv.FormatBool(c.Client.StreamingDefault) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for client.streaming_default: %w", err)
			}
			c.Client.StreamingDefault = b
			return nil
		},
	},
	"client.sse_buffer_kib": {
		get: func(c *Config) string {
			if c.Client.SSEBufferKiB == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Client.SSEBufferKiB), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for client.sse_buffer_kib: %w", err)
			}
			if err := ValidateSSEBufferKiB(uint(n)); err != nil {
				return err
			}
			c.Client.SSEBufferKiB = uint(n)
			return nil
		},
	},
	"history.enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.History.Enabled) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for history.enabled: %w", err)
			}
			c.History.Enabled = b
			return nil
		},
	},
	"history.sqlite_path": {
		get: func(c *Config) string { return c.History.SQLitePath },
		set: func(c *Config, v string) error { c.History.SQLitePath = v; return nil },
	},
	"mock.listen": {
		get: func(c *Config) string { return c.Mock.Listen },
		set: func(c *Config, v string) error { c.Mock.Listen = v; return nil },
	},
}
