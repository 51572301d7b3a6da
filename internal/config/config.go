package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`

	// MaxContentBytes caps content_sync and send_content_to_guest payloads.
	MaxContentBytes int `mapstructure:"max_content_bytes" yaml:"max_content_bytes"`
	// MaxMessageBytes caps a single WebSocket frame; larger frames close the
	// socket. Zero derives the cap from MaxContentBytes, see ReadLimit.
	MaxMessageBytes int64 `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`

	RoomSweepInterval     time.Duration `mapstructure:"room_sweep_interval" yaml:"room_sweep_interval"`
	RoomInactivityTimeout time.Duration `mapstructure:"room_inactivity_timeout" yaml:"room_inactivity_timeout"`

	SendBuffer         int           `mapstructure:"send_buffer" yaml:"send_buffer"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	AllowedOrigins     []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

const (
	// escapedByteFactor is the widest JSON escape of one content byte (\u0001).
	escapedByteFactor = 6
	// envelopeBytes covers the non-content fields of a frame.
	envelopeBytes = 64 * 1024
)

// MinMessageBytes is the smallest frame cap that still admits a content
// payload of maxContent bytes with every byte escaped.
func MinMessageBytes(maxContent int) int64 {
	return escapedByteFactor*int64(maxContent) + envelopeBytes
}

// ReadLimit returns the WebSocket frame cap.
func (c Config) ReadLimit() int64 {
	if c.MaxMessageBytes > 0 {
		return c.MaxMessageBytes
	}
	return MinMessageBytes(c.MaxContentBytes)
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	const maxContent = 10 * 1024 * 1024
	return Config{
		Addr:                  ":8080",
		ReadHeaderTimeout:     5 * time.Second,
		ShutdownTimeout:       5 * time.Second,
		LogLevel:              "info",
		LogFormat:             "console",
		MaxContentBytes:       maxContent,
		RoomSweepInterval:     time.Minute,
		RoomInactivityTimeout: 30 * time.Minute,
		SendBuffer:            64,
		WriteTimeout:          10 * time.Second,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.MaxContentBytes != 0 {
		c.MaxContentBytes = other.MaxContentBytes
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.RoomSweepInterval != 0 {
		c.RoomSweepInterval = other.RoomSweepInterval
	}
	if other.RoomInactivityTimeout != 0 {
		c.RoomInactivityTimeout = other.RoomInactivityTimeout
	}
	if other.SendBuffer != 0 {
		c.SendBuffer = other.SendBuffer
	}
	if other.WriteTimeout != 0 {
		c.WriteTimeout = other.WriteTimeout
	}
	if other.RateLimitPerMinute != 0 {
		c.RateLimitPerMinute = other.RateLimitPerMinute
	}
	if len(other.AllowedOrigins) > 0 {
		c.AllowedOrigins = other.AllowedOrigins
	}
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Addr == "":
		return errors.New("addr must not be empty")
	case c.MaxContentBytes <= 0:
		return fmt.Errorf("max_content_bytes must be positive, got %d", c.MaxContentBytes)
	case c.MaxMessageBytes < 0:
		return fmt.Errorf("max_message_bytes must not be negative, got %d", c.MaxMessageBytes)
	case c.MaxMessageBytes > 0 && c.MaxMessageBytes < MinMessageBytes(c.MaxContentBytes):
		return fmt.Errorf("max_message_bytes (%d) must be 0 or at least %d for max_content_bytes %d",
			c.MaxMessageBytes, MinMessageBytes(c.MaxContentBytes), c.MaxContentBytes)
	case c.RoomSweepInterval <= 0 || c.RoomInactivityTimeout <= 0:
		return errors.New("room_sweep_interval and room_inactivity_timeout must be positive")
	case c.SendBuffer <= 0:
		return fmt.Errorf("send_buffer must be positive, got %d", c.SendBuffer)
	case c.RateLimitPerMinute < 0:
		return fmt.Errorf("rate_limit_per_minute must not be negative, got %d", c.RateLimitPerMinute)
	}
	return nil
}
