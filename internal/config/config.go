package config

import (
	"time"

	"github.com/botmux/botmux/logging"
)

// Config represents the application configuration
type Config struct {
	Upstream UpstreamConfig `json:"upstream" yaml:"upstream"`
	Channel  ChannelConfig  `json:"channel" yaml:"channel"`
	Logging  logging.Config `json:"logging" yaml:"logging"`
}

// UpstreamConfig locates the bot process the shared channel connects to
type UpstreamConfig struct {
	URL            string        `json:"url" yaml:"url"`
	DialTimeout    time.Duration `json:"dial_timeout" yaml:"dial_timeout"`
	MaxDialRetries uint64        `json:"max_dial_retries" yaml:"max_dial_retries"`
}

// ChannelConfig tunes the shared channel connection
type ChannelConfig struct {
	WriteTimeout   time.Duration `json:"write_timeout" yaml:"write_timeout"`
	ReadTimeout    time.Duration `json:"read_timeout" yaml:"read_timeout"`
	PingInterval   time.Duration `json:"ping_interval" yaml:"ping_interval"`
	MaxMessageSize int64         `json:"max_message_size" yaml:"max_message_size"`
	SendBuffer     int           `json:"send_buffer" yaml:"send_buffer"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Upstream: UpstreamConfig{
			URL:            "ws://localhost:3000/ws",
			DialTimeout:    10 * time.Second,
			MaxDialRetries: 4,
		},
		Channel: ChannelConfig{
			WriteTimeout:   10 * time.Second,
			ReadTimeout:    60 * time.Second,
			PingInterval:   30 * time.Second,
			MaxMessageSize: 512 * 1024, // 512KB
			SendBuffer:     256,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Upstream.URL == "" {
		return NewConfigError("upstream.url", "upstream URL is required")
	}

	if c.Upstream.DialTimeout < 0 {
		return NewConfigError("upstream.dial_timeout", "timeout cannot be negative")
	}

	if c.Channel.WriteTimeout < 0 {
		return NewConfigError("channel.write_timeout", "timeout cannot be negative")
	}

	if c.Channel.ReadTimeout < 0 {
		return NewConfigError("channel.read_timeout", "timeout cannot be negative")
	}

	if c.Channel.SendBuffer <= 0 {
		return NewConfigError("channel.send_buffer", "send buffer must be positive")
	}

	return nil
}
