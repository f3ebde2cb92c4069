package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for a lighterbook instance.
type Config struct {
	Feed    FeedConfig    `yaml:"feed"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// FeedConfig holds the market-data stream settings.
type FeedConfig struct {
	Host               string        `yaml:"host"`
	Path               string        `yaml:"path"`
	Markets            []string      `yaml:"markets"`
	HandshakeTimeout   time.Duration `yaml:"handshake_timeout"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	EventBuffer        int           `yaml:"event_buffer"`
}

// ServerConfig holds the query API settings.
type ServerConfig struct {
	Port       int `yaml:"port"`
	DepthLimit int `yaml:"depth_limit"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the built-in configuration: testnet stream, market 0,
// query API on 8086.
func Default() Config {
	return Config{
		Feed: FeedConfig{
			Host:               "api-testnet.lighter.xyz",
			Path:               "/stream",
			Markets:            []string{"0"},
			HandshakeTimeout:   10 * time.Second,
			ReconnectBaseDelay: time.Second,
			ReconnectMaxDelay:  30 * time.Second,
			EventBuffer:        1000,
		},
		Server: ServerConfig{
			Port:       8086,
			DepthLimit: 20,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Feed.Host == "" {
		c.Feed.Host = def.Feed.Host
	}
	if c.Feed.Path == "" {
		c.Feed.Path = def.Feed.Path
	}
	if len(c.Feed.Markets) == 0 {
		c.Feed.Markets = def.Feed.Markets
	}
	if c.Feed.HandshakeTimeout == 0 {
		c.Feed.HandshakeTimeout = def.Feed.HandshakeTimeout
	}
	if c.Feed.ReconnectBaseDelay == 0 {
		c.Feed.ReconnectBaseDelay = def.Feed.ReconnectBaseDelay
	}
	if c.Feed.ReconnectMaxDelay == 0 {
		c.Feed.ReconnectMaxDelay = def.Feed.ReconnectMaxDelay
	}
	if c.Feed.EventBuffer == 0 {
		c.Feed.EventBuffer = def.Feed.EventBuffer
	}
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Server.DepthLimit == 0 {
		c.Server.DepthLimit = def.Server.DepthLimit
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Feed.Host == "" {
		return fmt.Errorf("feed.host is required")
	}
	if len(c.Feed.Markets) == 0 {
		return fmt.Errorf("feed.markets must name at least one market")
	}
	for _, m := range c.Feed.Markets {
		if m == "" {
			return fmt.Errorf("feed.markets contains an empty market id")
		}
	}
	if c.Feed.ReconnectBaseDelay > c.Feed.ReconnectMaxDelay {
		return fmt.Errorf("feed.reconnect_base_delay exceeds feed.reconnect_max_delay")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.DepthLimit < 1 {
		return fmt.Errorf("server.depth_limit must be positive")
	}
	return nil
}
