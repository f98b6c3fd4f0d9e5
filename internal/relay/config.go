// Package relay provides configuration loading with YAML files, environment
// overrides, defaults, and validation.
package relay

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config values like "30s" parse from YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler using time.ParseDuration syntax.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the root configuration for a relay instance.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Socket    SocketConfig    `yaml:"socket"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port            string   `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	IdleTimeout     Duration `yaml:"idle_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// SocketConfig holds per-connection WebSocket settings.
type SocketConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxMessageSize int64    `yaml:"max_message_size"`
	SendBuffer     int      `yaml:"send_buffer"`
	PingInterval   Duration `yaml:"ping_interval"`
	PongWait       Duration `yaml:"pong_wait"`
	WriteWait      Duration `yaml:"write_wait"`
}

// RateLimitConfig defines the per-connection inbound frame budget.
type RateLimitConfig struct {
	Burst          int      `yaml:"burst"`
	RefillInterval Duration `yaml:"refill_interval"`
}

// DefaultConfig returns the configuration used when no file or environment
// overrides are present.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            ":8080",
			ReadTimeout:     Duration(15 * time.Second),
			WriteTimeout:    Duration(15 * time.Second),
			IdleTimeout:     Duration(60 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Socket: SocketConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			MaxMessageSize: 4096,
			SendBuffer:     256,
			PingInterval:   Duration(54 * time.Second),
			PongWait:       Duration(60 * time.Second),
			WriteWait:      Duration(10 * time.Second),
		},
		RateLimit: RateLimitConfig{
			Burst:          20,
			RefillInterval: Duration(time.Second),
		},
	}
}

// LoadConfig builds the effective configuration: defaults, overlaid by the
// YAML file at path when path is non-empty (with ${VAR} expansion), overlaid
// by environment variables, then validated. A missing path is not an error;
// an unreadable or invalid file is.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if port := os.Getenv("RELAY_PORT"); port != "" {
		c.Server.Port = port
	}
	if origins := os.Getenv("RELAY_ALLOWED_ORIGINS"); origins != "" {
		parts := strings.Split(origins, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		c.Socket.AllowedOrigins = parts
	}
	if raw := os.Getenv("RELAY_MAX_MESSAGE_SIZE"); raw != "" {
		if size, err := strconv.ParseInt(raw, 10, 64); err == nil && size > 0 {
			c.Socket.MaxMessageSize = size
		}
	}
	if raw := os.Getenv("RELAY_RATE_BURST"); raw != "" {
		if burst, err := strconv.Atoi(raw); err == nil && burst > 0 {
			c.RateLimit.Burst = burst
		}
	}
	if raw := os.Getenv("RELAY_RATE_REFILL_SECONDS"); raw != "" {
		if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
			c.RateLimit.RefillInterval = Duration(time.Duration(seconds) * time.Second)
		}
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Server.Port == "" {
		c.Server.Port = def.Server.Port
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = def.Server.ReadTimeout
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = def.Server.WriteTimeout
	}
	if c.Server.IdleTimeout <= 0 {
		c.Server.IdleTimeout = def.Server.IdleTimeout
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}
	if c.Socket.MaxMessageSize <= 0 {
		c.Socket.MaxMessageSize = def.Socket.MaxMessageSize
	}
	if c.Socket.SendBuffer <= 0 {
		c.Socket.SendBuffer = def.Socket.SendBuffer
	}
	if c.Socket.PingInterval <= 0 {
		c.Socket.PingInterval = def.Socket.PingInterval
	}
	if c.Socket.PongWait <= 0 {
		c.Socket.PongWait = def.Socket.PongWait
	}
	if c.Socket.WriteWait <= 0 {
		c.Socket.WriteWait = def.Socket.WriteWait
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = def.RateLimit.Burst
	}
	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = def.RateLimit.RefillInterval
	}
}

// Validate reports the first configuration inconsistency found.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port must not be empty")
	}
	if c.Socket.MaxMessageSize <= 0 {
		return fmt.Errorf("socket.max_message_size must be positive, got %d", c.Socket.MaxMessageSize)
	}
	if c.Socket.SendBuffer <= 0 {
		return fmt.Errorf("socket.send_buffer must be positive, got %d", c.Socket.SendBuffer)
	}
	if c.Socket.PingInterval >= c.Socket.PongWait {
		return fmt.Errorf("socket.ping_interval (%s) must be shorter than socket.pong_wait (%s)",
			time.Duration(c.Socket.PingInterval), time.Duration(c.Socket.PongWait))
	}
	if c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate_limit.burst must be positive, got %d", c.RateLimit.Burst)
	}
	if c.RateLimit.RefillInterval <= 0 {
		return fmt.Errorf("rate_limit.refill_interval must be positive")
	}
	return nil
}
