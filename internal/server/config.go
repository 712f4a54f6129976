// Package server provides configuration loading that defines runtime
// defaults, environment overrides, and sanitization for the CastRelay
// service.
package server

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const defaultQueueSize = 256

// Config holds the server configuration. Every hardening knob (message size
// limit, rate limiting, idle timeout) defaults to off: the relay passes
// frames through untouched unless explicitly told otherwise.
type Config struct {
	ListenAddr     string        `env:"LISTEN_ADDR" default:":8080"`
	WSPath         string        `env:"WS_PATH" default:"/ws"`
	AllowedOrigins string        `env:"ALLOWED_ORIGINS" default:"*"`
	QueueSize      int           `env:"QUEUE_SIZE" default:"256"`
	MaxMessageSize int64         `env:"MAX_MESSAGE_SIZE" default:"0"`
	RatePerSecond  float64       `env:"RATE_LIMIT_PER_SECOND" default:"0"`
	RateBurst      int           `env:"RATE_LIMIT_BURST" default:"10"`
	IdleTimeout    time.Duration `env:"IDLE_TIMEOUT" default:"0"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT" default:"10s"`
	LogLevel       string        `env:"LOG_LEVEL" default:"info"`
	LogFormat      string        `env:"LOG_FORMAT" default:"text"`
}

// DefaultConfig returns the configuration used when no environment overrides
// are present.
func DefaultConfig() Config {
	return Config{
		ListenAddr:     ":8080",
		WSPath:         "/ws",
		AllowedOrigins: "*",
		QueueSize:      defaultQueueSize,
		WriteTimeout:   10 * time.Second,
		RateBurst:      10,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load builds the configuration from the environment, reading a .env file
// first if one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg.sanitize()
	return &cfg, nil
}

// sanitize clamps invalid values back to their defaults.
func (c *Config) sanitize() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if !strings.HasPrefix(c.WSPath, "/") {
		c.WSPath = "/ws"
	}
	if c.QueueSize <= 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.MaxMessageSize < 0 {
		c.MaxMessageSize = 0
	}
	if c.RatePerSecond < 0 {
		c.RatePerSecond = 0
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 10
	}
	if c.IdleTimeout < 0 {
		c.IdleTimeout = 0
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
}

// OriginList returns the configured origins as a slice, with whitespace
// trimmed. A "*" entry means any origin is accepted.
func (c Config) OriginList() []string {
	if c.AllowedOrigins == "" {
		return nil
	}

	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
