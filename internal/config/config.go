// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	GRPCPort    string `env:"GRPC_PORT" envDefault:"9090"`
	FrontendURL string `env:"FRONTEND_URL"`
	DBPath      string `env:"DB_PATH" envDefault:"./data/glossy.db"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
	ReaperInterval time.Duration `env:"REAPER_INTERVAL" envDefault:"1m"`

	Chat      ChatConfig
	Knowledge KnowledgeConfig
	Search    SearchConfig
	RateLimit RateLimitConfig
	ChatLog   ChatLogConfig
	Telemetry TelemetryConfig
}

// ChatConfig controls reply timing.
type ChatConfig struct {
	ReplyDelay    time.Duration `env:"CHAT_REPLY_DELAY" envDefault:"500ms"`
	FallbackDelay time.Duration `env:"CHAT_FALLBACK_DELAY" envDefault:"600ms"`
}

// KnowledgeConfig controls the encyclopedia summary lookup.
type KnowledgeConfig struct {
	Enabled bool          `env:"KNOWLEDGE_ENABLED" envDefault:"true"`
	BaseURL string        `env:"KNOWLEDGE_BASE_URL" envDefault:"https://en.wikipedia.org/api/rest_v1"`
	Timeout time.Duration `env:"KNOWLEDGE_TIMEOUT" envDefault:"5s"`
}

// SearchConfig selects the engine catalog.
type SearchConfig struct {
	// EnginesFile overrides the built-in catalog when set.
	EnginesFile   string `env:"SEARCH_ENGINES_FILE"`
	DefaultEngine string `env:"DEFAULT_ENGINE" envDefault:"google"`
}

// RateLimitConfig throttles chat and game input per visitor.
type RateLimitConfig struct {
	PerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
	Burst     int `env:"RATE_LIMIT_BURST" envDefault:"10"`
}

// ChatLogConfig controls the diagnostic chat log.
type ChatLogConfig struct {
	Enabled   bool          `env:"CHAT_LOG_ENABLED" envDefault:"true"`
	QueueSize int           `env:"CHAT_LOG_QUEUE_SIZE" envDefault:"1024"`
	Retention time.Duration `env:"CHAT_LOG_RETENTION" envDefault:"168h"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled  bool   `env:"OTEL_ENABLED" envDefault:"false"`
	Endpoint string `env:"OTEL_ENDPOINT"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return errors.New("DB_PATH cannot be empty")
	}
	if c.SessionIdleTTL <= 0 {
		return errors.New("SESSION_IDLE_TTL must be > 0")
	}
	if c.ReaperInterval <= 0 {
		return errors.New("REAPER_INTERVAL must be > 0")
	}
	if c.Chat.ReplyDelay < 0 || c.Chat.FallbackDelay < 0 {
		return errors.New("CHAT_REPLY_DELAY and CHAT_FALLBACK_DELAY must be >= 0")
	}
	if c.Knowledge.Enabled {
		u, err := url.Parse(c.Knowledge.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("KNOWLEDGE_BASE_URL must be an http(s) URL, got %q", c.Knowledge.BaseURL)
		}
		if c.Knowledge.Timeout <= 0 {
			return errors.New("KNOWLEDGE_TIMEOUT must be > 0")
		}
	}
	if c.Search.DefaultEngine == "" {
		return errors.New("DEFAULT_ENGINE cannot be empty")
	}
	if c.RateLimit.PerMinute < 0 || c.RateLimit.Burst < 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE and RATE_LIMIT_BURST must be >= 0")
	}
	if c.ChatLog.Enabled && c.ChatLog.QueueSize <= 0 {
		return errors.New("CHAT_LOG_QUEUE_SIZE must be > 0")
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return errors.New("OTEL_ENDPOINT is required when OTEL_ENABLED is set")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AllowedOrigins returns the CORS origins for the configured frontend.
func (c *Config) AllowedOrigins() []string {
	if c.FrontendURL == "" {
		return []string{"*"}
	}
	return []string{strings.TrimRight(c.FrontendURL, "/")}
}

// ParseLevel maps LOG_LEVEL to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL %q: %w", s, err)
	}
	return l, nil
}
