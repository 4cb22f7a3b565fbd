package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" || cfg.GRPCPort != "9090" || cfg.DBPath != "./data/glossy.db" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Chat.ReplyDelay != 500*time.Millisecond || cfg.Chat.FallbackDelay != 600*time.Millisecond {
		t.Fatalf("unexpected chat delays %+v", cfg.Chat)
	}
	if !cfg.Knowledge.Enabled || cfg.Search.DefaultEngine != "google" {
		t.Fatalf("unexpected feature defaults %+v %+v", cfg.Knowledge, cfg.Search)
	}
	if cfg.SessionIdleTTL != 30*time.Minute || cfg.ChatLog.Retention != 7*24*time.Hour {
		t.Fatalf("unexpected TTLs %v %v", cfg.SessionIdleTTL, cfg.ChatLog.Retention)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("CHAT_REPLY_DELAY", "1s")
	t.Setenv("KNOWLEDGE_ENABLED", "false")
	t.Setenv("DEFAULT_ENGINE", "bing")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9000" || cfg.Chat.ReplyDelay != time.Second || cfg.Knowledge.Enabled || cfg.Search.DefaultEngine != "bing" {
		t.Fatalf("env not applied: %+v", cfg)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("SESSION_IDLE_TTL", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Port = "" }},
		{"empty db path", func(c *Config) { c.DBPath = "" }},
		{"zero idle ttl", func(c *Config) { c.SessionIdleTTL = 0 }},
		{"negative delay", func(c *Config) { c.Chat.ReplyDelay = -time.Second }},
		{"bad knowledge url", func(c *Config) { c.Knowledge.BaseURL = "ftp://x" }},
		{"otel without endpoint", func(c *Config) { c.Telemetry.Enabled = true }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"empty default engine", func(c *Config) { c.Search.DefaultEngine = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := base()
	cfg.Knowledge.Enabled = false
	cfg.Knowledge.BaseURL = "not a url"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled knowledge should skip URL checks: %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	if l, err := ParseLevel("WARN"); err != nil || l != slog.LevelWarn {
		t.Fatalf("ParseLevel(WARN) = %v, %v", l, err)
	}
}

func TestAllowedOrigins(t *testing.T) {
	c := &Config{}
	if got := c.AllowedOrigins(); len(got) != 1 || got[0] != "*" {
		t.Fatalf("dev origins = %v", got)
	}
	c.FrontendURL = "https://glossy.example/"
	if got := c.AllowedOrigins(); got[0] != "https://glossy.example" {
		t.Fatalf("origins = %v", got)
	}
	if c.IsDevelopment() {
		t.Fatal("public frontend reported as development")
	}
}
