// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsValid(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Live.HistorySize != 20 {
		t.Errorf("default history size = %d, want 20", cfg.Live.HistorySize)
	}
	if cfg.Live.BroadcastInterval != 500*time.Millisecond {
		t.Errorf("default broadcast interval = %s, want 500ms", cfg.Live.BroadcastInterval)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"empty db path", func(c *Config) { c.Database.Path = "" }},
		{"zero history", func(c *Config) { c.Live.HistorySize = 0 }},
		{"zero broadcast interval", func(c *Config) { c.Live.BroadcastInterval = 0 }},
		{"zero queue", func(c *Config) { c.Live.SubscriberQueueSize = 0 }},
		{"zero keep alive", func(c *Config) { c.Live.KeepAlive = 0 }},
		{"empty upload dir", func(c *Config) { c.Media.UploadDir = "" }},
		{"max page below default", func(c *Config) { c.API.MaxPageSize = 1 }},
		{"zero classifier timeout", func(c *Config) { c.Classifier.Timeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9000
live:
  history_size: 40
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "9001")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// env beats file
	if cfg.Server.Port != 9001 {
		t.Errorf("port = %d, want env override 9001", cfg.Server.Port)
	}
	// file beats defaults
	if cfg.Live.HistorySize != 40 {
		t.Errorf("history size = %d, want file value 40", cfg.Live.HistorySize)
	}
	// defaults survive where unset
	if cfg.Live.SubscriberQueueSize != 16 {
		t.Errorf("queue size = %d, want default 16", cfg.Live.SubscriberQueueSize)
	}
}

func TestLoadCORSFromEnv(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	got := cfg.Security.CORSOrigins
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Errorf("cors origins = %v, want two trimmed entries", got)
	}
}

func TestEnvTransformSkipsUnknown(t *testing.T) {
	if got := envTransformFunc("PATH"); got != "" {
		t.Errorf("unknown env var should map to empty path, got %q", got)
	}
	if got := envTransformFunc("HTTP_PORT"); got != "server.port" {
		t.Errorf("HTTP_PORT mapped to %q, want server.port", got)
	}
}

func TestServerAddr(t *testing.T) {
	sc := ServerConfig{Host: "127.0.0.1", Port: 8741}
	if got := sc.Addr(); got != "127.0.0.1:8741" {
		t.Errorf("Addr() = %q", got)
	}
}
