// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

// Package config holds all Moltwatch configuration, loaded in three layers
// with Koanf v2: built-in defaults, then an optional YAML file, then
// environment variables. Config is immutable after Load and safe for
// concurrent reads.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration object.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Classifier ClassifierConfig `koanf:"classifier"`
	Live       LiveConfig       `koanf:"live"`
	Media      MediaConfig      `koanf:"media"`
	API        APIConfig        `koanf:"api"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// DatabaseConfig configures the DuckDB store.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	// Threads is the DuckDB thread count; 0 uses runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// ClassifierConfig configures the out-of-process model servers.
type ClassifierConfig struct {
	SpeciesURL string `koanf:"species_url"`
	MoltURL    string `koanf:"molt_url"`
	StageURL   string `koanf:"stage_url"`

	Timeout time.Duration `koanf:"timeout"`

	// Circuit breaker settings shared by all three clients.
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	BreakerOpenTimeout time.Duration `koanf:"breaker_open_timeout"`
}

// LiveConfig configures the live feed bus and its subscriber sessions.
type LiveConfig struct {
	// HistorySize is the depth of the retained snapshot ring.
	HistorySize int `koanf:"history_size"`

	// BroadcastInterval is the heartbeat period for re-delivering the
	// latest snapshot to all subscribers.
	BroadcastInterval time.Duration `koanf:"broadcast_interval"`

	// SubscriberQueueSize bounds each subscriber's delivery channel.
	SubscriberQueueSize int `koanf:"subscriber_queue_size"`

	// KeepAlive is the idle interval after which a streaming session
	// emits a protocol-level ping.
	KeepAlive time.Duration `koanf:"keep_alive"`
}

// MediaConfig configures sample image handling.
type MediaConfig struct {
	UploadDir     string `koanf:"upload_dir"`
	MaxImageBytes int64  `koanf:"max_image_bytes"`
}

// APIConfig configures response shaping.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// SecurityConfig configures the outer HTTP surface.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Live.HistorySize < 1 {
		return fmt.Errorf("live.history_size must be at least 1, got %d", c.Live.HistorySize)
	}
	if c.Live.BroadcastInterval <= 0 {
		return fmt.Errorf("live.broadcast_interval must be positive, got %s", c.Live.BroadcastInterval)
	}
	if c.Live.SubscriberQueueSize < 1 {
		return fmt.Errorf("live.subscriber_queue_size must be at least 1, got %d", c.Live.SubscriberQueueSize)
	}
	if c.Live.KeepAlive <= 0 {
		return fmt.Errorf("live.keep_alive must be positive, got %s", c.Live.KeepAlive)
	}
	if c.Media.UploadDir == "" {
		return fmt.Errorf("media.upload_dir must not be empty")
	}
	if c.Media.MaxImageBytes < 1 {
		return fmt.Errorf("media.max_image_bytes must be at least 1, got %d", c.Media.MaxImageBytes)
	}
	if c.API.DefaultPageSize < 1 || c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("api page sizes invalid: default %d, max %d",
			c.API.DefaultPageSize, c.API.MaxPageSize)
	}
	if c.Classifier.Timeout <= 0 {
		return fmt.Errorf("classifier.timeout must be positive, got %s", c.Classifier.Timeout)
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
