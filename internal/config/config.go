// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

// Package config loads and validates the Waypost configuration.
//
// Configuration is resolved in three layers, later layers overriding
// earlier ones: struct defaults, an optional YAML file, and WAYPOST_*
// environment variables. The resulting Config value is passed into each
// component at construction; there is no shared mutable configuration.
package config

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the top-level Waypost configuration.
type Config struct {
	Logging  LoggingConfig  `koanf:"logging"`
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Checkin  CheckinConfig  `koanf:"checkin"`
	Polling  PollingConfig  `koanf:"polling"`
	Route    RouteConfig    `koanf:"route"`
	Notify   NotifyConfig   `koanf:"notify"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"gt=0,lte=65535"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
	// RateLimit is the per-IP request budget per minute on ingestion
	// endpoints.
	RateLimit int `koanf:"rate_limit" validate:"gt=0"`
}

// DatabaseConfig configures the embedded BadgerDB store.
type DatabaseConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// CheckinConfig configures the check-in webhook consumer.
type CheckinConfig struct {
	Enabled bool `koanf:"enabled"`
	// Provider is the external identity provider check-in user IDs are
	// resolved against.
	Provider string `koanf:"provider" validate:"required"`
}

// PollingConfig configures the device-location polling consumer.
type PollingConfig struct {
	Enabled bool `koanf:"enabled"`
	// Endpoint is the base URL of the external device-location service.
	Endpoint string `koanf:"endpoint" validate:"required_if=Enabled true,omitempty,url"`
	// AccuracyThreshold is the maximum acceptable horizontal error in
	// meters; lower reported error is better.
	AccuracyThreshold float64 `koanf:"accuracy_threshold" validate:"gt=0"`
	// MaxWait is the hard wall-clock deadline for one poll invocation.
	MaxWait time.Duration `koanf:"max_wait" validate:"gt=0"`
	// RequestInterval is the pause between fetch attempts inside the
	// poll loop.
	RequestInterval time.Duration `koanf:"request_interval" validate:"gt=0"`
	// DedupWindow suppresses a new sample when another snapshot of the
	// same type and user was observed within it.
	DedupWindow time.Duration `koanf:"dedup_window" validate:"gt=0"`
	// Interval is the periodic batch cadence.
	Interval time.Duration `koanf:"interval" validate:"gt=0"`
}

// RouteConfig configures the incremental route-track consumer.
type RouteConfig struct {
	Enabled bool `koanf:"enabled"`
	// MinPointSpacing is the minimum gap between persisted route points.
	MinPointSpacing time.Duration `koanf:"min_point_spacing" validate:"gte=0"`
	// LivenessWindow marks a source inactive when its newest persisted
	// point is older than this.
	LivenessWindow time.Duration `koanf:"liveness_window" validate:"gt=0"`
	// BindReuseWindow bounds how old a source may be and still be reused
	// by bind for the same user and import URL.
	BindReuseWindow time.Duration `koanf:"bind_reuse_window" validate:"gt=0"`
	// FetchTimeout bounds one route document download.
	FetchTimeout time.Duration `koanf:"fetch_timeout" validate:"gt=0"`
	// Interval is the periodic batch cadence over active sources.
	Interval time.Duration `koanf:"interval" validate:"gt=0"`
}

// NotifyConfig configures notification emission.
type NotifyConfig struct {
	// TopicPrefix namespaces the notification topics.
	TopicPrefix string `koanf:"topic_prefix" validate:"required"`
	// BufferSize is the subscriber channel depth of the in-process bus.
	BufferSize int `koanf:"buffer_size" validate:"gte=0"`
}

// Default returns a Config with production defaults. Thresholds mirror
// the behavior of the upstream feeds: a 20 m accuracy cut-off, a two
// minute poll deadline with five second pacing, 30 s route point spacing,
// and a 60 minute route liveness window.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      8310,
			Timeout:   30 * time.Second,
			RateLimit: 120,
		},
		Database: DatabaseConfig{
			Path: "/data/waypost",
		},
		Checkin: CheckinConfig{
			Enabled:  true,
			Provider: "foursquare",
		},
		Polling: PollingConfig{
			Enabled:           false,
			AccuracyThreshold: 20,
			MaxWait:           120 * time.Second,
			RequestInterval:   5 * time.Second,
			DedupWindow:       time.Minute,
			Interval:          5 * time.Minute,
		},
		Route: RouteConfig{
			Enabled:         false,
			MinPointSpacing: 30 * time.Second,
			LivenessWindow:  60 * time.Minute,
			BindReuseWindow: 24 * time.Hour,
			FetchTimeout:    30 * time.Second,
			Interval:        time.Minute,
		},
		Notify: NotifyConfig{
			TopicPrefix: "location",
			BufferSize:  64,
		},
	}
}

// Validate checks the configuration for structural errors.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}
