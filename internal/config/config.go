// Tagreco - Tag-Based Catalog Recommendation Engine
// Copyright 2026 Tagreco Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagreco/tagreco

// Package config loads application configuration with Koanf v2 from
// layered sources: built-in defaults, an optional YAML file, then
// environment variables. Precedence: ENV > file > defaults.
package config

import (
	"fmt"
	"time"

	"github.com/tagreco/tagreco/internal/validation"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Data     DataConfig     `koanf:"data"`
	Reload   ReloadConfig   `koanf:"reload"`
	TagStore TagStoreConfig `koanf:"tagstore"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port" validate:"min=1,max=65535"`

	// Timeout bounds request handling, reads and writes.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// CORSOrigins lists allowed origins. "*" allows all.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs is the per-IP request budget per RateLimitWindow.
	// Zero disables rate limiting.
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"min=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
}

// DataConfig points at the three source documents the engine loads.
type DataConfig struct {
	OntologyPath string `koanf:"ontology_path" validate:"required"`
	CatalogPath  string `koanf:"catalog_path" validate:"required"`
	RulesPath    string `koanf:"rules_path" validate:"required"`
}

// ReloadConfig configures scheduled re-reads of the source documents.
type ReloadConfig struct {
	Enabled bool `koanf:"enabled"`

	// Schedule is a cron expression (robfig/cron format).
	Schedule string `koanf:"schedule"`
}

// TagStoreConfig configures the derived per-user tag store.
type TagStoreConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`

	// TTL is how long a user's derived tags survive without refresh.
	TTL time.Duration `koanf:"ttl" validate:"gt=0"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration after unmarshal.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Reload.Enabled && c.Reload.Schedule == "" {
		return fmt.Errorf("invalid configuration: reload.schedule is required when reload is enabled")
	}
	if c.TagStore.Enabled && c.TagStore.Path == "" {
		return fmt.Errorf("invalid configuration: tagstore.path is required when the tag store is enabled")
	}
	return nil
}
