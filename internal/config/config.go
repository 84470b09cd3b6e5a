// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

package config

import (
	"fmt"
	"time"

	"github.com/halcyonlabs/halcyon/internal/logging"
	"github.com/halcyonlabs/halcyon/internal/notify"
	"github.com/halcyonlabs/halcyon/internal/recommend"
)

// Config is the daemon's complete configuration. Engine packages keep
// their own config types; this package assembles them from layered
// sources (defaults, yaml file, environment).
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Storage   StorageConfig   `koanf:"storage"`
	Scoring   ScoringConfig   `koanf:"scoring"`
	Notify    NotifyConfig    `koanf:"notify"`
	Discovery DiscoveryConfig `koanf:"discovery"`
}

// DiscoveryConfig configures the external music/theme search provider.
type DiscoveryConfig struct {
	// Enabled turns external discovery on. Off by default; the
	// recommenders fall back to persisted candidate pools.
	Enabled bool `koanf:"enabled"`

	// URL is the provider's search endpoint.
	URL string `koanf:"url"`

	// Timeout bounds a single search request.
	Timeout time.Duration `koanf:"timeout"`
}

// ServerConfig configures the daemon's HTTP surface.
type ServerConfig struct {
	// Host is the bind address.
	Host string `koanf:"host"`

	// Port is the listen port for the metrics/health endpoint.
	Port int `koanf:"port"`

	// CORSOrigins lists allowed cross-origin hosts. Empty denies all
	// cross-origin requests.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitRequests caps requests per client IP per minute at the
	// HTTP layer. Zero disables throttling.
	RateLimitRequests int `koanf:"rate_limit_requests"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line in log output.
	Caller bool `koanf:"caller"`
}

// StorageConfig configures persistence.
type StorageConfig struct {
	// Path is the BadgerDB directory.
	Path string `koanf:"path"`

	// InMemory selects the non-persistent store. Intended for tests
	// and ephemeral deployments.
	InMemory bool `koanf:"in_memory"`
}

// ScoringConfig tunes the recommendation scorer. Weight tables are
// data: a deployment can reshape a domain's scoring without a rebuild.
type ScoringConfig struct {
	// PreferenceBonus is the additive bonus per overlapping preferred
	// category.
	PreferenceBonus float64 `koanf:"preference_bonus"`

	// RecencyPenaltyBase is the per-repeat decay multiplier.
	RecencyPenaltyBase float64 `koanf:"recency_penalty_base"`

	// RecencyPenaltyWindow is how far back repeats are counted.
	RecencyPenaltyWindow time.Duration `koanf:"recency_penalty_window"`

	// Tables overrides per-domain weight tables. Domains absent here
	// keep their defaults.
	Tables map[string]TableConfig `koanf:"tables"`
}

// TableConfig is one domain's factor table.
type TableConfig struct {
	// Composition is additive or multiplicative.
	Composition string `koanf:"composition"`

	// Weights maps factor name to weight.
	Weights map[string]float64 `koanf:"weights"`
}

// NotifyConfig tunes the notification engine.
type NotifyConfig struct {
	// RateLimits overrides per-category admission rules. Categories
	// absent here keep their defaults.
	RateLimits map[string]LimitConfig `koanf:"rate_limits"`

	// QueueMaxSize caps the deferred-notification queue.
	QueueMaxSize int `koanf:"queue_max_size"`

	// QueueMaxAge is how long a deferred notification stays eligible.
	QueueMaxAge time.Duration `koanf:"queue_max_age"`

	// DrainInterval is the supervised drainer's tick.
	DrainInterval time.Duration `koanf:"drain_interval"`
}

// LimitConfig is one category's sliding-window rule.
type LimitConfig struct {
	Count  int           `koanf:"count"`
	Window time.Duration `koanf:"window"`
}

// defaultConfig returns the built-in defaults, applied before file and
// environment layers.
func defaultConfig() *Config {
	notifyDefaults := notify.DefaultConfig()
	scoringDefaults := recommend.DefaultConfig()

	rateLimits := make(map[string]LimitConfig, len(notifyDefaults.RateLimits))
	for category, limit := range notifyDefaults.RateLimits {
		rateLimits[string(category)] = LimitConfig{Count: limit.Count, Window: limit.Window}
	}

	return &Config{
		Server: ServerConfig{
			Host:              "127.0.0.1",
			Port:              8745,
			RateLimitRequests: 120,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Storage: StorageConfig{
			Path: "/data/halcyon",
		},
		Scoring: ScoringConfig{
			PreferenceBonus:      scoringDefaults.PreferenceBonus,
			RecencyPenaltyBase:   scoringDefaults.RecencyPenaltyBase,
			RecencyPenaltyWindow: scoringDefaults.RecencyPenaltyWindow,
		},
		Notify: NotifyConfig{
			RateLimits:    rateLimits,
			QueueMaxSize:  notifyDefaults.QueueMaxSize,
			QueueMaxAge:   notifyDefaults.QueueMaxAge,
			DrainInterval: notifyDefaults.DrainInterval,
		},
		Discovery: DiscoveryConfig{
			Enabled: false,
			Timeout: 5 * time.Second,
		},
	}
}

// Validate checks the assembled configuration, delegating engine
// sections to their owning packages.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.RateLimitRequests < 0 {
		return fmt.Errorf("server.rate_limit_requests must be non-negative, got %d", c.Server.RateLimitRequests)
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required unless storage.in_memory is set")
	}
	if c.Discovery.Enabled && c.Discovery.URL == "" {
		return fmt.Errorf("discovery.url is required when discovery.enabled is set")
	}
	if err := c.ScoringConfig().Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	if err := c.NotifyConfig().Validate(); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

// LoggingConfigValue converts the logging section for logging.Init.
func (c *Config) LoggingConfigValue() logging.Config {
	return logging.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		Caller: c.Logging.Caller,
	}
}

// ScoringConfig builds the scorer configuration: package defaults with
// this config's overrides applied on top.
func (c *Config) ScoringConfig() *recommend.Config {
	cfg := recommend.DefaultConfig()
	if c.Scoring.PreferenceBonus > 0 {
		cfg.PreferenceBonus = c.Scoring.PreferenceBonus
	}
	if c.Scoring.RecencyPenaltyBase > 0 {
		cfg.RecencyPenaltyBase = c.Scoring.RecencyPenaltyBase
	}
	if c.Scoring.RecencyPenaltyWindow > 0 {
		cfg.RecencyPenaltyWindow = c.Scoring.RecencyPenaltyWindow
	}
	for name, table := range c.Scoring.Tables {
		weights := make(recommend.FactorWeights, len(table.Weights))
		for factor, weight := range table.Weights {
			weights[factor] = weight
		}
		cfg.Tables[recommend.Domain(name)] = recommend.DomainTable{
			Composition: recommend.CompositionKind(table.Composition),
			Weights:     weights,
		}
	}
	return cfg
}

// NotifyConfig builds the notification engine configuration the same
// way.
func (c *Config) NotifyConfig() *notify.Config {
	cfg := notify.DefaultConfig()
	for category, limit := range c.Notify.RateLimits {
		cfg.RateLimits[notify.Category(category)] = notify.Limit{
			Count:  limit.Count,
			Window: limit.Window,
		}
	}
	if c.Notify.QueueMaxSize > 0 {
		cfg.QueueMaxSize = c.Notify.QueueMaxSize
	}
	if c.Notify.QueueMaxAge > 0 {
		cfg.QueueMaxAge = c.Notify.QueueMaxAge
	}
	if c.Notify.DrainInterval > 0 {
		cfg.DrainInterval = c.Notify.DrainInterval
	}
	return cfg
}

// ListenAddr is the daemon's HTTP bind address.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
