// Package config loads SesameStream's engine-level configuration: the reap
// cleanup interval, the Prometheus/TSV metrics toggle, the Linked Data
// fetch-on-reference toggle and worker pool size, and the demo server's
// listen address.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level engine configuration document.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Cleanup    CleanupConfig    `yaml:"cleanup"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	LinkedData LinkedDataConfig `yaml:"linked_data"`
}

// ServerConfig configures cmd/sesamestream's demo push server.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// CleanupConfig configures the reaper's ticking.
type CleanupConfig struct {
	// IntervalSeconds is loaded, defaulted and validated here; no command
	// passes it to the index, whose reaper ticks once per second and applies
	// its cleanup policy gate (30-second default) on each tick.
	IntervalSeconds int `yaml:"interval_seconds"`
}

// MetricsConfig toggles the Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	// TSVLogPath is loaded from the document but not used by any command in
	// this repository: no LOG/SOLUTION TSV side channel is opened from it.
	TSVLogPath string `yaml:"tsv_log_path"`
}

// LinkedDataConfig toggles the fetch-on-reference collaborator.
type LinkedDataConfig struct {
	Enabled bool `yaml:"enabled"`
	// Workers overrides the fetch worker pool size; 0 means
	// runtime.NumCPU()+1 (internal/linkeddata's own default).
	Workers int `yaml:"workers"`
	// CachePath is the Badger dereference-cache directory; empty means an
	// in-memory cache.
	CachePath string `yaml:"cache_path"`
	// CacheTTLSeconds bounds how long a dereferenced URI is considered
	// "recently fetched" before it may be refetched.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
}

// defaults mirror spec.md's own defaults: a 30-second cleanup gate
// (internal/reaper.DefaultCleanupPolicy), metrics off by default, Linked
// Data off by default, and a one-hour dereference cache window.
const (
	defaultListen          = "localhost:8080"
	defaultIntervalSeconds = 30
	defaultCacheTTLSeconds = 3600
)

// Default returns the configuration used when no -config flag is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the YAML document at path, applying defaults to any
// field left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = defaultListen
	}
	if c.Cleanup.IntervalSeconds == 0 {
		c.Cleanup.IntervalSeconds = defaultIntervalSeconds
	}
	if c.LinkedData.CacheTTLSeconds == 0 {
		c.LinkedData.CacheTTLSeconds = defaultCacheTTLSeconds
	}
}

// Validate rejects a config with nonsensical values.
func (c *Config) Validate() error {
	if c.Cleanup.IntervalSeconds <= 0 {
		return fmt.Errorf("cleanup.interval_seconds must be positive, got %d", c.Cleanup.IntervalSeconds)
	}
	if c.LinkedData.Workers < 0 {
		return fmt.Errorf("linked_data.workers must not be negative, got %d", c.LinkedData.Workers)
	}
	if c.LinkedData.CacheTTLSeconds <= 0 {
		return fmt.Errorf("linked_data.cache_ttl_seconds must be positive, got %d", c.LinkedData.CacheTTLSeconds)
	}
	return nil
}

// CleanupInterval returns Cleanup.IntervalSeconds as a time.Duration.
func (c *Config) CleanupInterval() time.Duration {
	return time.Duration(c.Cleanup.IntervalSeconds) * time.Second
}

// CacheTTL returns the Linked Data dereference cache window as a
// time.Duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.LinkedData.CacheTTLSeconds) * time.Second
}
