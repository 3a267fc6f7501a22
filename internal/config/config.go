// Package config loads and validates RTB engine configuration.
// Configuration lives in .rtb/config.yaml; environment variables with the
// RTB_ prefix override file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all RTB engine configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Chain cache
	Cache CacheConfig `yaml:"cache"`

	// Batch resolution
	Batch BatchConfig `yaml:"batch"`

	// SQLite audit sink
	Audit AuditConfig `yaml:"audit"`

	// Custom function execution
	Functions FunctionConfig `yaml:"functions"`

	// Template directory watcher
	Watcher WatcherConfig `yaml:"watcher"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// CacheConfig tunes the inheritance chain cache.
type CacheConfig struct {
	MaxSize int    `yaml:"max_size"`
	TTL     string `yaml:"ttl"`
}

// TTLDuration parses the TTL field, falling back to the default on error.
func (c CacheConfig) TTLDuration() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// BatchConfig tunes batch resolution concurrency.
type BatchConfig struct {
	Concurrency int    `yaml:"concurrency"`
	ItemTimeout string `yaml:"item_timeout"`
}

// ItemTimeoutDuration parses the per-item timeout; zero means no timeout.
func (b BatchConfig) ItemTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(b.ItemTimeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// AuditConfig configures the persistent audit/history sink.
type AuditConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
}

// FunctionConfig tunes custom function execution.
type FunctionConfig struct {
	Timeout string `yaml:"timeout"`
}

// TimeoutDuration parses the execution timeout.
func (f FunctionConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(f.Timeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// WatcherConfig configures the template directory watcher.
type WatcherConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Dir      string `yaml:"dir"`
	Debounce string `yaml:"debounce"`
}

// DebounceDuration parses the debounce window.
func (w WatcherConfig) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(w.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// LoggingConfig configures the category file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "rtb",
		Version: "1.0.0",

		Cache: CacheConfig{
			MaxSize: 1000,
			TTL:     "10m",
		},

		Batch: BatchConfig{
			Concurrency: 4,
			ItemTimeout: "30s",
		},

		Audit: AuditConfig{
			Enabled:      false,
			DatabasePath: ".rtb/audit.db",
		},

		Functions: FunctionConfig{
			Timeout: "5s",
		},

		Watcher: WatcherConfig{
			Enabled:  false,
			Dir:      "templates",
			Debounce: "500ms",
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies RTB_* environment variables on top of file
// values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RTB_CACHE_MAX_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Cache.MaxSize = n
		}
	}
	if v := os.Getenv("RTB_CACHE_TTL"); v != "" {
		c.Cache.TTL = v
	}
	if v := os.Getenv("RTB_BATCH_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Batch.Concurrency = n
		}
	}
	if v := os.Getenv("RTB_AUDIT_DB"); v != "" {
		c.Audit.DatabasePath = v
		c.Audit.Enabled = true
	}
	if v := os.Getenv("RTB_TEMPLATE_DIR"); v != "" {
		c.Watcher.Dir = v
	}
	if v := os.Getenv("RTB_DEBUG"); v == "1" || v == "true" {
		c.Logging.DebugMode = true
		c.Logging.Level = "debug"
	}
}

// Validate checks invariants that would otherwise surface as confusing
// runtime behavior.
func (c *Config) Validate() error {
	if c.Cache.MaxSize <= 0 {
		return fmt.Errorf("cache.max_size must be positive, got %d", c.Cache.MaxSize)
	}
	if c.Batch.Concurrency <= 0 {
		return fmt.Errorf("batch.concurrency must be positive, got %d", c.Batch.Concurrency)
	}
	if c.Audit.Enabled && c.Audit.DatabasePath == "" {
		return fmt.Errorf("audit.database_path required when audit is enabled")
	}
	return nil
}
