// Package config loads and validates the direx configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete direx configuration.
//
// This structure captures all configurable aspects of the explorer engine:
//   - Logging configuration
//   - Server-wide settings
//   - Directory cache behavior
//   - Pagination behavior
//   - Query/search behavior
//   - Operation journal, its store backend and its backup backend
//   - Filesystem watcher
//   - Metrics
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (DIREX_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
//
// Store Configuration Pattern:
// The journal store and backup store each select an implementation via a
// Type field; only the map section matching the selected type is decoded,
// by that backend's factory.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains engine-wide settings
	Server ServerConfig `mapstructure:"server"`

	// Cache controls the directory listing cache
	Cache CacheConfig `mapstructure:"cache"`

	// Pager controls directory pagination
	Pager PagerConfig `mapstructure:"pager"`

	// Query controls search behavior
	Query QueryConfig `mapstructure:"query"`

	// Journal controls the operation journal and its backends
	Journal JournalConfig `mapstructure:"journal"`

	// Watcher controls filesystem change notifications
	Watcher WatcherConfig `mapstructure:"watcher"`

	// Metrics controls Prometheus instrumentation
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains engine-wide settings.
type ServerConfig struct {
	// Root is the directory the engine serves; paths outside it are rejected
	Root string `mapstructure:"root" validate:"required"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// CacheConfig controls the directory listing cache.
type CacheConfig struct {
	// TTL is how long cached listings stay fresh
	TTL time.Duration `mapstructure:"ttl" validate:"gt=0"`

	// MaxEntries bounds the cache; least recently used entries are evicted
	MaxEntries int `mapstructure:"max_entries" validate:"gt=0"`

	// SweepInterval is how often expired entries are swept out.
	// Zero disables the background sweep (entries still expire lazily).
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// PagerConfig controls directory pagination.
type PagerConfig struct {
	// PageSize is the default number of entries per page
	PageSize int `mapstructure:"page_size" validate:"gt=0"`
}

// QueryConfig controls search behavior.
type QueryConfig struct {
	// Debounce is how long rapid-fire searches are held before executing;
	// only the latest one in the window runs
	Debounce time.Duration `mapstructure:"debounce" validate:"gte=0"`

	// CaseSensitive makes matching case-sensitive by default
	CaseSensitive bool `mapstructure:"case_sensitive"`

	// IncludeHidden includes dotfiles in results by default
	IncludeHidden bool `mapstructure:"include_hidden"`
}

// JournalConfig controls the operation journal.
type JournalConfig struct {
	// MaxHistory bounds the journal; oldest operations are evicted first
	MaxHistory int `mapstructure:"max_history" validate:"gt=0"`

	// SnapshotLimit is the max file size captured in memory on delete
	SnapshotLimit int64 `mapstructure:"snapshot_limit" validate:"gt=0"`

	// Sweep controls the background age sweep
	Sweep SweepConfig `mapstructure:"sweep"`

	// Store specifies the journal store type and type-specific configuration
	Store JournalStoreConfig `mapstructure:"store"`

	// Backup specifies the backup store type and type-specific configuration
	Backup BackupStoreConfig `mapstructure:"backup"`
}

// SweepConfig controls the journal age sweep.
type SweepConfig struct {
	// Enabled controls whether the background sweep runs
	Enabled bool `mapstructure:"enabled"`

	// Interval is how often to sweep
	Interval time.Duration `mapstructure:"interval" validate:"gt=0"`

	// RetentionAge is how long operations are kept
	RetentionAge time.Duration `mapstructure:"retention_age" validate:"gt=0"`
}

// JournalStoreConfig specifies journal store configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type JournalStoreConfig struct {
	// Type specifies which journal store implementation to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" validate:"required,oneof=memory badger"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`
}

// BackupStoreConfig specifies backup store configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type BackupStoreConfig struct {
	// Type specifies which backup store implementation to use
	// Valid values: filesystem, memory, s3
	Type string `mapstructure:"type" validate:"required,oneof=filesystem memory s3"`

	// Filesystem contains filesystem-specific configuration
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3"`
}

// WatcherConfig controls filesystem change notifications.
type WatcherConfig struct {
	// Enabled controls whether changed directories are invalidated
	// automatically via fsnotify
	Enabled bool `mapstructure:"enabled"`
}

// MetricsConfig controls Prometheus instrumentation.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected
	Enabled bool `mapstructure:"enabled"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (DIREX_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the DIREX_ prefix and underscores.
	// Example: DIREX_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("DIREX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/direx/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// No config file is acceptable; defaults apply.
			return nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			// Explicit path that does not exist yet; defaults apply.
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "direx")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "direx")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
