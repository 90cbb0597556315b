package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and
// environment variables to fill in any missing values with sensible
// defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Store-specific defaults are handled by store factories
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyCacheDefaults(&cfg.Cache)
	applyPagerDefaults(&cfg.Pager)
	applyQueryDefaults(&cfg.Query)
	applyJournalDefaults(&cfg.Journal)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize to uppercase for consistent internal representation.
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets engine-wide defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Root == "" {
		cfg.Root = "."
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyCacheDefaults sets directory cache defaults.
func applyCacheDefaults(cfg *CacheConfig) {
	if cfg.TTL == 0 {
		cfg.TTL = 30 * time.Second
	}
	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = 1024
	}
	// SweepInterval defaults to 0 (lazy expiry only)
}

// applyPagerDefaults sets pagination defaults.
func applyPagerDefaults(cfg *PagerConfig) {
	if cfg.PageSize == 0 {
		cfg.PageSize = 100
	}
}

// applyQueryDefaults sets search defaults.
func applyQueryDefaults(cfg *QueryConfig) {
	if cfg.Debounce == 0 {
		cfg.Debounce = 300 * time.Millisecond
	}
	// CaseSensitive and IncludeHidden default to false
}

// applyJournalDefaults sets journal defaults.
func applyJournalDefaults(cfg *JournalConfig) {
	if cfg.MaxHistory == 0 {
		cfg.MaxHistory = 100
	}
	if cfg.SnapshotLimit == 0 {
		cfg.SnapshotLimit = 1 << 20 // 1 MiB
	}

	if cfg.Sweep.Interval == 0 {
		cfg.Sweep.Interval = time.Hour
	}
	if cfg.Sweep.RetentionAge == 0 {
		cfg.Sweep.RetentionAge = 24 * time.Hour
	}

	if cfg.Store.Type == "" {
		cfg.Store.Type = "memory"
	}
	if cfg.Store.Memory == nil {
		cfg.Store.Memory = make(map[string]any)
	}

	if cfg.Backup.Type == "" {
		cfg.Backup.Type = "filesystem"
	}
	if cfg.Backup.Filesystem == nil {
		cfg.Backup.Filesystem = make(map[string]any)
	}
	if _, ok := cfg.Backup.Filesystem["path"]; !ok {
		cfg.Backup.Filesystem["path"] = "/tmp/direx-backups"
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Journal: JournalConfig{
			Sweep: SweepConfig{Enabled: true},
		},
		Watcher: WatcherConfig{Enabled: true},
	}

	ApplyDefaults(cfg)
	return cfg
}
