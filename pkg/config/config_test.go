package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"

server:
  root: "/srv/files"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify explicit values survived
	if cfg.Server.Root != "/srv/files" {
		t.Errorf("Expected root '/srv/files', got %q", cfg.Server.Root)
	}

	// Verify defaults were applied
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Cache.TTL != 30*time.Second {
		t.Errorf("Expected default cache TTL 30s, got %v", cfg.Cache.TTL)
	}
	if cfg.Pager.PageSize != 100 {
		t.Errorf("Expected default page size 100, got %d", cfg.Pager.PageSize)
	}
	if cfg.Query.Debounce != 300*time.Millisecond {
		t.Errorf("Expected default debounce 300ms, got %v", cfg.Query.Debounce)
	}
	if cfg.Journal.MaxHistory != 100 {
		t.Errorf("Expected default journal max_history 100, got %d", cfg.Journal.MaxHistory)
	}
	if cfg.Journal.Store.Type != "memory" {
		t.Errorf("Expected default journal store 'memory', got %q", cfg.Journal.Store.Type)
	}
	if cfg.Journal.Backup.Type != "filesystem" {
		t.Errorf("Expected default backup store 'filesystem', got %q", cfg.Journal.Backup.Type)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	nonExistentPath := filepath.Join(tmpDir, "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error with missing config file, got: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Journal.SnapshotLimit != 1<<20 {
		t.Errorf("Expected default snapshot limit 1 MiB, got %d", cfg.Journal.SnapshotLimit)
	}
}

func TestLoad_LogLevelNormalized(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "debug"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected normalized level 'DEBUG', got %q", cfg.Logging.Level)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	if err := os.WriteFile(configPath, []byte("logging: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error for invalid YAML, got nil")
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{
			name: "bad log level",
			mutate: func(cfg *Config) {
				cfg.Logging.Level = "VERBOSE"
			},
		},
		{
			name: "unknown journal store",
			mutate: func(cfg *Config) {
				cfg.Journal.Store.Type = "postgres"
			},
		},
		{
			name: "unknown backup store",
			mutate: func(cfg *Config) {
				cfg.Journal.Backup.Type = "ftp"
			},
		},
		{
			name: "badger store without dir",
			mutate: func(cfg *Config) {
				cfg.Journal.Store.Type = "badger"
				cfg.Journal.Store.Badger = map[string]any{}
			},
		},
		{
			name: "s3 backup without bucket",
			mutate: func(cfg *Config) {
				cfg.Journal.Backup.Type = "s3"
				cfg.Journal.Backup.S3 = map[string]any{"region": "us-east-1"}
			},
		},
		{
			name: "negative page size",
			mutate: func(cfg *Config) {
				cfg.Pager.PageSize = -1
			},
		},
		{
			name: "tiny journal history",
			mutate: func(cfg *Config) {
				cfg.Journal.MaxHistory = 1
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			if err := Validate(cfg); err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}
}

func TestValidate_DefaultConfigIsValid(t *testing.T) {
	if err := Validate(GetDefaultConfig()); err != nil {
		t.Fatalf("Default config failed validation: %v", err)
	}
}

func TestValidate_BadgerInMemoryNeedsNoDir(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Journal.Store.Type = "badger"
	cfg.Journal.Store.Badger = map[string]any{"in_memory": true}

	if err := Validate(cfg); err != nil {
		t.Fatalf("Expected in-memory badger config to validate, got: %v", err)
	}
}
