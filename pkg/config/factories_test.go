package config

import (
	"context"
	"path/filepath"
	"testing"
)

func TestCreateJournalStore_Memory(t *testing.T) {
	cfg := &JournalStoreConfig{Type: "memory"}

	store, err := CreateJournalStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create memory journal store: %v", err)
	}
	defer store.Close()

	n, err := store.Len(context.Background())
	if err != nil {
		t.Fatalf("Len failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected empty store, got %d operations", n)
	}
}

func TestCreateJournalStore_BadgerInMemory(t *testing.T) {
	cfg := &JournalStoreConfig{
		Type:   "badger",
		Badger: map[string]any{"in_memory": true},
	}

	store, err := CreateJournalStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create badger journal store: %v", err)
	}
	defer store.Close()
}

func TestCreateJournalStore_BadgerMissingDir(t *testing.T) {
	cfg := &JournalStoreConfig{
		Type:   "badger",
		Badger: map[string]any{},
	}

	if _, err := CreateJournalStore(context.Background(), cfg); err == nil {
		t.Fatal("Expected error for badger store without dir, got nil")
	}
}

func TestCreateJournalStore_UnknownType(t *testing.T) {
	cfg := &JournalStoreConfig{Type: "etcd"}

	if _, err := CreateJournalStore(context.Background(), cfg); err == nil {
		t.Fatal("Expected error for unknown store type, got nil")
	}
}

func TestCreateBackupStore_Filesystem(t *testing.T) {
	cfg := &BackupStoreConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{"path": filepath.Join(t.TempDir(), "backups")},
	}

	store, err := CreateBackupStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create filesystem backup store: %v", err)
	}

	rels, err := store.List(context.Background(), "nope")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(rels) != 0 {
		t.Errorf("Expected no backups, got %d", len(rels))
	}
}

func TestCreateBackupStore_FilesystemMissingPath(t *testing.T) {
	cfg := &BackupStoreConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{},
	}

	if _, err := CreateBackupStore(context.Background(), cfg); err == nil {
		t.Fatal("Expected error for filesystem backup store without path, got nil")
	}
}

func TestCreateBackupStore_Memory(t *testing.T) {
	cfg := &BackupStoreConfig{Type: "memory"}

	if _, err := CreateBackupStore(context.Background(), cfg); err != nil {
		t.Fatalf("Failed to create memory backup store: %v", err)
	}
}

func TestCreateBackupStore_S3MissingBucket(t *testing.T) {
	cfg := &BackupStoreConfig{
		Type: "s3",
		S3:   map[string]any{"region": "us-east-1"},
	}

	if _, err := CreateBackupStore(context.Background(), cfg); err == nil {
		t.Fatal("Expected error for S3 backup store without bucket, got nil")
	}
}

func TestCreateBackupStore_UnknownType(t *testing.T) {
	cfg := &BackupStoreConfig{Type: "tape"}

	if _, err := CreateBackupStore(context.Background(), cfg); err == nil {
		t.Fatal("Expected error for unknown backup store type, got nil")
	}
}
