// Package fs implements backup.Store on the local filesystem.
package fs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FSBackupStore stores backups under <root>/<opID>/<rel>.
type FSBackupStore struct {
	root string
}

// New creates the backup root if needed and returns the store.
func New(root string) (*FSBackupStore, error) {
	if root == "" {
		return nil, fmt.Errorf("backup root is required")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup root %s: %w", root, err)
	}
	return &FSBackupStore{root: root}, nil
}

// Root returns the backup root directory.
func (s *FSBackupStore) Root() string {
	return s.root
}

func (s *FSBackupStore) opDir(opID string) string {
	return filepath.Join(s.root, opID)
}

func (s *FSBackupStore) Save(ctx context.Context, opID, rel string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := filepath.Join(s.opDir(opID), filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0644); err != nil {
		return fmt.Errorf("failed to write backup %s: %w", target, err)
	}
	return nil
}

func (s *FSBackupStore) Open(ctx context.Context, opID, rel string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(s.opDir(opID), filepath.FromSlash(rel)))
}

func (s *FSBackupStore) List(ctx context.Context, opID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := s.opDir(opID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var rels []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rels = append(rels, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list backups for %s: %w", opID, err)
	}
	return rels, nil
}

func (s *FSBackupStore) Remove(ctx context.Context, opID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.RemoveAll(s.opDir(opID))
}
