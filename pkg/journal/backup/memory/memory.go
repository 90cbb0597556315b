// Package memory implements backup.Store in memory, for tests.
package memory

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// MemoryBackupStore keeps backup trees in a nested map.
type MemoryBackupStore struct {
	mu  sync.RWMutex
	ops map[string]map[string][]byte
}

// New returns an empty in-memory backup store.
func New() *MemoryBackupStore {
	return &MemoryBackupStore{ops: make(map[string]map[string][]byte)}
}

func (s *MemoryBackupStore) Save(ctx context.Context, opID, rel string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tree, ok := s.ops[opID]
	if !ok {
		tree = make(map[string][]byte)
		s.ops[opID] = tree
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	tree[rel] = buf
	return nil
}

func (s *MemoryBackupStore) Open(ctx context.Context, opID, rel string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	tree, ok := s.ops[opID]
	if !ok {
		return nil, fmt.Errorf("backup for operation %s: %w", opID, os.ErrNotExist)
	}
	data, ok := tree[rel]
	if !ok {
		return nil, fmt.Errorf("backup %s/%s: %w", opID, rel, os.ErrNotExist)
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

func (s *MemoryBackupStore) List(ctx context.Context, opID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	tree, ok := s.ops[opID]
	if !ok {
		return nil, nil
	}

	rels := make([]string, 0, len(tree))
	for rel := range tree {
		rels = append(rels, rel)
	}
	return rels, nil
}

func (s *MemoryBackupStore) Remove(ctx context.Context, opID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.ops, opID)
	return nil
}

// Has reports whether any backups exist for opID (test helper).
func (s *MemoryBackupStore) Has(opID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.ops[opID]
	return ok
}
