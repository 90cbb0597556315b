// Package memory implements journal.Store in memory.
//
// This is the default backend: the journal's history is process-lifetime,
// only its backups persist on disk.
package memory

import (
	"context"
	"sync"

	"github.com/mcolletta/direx/pkg/journal"
)

// MemoryStore keeps operations in a map plus an insertion-order slice.
//
// Thread Safety: all operations are protected by an RWMutex.
type MemoryStore struct {
	mu    sync.RWMutex
	ops   map[string]*journal.Operation
	order []string
}

// New returns an empty in-memory journal store.
func New() *MemoryStore {
	return &MemoryStore{ops: make(map[string]*journal.Operation)}
}

func (s *MemoryStore) Put(ctx context.Context, op *journal.Operation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ops[op.ID]; !exists {
		s.order = append(s.order, op.ID)
	}
	s.ops[op.ID] = op.Clone()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*journal.Operation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	op, ok := s.ops[id]
	if !ok {
		return nil, nil
	}
	return op.Clone(), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ops[id]; !ok {
		return nil
	}
	delete(s.ops, id)

	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*journal.Operation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*journal.Operation, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.ops[id].Clone())
	}
	return out, nil
}

func (s *MemoryStore) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ops), nil
}

func (s *MemoryStore) Close() error {
	return nil
}
