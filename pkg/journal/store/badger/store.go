// Package badger implements journal.Store on BadgerDB.
//
// The memory store is the default; this backend exists for deployments
// where backup directories must remain attributable and reclaimable after
// a restart: operation metadata survives alongside the on-disk backups it
// describes, so the age sweep can still clean both up.
//
// Key Namespace:
//
//	Data Type        Prefix   Key Format        Value
//	Operation        "op:"    op:<id>           storedOperation (JSON)
//	Insertion order  "seq:"   seq:<%016x>       operation id (bytes)
//	Reverse index    "idx:"   idx:<id>          seq key (bytes)
//
// The seq prefix range-scans in insertion order, which is all List needs;
// the reverse index makes Delete a point lookup instead of a scan.
package badger

import (
	"context"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/mcolletta/direx/internal/logger"
	"github.com/mcolletta/direx/pkg/journal"
)

const (
	opPrefix  = "op:"
	seqPrefix = "seq:"
	idxPrefix = "idx:"
)

// Config contains configuration for the badger journal store.
type Config struct {
	// Dir is the database directory. Required unless InMemory is set.
	Dir string

	// InMemory runs badger without persistence (tests).
	InMemory bool
}

// BadgerStore implements journal.Store with BadgerDB persistence.
//
// Thread Safety: BadgerDB transactions provide isolation; no additional
// locking is needed here.
type BadgerStore struct {
	db  *badger.DB
	seq *badger.Sequence
}

// New opens (or creates) the database and returns the store.
func New(cfg Config) (*BadgerStore, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Dir == "" {
			return nil, fmt.Errorf("badger journal store: dir is required")
		}
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	seq, err := db.GetSequence([]byte("meta:seq"), 128)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open sequence: %w", err)
	}

	logger.Info("Badger journal store opened: dir=%q in_memory=%v", cfg.Dir, cfg.InMemory)

	return &BadgerStore{db: db, seq: seq}, nil
}

func opKey(id string) []byte  { return []byte(opPrefix + id) }
func idxKey(id string) []byte { return []byte(idxPrefix + id) }

func seqKey(n uint64) []byte {
	return []byte(fmt.Sprintf("%s%016x", seqPrefix, n))
}

func (s *BadgerStore) Put(ctx context.Context, op *journal.Operation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encodeOperation(op)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		// First Put of an id assigns its insertion-order slot.
		if _, err := txn.Get(idxKey(op.ID)); err == badger.ErrKeyNotFound {
			n, err := s.seq.Next()
			if err != nil {
				return fmt.Errorf("failed to allocate sequence: %w", err)
			}
			sk := seqKey(n)
			if err := txn.Set(sk, []byte(op.ID)); err != nil {
				return err
			}
			if err := txn.Set(idxKey(op.ID), sk); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		return txn.Set(opKey(op.ID), data)
	})
}

func (s *BadgerStore) Get(ctx context.Context, id string) (*journal.Operation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var op *journal.Operation
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(opKey(id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			op, err = decodeOperation(val)
			return err
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read operation %s: %w", id, err)
	}
	return op, nil
}

func (s *BadgerStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(idxKey(id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		var sk []byte
		if err := item.Value(func(val []byte) error {
			sk = append([]byte(nil), val...)
			return nil
		}); err != nil {
			return err
		}

		if err := txn.Delete(sk); err != nil {
			return err
		}
		if err := txn.Delete(idxKey(id)); err != nil {
			return err
		}
		return txn.Delete(opKey(id))
	})
}

func (s *BadgerStore) List(ctx context.Context) ([]*journal.Operation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ops []*journal.Operation
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(seqPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var id string
			if err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}

			item, err := txn.Get(opKey(id))
			if err != nil {
				return fmt.Errorf("dangling order entry for %s: %w", id, err)
			}
			if err := item.Value(func(val []byte) error {
				op, err := decodeOperation(val)
				if err != nil {
					return err
				}
				ops = append(ops, op)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	return ops, nil
}

func (s *BadgerStore) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(opPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func (s *BadgerStore) Close() error {
	if err := s.seq.Release(); err != nil {
		logger.Warn("Failed to release journal sequence: %v", err)
	}
	return s.db.Close()
}
