package journal

import "context"

// Store persists journal operations.
//
// The default implementation is in-memory (journal history is
// process-lifetime); the badger implementation makes operation metadata
// durable so on-disk backups left behind by a crash remain attributable
// and reclaimable after a restart.
//
// Implementations must preserve insertion order in List and be safe for
// concurrent use.
type Store interface {
	// Put inserts or replaces an operation. Insertion order is determined
	// by the first Put of an id.
	Put(ctx context.Context, op *Operation) error

	// Get returns the operation with the given id, or nil if unknown.
	Get(ctx context.Context, id string) (*Operation, error)

	// Delete removes an operation. Deleting an unknown id is a no-op.
	Delete(ctx context.Context, id string) error

	// List returns all operations in insertion order (oldest first).
	List(ctx context.Context) ([]*Operation, error)

	// Len returns the number of stored operations.
	Len(ctx context.Context) (int, error)

	// Close releases store resources.
	Close() error
}
