// Package backup stores snapshots of deleted files so the journal can
// restore them on undo.
//
// The on-disk layout is <backupRoot>/<operationID>/<relative-path>, where
// the relative path always starts with the basename of a deleted path.
// This is the one engine artifact that survives process restarts; its
// retention follows the journal's size and age eviction policy.
package backup

import "context"

// Store holds per-operation backup trees.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores data under <opID>/<rel>. Parent "directories" are
	// created implicitly.
	Save(ctx context.Context, opID, rel string, data []byte) error

	// Open returns the data stored under <opID>/<rel>.
	Open(ctx context.Context, opID, rel string) ([]byte, error)

	// List returns the relative paths stored for opID, in unspecified
	// order. A missing operation yields an empty list, not an error.
	List(ctx context.Context, opID string) ([]string, error)

	// Remove deletes every backup stored for opID. Removing an unknown
	// operation is a no-op.
	Remove(ctx context.Context, opID string) error
}
