// Package fsio defines the filesystem primitive set consumed by the engine.
//
// The engine never touches the os package directly; everything goes through
// the FileSystem interface so the cache, pager and journal can be exercised
// against the in-memory implementation in tests and against the real
// filesystem in production.
package fsio

import (
	"context"
	"os"
	"strings"
	"time"
)

// Entry describes a single file or directory.
type Entry struct {
	// Name is the base name of the entry
	Name string

	// Path is the absolute path of the entry
	Path string

	// IsDir reports whether the entry is a directory
	IsDir bool

	// Size is the file size in bytes (0 for directories)
	Size int64

	// Mode holds the Unix permission bits
	Mode os.FileMode

	// ModTime is the last modification time
	ModTime time.Time
}

// Hidden reports whether the entry is hidden by Unix convention.
func (e Entry) Hidden() bool {
	return strings.HasPrefix(e.Name, ".")
}

// FileSystem is the primitive set the engine consumes (§ external
// collaborators): directory listing, stat, and the mutation primitives the
// journal needs to record and reverse operations.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
type FileSystem interface {
	// ReadDir lists the direct children of dir. Order is unspecified;
	// callers sort as needed.
	ReadDir(ctx context.Context, dir string) ([]Entry, error)

	// Stat returns the entry for a single path.
	Stat(ctx context.Context, path string) (Entry, error)

	// ReadFile returns the full content of a regular file.
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// WriteFile writes data to path, creating or truncating it.
	// The parent directory must exist.
	WriteFile(ctx context.Context, path string, data []byte, perm os.FileMode) error

	// MkdirAll creates a directory and any missing parents.
	MkdirAll(ctx context.Context, path string, perm os.FileMode) error

	// Rename renames (moves) a file or directory within the filesystem.
	Rename(ctx context.Context, oldPath, newPath string) error

	// Copy copies a file, or a directory recursively, to dst.
	Copy(ctx context.Context, src, dst string) error

	// Move moves src to dst, falling back to copy+remove when a plain
	// rename is not possible (e.g. across devices).
	Move(ctx context.Context, src, dst string) error

	// Remove deletes a path, recursively for directories.
	Remove(ctx context.Context, path string) error

	// Exists reports whether a path exists.
	Exists(ctx context.Context, path string) (bool, error)
}
