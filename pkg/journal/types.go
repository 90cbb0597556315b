// Package journal records reversible file operations.
//
// Every copy/move/delete/rename/create is journaled with enough captured
// state to undo it: original paths, backup copies of deleted files, and
// in-memory snapshots of small files. The journal is bounded both by size
// (oldest evicted first) and by age (periodic sweep).
package journal

import (
	"fmt"
	"time"
)

// Kind identifies the type of a journaled operation.
type Kind int

const (
	KindCopy Kind = iota
	KindMove
	KindDelete
	KindRename
	KindCreate
	KindMkdir
)

func (k Kind) String() string {
	switch k {
	case KindCopy:
		return "copy"
	case KindMove:
		return "move"
	case KindDelete:
		return "delete"
	case KindRename:
		return "rename"
	case KindCreate:
		return "create"
	case KindMkdir:
		return "mkdir"
	default:
		return "unknown"
	}
}

// Status is the lifecycle state of an operation.
//
// State machine: Pending → InProgress → Completed|Failed;
// Completed → Undone. Failed and Undone are terminal and immutable.
type Status int

const (
	StatusPending Status = iota
	StatusInProgress
	StatusCompleted
	StatusFailed
	StatusUndone
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusUndone:
		return "undone"
	default:
		return "unknown"
	}
}

// terminal reports whether the status admits no further transitions.
func (s Status) terminal() bool {
	return s == StatusFailed || s == StatusUndone
}

// Payload carries the kind-specific state needed to reverse an operation.
//
// The interface is sealed: the six payload types below are the only
// implementations, and Undo switches over them exhaustively.
type Payload interface {
	kind() Kind
}

// CopyPayload records a copy of Sources into TargetDir. Created lists the
// paths actually produced, which is what undo removes.
type CopyPayload struct {
	Sources   []string `json:"sources"`
	TargetDir string   `json:"target_dir"`
	Created   []string `json:"created"`
}

func (CopyPayload) kind() Kind { return KindCopy }

// MovePayload records a move of Sources into TargetDir. Moved[i] is the
// new location of Originals[i]; undo moves each back.
type MovePayload struct {
	Sources   []string `json:"sources"`
	TargetDir string   `json:"target_dir"`
	Originals []string `json:"originals"`
	Moved     []string `json:"moved"`
}

func (MovePayload) kind() Kind { return KindMove }

// DeletePayload records a deletion. BackedUp reports whether the paths were
// snapshotted into the backup store under this operation's ID; Snapshots
// holds in-memory copies of files under the size threshold, keyed by their
// original absolute path, so undo works even if the backups were purged.
// Dirs lists deleted paths that were directories, so empty directories can
// be recreated on restore.
type DeletePayload struct {
	Paths     []string          `json:"paths"`
	BackedUp  bool              `json:"backed_up"`
	Dirs      []string          `json:"dirs,omitempty"`
	Snapshots map[string][]byte `json:"snapshots,omitempty"`
}

func (DeletePayload) kind() Kind { return KindDelete }

// RenamePayload records a rename; undo renames NewPath back to OldPath.
type RenamePayload struct {
	OldPath string `json:"old_path"`
	NewPath string `json:"new_path"`
}

func (RenamePayload) kind() Kind { return KindRename }

// CreatePayload records a file creation; undo deletes the created path.
type CreatePayload struct {
	Path    string `json:"path"`
	Content []byte `json:"content,omitempty"`
}

func (CreatePayload) kind() Kind { return KindCreate }

// MkdirPayload records a folder creation; undo removes it recursively.
type MkdirPayload struct {
	Path string `json:"path"`
}

func (MkdirPayload) kind() Kind { return KindMkdir }

// Operation is one journaled, reversible file operation.
type Operation struct {
	// ID is the unique operation identifier (UUID)
	ID string

	// Kind is the operation type
	Kind Kind

	// CreatedAt is the record timestamp; eviction age is measured from it
	CreatedAt time.Time

	// Status is the lifecycle state
	Status Status

	// Description is a human-readable summary
	Description string

	// CanUndo reports whether the operation is still reversible
	CanUndo bool

	// Err holds the failure message reported by the caller, if any
	Err string

	// Payload is the kind-specific reversal state
	Payload Payload
}

// Clone returns a shallow copy safe to hand to callers.
func (op *Operation) Clone() *Operation {
	c := *op
	return &c
}

func describe(kind Kind, detail string) string {
	return fmt.Sprintf("%s %s", kind, detail)
}
