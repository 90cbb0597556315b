package journal

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mcolletta/direx/internal/logger"
)

// Undo reverses a completed operation.
//
// The operation must be Completed and still undoable; anything else fails
// with a typed error (ErrNotFound, ErrAlreadyUndone, ErrCannotUndo). The
// reversal I/O runs outside the journal lock; the operation is marked
// in-flight for the duration so eviction and the age sweep leave it alone.
// On success the operation transitions to Undone. On failure it stays
// Completed so the caller may retry.
func (j *Journal) Undo(ctx context.Context, id string) error {
	j.mu.Lock()

	op, err := j.store.Get(ctx, id)
	if err != nil {
		j.mu.Unlock()
		return ioError("failed to load operation", id, err)
	}
	if op == nil {
		j.mu.Unlock()
		return newError(ErrNotFound, "operation not found", id)
	}
	if op.Status == StatusUndone {
		j.mu.Unlock()
		return newError(ErrAlreadyUndone, "operation already undone", id)
	}
	if op.Status != StatusCompleted || !op.CanUndo {
		j.mu.Unlock()
		return newError(ErrCannotUndo,
			fmt.Sprintf("operation cannot be undone (status: %s)", op.Status), id)
	}
	if _, busy := j.inFlight[id]; busy {
		j.mu.Unlock()
		return newError(ErrCannotUndo, "undo already in progress", id)
	}
	j.inFlight[id] = struct{}{}
	j.mu.Unlock()

	start := time.Now()
	revertErr := j.revert(ctx, op)

	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.inFlight, id)

	if revertErr != nil {
		j.metrics.UndoCompleted(op.Kind.String(), false, time.Since(start))
		return ioError("undo failed", id, revertErr)
	}

	op.Status = StatusUndone
	op.CanUndo = false
	if err := j.store.Put(ctx, op); err != nil {
		return ioError("failed to persist undo", id, err)
	}

	j.metrics.UndoCompleted(op.Kind.String(), true, time.Since(start))
	logger.Info("Undid %s operation %s", op.Kind, op.ID)
	return nil
}

// revert dispatches on the payload type. Each branch is best-effort across
// its items: it keeps going after individual failures and reports them all.
func (j *Journal) revert(ctx context.Context, op *Operation) error {
	switch p := op.Payload.(type) {
	case CopyPayload:
		return j.revertCopy(ctx, p)
	case MovePayload:
		return j.revertMove(ctx, p)
	case DeletePayload:
		return j.revertDelete(ctx, op.ID, p)
	case RenamePayload:
		return j.revertRename(ctx, p)
	case CreatePayload:
		return j.fs.Remove(ctx, p.Path)
	case MkdirPayload:
		return j.fs.Remove(ctx, p.Path)
	default:
		return fmt.Errorf("unknown payload type %T", op.Payload)
	}
}

// revertCopy removes the items the copy created. Already-gone items are
// fine; the point is that the targets no longer exist.
func (j *Journal) revertCopy(ctx context.Context, p CopyPayload) error {
	var errs []error
	for _, created := range p.Created {
		exists, err := j.fs.Exists(ctx, created)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !exists {
			continue
		}
		if err := j.fs.Remove(ctx, created); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", created, err))
		}
	}
	return errors.Join(errs...)
}

// revertMove puts each moved item back where it came from.
func (j *Journal) revertMove(ctx context.Context, p MovePayload) error {
	var errs []error
	for i, moved := range p.Moved {
		original := p.Originals[i]

		exists, err := j.fs.Exists(ctx, moved)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !exists {
			errs = append(errs, fmt.Errorf("moved item %s no longer exists", moved))
			continue
		}

		if err := j.fs.MkdirAll(ctx, filepath.Dir(original), 0o755); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := j.fs.Move(ctx, moved, original); err != nil {
			errs = append(errs, fmt.Errorf("failed to move %s back to %s: %w", moved, original, err))
		}
	}
	return errors.Join(errs...)
}

// revertDelete restores deleted content, preferring on-disk backups and
// falling back to the in-memory snapshots captured at record time.
func (j *Journal) revertDelete(ctx context.Context, opID string, p DeletePayload) error {
	var errs []error

	// Directories first, deepest last is fine since MkdirAll creates
	// parents. This also resurrects empty directories no file restore
	// would recreate.
	for _, dir := range p.Dirs {
		if err := j.fs.MkdirAll(ctx, dir, 0o755); err != nil {
			errs = append(errs, fmt.Errorf("failed to recreate directory %s: %w", dir, err))
		}
	}

	restored := make(map[string]bool)

	if p.BackedUp && j.backups != nil {
		rels, err := j.backups.List(ctx, opID)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to list backups: %w", err))
		}
		for _, rel := range rels {
			target := restoreTarget(p.Paths, rel)
			if target == "" {
				errs = append(errs, fmt.Errorf("backup entry %s matches no deleted path", rel))
				continue
			}
			data, err := j.backups.Open(ctx, opID, rel)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if err := j.restoreFile(ctx, target, data); err != nil {
				errs = append(errs, err)
				continue
			}
			restored[target] = true
		}
	}

	// Snapshots cover whatever the backups did not.
	for target, data := range p.Snapshots {
		if restored[target] {
			continue
		}
		if err := j.restoreFile(ctx, target, data); err != nil {
			errs = append(errs, err)
			continue
		}
		restored[target] = true
	}

	if len(restored) == 0 && len(p.Snapshots) == 0 && !p.BackedUp && len(p.Dirs) == 0 {
		errs = append(errs, fmt.Errorf("no backup or snapshot available"))
	}

	return errors.Join(errs...)
}

func (j *Journal) restoreFile(ctx context.Context, target string, data []byte) error {
	if err := j.fs.MkdirAll(ctx, filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to recreate parent of %s: %w", target, err)
	}
	if err := j.fs.WriteFile(ctx, target, data, 0o644); err != nil {
		return fmt.Errorf("failed to restore %s: %w", target, err)
	}
	return nil
}

// revertRename renames back, provided the renamed file is still where the
// rename left it. If the user has since moved or deleted it there is
// nothing sensible to rename; that is reported, not silently skipped.
func (j *Journal) revertRename(ctx context.Context, p RenamePayload) error {
	exists, err := j.fs.Exists(ctx, p.NewPath)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("renamed item %s no longer exists", p.NewPath)
	}
	return j.fs.Rename(ctx, p.NewPath, p.OldPath)
}

// restoreTarget maps a backup-relative path back onto the filesystem. The
// first segment of rel is the basename of one of the deleted roots; the
// rest hangs off that root's parent.
func restoreTarget(paths []string, rel string) string {
	first := rel
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		first = rel[:i]
	}
	for _, p := range paths {
		if baseOf(p) == first {
			return filepath.Join(filepath.Dir(p), filepath.FromSlash(rel))
		}
	}
	return ""
}
