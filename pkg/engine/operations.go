package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/mcolletta/direx/internal/logger"
	"github.com/mcolletta/direx/pkg/journal"
	"github.com/mcolletta/direx/pkg/pager"
)

// copyBatchSize bounds how many sources are copied concurrently.
const copyBatchSize = 4

// Copy copies each source into targetDir and journals the operation.
// Returns the operation id for later undo.
//
// Sources are copied in small concurrent batches. The copy is best-effort:
// it keeps going after individual failures, journals what it actually
// created, and reports the failures. An operation with any failure is
// journaled as Failed and cannot be undone; the created items are listed
// in its payload for inspection.
func (e *Engine) Copy(ctx context.Context, sources []string, targetDir string) (string, error) {
	targetDir, err := e.checkPath(targetDir)
	if err != nil {
		return "", err
	}
	if err := e.checkPaths(sources); err != nil {
		return "", err
	}

	results, copyErr := pager.ProcessBatch(ctx, sources,
		func(ctx context.Context, src string) (string, error) {
			dst := filepath.Join(targetDir, filepath.Base(src))
			if err := e.fs.Copy(ctx, src, dst); err != nil {
				return "", fmt.Errorf("failed to copy %s: %w", src, err)
			}
			return dst, nil
		}, copyBatchSize, 0)

	var created []string
	for _, dst := range results {
		if dst != "" {
			created = append(created, dst)
		}
	}

	opID, recErr := e.journal.RecordCopy(ctx, sources, targetDir, created)
	if recErr != nil {
		return "", recErr
	}

	e.finish(ctx, opID, copyErr)
	e.Invalidate(targetDir)

	return opID, copyErr
}

// Move moves each source into targetDir and journals the operation.
func (e *Engine) Move(ctx context.Context, sources []string, targetDir string) (string, error) {
	targetDir, err := e.checkPath(targetDir)
	if err != nil {
		return "", err
	}
	if err := e.checkPaths(sources); err != nil {
		return "", err
	}

	var originals, moved []string
	var errs []error
	for _, src := range sources {
		dst := filepath.Join(targetDir, filepath.Base(src))
		if err := e.fs.Move(ctx, src, dst); err != nil {
			errs = append(errs, fmt.Errorf("failed to move %s: %w", src, err))
			continue
		}
		originals = append(originals, src)
		moved = append(moved, dst)
	}

	opID, recErr := e.journal.RecordMove(ctx, sources, targetDir, originals, moved)
	if recErr != nil {
		return "", recErr
	}

	e.finish(ctx, opID, errors.Join(errs...))
	e.Invalidate(targetDir)
	for _, src := range sources {
		e.Invalidate(filepath.Dir(src))
	}

	return opID, errors.Join(errs...)
}

// Delete removes the given paths (recursively for directories), journaling
// them with backups first so the deletion can be undone.
func (e *Engine) Delete(ctx context.Context, paths []string) (string, error) {
	if err := e.checkPaths(paths); err != nil {
		return "", err
	}

	// Capture state before anything is removed.
	opID, err := e.journal.RecordDelete(ctx, paths)
	if err != nil {
		return "", err
	}

	var errs []error
	for _, p := range paths {
		if err := e.fs.Remove(ctx, p); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", p, err))
		}
	}

	e.finish(ctx, opID, errors.Join(errs...))
	for _, p := range paths {
		e.Invalidate(filepath.Dir(p))
	}

	return opID, errors.Join(errs...)
}

// Rename renames oldPath to newPath and journals the operation.
func (e *Engine) Rename(ctx context.Context, oldPath, newPath string) (string, error) {
	oldPath, err := e.checkPath(oldPath)
	if err != nil {
		return "", err
	}
	newPath, err = e.checkPath(newPath)
	if err != nil {
		return "", err
	}

	renameErr := e.fs.Rename(ctx, oldPath, newPath)

	opID, recErr := e.journal.RecordRename(ctx, oldPath, newPath)
	if recErr != nil {
		return "", recErr
	}

	e.finish(ctx, opID, renameErr)
	e.Invalidate(filepath.Dir(oldPath))
	e.Invalidate(filepath.Dir(newPath))

	return opID, renameErr
}

// CreateFile writes a new file and journals the operation.
func (e *Engine) CreateFile(ctx context.Context, p string, content []byte) (string, error) {
	p, err := e.checkPath(p)
	if err != nil {
		return "", err
	}

	if exists, err := e.fs.Exists(ctx, p); err != nil {
		return "", err
	} else if exists {
		return "", fmt.Errorf("%s already exists", p)
	}

	writeErr := e.fs.WriteFile(ctx, p, content, 0o644)

	opID, recErr := e.journal.RecordCreate(ctx, p, content)
	if recErr != nil {
		return "", recErr
	}

	e.finish(ctx, opID, writeErr)
	e.Invalidate(filepath.Dir(p))

	return opID, writeErr
}

// CreateDir creates a directory (with parents) and journals the operation.
func (e *Engine) CreateDir(ctx context.Context, p string) (string, error) {
	p, err := e.checkPath(p)
	if err != nil {
		return "", err
	}

	if exists, err := e.fs.Exists(ctx, p); err != nil {
		return "", err
	} else if exists {
		return "", fmt.Errorf("%s already exists", p)
	}

	mkErr := e.fs.MkdirAll(ctx, p, 0o755)

	opID, recErr := e.journal.RecordMkdir(ctx, p)
	if recErr != nil {
		return "", recErr
	}

	e.finish(ctx, opID, mkErr)
	e.Invalidate(filepath.Dir(p))

	return opID, mkErr
}

// Undo reverses a completed operation and invalidates the listings it
// touched.
func (e *Engine) Undo(ctx context.Context, opID string) error {
	op, err := e.journal.Get(ctx, opID)
	if err != nil {
		return err
	}

	if err := e.journal.Undo(ctx, opID); err != nil {
		return err
	}

	for _, dir := range affectedDirs(op) {
		e.Invalidate(dir)
	}
	return nil
}

// finish moves a freshly recorded operation to its terminal status based
// on the I/O outcome. Journal bookkeeping failures are logged, not
// propagated; the filesystem result is what the caller cares about.
func (e *Engine) finish(ctx context.Context, opID string, opErr error) {
	status := journal.StatusCompleted
	if opErr != nil {
		status = journal.StatusFailed
	}
	if err := e.journal.UpdateStatus(ctx, opID, status, opErr); err != nil {
		logger.Error("Failed to update status of operation %s: %v", opID, err)
	}
}

func (e *Engine) checkPaths(paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("no paths given")
	}
	for _, p := range paths {
		if _, err := e.checkPath(p); err != nil {
			return err
		}
	}
	return nil
}

// affectedDirs lists the directories whose listings an undo changes.
func affectedDirs(op *journal.Operation) []string {
	switch p := op.Payload.(type) {
	case journal.CopyPayload:
		return []string{p.TargetDir}
	case journal.MovePayload:
		dirs := []string{p.TargetDir}
		for _, orig := range p.Originals {
			dirs = append(dirs, filepath.Dir(orig))
		}
		return dirs
	case journal.DeletePayload:
		dirs := make([]string, 0, len(p.Paths))
		for _, path := range p.Paths {
			dirs = append(dirs, filepath.Dir(path))
		}
		return dirs
	case journal.RenamePayload:
		return []string{filepath.Dir(p.OldPath), filepath.Dir(p.NewPath)}
	case journal.CreatePayload:
		return []string{filepath.Dir(p.Path)}
	case journal.MkdirPayload:
		return []string{filepath.Dir(p.Path)}
	default:
		return nil
	}
}
