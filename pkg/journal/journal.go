package journal

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcolletta/direx/internal/logger"
	"github.com/mcolletta/direx/pkg/fsio"
	"github.com/mcolletta/direx/pkg/journal/backup"
)

// DefaultSnapshotLimit is the per-file size threshold for in-memory
// snapshots of deleted content (1 MiB).
const DefaultSnapshotLimit = 1 << 20

// Config holds journal construction options.
type Config struct {
	// MaxHistory bounds the journal; oldest operations are evicted first
	// once the size is exceeded (default: 100)
	MaxHistory int

	// SnapshotLimit is the max file size captured in memory on delete
	// (default: 1 MiB)
	SnapshotLimit int64
}

// Journal records reversible file operations and undoes them on request.
//
// Thread Safety:
// The operation store and in-flight set are guarded by a single mutex.
// Undo I/O runs outside the lock; the in-flight set keeps eviction and the
// age sweep away from an operation that is currently being undone.
type Journal struct {
	fs      fsio.FileSystem
	store   Store
	backups backup.Store
	cfg     Config
	metrics Metrics

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New creates a journal. backups may be nil, in which case deletes are
// protected by in-memory snapshots only. Pass nil metrics for no-op
// instrumentation.
func New(fs fsio.FileSystem, st Store, backups backup.Store, cfg Config, metrics Metrics) *Journal {
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = 100
	}
	if cfg.SnapshotLimit <= 0 {
		cfg.SnapshotLimit = DefaultSnapshotLimit
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &Journal{
		fs:       fs,
		store:    st,
		backups:  backups,
		cfg:      cfg,
		metrics:  metrics,
		inFlight: make(map[string]struct{}),
	}
}

// RecordCopy journals a copy of sources into targetDir. created lists the
// paths the copy actually produced; undo removes exactly those.
func (j *Journal) RecordCopy(ctx context.Context, sources []string, targetDir string, created []string) (string, error) {
	return j.record(ctx, KindCopy,
		describe(KindCopy, fmt.Sprintf("%d item(s) to %s", len(sources), targetDir)),
		CopyPayload{Sources: sources, TargetDir: targetDir, Created: created})
}

// RecordMove journals a move. moved[i] is the new location of originals[i].
func (j *Journal) RecordMove(ctx context.Context, sources []string, targetDir string, originals, moved []string) (string, error) {
	if len(originals) != len(moved) {
		return "", fmt.Errorf("originals and moved must pair up: %d != %d", len(originals), len(moved))
	}
	return j.record(ctx, KindMove,
		describe(KindMove, fmt.Sprintf("%d item(s) to %s", len(sources), targetDir)),
		MovePayload{Sources: sources, TargetDir: targetDir, Originals: originals, Moved: moved})
}

// RecordDelete journals a deletion of paths. It must be called BEFORE the
// caller deletes anything: it snapshots the current content into the backup
// store (under <opID>/<basename>) and keeps files under the snapshot limit
// in memory as well, so undo can restore even if the backups are purged.
func (j *Journal) RecordDelete(ctx context.Context, paths []string) (string, error) {
	payload := DeletePayload{
		Paths:     paths,
		Snapshots: make(map[string][]byte),
	}

	opID := uuid.NewString()

	for _, p := range paths {
		if err := j.captureForDelete(ctx, opID, p, &payload); err != nil {
			return "", fmt.Errorf("failed to capture state for delete of %s: %w", p, err)
		}
	}

	op := &Operation{
		ID:          opID,
		Kind:        KindDelete,
		CreatedAt:   time.Now(),
		Status:      StatusPending,
		Description: describe(KindDelete, fmt.Sprintf("%d item(s)", len(paths))),
		CanUndo:     true,
		Payload:     payload,
	}

	return op.ID, j.put(ctx, op)
}

// captureForDelete snapshots one to-be-deleted path into the backup store
// and the in-memory snapshot map.
func (j *Journal) captureForDelete(ctx context.Context, opID, p string, payload *DeletePayload) error {
	entry, err := j.fs.Stat(ctx, p)
	if err != nil {
		return err
	}

	if !entry.IsDir {
		return j.captureFile(ctx, opID, p, baseOf(p), entry.Size, payload)
	}

	payload.Dirs = append(payload.Dirs, p)
	children, err := j.fs.ReadDir(ctx, p)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := j.captureSubtree(ctx, opID, child, baseOf(p)+"/"+child.Name, payload); err != nil {
			return err
		}
	}
	return nil
}

func (j *Journal) captureSubtree(ctx context.Context, opID string, entry fsio.Entry, rel string, payload *DeletePayload) error {
	if entry.IsDir {
		payload.Dirs = append(payload.Dirs, entry.Path)
		children, err := j.fs.ReadDir(ctx, entry.Path)
		if err != nil {
			return err
		}
		for _, child := range children {
			if err := j.captureSubtree(ctx, opID, child, rel+"/"+child.Name, payload); err != nil {
				return err
			}
		}
		return nil
	}
	return j.captureFile(ctx, opID, entry.Path, rel, entry.Size, payload)
}

func (j *Journal) captureFile(ctx context.Context, opID, p, rel string, size int64, payload *DeletePayload) error {
	data, err := j.fs.ReadFile(ctx, p)
	if err != nil {
		return err
	}

	if size <= j.cfg.SnapshotLimit {
		payload.Snapshots[p] = data
	}

	if j.backups == nil {
		return nil
	}
	if err := j.backups.Save(ctx, opID, rel, data); err != nil {
		// Backups are an extra safety net; the in-memory snapshot may
		// still cover the file.
		logger.Warn("Failed to back up %s for operation %s: %v", p, opID, err)
		return nil
	}
	payload.BackedUp = true
	return nil
}

// RecordRename journals a rename from oldPath to newPath.
func (j *Journal) RecordRename(ctx context.Context, oldPath, newPath string) (string, error) {
	return j.record(ctx, KindRename,
		describe(KindRename, fmt.Sprintf("%s to %s", baseOf(oldPath), baseOf(newPath))),
		RenamePayload{OldPath: oldPath, NewPath: newPath})
}

// RecordCreate journals a file creation.
func (j *Journal) RecordCreate(ctx context.Context, path string, content []byte) (string, error) {
	return j.record(ctx, KindCreate, describe(KindCreate, baseOf(path)),
		CreatePayload{Path: path, Content: content})
}

// RecordMkdir journals a folder creation.
func (j *Journal) RecordMkdir(ctx context.Context, path string) (string, error) {
	return j.record(ctx, KindMkdir, describe(KindMkdir, baseOf(path)),
		MkdirPayload{Path: path})
}

func (j *Journal) record(ctx context.Context, kind Kind, description string, payload Payload) (string, error) {
	op := &Operation{
		ID:          uuid.NewString(),
		Kind:        kind,
		CreatedAt:   time.Now(),
		Status:      StatusPending,
		Description: description,
		CanUndo:     true,
		Payload:     payload,
	}
	return op.ID, j.put(ctx, op)
}

func (j *Journal) put(ctx context.Context, op *Operation) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.store.Put(ctx, op); err != nil {
		return fmt.Errorf("failed to journal %s operation: %w", op.Kind, err)
	}
	j.metrics.OperationRecorded(op.Kind.String())
	j.evictLocked(ctx)
	return nil
}

// UpdateStatus moves an operation through its lifecycle. The caller reports
// the outcome of the actual file I/O here; a Failed operation records the
// error and becomes permanently irreversible.
func (j *Journal) UpdateStatus(ctx context.Context, id string, status Status, opErr error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	op, err := j.store.Get(ctx, id)
	if err != nil {
		return ioError("failed to load operation", id, err)
	}
	if op == nil {
		return newError(ErrNotFound, "operation not found", id)
	}

	if !validTransition(op.Status, status) {
		return newError(ErrInvalidTransition,
			fmt.Sprintf("cannot transition from %s to %s", op.Status, status), id)
	}

	op.Status = status
	if status == StatusFailed {
		op.CanUndo = false
		if opErr != nil {
			op.Err = opErr.Error()
		}
	}
	if status == StatusUndone {
		op.CanUndo = false
	}

	if err := j.store.Put(ctx, op); err != nil {
		return ioError("failed to persist status update", id, err)
	}
	return nil
}

func validTransition(from, to Status) bool {
	if from.terminal() {
		return false
	}
	switch from {
	case StatusPending:
		return to == StatusInProgress || to == StatusCompleted || to == StatusFailed
	case StatusInProgress:
		return to == StatusCompleted || to == StatusFailed
	case StatusCompleted:
		return to == StatusUndone
	default:
		return false
	}
}

// Get returns the operation with the given id.
func (j *Journal) Get(ctx context.Context, id string) (*Operation, error) {
	op, err := j.store.Get(ctx, id)
	if err != nil {
		return nil, ioError("failed to load operation", id, err)
	}
	if op == nil {
		return nil, newError(ErrNotFound, "operation not found", id)
	}
	return op, nil
}

// History returns operations most-recent-first. limit <= 0 means all.
func (j *Journal) History(ctx context.Context, limit int) ([]*Operation, error) {
	ops, err := j.store.List(ctx)
	if err != nil {
		return nil, ioError("failed to list operations", "", err)
	}

	// Reverse: the store lists oldest-first.
	out := make([]*Operation, 0, len(ops))
	for i := len(ops) - 1; i >= 0; i-- {
		out = append(out, ops[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Undoable returns the undoable subset of History: completed operations
// whose CanUndo flag is still set.
func (j *Journal) Undoable(ctx context.Context, limit int) ([]*Operation, error) {
	ops, err := j.History(ctx, 0)
	if err != nil {
		return nil, err
	}

	var out []*Operation
	for _, op := range ops {
		if op.Status == StatusCompleted && op.CanUndo {
			out = append(out, op)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// Expire removes operations recorded before cutoff, best-effort cleaning
// their backups. Operations currently being undone are skipped. Returns
// (scanned, removed, failed).
func (j *Journal) Expire(ctx context.Context, cutoff time.Time) (int, int, int) {
	j.mu.Lock()
	defer j.mu.Unlock()

	ops, err := j.store.List(ctx)
	if err != nil {
		logger.Error("Journal expiry failed to list operations: %v", err)
		return 0, 0, 0
	}

	removed, failed := 0, 0
	for _, op := range ops {
		if !op.CreatedAt.Before(cutoff) {
			continue
		}
		if _, busy := j.inFlight[op.ID]; busy {
			continue
		}
		if err := j.removeLocked(ctx, op, "age"); err != nil {
			failed++
			continue
		}
		removed++
	}
	return len(ops), removed, failed
}

// evictLocked drops oldest operations until the journal fits MaxHistory.
// Must be called with j.mu held.
func (j *Journal) evictLocked(ctx context.Context) {
	for {
		n, err := j.store.Len(ctx)
		if err != nil || n <= j.cfg.MaxHistory {
			return
		}

		ops, err := j.store.List(ctx)
		if err != nil {
			logger.Error("Journal eviction failed to list operations: %v", err)
			return
		}

		evicted := false
		for _, op := range ops {
			if _, busy := j.inFlight[op.ID]; busy {
				continue
			}
			if err := j.removeLocked(ctx, op, "size"); err == nil {
				evicted = true
			}
			break
		}
		if !evicted {
			return
		}
	}
}

// removeLocked deletes one operation and best-effort cleans its backups.
// Cleanup failures are logged and swallowed; they must never block the
// primary outcome. Must be called with j.mu held.
func (j *Journal) removeLocked(ctx context.Context, op *Operation, reason string) error {
	if err := j.store.Delete(ctx, op.ID); err != nil {
		logger.Error("Failed to evict operation %s: %v", op.ID, err)
		return err
	}

	if op.Kind == KindDelete && j.backups != nil {
		if err := j.backups.Remove(ctx, op.ID); err != nil {
			logger.Warn("Failed to clean up backups for evicted operation %s: %v", op.ID, err)
		}
	}

	j.metrics.OperationEvicted(reason)
	logger.Debug("Evicted %s operation %s (%s)", op.Kind, op.ID, reason)
	return nil
}

func baseOf(p string) string {
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}
