// Package watcher invalidates cached directory listings when the underlying
// filesystem changes.
//
// It watches a directory tree recursively via fsnotify and reports the
// parent directory of every change, which is exactly the granularity the
// listing cache works at. New subdirectories are added to the watch set as
// they appear.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/mcolletta/direx/internal/logger"
)

// Watcher forwards filesystem change events as directory invalidations.
//
// Thread Safety: Safe for concurrent use. The onChange callback is invoked
// from the watcher goroutine and must be safe to call concurrently with
// everything else.
type Watcher struct {
	fsw      *fsnotify.Watcher
	root     string
	onChange func(dir string)
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New creates a watcher over the tree rooted at root. onChange receives the
// directory whose contents changed.
//
// The watcher is initialized but not started. Call Start() to begin
// receiving events.
func New(root string, onChange func(dir string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		root:     root,
		onChange: onChange,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	if err := w.addRecursive(root); err != nil {
		fsw.Close()
		return nil, err
	}

	return w, nil
}

// addRecursive watches dir and every directory below it.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal; the rest of
			// the tree still gets watched.
			logger.Warn("Watcher skipping %s: %v", path, err)
			return fs.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			logger.Warn("Failed to watch %s: %v", path, err)
		}
		return nil
	})
}

// Start begins forwarding events. Runs until Stop() is called.
func (w *Watcher) Start() {
	logger.Info("Starting filesystem watcher: root=%s", w.root)
	go w.worker()
}

// Stop stops the watcher and waits for the worker to finish.
//
// Returns an error if the context expires before shutdown completes.
func (w *Watcher) Stop(ctx context.Context) error {
	close(w.stopCh)
	w.fsw.Close()

	select {
	case <-w.doneCh:
		logger.Info("Filesystem watcher stopped")
		return nil
	case <-ctx.Done():
		logger.Warn("Filesystem watcher shutdown timeout")
		return ctx.Err()
	}
}

// worker is the background goroutine that forwards events.
func (w *Watcher) worker() {
	defer close(w.doneCh)

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("Filesystem watcher error: %v", err)

		case <-w.stopCh:
			return
		}
	}
}

// handle maps one fsnotify event to a directory invalidation.
func (w *Watcher) handle(event fsnotify.Event) {
	// Whatever happened to the path, its parent's listing is stale.
	dir := filepath.Dir(event.Name)
	logger.Debug("Filesystem change: %s (%s), invalidating %s", event.Name, event.Op, dir)
	w.onChange(dir)

	// New directories need to join the watch set, and their (initially
	// empty) listings may already be cached as misses elsewhere.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				logger.Warn("Failed to watch new directory %s: %v", event.Name, err)
			}
		}
	}
}
