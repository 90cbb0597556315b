// Package engine composes the directory cache, pager, query engine and
// operation journal into a single file-explorer backend.
//
// The engine is the only surface callers need: it serves paginated
// directory listings, runs debounced searches, performs journaled file
// operations and undoes them. All mutating operations invalidate the
// affected cached listings.
package engine

import (
	"context"
	"fmt"
	"iter"
	"path/filepath"
	"strings"
	"time"

	"github.com/mcolletta/direx/internal/logger"
	"github.com/mcolletta/direx/pkg/cache"
	"github.com/mcolletta/direx/pkg/config"
	"github.com/mcolletta/direx/pkg/fsio"
	"github.com/mcolletta/direx/pkg/journal"
	"github.com/mcolletta/direx/pkg/journal/backup"
	"github.com/mcolletta/direx/pkg/pager"
	"github.com/mcolletta/direx/pkg/query"
)

// Options carries the engine's dependencies. FS, JournalStore and
// BackupStore are built by the config factories (or handed in directly by
// tests); the metrics fields may be nil for no-op instrumentation.
type Options struct {
	FS             fsio.FileSystem
	JournalStore   journal.Store
	BackupStore    backup.Store
	CacheMetrics   cache.Metrics
	QueryMetrics   query.Metrics
	JournalMetrics journal.Metrics
}

// Engine is the file-explorer backend.
//
// Thread Safety: Safe for concurrent use.
type Engine struct {
	root string
	fs   fsio.FileSystem

	entries   *cache.Cache[string, fsio.Entry]
	pager     *pager.Pager
	query     *query.Engine
	debouncer *query.Debouncer
	journal   *journal.Journal
	sweeper   *journal.Sweeper

	entryTTL     time.Duration
	defaultQuery query.Options
}

// New creates an engine from configuration and dependencies.
func New(cfg *config.Config, opts Options) (*Engine, error) {
	if opts.FS == nil {
		return nil, fmt.Errorf("filesystem is required")
	}
	if opts.JournalStore == nil {
		return nil, fmt.Errorf("journal store is required")
	}

	root := filepath.Clean(cfg.Server.Root)

	j := journal.New(opts.FS, opts.JournalStore, opts.BackupStore, journal.Config{
		MaxHistory:    cfg.Journal.MaxHistory,
		SnapshotLimit: cfg.Journal.SnapshotLimit,
	}, opts.JournalMetrics)

	q := query.New(opts.QueryMetrics)

	e := &Engine{
		root: root,
		fs:   opts.FS,
		entries: cache.New[string, fsio.Entry](cache.Config{
			MaxEntries:    cfg.Cache.MaxEntries,
			SweepInterval: cfg.Cache.SweepInterval,
		}, opts.CacheMetrics),
		pager: pager.New(opts.FS, pager.Config{
			TTL:        cfg.Cache.TTL,
			MaxEntries: cfg.Cache.MaxEntries,
		}, opts.CacheMetrics),
		query:     q,
		debouncer: query.NewDebouncer(q, cfg.Query.Debounce),
		journal:   j,
		sweeper: journal.NewSweeper(j, journal.SweeperConfig{
			Enabled:      cfg.Journal.Sweep.Enabled,
			Interval:     cfg.Journal.Sweep.Interval,
			RetentionAge: cfg.Journal.Sweep.RetentionAge,
		}),
		entryTTL: cfg.Cache.TTL,
		defaultQuery: query.Options{
			CaseSensitive: cfg.Query.CaseSensitive,
			IncludeHidden: cfg.Query.IncludeHidden,
		},
	}

	e.sweeper.Start()

	logger.Info("Engine initialized: root=%s page_size=%d cache_ttl=%s",
		root, cfg.Pager.PageSize, cfg.Cache.TTL)

	return e, nil
}

// Root returns the directory the engine serves.
func (e *Engine) Root() string {
	return e.root
}

// checkPath rejects paths outside the engine's root.
func (e *Engine) checkPath(p string) (string, error) {
	cleaned := filepath.Clean(p)
	if cleaned != e.root && !strings.HasPrefix(cleaned, withSep(e.root)) {
		return "", fmt.Errorf("path %s is outside root %s", p, e.root)
	}
	return cleaned, nil
}

func withSep(dir string) string {
	if strings.HasSuffix(dir, string(filepath.Separator)) {
		return dir
	}
	return dir + string(filepath.Separator)
}

// GetPage returns one page of dir's entries.
func (e *Engine) GetPage(ctx context.Context, dir string, pageIndex, pageSize int) (pager.DirectoryPage, error) {
	dir, err := e.checkPath(dir)
	if err != nil {
		return pager.DirectoryPage{}, err
	}
	return e.pager.GetPage(ctx, dir, pageIndex, pageSize), nil
}

// Pages returns a lazy sequence over all of dir's pages.
func (e *Engine) Pages(ctx context.Context, dir string, pageSize int) (iter.Seq[pager.DirectoryPage], error) {
	dir, err := e.checkPath(dir)
	if err != nil {
		return nil, err
	}
	return e.pager.Pages(ctx, dir, pageSize), nil
}

// Entry returns metadata for a single path, cached with the same TTL as
// listings. Concurrent lookups of the same path share one Stat call.
func (e *Engine) Entry(ctx context.Context, p string) (fsio.Entry, error) {
	p, err := e.checkPath(p)
	if err != nil {
		return fsio.Entry{}, err
	}

	return e.entries.GetOrLoad(ctx, p, func(ctx context.Context) (fsio.Entry, error) {
		return e.fs.Stat(ctx, p)
	}, e.entryTTL)
}

// Search runs a debounced search over dir's entries. When recursive is set
// the whole subtree below dir is searched.
//
// Rapid successive calls within the debounce window supersede each other;
// superseded calls fail with query.ErrSuperseded.
func (e *Engine) Search(ctx context.Context, q, dir string, recursive bool) ([]query.Result, error) {
	dir, err := e.checkPath(dir)
	if err != nil {
		return nil, err
	}

	items, err := e.collect(ctx, dir, recursive)
	if err != nil {
		return nil, err
	}

	opts := e.defaultQuery
	return e.debouncer.Search(ctx, q, items, opts)
}

// collect gathers the entries to search over.
func (e *Engine) collect(ctx context.Context, dir string, recursive bool) ([]fsio.Entry, error) {
	var items []fsio.Entry
	for page := range e.pager.Pages(ctx, dir, 0) {
		if page.Err != nil {
			return nil, page.Err
		}
		items = append(items, page.Items...)
	}

	if !recursive {
		return items, nil
	}

	// Walk subdirectories breadth-first; unreadable ones are skipped so a
	// single bad directory cannot kill the whole search.
	queue := make([]string, 0)
	for _, it := range items {
		if it.IsDir {
			queue = append(queue, it.Path)
		}
	}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sub := queue[0]
		queue = queue[1:]

		children, err := e.fs.ReadDir(ctx, sub)
		if err != nil {
			logger.Debug("Search skipping unreadable directory %s: %v", sub, err)
			continue
		}
		for _, child := range children {
			items = append(items, child)
			if child.IsDir {
				queue = append(queue, child.Path)
			}
		}
	}

	return items, nil
}

// Suggestions returns completion suggestions for a partial query, drawn
// from search history and dir's entries.
func (e *Engine) Suggestions(ctx context.Context, partial, dir string) ([]string, error) {
	dir, err := e.checkPath(dir)
	if err != nil {
		return nil, err
	}

	items, err := e.collect(ctx, dir, false)
	if err != nil {
		return nil, err
	}
	return e.query.Suggestions(partial, items), nil
}

// SearchHistory returns past queries, most recent first.
func (e *Engine) SearchHistory() []string {
	return e.query.History()
}

// ClearSearchHistory drops all remembered queries.
func (e *Engine) ClearSearchHistory() {
	e.query.ClearHistory()
}

// Invalidate drops cached state under dir. Invalidating the root clears
// everything.
func (e *Engine) Invalidate(dir string) {
	dir = filepath.Clean(dir)

	if dir == e.root {
		e.pager.Clear()
		e.entries.Clear()
		return
	}

	e.pager.Invalidate(dir)

	prefix := withSep(dir)
	e.entries.InvalidateFunc(func(p string) bool {
		return p == dir || strings.HasPrefix(p, prefix)
	})
}

// History returns journaled operations, most recent first. limit <= 0
// means all.
func (e *Engine) History(ctx context.Context, limit int) ([]*journal.Operation, error) {
	return e.journal.History(ctx, limit)
}

// Undoable returns the operations that can currently be undone.
func (e *Engine) Undoable(ctx context.Context, limit int) ([]*journal.Operation, error) {
	return e.journal.Undoable(ctx, limit)
}

// Close shuts the engine down, stopping its background workers.
func (e *Engine) Close(ctx context.Context) error {
	e.debouncer.Stop()

	err := e.sweeper.Stop(ctx)

	e.pager.Close()
	e.entries.Close()

	return err
}
