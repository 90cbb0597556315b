// Package pager splits directory listings into fixed-size pages so the UI
// can walk arbitrarily large directories without materializing them.
//
// Pages and full listings are both served through the TTL cache; full
// listings are additionally loaded under singleflight so that a burst of
// page requests for a cold directory issues exactly one ReadDir.
package pager

import (
	"context"
	"iter"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mcolletta/direx/internal/logger"
	"github.com/mcolletta/direx/pkg/cache"
	"github.com/mcolletta/direx/pkg/fsio"
)

// DefaultPageSize is used when a caller passes a non-positive page size.
const DefaultPageSize = 100

// PageKey identifies one cached page. A structured key, not a formatted
// string, so directory paths cannot collide with page parameters.
type PageKey struct {
	Dir       string
	PageIndex int
	PageSize  int
}

// DirectoryPage is one fixed-size window over a directory listing.
//
// Invariants: len(Items) == min(PageSize, TotalCount-PageIndex*PageSize)
// and HasMore == (PageIndex*PageSize + len(Items) < TotalCount).
//
// An unreadable directory yields an empty page (TotalCount=0, HasMore=false)
// with Err set, so callers can distinguish "empty" from "cannot read".
type DirectoryPage struct {
	Items      []fsio.Entry
	TotalCount int
	PageIndex  int
	HasMore    bool
	Err        error
}

// Names returns the entry names of the page, in page order.
func (p DirectoryPage) Names() []string {
	names := make([]string, len(p.Items))
	for i, item := range p.Items {
		names[i] = item.Name
	}
	return names
}

// Config holds pagination construction options.
type Config struct {
	// TTL is how long cached pages and listings remain valid
	TTL time.Duration

	// MaxEntries bounds each of the two internal caches
	MaxEntries int
}

// Pager is the pagination engine.
type Pager struct {
	fs  fsio.FileSystem
	ttl time.Duration

	pages    *cache.Cache[PageKey, DirectoryPage]
	listings *cache.Cache[string, []fsio.Entry]

	// group coalesces full-listing loads per directory path.
	group singleflight.Group
}

// New creates a pagination engine over fs. Pass nil metrics for no-op
// instrumentation of the underlying caches.
func New(fs fsio.FileSystem, cfg Config, metrics cache.Metrics) *Pager {
	if cfg.TTL == 0 {
		cfg.TTL = 5 * time.Second
	}

	return &Pager{
		fs:       fs,
		ttl:      cfg.TTL,
		pages:    cache.New[PageKey, DirectoryPage](cache.Config{MaxEntries: cfg.MaxEntries}, metrics),
		listings: cache.New[string, []fsio.Entry](cache.Config{MaxEntries: cfg.MaxEntries}, metrics),
	}
}

// GetPage returns one page of dir's entries, sorted by name.
//
// Repeated requests for the same (dir, pageIndex, pageSize) are served from
// cache until the TTL elapses or the directory is invalidated.
func (p *Pager) GetPage(ctx context.Context, dir string, pageIndex, pageSize int) DirectoryPage {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageIndex < 0 {
		pageIndex = 0
	}

	key := PageKey{Dir: dir, PageIndex: pageIndex, PageSize: pageSize}
	if page, ok := p.pages.Get(key); ok {
		return page
	}

	entries, err := p.listing(ctx, dir)
	if err != nil {
		// Degrade to an empty page so the UI stays responsive; the error
		// rides along on the page instead of being swallowed.
		logger.Warn("Failed to read directory %s: %v", dir, err)
		return DirectoryPage{PageIndex: pageIndex, Err: err}
	}

	page := slicePage(entries, pageIndex, pageSize)
	p.pages.Set(key, page, p.ttl)
	return page
}

func slicePage(entries []fsio.Entry, pageIndex, pageSize int) DirectoryPage {
	total := len(entries)
	start := pageIndex * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	items := make([]fsio.Entry, end-start)
	copy(items, entries[start:end])

	return DirectoryPage{
		Items:      items,
		TotalCount: total,
		PageIndex:  pageIndex,
		HasMore:    end < total,
	}
}

// listing returns the full sorted listing of dir, loading it at most once
// per directory regardless of how many pages are requested concurrently.
func (p *Pager) listing(ctx context.Context, dir string) ([]fsio.Entry, error) {
	if entries, ok := p.listings.Get(dir); ok {
		return entries, nil
	}

	v, err, _ := p.group.Do(dir, func() (any, error) {
		entries, err := p.fs.ReadDir(ctx, dir)
		if err != nil {
			return nil, err
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		p.listings.Set(dir, entries, p.ttl)
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]fsio.Entry), nil
}

// Pages returns a restartable lazy sequence over all pages of dir. Each
// page is loaded only when the consumer pulls it; iteration stops after the
// first page with HasMore=false (including degraded error pages).
func (p *Pager) Pages(ctx context.Context, dir string, pageSize int) iter.Seq[DirectoryPage] {
	return func(yield func(DirectoryPage) bool) {
		for i := 0; ; i++ {
			page := p.GetPage(ctx, dir, i, pageSize)
			if !yield(page) {
				return
			}
			if !page.HasMore {
				return
			}
		}
	}
}

// Invalidate drops every cached page and the cached listing for dir.
func (p *Pager) Invalidate(dir string) {
	p.listings.Invalidate(dir)
	p.pages.InvalidateFunc(func(k PageKey) bool { return k.Dir == dir })
}

// Clear drops all cached pages and listings.
func (p *Pager) Clear() {
	p.listings.Clear()
	p.pages.Clear()
}

// Close releases the internal caches.
func (p *Pager) Close() {
	p.listings.Close()
	p.pages.Close()
}
