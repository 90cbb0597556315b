package query

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mcolletta/direx/pkg/fsio"
)

const (
	// maxHistory caps the search history; the oldest entries are dropped
	// silently past the cap.
	maxHistory = 50

	// maxSuggestions caps the suggestion list.
	maxSuggestions = 10
)

// Options controls a single search.
type Options struct {
	// CaseSensitive disables the default case-insensitive matching
	CaseSensitive bool

	// Pattern selects literal, wildcard or regex interpretation
	Pattern PatternType

	// IncludeHidden includes dotfiles in the result set
	IncludeHidden bool

	// SearchInContent is accepted for interface compatibility but ignored:
	// the engine searches filenames only.
	SearchInContent bool
}

// Result is one ranked search hit. Results are immutable once produced.
type Result struct {
	Item    fsio.Entry
	Matches []Match
	Score   float64
}

// Metrics is the instrumentation interface for search operations.
// Pass nil to New for no-op instrumentation.
type Metrics interface {
	// SearchCompleted records one finished search with its duration and
	// result count.
	SearchCompleted(duration time.Duration, results int)
}

type noopMetrics struct{}

func (noopMetrics) SearchCompleted(time.Duration, int) {}

// Engine is the query engine: it compiles queries, scores and ranks
// matches, and keeps bounded, most-recent-first search history.
//
// Thread Safety: safe for concurrent use.
type Engine struct {
	metrics Metrics

	mu      sync.Mutex
	history []string
}

// New creates a query engine.
func New(metrics Metrics) *Engine {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Engine{metrics: metrics}
}

// Search matches items against q, scores them and returns results sorted
// descending by score (stable, so ties keep discovery order).
//
// A blank query yields no results, not "match everything". An invalid
// pattern also yields no results. Hidden items are skipped unless
// opts.IncludeHidden is set. Non-blank queries are recorded in history.
func (e *Engine) Search(q string, items []fsio.Entry, opts Options) []Result {
	start := time.Now()

	if strings.TrimSpace(q) == "" {
		return nil
	}

	matcher := Compile(q, opts.Pattern, opts.CaseSensitive)
	if matcher == nil {
		return nil
	}

	e.AddToHistory(q)

	var results []Result
	for _, item := range items {
		if item.Hidden() && !opts.IncludeHidden {
			continue
		}

		matches := matcher.FindMatches(item.Name)
		if len(matches) == 0 {
			continue
		}

		results = append(results, Result{
			Item:    item,
			Matches: matches,
			Score:   Score(item, matches, q),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	e.metrics.SearchCompleted(time.Since(start), len(results))
	return results
}

// Score computes the relevance of a matched item.
//
// The formula is fixed so rankings stay reproducible:
//
//	10 × match count
//	+100 exact filename match (case-normalized)
//	+50  filename starts with the query
//	+30  per match starting at index 0
//	−0.1 × filename length
//	+5   regular file (not a directory)
//	+max(0, 10 − daysSinceModified) when modified within the last 7 days
//	floored at 0
func Score(item fsio.Entry, matches []Match, q string) float64 {
	score := 10 * float64(len(matches))

	nameNorm := strings.ToLower(item.Name)
	queryNorm := strings.ToLower(q)

	if nameNorm == queryNorm {
		score += 100
	}
	if strings.HasPrefix(nameNorm, queryNorm) {
		score += 50
	}
	for _, m := range matches {
		if m.Start == 0 {
			score += 30
		}
	}

	score -= 0.1 * float64(len(item.Name))

	if !item.IsDir {
		score += 5
	}

	if !item.ModTime.IsZero() {
		days := time.Since(item.ModTime).Hours() / 24
		if days >= 0 && days <= 7 {
			if bonus := 10 - days; bonus > 0 {
				score += bonus
			}
		}
	}

	if score < 0 {
		score = 0
	}
	return score
}

// AddToHistory records q most-recent-first. Re-adding an existing query
// moves it to the front instead of duplicating it.
func (e *Engine) AddToHistory(q string) {
	q = strings.TrimSpace(q)
	if q == "" {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for i, existing := range e.history {
		if existing == q {
			e.history = append(e.history[:i], e.history[i+1:]...)
			break
		}
	}

	e.history = append([]string{q}, e.history...)
	if len(e.history) > maxHistory {
		e.history = e.history[:maxHistory]
	}
}

// History returns a copy of the search history, most recent first.
func (e *Engine) History() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]string, len(e.history))
	copy(out, e.history)
	return out
}

// ClearHistory empties the search history.
func (e *Engine) ClearHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = nil
}

// Suggestions returns up to 10 completions for a partial query: history
// entries, filenames, and *.ext extension patterns whose prefix matches.
func (e *Engine) Suggestions(partial string, items []fsio.Entry) []string {
	partial = strings.ToLower(strings.TrimSpace(partial))
	if partial == "" {
		return nil
	}

	seen := make(map[string]bool)
	var out []string

	add := func(s string) {
		if len(out) >= maxSuggestions || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	for _, h := range e.History() {
		if strings.HasPrefix(strings.ToLower(h), partial) {
			add(h)
		}
	}

	for _, item := range items {
		if strings.HasPrefix(strings.ToLower(item.Name), partial) {
			add(item.Name)
		}
	}

	for _, item := range items {
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(item.Name)), ".")
		if ext == "" {
			continue
		}
		pattern := "*." + ext
		if strings.HasPrefix(ext, partial) || strings.HasPrefix(pattern, partial) {
			add(pattern)
		}
	}

	return out
}
