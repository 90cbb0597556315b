package query

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcolletta/direx/pkg/fsio"
)

func files(names ...string) []fsio.Entry {
	items := make([]fsio.Entry, len(names))
	for i, n := range names {
		items[i] = fsio.Entry{Name: n, Path: "/" + n}
	}
	return items
}

func names(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Item.Name
	}
	return out
}

func TestSearch_Literal(t *testing.T) {
	e := New(nil)

	results := e.Search("test.js", files("test.js", "app.js"), Options{})
	assert.Equal(t, []string{"test.js"}, names(results))
}

func TestSearch_Wildcard(t *testing.T) {
	e := New(nil)

	results := e.Search("*.js", files("test.js", "app.js", "test.ts"), Options{Pattern: PatternWildcard})
	assert.ElementsMatch(t, []string{"test.js", "app.js"}, names(results))
}

func TestSearch_WildcardMatchesWholeName(t *testing.T) {
	e := New(nil)

	// "t?st" must not match "contest" because wildcards are anchored.
	results := e.Search("t?st", files("test", "contest"), Options{Pattern: PatternWildcard})
	assert.Equal(t, []string{"test"}, names(results))
}

func TestCompile_InvalidRegexIsNil(t *testing.T) {
	m := Compile("[invalid", PatternRegex, false)
	assert.Nil(t, m)

	e := New(nil)
	results := e.Search("[invalid", files("a.txt"), Options{Pattern: PatternRegex})
	assert.Empty(t, results)
}

func TestSearch_BlankQuery(t *testing.T) {
	e := New(nil)

	assert.Empty(t, e.Search("", files("a"), Options{}))
	assert.Empty(t, e.Search("   ", files("a"), Options{}))
	assert.Empty(t, e.History(), "blank queries are not recorded")
}

func TestSearch_HiddenFiles(t *testing.T) {
	e := New(nil)
	items := files(".env", "env.txt")

	assert.Equal(t, []string{"env.txt"}, names(e.Search("env", items, Options{})))

	withHidden := e.Search("env", items, Options{IncludeHidden: true})
	assert.Len(t, withHidden, 2)
}

func TestSearch_ExactMatchRanksAbovePrefix(t *testing.T) {
	e := New(nil)

	results := e.Search("test", files("test.js", "test"), Options{})
	require.Len(t, results, 2)
	assert.Equal(t, "test", results[0].Item.Name, "exact match outranks prefix match")
	assert.Equal(t, "test.js", results[1].Item.Name)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearch_CaseSensitivity(t *testing.T) {
	e := New(nil)
	items := files("README.md")

	assert.Len(t, e.Search("readme", items, Options{}), 1)
	assert.Empty(t, e.Search("readme", items, Options{CaseSensitive: true}))
}

func TestScore_Formula(t *testing.T) {
	item := fsio.Entry{Name: "test"} // 4 chars, file, no mod time
	matches := []Match{{Text: "test", Start: 0, End: 4}}

	// 10×1 + 100 exact + 50 prefix + 30 index-0 − 0.4 length + 5 file
	assert.InDelta(t, 194.6, Score(item, matches, "test"), 0.001)
}

func TestScore_RecencyBonus(t *testing.T) {
	matches := []Match{{Text: "a", Start: 0, End: 1}}

	recent := fsio.Entry{Name: "a", ModTime: time.Now()}
	stale := fsio.Entry{Name: "a", ModTime: time.Now().Add(-30 * 24 * time.Hour)}

	assert.Greater(t, Score(recent, matches, "a"), Score(stale, matches, "a"))
}

func TestScore_FlooredAtZero(t *testing.T) {
	longName := "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz" +
		"zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz" +
		"zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz" +
		"zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzza"
	item := fsio.Entry{Name: longName, IsDir: true}
	matches := []Match{{Text: "a", Start: len(longName) - 1, End: len(longName)}}

	assert.Equal(t, 0.0, Score(item, matches, "a"))
}

func TestHistory_DedupeAndOrder(t *testing.T) {
	e := New(nil)

	e.AddToHistory("a")
	e.AddToHistory("b")
	e.AddToHistory("a")

	assert.Equal(t, []string{"a", "b"}, e.History())
}

func TestHistory_Cap(t *testing.T) {
	e := New(nil)

	for i := 0; i < 60; i++ {
		e.AddToHistory(fmt.Sprintf("query-%d", i))
	}

	h := e.History()
	require.Len(t, h, 50)
	assert.Equal(t, "query-59", h[0])
	assert.Equal(t, "query-10", h[49], "oldest entries are dropped silently")
}

func TestSuggestions(t *testing.T) {
	e := New(nil)
	e.AddToHistory("test query")

	items := files("test.js", "testdata", "app.go")

	s := e.Suggestions("te", items)
	assert.Contains(t, s, "test query")
	assert.Contains(t, s, "test.js")
	assert.Contains(t, s, "testdata")

	s = e.Suggestions("j", items)
	assert.Contains(t, s, "*.js")

	assert.Empty(t, e.Suggestions("", items))
	assert.LessOrEqual(t, len(e.Suggestions("t", items)), 10)
}

func TestDebouncer_LastWriterWins(t *testing.T) {
	e := New(nil)
	d := NewDebouncer(e, 50*time.Millisecond)

	items := files("alpha.txt", "beta.txt")

	type res struct {
		results []Result
		err     error
	}
	first := make(chan res, 1)

	go func() {
		r, err := d.Search(context.Background(), "alpha", items, Options{})
		first <- res{r, err}
	}()

	// Give the first call time to register before superseding it.
	time.Sleep(10 * time.Millisecond)

	results, err := d.Search(context.Background(), "beta", items, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"beta.txt"}, names(results))

	got := <-first
	assert.ErrorIs(t, got.err, ErrSuperseded)
	assert.Nil(t, got.results)
}

func TestDebouncer_SingleCallRuns(t *testing.T) {
	e := New(nil)
	d := NewDebouncer(e, 20*time.Millisecond)

	results, err := d.Search(context.Background(), "a", files("a.txt", "b.txt"), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, names(results))
}

func TestDebouncer_Stop(t *testing.T) {
	e := New(nil)
	d := NewDebouncer(e, time.Minute)

	done := make(chan error, 1)
	go func() {
		_, err := d.Search(context.Background(), "a", files("a.txt"), Options{})
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	d.Stop()

	assert.ErrorIs(t, <-done, ErrSuperseded)
}
