package engine_test

import (
	"context"
	"fmt"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcolletta/direx/pkg/config"
	"github.com/mcolletta/direx/pkg/engine"
	"github.com/mcolletta/direx/pkg/fsio"
	"github.com/mcolletta/direx/pkg/journal"
	backupmem "github.com/mcolletta/direx/pkg/journal/backup/memory"
	storemem "github.com/mcolletta/direx/pkg/journal/store/memory"
)

func newEngine(t *testing.T, mutate func(cfg *config.Config)) (*engine.Engine, *fsio.MemFileSystem) {
	t.Helper()

	cfg := config.GetDefaultConfig()
	cfg.Server.Root = "/"
	cfg.Journal.Sweep.Enabled = false
	cfg.Query.Debounce = time.Millisecond
	if mutate != nil {
		mutate(cfg)
	}

	fs := fsio.NewMem()
	e, err := engine.New(cfg, engine.Options{
		FS:           fs,
		JournalStore: storemem.New(),
		BackupStore:  backupmem.New(),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, e.Close(ctx))
	})

	return e, fs
}

func seed(t *testing.T, fs *fsio.MemFileSystem, paths ...string) {
	t.Helper()
	ctx := context.Background()
	for _, p := range paths {
		require.NoError(t, fs.MkdirAll(ctx, path.Dir(p), 0o755))
		require.NoError(t, fs.WriteFile(ctx, p, []byte("data"), 0o644))
	}
}

func TestEngine_GetPage(t *testing.T) {
	ctx := context.Background()
	e, fs := newEngine(t, nil)

	for i := 0; i < 25; i++ {
		seed(t, fs, fmt.Sprintf("/docs/file-%02d.txt", i))
	}

	page, err := e.GetPage(ctx, "/docs", 0, 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 10)
	assert.Equal(t, 25, page.TotalCount)
	assert.True(t, page.HasMore)

	last, err := e.GetPage(ctx, "/docs", 2, 10)
	require.NoError(t, err)
	assert.Len(t, last.Items, 5)
	assert.False(t, last.HasMore)
}

func TestEngine_PathOutsideRootRejected(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t, func(cfg *config.Config) {
		cfg.Server.Root = "/data"
	})

	_, err := e.GetPage(ctx, "/etc", 0, 10)
	require.Error(t, err)

	_, err = e.Delete(ctx, []string{"/etc/passwd"})
	require.Error(t, err)

	// Prefix tricks don't count as inside.
	_, err = e.GetPage(ctx, "/database", 0, 10)
	require.Error(t, err)
}

func TestEngine_Pages(t *testing.T) {
	ctx := context.Background()
	e, fs := newEngine(t, nil)

	for i := 0; i < 7; i++ {
		seed(t, fs, fmt.Sprintf("/d/f%d", i))
	}

	pages, err := e.Pages(ctx, "/d", 3)
	require.NoError(t, err)

	var counts []int
	for page := range pages {
		require.NoError(t, page.Err)
		counts = append(counts, len(page.Items))
	}
	assert.Equal(t, []int{3, 3, 1}, counts)
}

func TestEngine_Entry(t *testing.T) {
	ctx := context.Background()
	e, fs := newEngine(t, nil)
	seed(t, fs, "/docs/a.txt")

	entry, err := e.Entry(ctx, "/docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", entry.Name)
	assert.False(t, entry.IsDir)

	_, err = e.Entry(ctx, "/docs/missing.txt")
	require.Error(t, err)
}

func TestEngine_CreateFileAndUndo(t *testing.T) {
	ctx := context.Background()
	e, fs := newEngine(t, nil)

	require.NoError(t, fs.MkdirAll(ctx, "/docs", 0o755))

	opID, err := e.CreateFile(ctx, "/docs/new.txt", []byte("hello"))
	require.NoError(t, err)

	page, err := e.GetPage(ctx, "/docs", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"new.txt"}, page.Names())

	require.NoError(t, e.Undo(ctx, opID))

	// The undo invalidated the listing; the file is gone from the page.
	page, err = e.GetPage(ctx, "/docs", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Names())
}

func TestEngine_DeleteAndUndo(t *testing.T) {
	ctx := context.Background()
	e, fs := newEngine(t, nil)
	seed(t, fs, "/docs/keep.txt", "/docs/gone.txt")

	opID, err := e.Delete(ctx, []string{"/docs/gone.txt"})
	require.NoError(t, err)

	page, err := e.GetPage(ctx, "/docs", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.txt"}, page.Names())

	require.NoError(t, e.Undo(ctx, opID))

	data, err := fs.ReadFile(ctx, "/docs/gone.txt")
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))

	page, err = e.GetPage(ctx, "/docs", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"gone.txt", "keep.txt"}, page.Names())
}

func TestEngine_CopyMoveRename(t *testing.T) {
	ctx := context.Background()
	e, fs := newEngine(t, nil)
	seed(t, fs, "/src/a.txt")
	require.NoError(t, fs.MkdirAll(ctx, "/dst", 0o755))

	if _, err := e.Copy(ctx, []string{"/src/a.txt"}, "/dst"); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	exists, err := fs.Exists(ctx, "/dst/a.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	if _, err := e.Rename(ctx, "/dst/a.txt", "/dst/b.txt"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}

	opID, err := e.Move(ctx, []string{"/dst/b.txt"}, "/src")
	require.NoError(t, err)

	exists, err = fs.Exists(ctx, "/src/b.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, e.Undo(ctx, opID))
	exists, err = fs.Exists(ctx, "/dst/b.txt")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestEngine_CreateFileRefusesOverwrite(t *testing.T) {
	ctx := context.Background()
	e, fs := newEngine(t, nil)
	seed(t, fs, "/docs/a.txt")

	_, err := e.CreateFile(ctx, "/docs/a.txt", []byte("clobber"))
	require.Error(t, err)

	data, err := fs.ReadFile(ctx, "/docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}

func TestEngine_Search(t *testing.T) {
	ctx := context.Background()
	e, fs := newEngine(t, nil)
	seed(t, fs, "/docs/report.txt", "/docs/readme.md", "/docs/nested/report-old.txt")

	results, err := e.Search(ctx, "report", "/docs", false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "report.txt", results[0].Item.Name)

	time.Sleep(5 * time.Millisecond)

	results, err = e.Search(ctx, "report", "/docs", true)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	assert.Contains(t, e.SearchHistory(), "report")
}

func TestEngine_History(t *testing.T) {
	ctx := context.Background()
	e, fs := newEngine(t, nil)
	require.NoError(t, fs.MkdirAll(ctx, "/docs", 0o755))

	first, err := e.CreateDir(ctx, "/docs/one")
	require.NoError(t, err)
	second, err := e.CreateFile(ctx, "/docs/two.txt", nil)
	require.NoError(t, err)

	history, err := e.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second, history[0].ID)
	assert.Equal(t, first, history[1].ID)

	undoable, err := e.Undoable(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, undoable, 2)

	for _, op := range history {
		assert.Equal(t, journal.StatusCompleted, op.Status)
	}
}

func TestEngine_InvalidateRootClearsEverything(t *testing.T) {
	ctx := context.Background()
	e, fs := newEngine(t, nil)
	seed(t, fs, "/docs/a.txt")

	page, err := e.GetPage(ctx, "/docs", 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	// Write behind the engine's back; the cache hides it until invalidated.
	seed(t, fs, "/docs/b.txt")
	page, err = e.GetPage(ctx, "/docs", 0, 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	e.Invalidate("/")

	page, err = e.GetPage(ctx, "/docs", 0, 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
}
