package fsio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemFileSystem_WriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := NewMem()

	require.NoError(t, fs.MkdirAll(ctx, "/docs", 0o755))
	require.NoError(t, fs.WriteFile(ctx, "/docs/a.txt", []byte("hello"), 0o644))

	data, err := fs.ReadFile(ctx, "/docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	entry, err := fs.Stat(ctx, "/docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", entry.Name)
	assert.Equal(t, int64(5), entry.Size)
}

func TestMemFileSystem_WriteRequiresParent(t *testing.T) {
	ctx := context.Background()
	fs := NewMem()

	err := fs.WriteFile(ctx, "/missing/a.txt", []byte("x"), 0o644)
	require.Error(t, err)
}

func TestMemFileSystem_ReadDirDirectChildrenOnly(t *testing.T) {
	ctx := context.Background()
	fs := NewMem()

	require.NoError(t, fs.MkdirAll(ctx, "/d/sub", 0o755))
	require.NoError(t, fs.WriteFile(ctx, "/d/a.txt", nil, 0o644))
	require.NoError(t, fs.WriteFile(ctx, "/d/sub/deep.txt", nil, 0o644))

	entries, err := fs.ReadDir(ctx, "/d")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a.txt", entries[0].Name)
	assert.Equal(t, "sub", entries[1].Name)
}

func TestMemFileSystem_RenameMovesSubtree(t *testing.T) {
	ctx := context.Background()
	fs := NewMem()

	require.NoError(t, fs.MkdirAll(ctx, "/old/nested", 0o755))
	require.NoError(t, fs.WriteFile(ctx, "/old/nested/f.txt", []byte("x"), 0o644))

	require.NoError(t, fs.Rename(ctx, "/old", "/new"))

	exists, err := fs.Exists(ctx, "/old")
	require.NoError(t, err)
	assert.False(t, exists)

	data, err := fs.ReadFile(ctx, "/new/nested/f.txt")
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestMemFileSystem_CopyDirectory(t *testing.T) {
	ctx := context.Background()
	fs := NewMem()

	require.NoError(t, fs.MkdirAll(ctx, "/src/sub", 0o755))
	require.NoError(t, fs.WriteFile(ctx, "/src/sub/f.txt", []byte("x"), 0o644))

	require.NoError(t, fs.Copy(ctx, "/src", "/dst"))

	// Both trees exist and are independent.
	require.NoError(t, fs.WriteFile(ctx, "/dst/sub/f.txt", []byte("changed"), 0o644))

	data, err := fs.ReadFile(ctx, "/src/sub/f.txt")
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestMemFileSystem_RemoveSubtree(t *testing.T) {
	ctx := context.Background()
	fs := NewMem()

	require.NoError(t, fs.MkdirAll(ctx, "/d/sub", 0o755))
	require.NoError(t, fs.WriteFile(ctx, "/d/sub/f.txt", nil, 0o644))

	require.NoError(t, fs.Remove(ctx, "/d"))

	exists, err := fs.Exists(ctx, "/d/sub/f.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	// Removing unknown paths is a no-op; removing root is refused.
	require.NoError(t, fs.Remove(ctx, "/ghost"))
	require.Error(t, fs.Remove(ctx, "/"))
}
