//go:build integration

package badger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcolletta/direx/pkg/journal"
	badgerstore "github.com/mcolletta/direx/pkg/journal/store/badger"
)

// TestBadgerStore_SurvivesReopen verifies the property the badger backend
// exists for: journaled operations (and therefore the backup directories
// they own) remain attributable after a process restart.
func TestBadgerStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := badgerstore.New(badgerstore.Config{Dir: dir})
	require.NoError(t, err)

	op := &journal.Operation{
		ID:        "op-restart",
		Kind:      journal.KindDelete,
		CreatedAt: time.Now().Truncate(time.Millisecond),
		Status:    journal.StatusCompleted,
		CanUndo:   true,
		Payload: journal.DeletePayload{
			Paths:    []string{"/docs/a.txt"},
			BackedUp: true,
		},
	}
	require.NoError(t, store.Put(ctx, op))
	require.NoError(t, store.Close())

	reopened, err := badgerstore.New(badgerstore.Config{Dir: dir})
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "op-restart")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, journal.KindDelete, got.Kind)
	assert.True(t, got.CanUndo)

	payload, ok := got.Payload.(journal.DeletePayload)
	require.True(t, ok)
	assert.True(t, payload.BackedUp)
}

// TestBadgerStore_OrderSurvivesReopen verifies that insertion order, which
// size eviction depends on, is stable across restarts.
func TestBadgerStore_OrderSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := badgerstore.New(badgerstore.Config{Dir: dir})
	require.NoError(t, err)

	ids := []string{"first", "second", "third"}
	for _, id := range ids {
		require.NoError(t, store.Put(ctx, &journal.Operation{
			ID:        id,
			Kind:      journal.KindMkdir,
			CreatedAt: time.Now(),
			Payload:   journal.MkdirPayload{Path: "/" + id},
		}))
	}
	require.NoError(t, store.Close())

	reopened, err := badgerstore.New(badgerstore.Config{Dir: dir})
	require.NoError(t, err)
	defer reopened.Close()

	ops, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, ops, len(ids))
	for i, id := range ids {
		assert.Equal(t, id, ops[i].ID)
	}
}
