package buffer

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "buffer.db"), "test")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEnqueueAndGetBatch(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Enqueue(Item{
		UserID:    "u1",
		Entity:    EntityTask,
		Operation: "create",
		Data:      json.RawMessage(`{"id":"t1"}`),
	}))

	items, err := store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, EntityTask, items[0].Entity)
	assert.Equal(t, "create", items[0].Operation)
	assert.NotEmpty(t, items[0].ID)
	assert.Equal(t, 3, items[0].Priority)
	assert.False(t, items[0].Timestamp.IsZero())

	// Reading does not consume.
	size, err := store.Size()
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestBatchOrderedByPriority(t *testing.T) {
	store := openTestStore(t)
	now := time.Now()

	// Lower keys drain first.
	require.NoError(t, store.Enqueue(Item{ID: "low", Entity: EntityTask, Priority: 5, Timestamp: now}))
	require.NoError(t, store.Enqueue(Item{ID: "high", Entity: EntityNotification, Priority: 1, Timestamp: now}))
	require.NoError(t, store.Enqueue(Item{ID: "mid", Entity: EntityTask, Priority: 3, Timestamp: now}))

	items, err := store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "high", items[0].ID)
	assert.Equal(t, "mid", items[1].ID)
	assert.Equal(t, "low", items[2].ID)
}

func TestGetBatchRespectsLimit(t *testing.T) {
	store := openTestStore(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Enqueue(Item{Entity: EntityTask}))
	}

	items, err := store.GetBatch(2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestRemove(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Enqueue(Item{ID: "a", Entity: EntityTask}))
	require.NoError(t, store.Enqueue(Item{ID: "b", Entity: EntityTask}))

	items, err := store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.NoError(t, store.Remove(items[0]))

	size, err := store.Size()
	require.NoError(t, err)
	assert.Equal(t, 1, size)

	// Removing by bare ID works for items that never went through GetBatch.
	require.NoError(t, store.Remove(Item{ID: items[1].ID}))
	size, err = store.Size()
	require.NoError(t, err)
	assert.Equal(t, 0, size)
}

func TestRequeueKeepsSingleCopy(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Enqueue(Item{ID: "a", Entity: EntityTask}))

	items, err := store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.NoError(t, store.Remove(items[0]))
	item := items[0]
	item.Retries++
	require.NoError(t, store.Requeue(item))

	items, err = store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Retries)
}

func TestCleanupDropsOldItems(t *testing.T) {
	store := openTestStore(t)
	old := time.Now().Add(-48 * time.Hour)

	require.NoError(t, store.Enqueue(Item{ID: "stale", Entity: EntityTask, Timestamp: old}))
	require.NoError(t, store.Enqueue(Item{ID: "fresh", Entity: EntityTask}))

	require.NoError(t, store.Cleanup(time.Now().Add(-24*time.Hour)))

	items, err := store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "fresh", items[0].ID)
}
