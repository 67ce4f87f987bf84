package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	store, err := NewStore(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewStore(t *testing.T) {
	t.Run("creates directory and database", func(t *testing.T) {
		tmpDir := t.TempDir()
		dbPath := filepath.Join(tmpDir, "subdir", "test.db")

		ctx := context.Background()
		store, err := NewStore(ctx, dbPath)
		require.NoError(t, err)
		defer store.Close()

		_, err = os.Stat(dbPath)
		assert.NoError(t, err)
	})

	t.Run("migrations are idempotent", func(t *testing.T) {
		ctx := context.Background()
		dbPath := filepath.Join(t.TempDir(), "test.db")

		store, err := NewStore(ctx, dbPath)
		require.NoError(t, err)
		store.Close()

		// Reopening re-runs migrate against the already-applied set.
		store, err = NewStore(ctx, dbPath)
		require.NoError(t, err)
		store.Close()
	})
}

func TestStore_RecordAndRecent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.Record(ctx, "red", "@cheerlights red", "123", "v1")
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = store.Record(ctx, "blue", "@cheerlights blue", "456", "v2")
	require.NoError(t, err)

	tweets, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tweets, 2)

	// Newest first.
	assert.Equal(t, "blue", tweets[0].Colour)
	assert.Equal(t, "456", tweets[0].RemoteID)
	assert.Equal(t, "v2", tweets[0].APIVersion)
	assert.False(t, tweets[0].Destroyed)
	assert.Equal(t, "red", tweets[1].Colour)
	assert.False(t, tweets[0].CreatedAt.IsZero())
}

func TestStore_RecentLimit(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for i := 0; i < 5; i++ {
		_, err := store.Record(ctx, "green", "@cheerlights green", "id", "v1")
		require.NoError(t, err)
	}

	tweets, err := store.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, tweets, 3)
}

func TestStore_MarkDestroyed(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Record(ctx, "red", "@cheerlights red", "123", "v1")
	require.NoError(t, err)

	require.NoError(t, store.MarkDestroyed(ctx, "123"))

	tweets, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tweets, 1)
	assert.True(t, tweets[0].Destroyed)
}
