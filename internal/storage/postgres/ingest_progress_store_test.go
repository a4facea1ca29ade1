package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affect-lab/internal/storage"
)

func TestIngestProgressStore(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewIngestProgressStore(pool)

	_, err := store.GetLastFetched(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.SetLastFetched(ctx, &storage.IngestProgress{LastDate: "2025-02-25", UpdatedAt: 1}))
	require.NoError(t, store.SetLastFetched(ctx, &storage.IngestProgress{LastDate: "2025-02-26", UpdatedAt: 2}))

	p, err := store.GetLastFetched(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2025-02-26", p.LastDate)
	assert.Equal(t, int64(2), p.UpdatedAt)

	done, err := store.IsDateComplete(ctx, "2025-02-24")
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, store.MarkDateComplete(ctx, "2025-02-24"))
	require.NoError(t, store.MarkDateComplete(ctx, "2025-02-24"))

	done, err = store.IsDateComplete(ctx, "2025-02-24")
	require.NoError(t, err)
	assert.True(t, done)
}
