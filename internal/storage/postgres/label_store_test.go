package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affect-lab/internal/domain"
	"affect-lab/internal/storage"
)

func testLabel(ts int64, emotion string) *domain.EmotionLabel {
	return &domain.EmotionLabel{
		TimestampMs: ts,
		Valence:     ptr(0.4),
		Arousal:     ptr(-0.3),
		Emotion:     emotion,
		Source:      domain.LabelSourceManual,
		CreatedAt:   1740477600000,
	}
}

func TestLabelStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewLabelStore(pool)

	require.NoError(t, store.Insert(ctx, testLabel(2000, "Calm")))
	require.NoError(t, store.InsertBulk(ctx, []*domain.EmotionLabel{
		testLabel(1000, "Happy"),
		testLabel(3000, "Sad"),
	}))

	got, err := store.GetByTimeRange(ctx, 1000, 2000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Happy", got[0].Emotion)
	assert.Equal(t, domain.LabelSourceManual, got[0].Source)
	assert.Equal(t, 0.4, *got[0].Valence)

	recent, err := store.GetRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "Sad", recent[0].Emotion)
}

func TestLabelStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewLabelStore(pool)

	require.NoError(t, store.Insert(ctx, testLabel(1000, "Happy")))
	assert.ErrorIs(t, store.Insert(ctx, testLabel(1000, "Happy")), storage.ErrDuplicateKey)

	// A failing batch leaves nothing behind.
	err := store.InsertBulk(ctx, []*domain.EmotionLabel{testLabel(5000, "Calm"), testLabel(1000, "Happy")})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByTimeRange(ctx, 5000, 5000)
	require.NoError(t, err)
	assert.Empty(t, got)
}
