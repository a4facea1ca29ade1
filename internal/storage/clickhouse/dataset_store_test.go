package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affect-lab/internal/domain"
	"affect-lab/internal/storage"
)

func sampleRow(ts int64, hr float64) *domain.DatasetRow {
	return &domain.DatasetRow{
		TimestampMs:  ts,
		LocalTime:    "2025-02-25 11:00:00",
		HeartRate:    hr,
		Stress:       30,
		Respiration:  14,
		BodyBattery:  55,
		SpO2:         96,
		HRVAvg:       48,
		SleepScore:   81,
		SleepTier:    domain.SleepTierGood,
		TimeOfDay:    domain.TimeMorning,
		HRLag2:       72,
		HRLag4:       70,
		HRChangeNow:  hr - 72,
		HRChange2Min: 2,
	}
}

func TestDatasetStore_UpsertAndGetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDatasetStore(conn)

	labelled := sampleRow(2000, 75)
	labelled.Valence = ptr(0.4)
	labelled.Arousal = ptr(0.2)
	labelled.Emotion = "Happy"

	require.NoError(t, store.UpsertBulk(ctx, []*domain.DatasetRow{sampleRow(1000, 74), labelled}))

	got, err := store.GetByTimeRange(ctx, 0, 5000)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(1000), got[0].TimestampMs)
	assert.Nil(t, got[0].Valence)
	assert.False(t, got[0].Labelled())

	assert.True(t, got[1].Labelled())
	assert.Equal(t, 0.4, *got[1].Valence)
	assert.Equal(t, domain.SleepTierGood, got[1].SleepTier)
	assert.Equal(t, domain.TimeMorning, got[1].TimeOfDay)
}

func TestDatasetStore_RebuildReplaces(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDatasetStore(conn)

	clock := time.Unix(1740477600, 0)
	store.now = func() time.Time { return clock }
	require.NoError(t, store.UpsertBulk(ctx, []*domain.DatasetRow{sampleRow(1000, 74)}))

	clock = clock.Add(time.Minute)
	require.NoError(t, store.UpsertBulk(ctx, []*domain.DatasetRow{sampleRow(1000, 90)}))

	got, err := store.GetByTimeRange(ctx, 1000, 1000)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 90.0, got[0].HeartRate)
}

func TestDatasetStore_InvalidInput(t *testing.T) {
	store := NewDatasetStore(nil)
	err := store.UpsertBulk(context.Background(), []*domain.DatasetRow{nil})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
