package memory

import (
	"context"
	"testing"

	"affect-lab/internal/domain"
)

func TestDatasetStore_UpsertAndRange(t *testing.T) {
	store := NewDatasetStore()
	ctx := context.Background()

	rows := []*domain.DatasetRow{
		{TimestampMs: 2000, HeartRate: 72},
		{TimestampMs: 1000, HeartRate: 70, Valence: domain.Float(0.3), Arousal: domain.Float(0.1), Emotion: "Happy"},
	}
	if err := store.UpsertBulk(ctx, rows); err != nil {
		t.Fatalf("UpsertBulk failed: %v", err)
	}

	// Rebuild replaces.
	if err := store.UpsertBulk(ctx, []*domain.DatasetRow{{TimestampMs: 2000, HeartRate: 80}}); err != nil {
		t.Fatalf("UpsertBulk failed: %v", err)
	}

	result, err := store.GetByTimeRange(ctx, 0, 5000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(result))
	}
	if !result[0].Labelled() {
		t.Error("Expected first row to keep its label")
	}
	if result[1].HeartRate != 80 {
		t.Errorf("Expected replaced heart rate 80, got %v", result[1].HeartRate)
	}
}
