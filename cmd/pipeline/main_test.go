package main

import (
	"context"
	"testing"
	"time"

	"affect-lab/internal/domain"
	"affect-lab/internal/storage/memory"
)

func TestResolveWindow(t *testing.T) {
	w, err := resolveWindow("2025-02-20", "2025-02-25", 75, time.UTC)
	if err != nil {
		t.Fatalf("resolveWindow: %v", err)
	}
	if !w.Start.Equal(time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected start %v", w.Start)
	}
	if !w.End.Equal(time.Date(2025, 2, 25, 23, 59, 59, 999000000, time.UTC)) {
		t.Errorf("unexpected end %v", w.End)
	}

	w, err = resolveWindow("", "2025-02-25", 2, time.UTC)
	if err != nil {
		t.Fatalf("resolveWindow: %v", err)
	}
	if w.Start.Format(time.DateOnly) != "2025-02-23" {
		t.Errorf("expected start two days back, got %v", w.Start)
	}

	if _, err := resolveWindow("2025-02-26", "2025-02-25", 0, time.UTC); err == nil {
		t.Error("expected error when start is after end")
	}
}

func TestStoreLabels_SkipsDuplicates(t *testing.T) {
	store := memory.NewLabelStore()
	l := &domain.EmotionLabel{TimestampMs: 1000, Emotion: "Happy", Valence: domain.Float(0.9), Arousal: domain.Float(0.5), Source: domain.LabelSourceApp}

	inserted, skipped, err := storeLabels(context.Background(), store, []*domain.EmotionLabel{l, l})
	if err != nil {
		t.Fatalf("storeLabels: %v", err)
	}
	if inserted != 1 || skipped != 1 {
		t.Errorf("expected 1 inserted and 1 skipped, got %d/%d", inserted, skipped)
	}
}
