package normalization

import (
	"context"
	"testing"
	"time"

	"affect-lab/internal/alignment"
	"affect-lab/internal/domain"
	"affect-lab/internal/storage/memory"
)

var base = time.Date(2025, 2, 25, 8, 0, 0, 0, time.UTC)

func at(minutes int) int64 {
	return base.Add(time.Duration(minutes) * time.Minute).UnixMilli()
}

type fixture struct {
	readings *memory.ReadingStore
	scalars  *memory.DailyScalarStore
	labels   *memory.LabelStore
	dataset  *memory.DatasetStore
	runner   *Runner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		readings: memory.NewReadingStore(),
		scalars:  memory.NewDailyScalarStore(),
		labels:   memory.NewLabelStore(),
		dataset:  memory.NewDatasetStore(),
	}

	hr := []domain.Reading{}
	for i, v := range []float64{70, 72, 74, 73, 75, 76} {
		hr = append(hr, domain.Reading{TimestampMs: at(2 * i), Value: fptr(v)})
	}
	series := map[domain.SignalName][]domain.Reading{
		domain.SignalHeartRate:   hr,
		domain.SignalStress:      {{TimestampMs: at(-1), Value: fptr(25)}},
		domain.SignalRespiration: {{TimestampMs: at(-2), Value: fptr(14)}},
		domain.SignalBodyBattery: {{TimestampMs: at(0), Value: fptr(60)}},
		domain.SignalSpO2:        {{TimestampMs: at(-60), Value: fptr(96)}},
	}
	for name, readings := range series {
		if err := f.readings.UpsertBulk(ctx, name, readings); err != nil {
			t.Fatalf("UpsertBulk %s: %v", name, err)
		}
	}

	err := f.scalars.UpsertBulk(ctx, []domain.DailyScalar{
		{Date: "2025-02-25", Name: domain.ScalarSleepScore, Value: fptr(80)},
		{Date: "2025-02-25", Name: domain.ScalarHRVAvg, Value: fptr(45)},
	})
	if err != nil {
		t.Fatalf("UpsertBulk scalars: %v", err)
	}

	f.runner = NewRunner(f.readings, f.scalars, f.labels, f.dataset, alignment.NewEngine(time.UTC), nil)
	return f
}

func window() Window {
	return Window{Start: base, End: base.Add(time.Hour)}
}

func TestRunner_BuildDataset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rows, err := f.runner.BuildDataset(ctx, window())
	if err != nil {
		t.Fatalf("BuildDataset: %v", err)
	}

	// The first two records have no 4-minute history.
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}

	first := rows[0]
	if first.TimestampMs != at(4) {
		t.Errorf("expected first row at +4m, got %d", first.TimestampMs)
	}
	if first.HeartRate != 74 || first.HRLag2 != 72 || first.HRLag4 != 70 {
		t.Errorf("unexpected HR/lags %v/%v/%v", first.HeartRate, first.HRLag2, first.HRLag4)
	}
	if first.HRChangeNow != 2 || first.HRChange2Min != 2 {
		t.Errorf("unexpected changes %v/%v", first.HRChangeNow, first.HRChange2Min)
	}
	if first.Stress != 25 || first.Respiration != 14 || first.BodyBattery != 60 || first.SpO2 != 96 {
		t.Errorf("unexpected carried values %+v", first)
	}
	if first.SleepScore != 80 || first.HRVAvg != 45 || first.SleepTier != domain.SleepTierGood {
		t.Errorf("unexpected daily values %+v", first)
	}

	stored, err := f.dataset.GetByTimeRange(ctx, at(0), at(60))
	if err != nil {
		t.Fatalf("GetByTimeRange: %v", err)
	}
	if len(stored) != 4 {
		t.Errorf("expected 4 stored rows, got %d", len(stored))
	}
}

func TestRunner_BuildDataset_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.runner.BuildDataset(ctx, window()); err != nil {
		t.Fatalf("first build: %v", err)
	}
	if _, err := f.runner.BuildDataset(ctx, window()); err != nil {
		t.Fatalf("second build: %v", err)
	}

	stored, err := f.dataset.GetByTimeRange(ctx, at(0), at(60))
	if err != nil {
		t.Fatalf("GetByTimeRange: %v", err)
	}
	if len(stored) != 4 {
		t.Errorf("expected rebuilt rows to replace, got %d", len(stored))
	}
}

func TestRunner_BuildDataset_Empty(t *testing.T) {
	r := NewRunner(memory.NewReadingStore(), memory.NewDailyScalarStore(), memory.NewLabelStore(), nil, nil, nil)

	rows, err := r.BuildDataset(context.Background(), window())
	if err != nil {
		t.Fatalf("BuildDataset: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
}

func TestRunner_LabelledDataset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	labels := []*domain.EmotionLabel{
		{TimestampMs: at(6), Emotion: "Content", Valence: fptr(0.75), Arousal: fptr(-0.45), Source: domain.LabelSourceApp},
		{TimestampMs: at(2), Emotion: "Happy", Valence: fptr(0.9), Arousal: fptr(0.5), Source: domain.LabelSourceApp},
		{TimestampMs: at(45), Emotion: "Sad", Valence: fptr(-1), Arousal: fptr(-0.5), Source: domain.LabelSourceManual},
	}
	if err := f.labels.InsertBulk(ctx, labels); err != nil {
		t.Fatalf("InsertBulk: %v", err)
	}

	rows, err := f.runner.LabelledDataset(ctx, window())
	if err != nil {
		t.Fatalf("LabelledDataset: %v", err)
	}

	// +2m lacks lag history and +45m has no reference reading.
	if len(rows) != 1 {
		t.Fatalf("expected 1 labelled row, got %d", len(rows))
	}
	row := rows[0]
	if row.TimestampMs != at(6) || row.Emotion != "Content" {
		t.Errorf("unexpected row %+v", row)
	}
	if !row.Labelled() || *row.Valence != 0.75 || *row.Arousal != -0.45 {
		t.Errorf("unexpected label values %+v", row)
	}
	if row.HRLag2 != 74 || row.HRLag4 != 72 {
		t.Errorf("lags must come from the full series, got %v/%v", row.HRLag2, row.HRLag4)
	}
}

func TestRunner_BuildDataset_HistoryBeforeWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	earlier := []domain.Reading{
		{TimestampMs: at(-20), Value: fptr(60)},
		{TimestampMs: at(-4), Value: fptr(66)},
		{TimestampMs: at(-2), Value: fptr(68)},
	}
	if err := f.readings.UpsertBulk(ctx, domain.SignalHeartRate, earlier); err != nil {
		t.Fatalf("UpsertBulk: %v", err)
	}

	rows, err := f.runner.BuildDataset(ctx, window())
	if err != nil {
		t.Fatalf("BuildDataset: %v", err)
	}

	// Every record of the window now has lag history; none before it is emitted.
	if len(rows) != 6 {
		t.Fatalf("expected 6 rows, got %d", len(rows))
	}
	first := rows[0]
	if first.TimestampMs != at(0) {
		t.Errorf("expected first row at window start, got %d", first.TimestampMs)
	}
	if first.HeartRate != 70 || first.HRLag2 != 68 || first.HRLag4 != 66 {
		t.Errorf("unexpected HR/lags %v/%v/%v", first.HeartRate, first.HRLag2, first.HRLag4)
	}
	if first.HRChangeNow != 2 || first.HRChange2Min != 2 {
		t.Errorf("unexpected changes %v/%v", first.HRChangeNow, first.HRChange2Min)
	}

	stored, err := f.dataset.GetByTimeRange(ctx, at(-30), at(60))
	if err != nil {
		t.Fatalf("GetByTimeRange: %v", err)
	}
	if len(stored) != 6 {
		t.Errorf("expected 6 stored rows, got %d", len(stored))
	}
}

func TestRunner_LabelledDataset_EarlyLabel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	earlier := []domain.Reading{
		{TimestampMs: at(-4), Value: fptr(66)},
		{TimestampMs: at(-2), Value: fptr(68)},
	}
	if err := f.readings.UpsertBulk(ctx, domain.SignalHeartRate, earlier); err != nil {
		t.Fatalf("UpsertBulk: %v", err)
	}
	label := &domain.EmotionLabel{TimestampMs: at(2), Emotion: "Happy", Valence: fptr(0.9), Arousal: fptr(0.5), Source: domain.LabelSourceApp}
	if err := f.labels.Insert(ctx, label); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	rows, err := f.runner.LabelledDataset(ctx, window())
	if err != nil {
		t.Fatalf("LabelledDataset: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 labelled row, got %d", len(rows))
	}
	if rows[0].TimestampMs != at(2) || rows[0].HRLag2 != 70 || rows[0].HRLag4 != 68 {
		t.Errorf("unexpected row %+v", rows[0])
	}
}
