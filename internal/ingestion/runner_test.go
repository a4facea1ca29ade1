package ingestion

import (
	"context"
	"io"
	"log"
	"reflect"
	"testing"
	"time"

	"affect-lab/internal/domain"
	"affect-lab/internal/storage"
	"affect-lab/internal/storage/memory"
	"affect-lab/internal/tracker"
)

// 1740477600000 = 2025-02-25 10:00:00 UTC
const dump = `{
  "2025-02-24": {
    "heart_rate": [[1740391200000, 64]],
    "sleep_score": 70
  },
  "2025-02-25": {
    "heart_rate": [[1740477600000, 70], [1740477720000, 72]],
    "stress": {"stressValuesArray": [[1740477600000, 30]]},
    "sleep_score": {"dailySleepDTO": {"sleepScores": {"overall": {"value": 81}}}},
    "hrv_avg": 52
  }
}`

type fixture struct {
	source   *tracker.FileSource
	readings *memory.ReadingStore
	scalars  *memory.DailyScalarStore
	progress *memory.IngestProgressStore
	runner   *Runner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	source, err := tracker.NewFileSourceFromBytes([]byte(dump))
	if err != nil {
		t.Fatalf("NewFileSourceFromBytes: %v", err)
	}
	logger := log.New(io.Discard, "", 0)

	f := &fixture{
		source:   source,
		readings: memory.NewReadingStore(),
		scalars:  memory.NewDailyScalarStore(),
		progress: memory.NewIngestProgressStore(),
	}
	f.runner = NewRunner(RunnerOptions{
		Fetcher:     tracker.NewFetcher(source, time.UTC, logger),
		Readings:    f.readings,
		Scalars:     f.scalars,
		Progress:    f.progress,
		Location:    time.UTC,
		RefreshDays: 1,
		Logger:      logger,
	})
	return f
}

var end = time.Date(2025, 2, 25, 23, 0, 0, 0, time.UTC)

func TestRunner_Run(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 2025-02-23 is missing from the dump and is reported as failed.
	res, err := f.runner.Run(ctx, end, 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Dates) != 3 || len(res.Failed) != 1 || res.Failed[0] != "2025-02-23" {
		t.Errorf("unexpected result %+v", res)
	}
	if res.Readings != 4 {
		t.Errorf("expected 4 readings, got %d", res.Readings)
	}

	hr, err := f.readings.GetByTimeRange(ctx, domain.SignalHeartRate, 0, 1<<62)
	if err != nil {
		t.Fatalf("GetByTimeRange: %v", err)
	}
	if len(hr) != 3 {
		t.Errorf("expected 3 heart rate readings, got %d", len(hr))
	}

	scalars, err := f.scalars.GetByDateRange(ctx, "2025-02-24", "2025-02-25")
	if err != nil {
		t.Fatalf("GetByDateRange: %v", err)
	}
	if len(scalars) != 3 {
		t.Errorf("expected 3 daily scalars, got %d", len(scalars))
	}

	last, err := f.progress.GetLastFetched(ctx)
	if err != nil {
		t.Fatalf("GetLastFetched: %v", err)
	}
	if last.LastDate != "2025-02-25" {
		t.Errorf("expected last date 2025-02-25, got %s", last.LastDate)
	}
}

func TestRunner_SkipsCompleteDates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.runner.Run(ctx, end, 2); err != nil {
		t.Fatalf("first run: %v", err)
	}

	res, err := f.runner.Run(ctx, end, 2)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	// 02-24 is complete; 02-23 failed before; 02-25 is always refreshed.
	if len(res.Skipped) != 1 || res.Skipped[0] != "2025-02-24" {
		t.Errorf("expected 2025-02-24 skipped, got %v", res.Skipped)
	}
	if len(res.Dates) != 2 {
		t.Errorf("expected 2 dates fetched, got %v", res.Dates)
	}
}

func TestRunner_WithoutProgress(t *testing.T) {
	f := newFixture(t)
	f.runner.progress = nil

	res, err := f.runner.Run(context.Background(), end, 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Skipped) != 0 || len(res.Dates) != 2 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestRunner_Cancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.runner.Run(ctx, end, 2); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestRunner_CatchUp(t *testing.T) {
	tests := []struct {
		name     string
		lastDate string // saved progress, empty for none
		seedHR   int64  // stored heart-rate timestamp, 0 for none
		end      time.Time
		wantDays []string
	}{
		{
			name:     "nothing stored fetches max days",
			end:      end,
			wantDays: []string{"2025-02-23", "2025-02-24", "2025-02-25"},
		},
		{
			name:     "from saved progress",
			lastDate: "2025-02-24",
			end:      end,
			wantDays: []string{"2025-02-24", "2025-02-25"},
		},
		{
			name:     "progress on end date keeps refresh window",
			lastDate: "2025-02-25",
			end:      end,
			wantDays: []string{"2025-02-25"},
		},
		{
			name:     "from latest reading without progress",
			seedHR:   1740391200000, // 2025-02-24 10:00 UTC
			end:      end,
			wantDays: []string{"2025-02-24", "2025-02-25"},
		},
		{
			name:     "capped at max days",
			lastDate: "2025-01-01",
			end:      end,
			wantDays: []string{"2025-02-23", "2025-02-24", "2025-02-25"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			if tt.lastDate != "" {
				if err := f.progress.SetLastFetched(ctx, &storage.IngestProgress{LastDate: tt.lastDate, UpdatedAt: 1}); err != nil {
					t.Fatalf("SetLastFetched: %v", err)
				}
			}
			if tt.seedHR != 0 {
				seed := []domain.Reading{{TimestampMs: tt.seedHR, Value: domain.Float(64)}}
				if err := f.readings.UpsertBulk(ctx, domain.SignalHeartRate, seed); err != nil {
					t.Fatalf("UpsertBulk: %v", err)
				}
			}

			res, err := f.runner.CatchUp(ctx, tt.end, 2)
			if err != nil {
				t.Fatalf("CatchUp: %v", err)
			}
			if !reflect.DeepEqual(res.Dates, tt.wantDays) {
				t.Errorf("expected dates %v, got %v", tt.wantDays, res.Dates)
			}
		})
	}
}
