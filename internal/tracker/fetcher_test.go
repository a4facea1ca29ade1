package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"affect-lab/internal/domain"
)

type stubSource struct {
	fail  map[string]bool
	calls []string
}

func (s *stubSource) FetchDay(_ context.Context, date string) (*domain.DayBucket, error) {
	s.calls = append(s.calls, date)
	if s.fail[date] {
		return nil, errors.New("boom")
	}
	return domain.NewDayBucket(date), nil
}

func TestWindowDates(t *testing.T) {
	end := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	dates := WindowDates(end, 2, time.UTC)

	want := []string{"2025-02-27", "2025-02-28", "2025-03-01"}
	if len(dates) != len(want) {
		t.Fatalf("expected %d dates, got %v", len(want), dates)
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Errorf("dates[%d] = %s, want %s", i, dates[i], want[i])
		}
	}
}

func TestWindowDates_LocalDate(t *testing.T) {
	// 23:30 UTC is already the next day at UTC+1.
	end := time.Date(2025, 2, 25, 23, 30, 0, 0, time.UTC)
	dates := WindowDates(end, 0, time.FixedZone("CET", 3600))
	if len(dates) != 1 || dates[0] != "2025-02-26" {
		t.Errorf("expected [2025-02-26], got %v", dates)
	}
}

func TestFetchWindow_RecoversPerDate(t *testing.T) {
	src := &stubSource{fail: map[string]bool{"2025-02-28": true}}
	f := NewFetcher(src, time.UTC, nil)

	end := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	res, err := f.FetchWindow(context.Background(), end, 2)
	if err != nil {
		t.Fatalf("FetchWindow: %v", err)
	}

	if len(src.calls) != 3 {
		t.Errorf("expected every date to be attempted, got %v", src.calls)
	}
	if len(res.Days) != 2 {
		t.Errorf("expected 2 days, got %d", len(res.Days))
	}
	if len(res.Failed) != 1 || res.Failed[0] != "2025-02-28" {
		t.Errorf("expected failed [2025-02-28], got %v", res.Failed)
	}
}

func TestFetchWindow_Cancelled(t *testing.T) {
	f := NewFetcher(&stubSource{}, time.UTC, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.FetchWindow(ctx, time.Now(), 3); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestFileSource(t *testing.T) {
	src, err := NewFileSourceFromBytes([]byte(`{"2025-02-25": ` + sampleDay + `}`))
	if err != nil {
		t.Fatalf("NewFileSourceFromBytes: %v", err)
	}

	if dates := src.Dates(); len(dates) != 1 || dates[0] != "2025-02-25" {
		t.Errorf("unexpected dates %v", dates)
	}

	if _, err := src.FetchDay(context.Background(), "2025-02-25"); err != nil {
		t.Errorf("FetchDay: %v", err)
	}
	if _, err := src.FetchDay(context.Background(), "2025-02-26"); !errors.Is(err, ErrDayNotFound) {
		t.Errorf("expected ErrDayNotFound, got %v", err)
	}
}
