// Package ingestion moves tracker days into the reading and scalar stores.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"affect-lab/internal/domain"
	"affect-lab/internal/observability"
	"affect-lab/internal/storage"
	"affect-lab/internal/tracker"
)

// DefaultRefreshDays is how many of the newest dates are re-fetched even
// when already marked complete, since the tracker keeps syncing them.
const DefaultRefreshDays = 2

// Runner fetches a window of tracker days and persists them.
type Runner struct {
	fetcher     *tracker.Fetcher
	readings    storage.ReadingStore
	scalars     storage.DailyScalarStore
	progress    storage.IngestProgressStore
	loc         *time.Location
	refreshDays int
	logger      *log.Logger
	now         func() time.Time
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Fetcher     *tracker.Fetcher
	Readings    storage.ReadingStore
	Scalars     storage.DailyScalarStore
	Progress    storage.IngestProgressStore // optional; nil fetches every date
	Location    *time.Location
	RefreshDays int // Default: 2
	Logger      *log.Logger
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	refresh := opts.RefreshDays
	if refresh <= 0 {
		refresh = DefaultRefreshDays
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		fetcher:     opts.Fetcher,
		readings:    opts.Readings,
		scalars:     opts.Scalars,
		progress:    opts.Progress,
		loc:         loc,
		refreshDays: refresh,
		logger:      logger,
		now:         time.Now,
	}
}

// Result summarises one ingest run.
type Result struct {
	Dates    []string // dates requested from the tracker
	Skipped  []string // dates already complete
	Failed   []string // dates the tracker could not serve
	Readings int      // readings written
}

// Run ingests the window ending at end and spanning days days back.
func (r *Runner) Run(ctx context.Context, end time.Time, days int) (*Result, error) {
	start := time.Now()
	all := tracker.WindowDates(end, days, r.loc)

	result := &Result{}
	todo, err := r.pending(ctx, all)
	if err != nil {
		observability.RecordPipelineRun("ingest", "error", time.Since(start).Seconds())
		return nil, err
	}
	result.Dates = todo
	result.Skipped = difference(all, todo)
	if len(result.Skipped) > 0 {
		r.logger.Printf("Skipping %d complete dates", len(result.Skipped))
	}

	window, err := r.fetcher.FetchDates(ctx, todo)
	if err != nil {
		observability.RecordPipelineRun("ingest", "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("fetch window: %w", err)
	}
	result.Failed = window.Failed

	n, err := r.store(ctx, window.Days)
	if err != nil {
		observability.RecordPipelineRun("ingest", "error", time.Since(start).Seconds())
		return nil, err
	}
	result.Readings = n

	if r.progress != nil && len(window.Days) > 0 {
		for _, day := range window.Days {
			if err := r.progress.MarkDateComplete(ctx, day.Date); err != nil {
				return nil, fmt.Errorf("mark %s complete: %w", day.Date, err)
			}
		}
		last := window.Days[len(window.Days)-1].Date
		if err := r.progress.SetLastFetched(ctx, &storage.IngestProgress{LastDate: last, UpdatedAt: r.now().UnixMilli()}); err != nil {
			return nil, fmt.Errorf("save ingest progress: %w", err)
		}
	}

	observability.DefaultMetrics.LastSuccessfulIngestion.SetToCurrentTime()
	observability.RecordPipelineRun("ingest", "ok", time.Since(start).Seconds())
	r.logger.Printf("Ingested %d readings from %d days (%d failed, %d skipped)",
		n, len(window.Days), len(result.Failed), len(result.Skipped))
	return result, nil
}

// CatchUp ingests from the newest date already known through end. The newest
// date is the saved ingest progress, else the latest stored reference
// reading; with neither, maxDays before end are fetched. The span is capped
// at maxDays and always covers the refresh window.
func (r *Runner) CatchUp(ctx context.Context, end time.Time, maxDays int) (*Result, error) {
	days, err := r.catchUpDays(ctx, end, maxDays)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, end, days)
}

func (r *Runner) catchUpDays(ctx context.Context, end time.Time, maxDays int) (int, error) {
	last, ok, err := r.lastKnownDate(ctx)
	if err != nil || !ok {
		return maxDays, err
	}

	days := daysBetween(last, end.In(r.loc))
	days = max(days, r.refreshDays-1)
	return min(days, maxDays), nil
}

// lastKnownDate reports the newest date with stored data, at midnight in r.loc.
func (r *Runner) lastKnownDate(ctx context.Context) (time.Time, bool, error) {
	if r.progress != nil {
		p, err := r.progress.GetLastFetched(ctx)
		switch {
		case err == nil:
			t, err := time.ParseInLocation(time.DateOnly, p.LastDate, r.loc)
			if err != nil {
				return time.Time{}, false, fmt.Errorf("parse last fetched date: %w", err)
			}
			return t, true, nil
		case !errors.Is(err, storage.ErrNotFound):
			return time.Time{}, false, fmt.Errorf("load ingest progress: %w", err)
		}
	}

	ts, err := r.readings.LatestTimestamp(ctx, domain.ReferenceSignal)
	if errors.Is(err, storage.ErrNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("load latest %s: %w", domain.ReferenceSignal, err)
	}
	t := time.UnixMilli(ts).In(r.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, r.loc), true, nil
}

// daysBetween counts calendar days from the date of a to the date of b.
func daysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 12, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 12, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// pending drops dates already complete, except the newest refreshDays.
func (r *Runner) pending(ctx context.Context, dates []string) ([]string, error) {
	if r.progress == nil {
		return dates, nil
	}
	cutoff := len(dates) - r.refreshDays
	var todo []string
	for i, date := range dates {
		if i >= cutoff {
			todo = append(todo, date)
			continue
		}
		done, err := r.progress.IsDateComplete(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", date, err)
		}
		if !done {
			todo = append(todo, date)
		}
	}
	return todo, nil
}

// store writes each day's signals and scalars. Readings are upserted so a
// re-fetched day replaces what was stored for it.
func (r *Runner) store(ctx context.Context, days []*domain.DayBucket) (int, error) {
	bySignal := make(map[domain.SignalName][]domain.Reading)
	var scalars []domain.DailyScalar
	for _, d := range days {
		for name, readings := range d.Signals {
			bySignal[name] = append(bySignal[name], readings...)
		}
		for _, name := range domain.DailyScalars {
			if v, ok := d.Scalars[name]; ok && v != nil {
				scalars = append(scalars, domain.DailyScalar{Date: d.Date, Name: name, Value: v})
			}
		}
	}

	total := 0
	for name, readings := range bySignal {
		if !name.IsValid() || len(readings) == 0 {
			continue
		}
		if err := r.readings.UpsertBulk(ctx, name, readings); err != nil {
			if errors.Is(err, storage.ErrInvalidInput) {
				r.logger.Printf("Skipping invalid %s readings: %v", name, err)
				continue
			}
			return total, fmt.Errorf("store %s: %w", name, err)
		}
		observability.RecordReadingsUpserted(name.String(), len(readings))
		total += len(readings)
	}

	if len(scalars) > 0 {
		if err := r.scalars.UpsertBulk(ctx, scalars); err != nil {
			return total, fmt.Errorf("store daily scalars: %w", err)
		}
	}
	return total, nil
}

func difference(all, keep []string) []string {
	kept := make(map[string]struct{}, len(keep))
	for _, d := range keep {
		kept[d] = struct{}{}
	}
	var out []string
	for _, d := range all {
		if _, ok := kept[d]; !ok {
			out = append(out, d)
		}
	}
	return out
}
