// Package tracker fetches and parses day-bucketed readings from the fitness
// tracker cloud or a raw JSON dump of it.
package tracker

import (
	"context"
	"io"
	"log"
	"time"

	"affect-lab/internal/domain"
	"affect-lab/internal/observability"
)

const dateLayout = "2006-01-02"

// WindowResult holds the days fetched for a window.
type WindowResult struct {
	Days   []*domain.DayBucket // ascending by date
	Failed []string            // dates that could not be fetched
}

// Fetcher walks a window of dates against a Source.
type Fetcher struct {
	source Source
	loc    *time.Location
	logger *log.Logger
}

// NewFetcher creates a Fetcher. Dates are computed in loc (UTC when nil).
func NewFetcher(source Source, loc *time.Location, logger *log.Logger) *Fetcher {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Fetcher{source: source, loc: loc, logger: logger}
}

// WindowDates returns the dates from end back `days` days, ascending.
// The window is inclusive, so it holds days+1 dates.
func WindowDates(end time.Time, days int, loc *time.Location) []string {
	if loc == nil {
		loc = time.UTC
	}
	end = end.In(loc)
	dates := make([]string, 0, days+1)
	for i := days; i >= 0; i-- {
		dates = append(dates, end.AddDate(0, 0, -i).Format(dateLayout))
	}
	return dates
}

// FetchWindow fetches every date of the window. A failed date is logged,
// counted and skipped; only context cancellation aborts the walk.
func (f *Fetcher) FetchWindow(ctx context.Context, end time.Time, days int) (*WindowResult, error) {
	return f.FetchDates(ctx, WindowDates(end, days, f.loc))
}

// FetchDates fetches the given dates in order with the same recovery rules
// as FetchWindow.
func (f *Fetcher) FetchDates(ctx context.Context, dates []string) (*WindowResult, error) {
	result := &WindowResult{}
	if len(dates) == 0 {
		return result, nil
	}
	f.logger.Printf("Fetching %d days: %s to %s", len(dates), dates[0], dates[len(dates)-1])

	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		bucket, err := f.source.FetchDay(ctx, date)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			f.logger.Printf("Error fetching %s: %v", date, err)
			observability.RecordDayFetched(false)
			result.Failed = append(result.Failed, date)
			continue
		}

		observability.RecordDayFetched(true)
		for name, readings := range bucket.Signals {
			observability.RecordReadingsParsed(name.String(), len(readings))
		}
		result.Days = append(result.Days, bucket)
	}

	f.logger.Printf("Fetched %d days, %d failed", len(result.Days), len(result.Failed))
	return result, nil
}
