// Package normalization turns stored readings into imputed, lag-enriched
// dataset rows.
package normalization

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"affect-lab/internal/alignment"
	"affect-lab/internal/domain"
	"affect-lab/internal/labels"
	"affect-lab/internal/lookup"
	"affect-lab/internal/observability"
	"affect-lab/internal/storage"
)

// DropNoLag is the drop reason for rows whose lag lookups failed.
const DropNoLag = "no_lag_history"

// lagHistory is how far before a window the reference signal is loaded so
// the first records of the window can resolve their lag offsets.
const lagHistory = 2*lookup.LagStep + lookup.DefaultTolerance

// Window is an inclusive time range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Runner builds datasets from stored readings.
type Runner struct {
	readings storage.ReadingStore
	scalars  storage.DailyScalarStore
	labels   storage.LabelStore
	dataset  storage.DatasetStore
	engine   *alignment.Engine
	logger   *log.Logger
}

// NewRunner creates a runner. dataset may be nil to skip persisting rows.
func NewRunner(
	readings storage.ReadingStore,
	scalars storage.DailyScalarStore,
	labelStore storage.LabelStore,
	dataset storage.DatasetStore,
	engine *alignment.Engine,
	logger *log.Logger,
) *Runner {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if engine == nil {
		engine = alignment.NewEngine(nil)
	}
	return &Runner{
		readings: readings,
		scalars:  scalars,
		labels:   labelStore,
		dataset:  dataset,
		engine:   engine,
		logger:   logger,
	}
}

// Align loads the window's readings and scalars and aligns them.
func (r *Runner) Align(ctx context.Context, w Window) ([]*domain.AlignedRecord, error) {
	startMs, endMs := w.Start.UnixMilli(), w.End.UnixMilli()

	reference, err := r.readings.GetByTimeRange(ctx, domain.ReferenceSignal, startMs, endMs)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", domain.ReferenceSignal, err)
	}

	// Secondaries start one day early so the first records of the window
	// can carry values logged just before it.
	secondaryStart := w.Start.Add(-24 * time.Hour).UnixMilli()
	secondaries := make([]domain.SignalSeries, 0, len(domain.SecondarySignals))
	for _, name := range domain.SecondarySignals {
		readings, err := r.readings.GetByTimeRange(ctx, name, secondaryStart, endMs)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		secondaries = append(secondaries, domain.SignalSeries{Name: name, Readings: readings})
	}

	loc := r.engine.Location()
	scalars, err := r.scalars.GetByDateRange(ctx,
		w.Start.In(loc).Format(time.DateOnly), w.End.In(loc).Format(time.DateOnly))
	if err != nil {
		return nil, fmt.Errorf("load daily scalars: %w", err)
	}

	records := r.engine.Align(domain.SignalSeries{Name: domain.ReferenceSignal, Readings: reference}, secondaries, scalars)
	observability.RecordAligned(len(records))
	return records, nil
}

// alignWithHistory aligns w extended back by lagHistory. It returns every
// aligned record and the suffix that falls inside w.
func (r *Runner) alignWithHistory(ctx context.Context, w Window) (all, inside []*domain.AlignedRecord, err error) {
	all, err = r.Align(ctx, Window{Start: w.Start.Add(-lagHistory), End: w.End})
	if err != nil {
		return nil, nil, err
	}
	startMs := w.Start.UnixMilli()
	i := sort.Search(len(all), func(i int) bool {
		return all[i].TimestampMs >= startMs
	})
	return all, all[i:], nil
}

// BuildDataset aligns the window, imputes absent values over the whole
// window, derives lag features and persists the surviving rows. Readings
// stored just before the window only serve as lag history.
func (r *Runner) BuildDataset(ctx context.Context, w Window) ([]*domain.DatasetRow, error) {
	start := time.Now()

	all, records, err := r.alignWithHistory(ctx, w)
	if err != nil {
		observability.RecordPipelineRun("dataset", "error", time.Since(start).Seconds())
		return nil, err
	}

	rows, err := r.rows(all, records)
	if err != nil {
		observability.RecordPipelineRun("dataset", "error", time.Since(start).Seconds())
		return nil, err
	}

	if r.dataset != nil && len(rows) > 0 {
		if err := r.dataset.UpsertBulk(ctx, rows); err != nil {
			observability.RecordPipelineRun("dataset", "error", time.Since(start).Seconds())
			return nil, fmt.Errorf("store dataset rows: %w", err)
		}
	}

	observability.UpdateDatasetSize(len(rows))
	observability.RecordPipelineRun("dataset", "ok", time.Since(start).Seconds())
	r.logger.Printf("Dataset: %d aligned records, %d rows", len(records), len(rows))
	return rows, nil
}

// LabelledDataset returns one row per stored label that lands on a reference
// timestamp. Imputation statistics are computed over the labelled records
// only; lag features still use the full aligned series.
func (r *Runner) LabelledDataset(ctx context.Context, w Window) ([]*domain.DatasetRow, error) {
	start := time.Now()

	all, records, err := r.alignWithHistory(ctx, w)
	if err != nil {
		observability.RecordPipelineRun("labelled", "error", time.Since(start).Seconds())
		return nil, err
	}

	stored, err := r.labels.GetByTimeRange(ctx, w.Start.UnixMilli(), w.End.UnixMilli())
	if err != nil {
		observability.RecordPipelineRun("labelled", "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("load labels: %w", err)
	}
	combined := labels.Combine(stored)

	wanted := make(map[int64]struct{}, len(combined))
	for _, ts := range labels.Timestamps(combined) {
		wanted[ts] = struct{}{}
	}
	subset := make([]*domain.AlignedRecord, 0, len(wanted))
	for _, rec := range records {
		if _, ok := wanted[rec.TimestampMs]; ok {
			subset = append(subset, rec)
		}
	}

	rows, err := r.rows(all, subset)
	if err != nil {
		observability.RecordPipelineRun("labelled", "error", time.Since(start).Seconds())
		return nil, err
	}

	labelled := labels.Attach(rows, combined)
	observability.RecordPipelineRun("labelled", "ok", time.Since(start).Seconds())
	r.logger.Printf("Labelled dataset: %d labels, %d matched, %d rows", len(combined), len(subset), len(labelled))
	return labelled, nil
}

// rows imputes target and fills lag columns from the full aligned series.
func (r *Runner) rows(all, target []*domain.AlignedRecord) ([]*domain.DatasetRow, error) {
	imputed, stats := Impute(target, r.engine.Location())
	for column, n := range stats.Filled {
		observability.RecordImputed(column, n)
	}
	for reason, n := range stats.Dropped {
		observability.RecordDropped(reason, n)
	}

	ix, err := lookup.NewIndex(all, lookup.WithFutureFallback(false), lookup.WithLocation(r.engine.Location()))
	if err != nil {
		return nil, fmt.Errorf("index aligned records: %w", err)
	}

	rows, dropped := WithLagFeatures(ix, imputed)
	observability.RecordDropped(DropNoLag, dropped)
	return rows, nil
}

// WithLagFeatures fills lag columns of rows from ix and drops rows whose lag
// lookups fail. It returns the kept rows and the number dropped.
func WithLagFeatures(ix *lookup.Index, rows []*domain.DatasetRow) ([]*domain.DatasetRow, int) {
	kept := make([]*domain.DatasetRow, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		lag, err := ix.LagFeatures(time.UnixMilli(row.TimestampMs))
		if err != nil {
			dropped++
			continue
		}
		row.HRLag2 = Round2(lag.HRLag2)
		row.HRLag4 = Round2(lag.HRLag4)
		row.HRChangeNow = Round2(row.HeartRate - lag.HRLag2)
		row.HRChange2Min = Round2(lag.Change2Min)
		kept = append(kept, row)
	}
	return kept, dropped
}
