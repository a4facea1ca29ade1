package storage

import (
	"context"

	"affect-lab/internal/domain"
)

// ReadingStore provides access to readings storage.
// Readings are keyed by (signal, timestamp_ms); a later write replaces an earlier one.
type ReadingStore interface {
	// UpsertBulk writes readings of one signal atomically.
	UpsertBulk(ctx context.Context, signal domain.SignalName, readings []domain.Reading) error

	// GetByTimeRange retrieves readings of a signal within [start, end] (inclusive),
	// ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, signal domain.SignalName, start, end int64) ([]domain.Reading, error)

	// LatestTimestamp returns the newest timestamp stored for signal.
	// Returns ErrNotFound if the signal has no readings.
	LatestTimestamp(ctx context.Context, signal domain.SignalName) (int64, error)
}

// DailyScalarStore provides access to daily_scalars storage.
// Scalars are keyed by (date, name); a later write replaces an earlier one.
type DailyScalarStore interface {
	// UpsertBulk writes scalars atomically.
	UpsertBulk(ctx context.Context, scalars []domain.DailyScalar) error

	// GetByDateRange retrieves scalars for dates within [startDate, endDate]
	// (inclusive, YYYY-MM-DD), ordered by (date, name) ASC.
	GetByDateRange(ctx context.Context, startDate, endDate string) ([]domain.DailyScalar, error)
}

// LabelStore provides access to emotion_labels storage.
type LabelStore interface {
	// Insert adds a label. Returns ErrDuplicateKey if (timestamp_ms, emotion) exists.
	Insert(ctx context.Context, l *domain.EmotionLabel) error

	// InsertBulk adds multiple labels atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, labels []*domain.EmotionLabel) error

	// GetByTimeRange retrieves labels within [start, end] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.EmotionLabel, error)

	// GetRecent retrieves the newest labels, newest first, at most limit.
	GetRecent(ctx context.Context, limit int) ([]*domain.EmotionLabel, error)
}

// DatasetStore provides access to dataset_rows storage.
// Rows are keyed by timestamp_ms; a rebuilt row replaces the previous one.
type DatasetStore interface {
	// UpsertBulk writes rows atomically.
	UpsertBulk(ctx context.Context, rows []*domain.DatasetRow) error

	// GetByTimeRange retrieves rows within [start, end] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.DatasetRow, error)
}

// IngestProgress is the outcome of the last ingest run.
type IngestProgress struct {
	LastDate  string // newest date fetched, YYYY-MM-DD
	UpdatedAt int64  // epoch ms
}

// IngestProgressStore tracks which tracker dates have been fully ingested,
// so repeated runs only fetch what is missing.
type IngestProgressStore interface {
	// GetLastFetched returns the last ingest progress.
	// Returns ErrNotFound if no progress has been saved yet.
	GetLastFetched(ctx context.Context) (*IngestProgress, error)

	// SetLastFetched saves ingest progress.
	SetLastFetched(ctx context.Context, progress *IngestProgress) error

	// IsDateComplete checks if a date has been fully ingested.
	IsDateComplete(ctx context.Context, date string) (bool, error)

	// MarkDateComplete records that a date is fully ingested.
	MarkDateComplete(ctx context.Context, date string) error
}
