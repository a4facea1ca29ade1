package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"affect-lab/internal/storage"
)

// IngestProgressStore is a PostgreSQL implementation of storage.IngestProgressStore.
// Uses two tables:
//   - ingest_progress: single row with (last_date, updated_at)
//   - ingest_complete_dates: set of fully ingested dates
type IngestProgressStore struct {
	pool *Pool
}

// NewIngestProgressStore creates a new PostgreSQL ingest progress store.
func NewIngestProgressStore(pool *Pool) *IngestProgressStore {
	return &IngestProgressStore{pool: pool}
}

// GetLastFetched returns the last ingest progress.
func (s *IngestProgressStore) GetLastFetched(ctx context.Context) (*storage.IngestProgress, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT to_char(last_date, 'YYYY-MM-DD'), updated_at
		FROM ingest_progress
		WHERE id = 1
	`)

	var progress storage.IngestProgress
	err := row.Scan(&progress.LastDate, &progress.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	return &progress, nil
}

// SetLastFetched saves ingest progress.
// Uses upsert to handle initial insert and subsequent updates.
func (s *IngestProgressStore) SetLastFetched(ctx context.Context, progress *storage.IngestProgress) error {
	if progress == nil || progress.LastDate == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO ingest_progress (id, last_date, updated_at)
		VALUES (1, $1::date, $2)
		ON CONFLICT (id) DO UPDATE
		SET last_date = EXCLUDED.last_date,
		    updated_at = EXCLUDED.updated_at
	`, progress.LastDate, progress.UpdatedAt)

	return err
}

// IsDateComplete checks if a date has been fully ingested.
func (s *IngestProgressStore) IsDateComplete(ctx context.Context, date string) (bool, error) {
	if date == "" {
		return false, storage.ErrInvalidInput
	}

	row := s.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM ingest_complete_dates WHERE date = $1::date)
	`, date)

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

// MarkDateComplete records that a date is fully ingested.
func (s *IngestProgressStore) MarkDateComplete(ctx context.Context, date string) error {
	if date == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO ingest_complete_dates (date, completed_at)
		VALUES ($1::date, NOW())
		ON CONFLICT (date) DO NOTHING
	`, date)

	return err
}

var _ storage.IngestProgressStore = (*IngestProgressStore)(nil)
