package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"affect-lab/internal/domain"
	"affect-lab/internal/storage"
)

// ReadingStore implements storage.ReadingStore using PostgreSQL.
type ReadingStore struct {
	pool *Pool
}

// NewReadingStore creates a new ReadingStore.
func NewReadingStore(pool *Pool) *ReadingStore {
	return &ReadingStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ReadingStore = (*ReadingStore)(nil)

// UpsertBulk writes readings of one signal in a single transaction.
// Existing (signal, timestamp_ms) rows are replaced.
func (s *ReadingStore) UpsertBulk(ctx context.Context, signal domain.SignalName, readings []domain.Reading) (err error) {
	if !signal.IsValid() {
		return storage.ErrInvalidInput
	}
	if len(readings) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { observe("upsert_readings", start, err) }()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO readings (signal, timestamp_ms, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (signal, timestamp_ms) DO UPDATE
		SET value = EXCLUDED.value,
		    updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, r := range readings {
		batch.Queue(query, string(signal), r.TimestampMs, r.Value)
	}

	br := tx.SendBatch(ctx, batch)
	for range readings {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("upsert reading: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByTimeRange retrieves readings of a signal within [start, end] (inclusive).
func (s *ReadingStore) GetByTimeRange(ctx context.Context, signal domain.SignalName, start, end int64) ([]domain.Reading, error) {
	query := `
		SELECT timestamp_ms, value
		FROM readings
		WHERE signal = $1 AND timestamp_ms >= $2 AND timestamp_ms <= $3
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.pool.Query(ctx, query, string(signal), start, end)
	if err != nil {
		return nil, fmt.Errorf("get readings by time range: %w", err)
	}
	defer rows.Close()

	return scanReadings(rows)
}

// LatestTimestamp returns the newest timestamp stored for signal.
func (s *ReadingStore) LatestTimestamp(ctx context.Context, signal domain.SignalName) (int64, error) {
	query := `
		SELECT timestamp_ms
		FROM readings
		WHERE signal = $1
		ORDER BY timestamp_ms DESC
		LIMIT 1
	`

	var ts int64
	if err := s.pool.QueryRow(ctx, query, string(signal)).Scan(&ts); err != nil {
		if isNotFoundError(err) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("get latest reading: %w", err)
	}
	return ts, nil
}

// scanReadings scans multiple rows into a slice of Reading.
func scanReadings(rows pgx.Rows) ([]domain.Reading, error) {
	var readings []domain.Reading

	for rows.Next() {
		var r domain.Reading
		if err := rows.Scan(&r.TimestampMs, &r.Value); err != nil {
			return nil, fmt.Errorf("scan reading row: %w", err)
		}
		readings = append(readings, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reading rows: %w", err)
	}

	return readings, nil
}
