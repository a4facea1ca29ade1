package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"affect-lab/internal/domain"
	"affect-lab/internal/storage"
)

// DailyScalarStore implements storage.DailyScalarStore using PostgreSQL.
type DailyScalarStore struct {
	pool *Pool
}

// NewDailyScalarStore creates a new DailyScalarStore.
func NewDailyScalarStore(pool *Pool) *DailyScalarStore {
	return &DailyScalarStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DailyScalarStore = (*DailyScalarStore)(nil)

// UpsertBulk writes scalars in a single transaction.
func (s *DailyScalarStore) UpsertBulk(ctx context.Context, scalars []domain.DailyScalar) (err error) {
	if len(scalars) == 0 {
		return nil
	}
	for _, sc := range scalars {
		if sc.Date == "" || sc.Name == "" {
			return storage.ErrInvalidInput
		}
	}
	start := time.Now()
	defer func() { observe("upsert_daily_scalars", start, err) }()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO daily_scalars (date, name, value, updated_at)
		VALUES ($1::date, $2, $3, NOW())
		ON CONFLICT (date, name) DO UPDATE
		SET value = EXCLUDED.value,
		    updated_at = NOW()
	`

	for _, sc := range scalars {
		if _, err := tx.Exec(ctx, query, sc.Date, string(sc.Name), sc.Value); err != nil {
			return fmt.Errorf("upsert daily scalar: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByDateRange retrieves scalars for dates within [startDate, endDate] (inclusive).
func (s *DailyScalarStore) GetByDateRange(ctx context.Context, startDate, endDate string) ([]domain.DailyScalar, error) {
	query := `
		SELECT to_char(date, 'YYYY-MM-DD'), name, value
		FROM daily_scalars
		WHERE date >= $1::date AND date <= $2::date
		ORDER BY date ASC, name ASC
	`

	rows, err := s.pool.Query(ctx, query, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("get daily scalars by date range: %w", err)
	}
	defer rows.Close()

	return scanDailyScalars(rows)
}

// scanDailyScalars scans multiple rows into a slice of DailyScalar.
func scanDailyScalars(rows pgx.Rows) ([]domain.DailyScalar, error) {
	var scalars []domain.DailyScalar

	for rows.Next() {
		var (
			sc   domain.DailyScalar
			name string
		)
		if err := rows.Scan(&sc.Date, &name, &sc.Value); err != nil {
			return nil, fmt.Errorf("scan daily scalar row: %w", err)
		}
		sc.Name = domain.ScalarName(name)
		scalars = append(scalars, sc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily scalar rows: %w", err)
	}

	return scalars, nil
}
