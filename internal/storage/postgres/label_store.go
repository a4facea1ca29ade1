package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"affect-lab/internal/domain"
	"affect-lab/internal/storage"
)

// LabelStore implements storage.LabelStore using PostgreSQL.
type LabelStore struct {
	pool *Pool
}

// NewLabelStore creates a new LabelStore.
func NewLabelStore(pool *Pool) *LabelStore {
	return &LabelStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LabelStore = (*LabelStore)(nil)

const insertLabelQuery = `
	INSERT INTO emotion_labels (
		timestamp_ms, valence, arousal, emotion, source, created_at
	) VALUES ($1, $2, $3, $4, $5, $6)
`

// Insert adds a label. Returns ErrDuplicateKey if (timestamp_ms, emotion) exists.
func (s *LabelStore) Insert(ctx context.Context, l *domain.EmotionLabel) error {
	if l == nil || l.Emotion == "" || !l.Source.IsValid() {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertLabelQuery,
		l.TimestampMs,
		l.Valence,
		l.Arousal,
		l.Emotion,
		string(l.Source),
		l.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert label: %w", err)
	}
	return nil
}

// InsertBulk adds multiple labels atomically. Fails entire batch on any duplicate.
func (s *LabelStore) InsertBulk(ctx context.Context, labels []*domain.EmotionLabel) error {
	if len(labels) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, l := range labels {
		if l == nil || l.Emotion == "" || !l.Source.IsValid() {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, insertLabelQuery,
			l.TimestampMs,
			l.Valence,
			l.Arousal,
			l.Emotion,
			string(l.Source),
			l.CreatedAt,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert label in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByTimeRange retrieves labels within [start, end] (inclusive).
func (s *LabelStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.EmotionLabel, error) {
	query := `
		SELECT timestamp_ms, valence, arousal, emotion, source, created_at
		FROM emotion_labels
		WHERE timestamp_ms >= $1 AND timestamp_ms <= $2
		ORDER BY timestamp_ms ASC, emotion ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get labels by time range: %w", err)
	}
	defer rows.Close()

	return scanLabels(rows)
}

// GetRecent retrieves the newest labels, newest first.
func (s *LabelStore) GetRecent(ctx context.Context, limit int) ([]*domain.EmotionLabel, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT timestamp_ms, valence, arousal, emotion, source, created_at
		FROM emotion_labels
		ORDER BY timestamp_ms DESC, emotion DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent labels: %w", err)
	}
	defer rows.Close()

	return scanLabels(rows)
}

// scanLabels scans multiple rows into a slice of EmotionLabel.
func scanLabels(rows pgx.Rows) ([]*domain.EmotionLabel, error) {
	var labels []*domain.EmotionLabel

	for rows.Next() {
		var (
			l      domain.EmotionLabel
			source string
		)
		err := rows.Scan(
			&l.TimestampMs,
			&l.Valence,
			&l.Arousal,
			&l.Emotion,
			&source,
			&l.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan label row: %w", err)
		}
		l.Source = domain.LabelSource(source)
		labels = append(labels, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate label rows: %w", err)
	}

	return labels, nil
}
