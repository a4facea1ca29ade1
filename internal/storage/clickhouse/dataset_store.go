package clickhouse

import (
	"context"
	"fmt"
	"time"

	"affect-lab/internal/domain"
	"affect-lab/internal/observability"
	"affect-lab/internal/storage"
)

// DatasetStore implements storage.DatasetStore using ClickHouse.
// dataset_rows is a ReplacingMergeTree keyed by timestamp_ms; every write
// carries a fresh version and reads use FINAL, so the latest build wins.
type DatasetStore struct {
	conn *Conn
	now  func() time.Time
}

// NewDatasetStore creates a new DatasetStore.
func NewDatasetStore(conn *Conn) *DatasetStore {
	return &DatasetStore{conn: conn, now: time.Now}
}

// Compile-time interface check.
var _ storage.DatasetStore = (*DatasetStore)(nil)

// UpsertBulk writes rows in one batch.
func (s *DatasetStore) UpsertBulk(ctx context.Context, rows []*domain.DatasetRow) (err error) {
	if len(rows) == 0 {
		return nil
	}
	for _, r := range rows {
		if r == nil {
			return storage.ErrInvalidInput
		}
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "upsert_dataset_rows", time.Since(start).Seconds(), err)
	}()

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO dataset_rows (
			timestamp_ms, local_time,
			heart_rate, stress, respiration, body_battery, spo2, hrv_avg, sleep_score,
			sleep_tier, time_of_day,
			hr_lag_2min, hr_lag_4min, hr_change_now, hr_change_2min,
			valence, arousal, emotion, version
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	version := uint64(s.now().UnixNano())
	for _, r := range rows {
		// Pass nil values directly for Nullable columns
		err = batch.Append(
			r.TimestampMs, r.LocalTime,
			r.HeartRate, r.Stress, r.Respiration, r.BodyBattery, r.SpO2, r.HRVAvg, r.SleepScore,
			string(r.SleepTier), string(r.TimeOfDay),
			r.HRLag2, r.HRLag4, r.HRChangeNow, r.HRChange2Min,
			r.Valence, r.Arousal, r.Emotion, version,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTimeRange retrieves rows within [start, end] (inclusive).
func (s *DatasetStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.DatasetRow, error) {
	query := `
		SELECT
			timestamp_ms, local_time,
			heart_rate, stress, respiration, body_battery, spo2, hrv_avg, sleep_score,
			sleep_tier, time_of_day,
			hr_lag_2min, hr_lag_4min, hr_change_now, hr_change_2min,
			valence, arousal, emotion
		FROM dataset_rows FINAL
		WHERE timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanDatasetRows(rows)
}

// scanDatasetRows scans multiple rows.
func scanDatasetRows(rows chRows) ([]*domain.DatasetRow, error) {
	var result []*domain.DatasetRow

	for rows.Next() {
		var (
			r               domain.DatasetRow
			tier, timeOfDay string
		)

		err := rows.Scan(
			&r.TimestampMs, &r.LocalTime,
			&r.HeartRate, &r.Stress, &r.Respiration, &r.BodyBattery, &r.SpO2, &r.HRVAvg, &r.SleepScore,
			&tier, &timeOfDay,
			&r.HRLag2, &r.HRLag4, &r.HRChangeNow, &r.HRChange2Min,
			&r.Valence, &r.Arousal, &r.Emotion,
		)
		if err != nil {
			return nil, fmt.Errorf("scan dataset row: %w", err)
		}

		r.SleepTier = domain.SleepTier(tier)
		r.TimeOfDay = domain.TimeOfDay(timeOfDay)
		result = append(result, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dataset rows: %w", err)
	}

	return result, nil
}
