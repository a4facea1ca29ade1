package memory

import (
	"context"
	"sort"
	"sync"

	"affect-lab/internal/domain"
	"affect-lab/internal/storage"
)

// DatasetStore is an in-memory implementation of storage.DatasetStore.
type DatasetStore struct {
	mu   sync.RWMutex
	data map[int64]*domain.DatasetRow // keyed by timestamp_ms
}

// NewDatasetStore creates a new in-memory dataset store.
func NewDatasetStore() *DatasetStore {
	return &DatasetStore{
		data: make(map[int64]*domain.DatasetRow),
	}
}

// UpsertBulk writes rows. Existing timestamps are replaced.
func (s *DatasetStore) UpsertBulk(_ context.Context, rows []*domain.DatasetRow) error {
	for _, r := range rows {
		if r == nil {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rows {
		s.data[r.TimestampMs] = copyRow(r)
	}
	return nil
}

// GetByTimeRange retrieves rows within [start, end] (inclusive).
func (s *DatasetStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.DatasetRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DatasetRow
	for ts, r := range s.data {
		if ts >= start && ts <= end {
			result = append(result, copyRow(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

func copyRow(r *domain.DatasetRow) *domain.DatasetRow {
	c := *r
	if r.Valence != nil {
		c.Valence = domain.Float(*r.Valence)
	}
	if r.Arousal != nil {
		c.Arousal = domain.Float(*r.Arousal)
	}
	return &c
}

var _ storage.DatasetStore = (*DatasetStore)(nil)
