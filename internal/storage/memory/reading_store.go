package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"affect-lab/internal/domain"
	"affect-lab/internal/storage"
)

// ReadingStore is an in-memory implementation of storage.ReadingStore.
type ReadingStore struct {
	mu   sync.RWMutex
	data map[string]storedReading // keyed by (signal, timestamp_ms)
}

type storedReading struct {
	signal  domain.SignalName
	reading domain.Reading
}

// NewReadingStore creates a new in-memory reading store.
func NewReadingStore() *ReadingStore {
	return &ReadingStore{
		data: make(map[string]storedReading),
	}
}

// readingKey generates a unique key for a reading.
func readingKey(signal domain.SignalName, timestampMs int64) string {
	return fmt.Sprintf("%s|%d", signal, timestampMs)
}

// UpsertBulk writes readings of one signal. Existing keys are replaced.
func (s *ReadingStore) UpsertBulk(_ context.Context, signal domain.SignalName, readings []domain.Reading) error {
	if !signal.IsValid() {
		return storage.ErrInvalidInput
	}
	if len(readings) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range readings {
		s.data[readingKey(signal, r.TimestampMs)] = storedReading{
			signal:  signal,
			reading: copyReading(r),
		}
	}
	return nil
}

// GetByTimeRange retrieves readings of a signal within [start, end] (inclusive).
func (s *ReadingStore) GetByTimeRange(_ context.Context, signal domain.SignalName, start, end int64) ([]domain.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Reading
	for _, r := range s.data {
		if r.signal == signal && r.reading.TimestampMs >= start && r.reading.TimestampMs <= end {
			result = append(result, copyReading(r.reading))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

// LatestTimestamp returns the newest timestamp for signal.
func (s *ReadingStore) LatestTimestamp(_ context.Context, signal domain.SignalName) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest int64
	found := false
	for _, r := range s.data {
		if r.signal == signal && (!found || r.reading.TimestampMs > latest) {
			latest = r.reading.TimestampMs
			found = true
		}
	}
	if !found {
		return 0, storage.ErrNotFound
	}
	return latest, nil
}

func copyReading(r domain.Reading) domain.Reading {
	out := domain.Reading{TimestampMs: r.TimestampMs}
	if r.Value != nil {
		out.Value = domain.Float(*r.Value)
	}
	return out
}

var _ storage.ReadingStore = (*ReadingStore)(nil)
