package memory

import (
	"context"
	"sync"

	"affect-lab/internal/storage"
)

// IngestProgressStore is an in-memory implementation of storage.IngestProgressStore.
type IngestProgressStore struct {
	mu       sync.RWMutex
	progress *storage.IngestProgress
	complete map[string]bool
}

// NewIngestProgressStore creates a new in-memory ingest progress store.
func NewIngestProgressStore() *IngestProgressStore {
	return &IngestProgressStore{
		complete: make(map[string]bool),
	}
}

// GetLastFetched returns the last ingest progress.
func (s *IngestProgressStore) GetLastFetched(_ context.Context) (*storage.IngestProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.progress == nil {
		return nil, storage.ErrNotFound
	}

	p := *s.progress
	return &p, nil
}

// SetLastFetched saves ingest progress.
func (s *IngestProgressStore) SetLastFetched(_ context.Context, progress *storage.IngestProgress) error {
	if progress == nil || progress.LastDate == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := *progress
	s.progress = &p
	return nil
}

// IsDateComplete checks if a date has been fully ingested.
func (s *IngestProgressStore) IsDateComplete(_ context.Context, date string) (bool, error) {
	if date == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.complete[date], nil
}

// MarkDateComplete records that a date is fully ingested.
func (s *IngestProgressStore) MarkDateComplete(_ context.Context, date string) error {
	if date == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.complete[date] = true
	return nil
}

var _ storage.IngestProgressStore = (*IngestProgressStore)(nil)
