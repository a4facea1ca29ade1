package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"affect-lab/internal/domain"
	"affect-lab/internal/storage"
)

// DailyScalarStore is an in-memory implementation of storage.DailyScalarStore.
type DailyScalarStore struct {
	mu   sync.RWMutex
	data map[string]domain.DailyScalar // keyed by (date, name)
}

// NewDailyScalarStore creates a new in-memory daily scalar store.
func NewDailyScalarStore() *DailyScalarStore {
	return &DailyScalarStore{
		data: make(map[string]domain.DailyScalar),
	}
}

func scalarKey(date string, name domain.ScalarName) string {
	return fmt.Sprintf("%s|%s", date, name)
}

// UpsertBulk writes scalars. Existing keys are replaced.
func (s *DailyScalarStore) UpsertBulk(_ context.Context, scalars []domain.DailyScalar) error {
	for _, sc := range scalars {
		if sc.Date == "" || sc.Name == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sc := range scalars {
		s.data[scalarKey(sc.Date, sc.Name)] = copyScalar(sc)
	}
	return nil
}

// GetByDateRange retrieves scalars for dates within [startDate, endDate].
func (s *DailyScalarStore) GetByDateRange(_ context.Context, startDate, endDate string) ([]domain.DailyScalar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.DailyScalar
	for _, sc := range s.data {
		// YYYY-MM-DD compares lexically in date order
		if sc.Date >= startDate && sc.Date <= endDate {
			result = append(result, copyScalar(sc))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		return result[i].Name < result[j].Name
	})

	return result, nil
}

func copyScalar(sc domain.DailyScalar) domain.DailyScalar {
	out := domain.DailyScalar{Date: sc.Date, Name: sc.Name}
	if sc.Value != nil {
		out.Value = domain.Float(*sc.Value)
	}
	return out
}

var _ storage.DailyScalarStore = (*DailyScalarStore)(nil)
