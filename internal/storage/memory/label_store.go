package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"affect-lab/internal/domain"
	"affect-lab/internal/storage"
)

// LabelStore is an in-memory implementation of storage.LabelStore.
type LabelStore struct {
	mu   sync.RWMutex
	data map[string]*domain.EmotionLabel // keyed by (timestamp_ms, emotion)
}

// NewLabelStore creates a new in-memory label store.
func NewLabelStore() *LabelStore {
	return &LabelStore{
		data: make(map[string]*domain.EmotionLabel),
	}
}

func labelKey(timestampMs int64, emotion string) string {
	return fmt.Sprintf("%d|%s", timestampMs, emotion)
}

// Insert adds a label. Returns ErrDuplicateKey if (timestamp_ms, emotion) exists.
func (s *LabelStore) Insert(_ context.Context, l *domain.EmotionLabel) error {
	if err := validateLabel(l); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := labelKey(l.TimestampMs, l.Emotion)
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[key] = copyLabel(l)
	return nil
}

// InsertBulk adds multiple labels. Fails entire batch on duplicate.
func (s *LabelStore) InsertBulk(_ context.Context, labels []*domain.EmotionLabel) error {
	if len(labels) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if err := validateLabel(l); err != nil {
			return err
		}
		key := labelKey(l.TimestampMs, l.Emotion)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, l := range labels {
		s.data[labelKey(l.TimestampMs, l.Emotion)] = copyLabel(l)
	}
	return nil
}

// GetByTimeRange retrieves labels within [start, end] (inclusive).
func (s *LabelStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.EmotionLabel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EmotionLabel
	for _, l := range s.data {
		if l.TimestampMs >= start && l.TimestampMs <= end {
			result = append(result, copyLabel(l))
		}
	}

	sortLabels(result)
	return result, nil
}

// GetRecent retrieves the newest labels, newest first.
func (s *LabelStore) GetRecent(_ context.Context, limit int) ([]*domain.EmotionLabel, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.EmotionLabel, 0, len(s.data))
	for _, l := range s.data {
		result = append(result, copyLabel(l))
	}

	sortLabels(result)
	// reverse to newest first
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func sortLabels(labels []*domain.EmotionLabel) {
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].TimestampMs != labels[j].TimestampMs {
			return labels[i].TimestampMs < labels[j].TimestampMs
		}
		return labels[i].Emotion < labels[j].Emotion
	})
}

func validateLabel(l *domain.EmotionLabel) error {
	if l == nil || l.Emotion == "" || !l.Source.IsValid() {
		return storage.ErrInvalidInput
	}
	return nil
}

func copyLabel(l *domain.EmotionLabel) *domain.EmotionLabel {
	c := *l
	if l.Valence != nil {
		c.Valence = domain.Float(*l.Valence)
	}
	if l.Arousal != nil {
		c.Arousal = domain.Float(*l.Arousal)
	}
	return &c
}

var _ storage.LabelStore = (*LabelStore)(nil)
