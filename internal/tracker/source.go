package tracker

import (
	"context"
	"fmt"
	"os"
	"sort"

	"affect-lab/internal/domain"
)

// Source yields parsed day buckets for calendar dates (YYYY-MM-DD).
type Source interface {
	FetchDay(ctx context.Context, date string) (*domain.DayBucket, error)
}

// FileSource serves days from a raw JSON dump keyed by date.
type FileSource struct {
	days map[string]*domain.DayBucket
}

// NewFileSource loads and parses the dump at path.
func NewFileSource(path string) (*FileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dump: %w", err)
	}
	return NewFileSourceFromBytes(data)
}

// NewFileSourceFromBytes parses an in-memory dump.
func NewFileSourceFromBytes(data []byte) (*FileSource, error) {
	buckets, err := ParseDump(data)
	if err != nil {
		return nil, err
	}
	days := make(map[string]*domain.DayBucket, len(buckets))
	for _, b := range buckets {
		days[b.Date] = b
	}
	return &FileSource{days: days}, nil
}

// Dates returns the dates present in the dump, ascending.
func (s *FileSource) Dates() []string {
	dates := make([]string, 0, len(s.days))
	for d := range s.days {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// FetchDay returns the bucket for date, or ErrDayNotFound.
// The returned bucket is shared and must not be modified.
func (s *FileSource) FetchDay(ctx context.Context, date string) (*domain.DayBucket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, ok := s.days[date]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDayNotFound, date)
	}
	return b, nil
}

var _ Source = (*FileSource)(nil)
