// Package lookup resolves arbitrary timestamps to aligned records.
package lookup

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"affect-lab/internal/domain"
)

// Errors returned by lookup functions.
var (
	ErrNoData              = errors.New("no aligned records available")
	ErrNotFound            = errors.New("no record within tolerance")
	ErrInsufficientHistory = errors.New("insufficient history for lag features")
	ErrUnsorted            = errors.New("records must be strictly increasing by timestamp")
)

// DefaultTolerance is the maximum distance between a query and its match.
const DefaultTolerance = 120 * time.Second

// Match is the outcome of a successful lookup.
type Match struct {
	Record *domain.AlignedRecord
	// Offset is record time minus target time.
	Offset time.Duration
	// Substituted is set when the target was later than every record and the
	// latest record was returned instead of failing.
	Substituted bool
}

// Index answers nearest-timestamp queries over one aligned batch.
type Index struct {
	records        []*domain.AlignedRecord
	tolerance      time.Duration
	futureFallback bool
	loc            *time.Location
}

// Option configures an Index.
type Option func(*Index)

// WithTolerance sets the maximum match distance.
func WithTolerance(d time.Duration) Option {
	return func(ix *Index) {
		ix.tolerance = d
	}
}

// WithFutureFallback controls whether queries past the last record resolve to it.
// Enabled by default.
func WithFutureFallback(enabled bool) Option {
	return func(ix *Index) {
		ix.futureFallback = enabled
	}
}

// WithLocation sets the canonical location queries are normalised to.
func WithLocation(loc *time.Location) Option {
	return func(ix *Index) {
		if loc != nil {
			ix.loc = loc
		}
	}
}

// NewIndex builds an index over records, which must be strictly increasing.
func NewIndex(records []*domain.AlignedRecord, opts ...Option) (*Index, error) {
	for i := 1; i < len(records); i++ {
		if records[i].TimestampMs <= records[i-1].TimestampMs {
			return nil, fmt.Errorf("%w: index %d", ErrUnsorted, i)
		}
	}

	ix := &Index{
		records:        records,
		tolerance:      DefaultTolerance,
		futureFallback: true,
		loc:            time.UTC,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix, nil
}

// Len returns the number of indexed records.
func (ix *Index) Len() int {
	return len(ix.records)
}

// Latest returns the most recent record, or nil when empty.
func (ix *Index) Latest() *domain.AlignedRecord {
	if len(ix.records) == 0 {
		return nil
	}
	return ix.records[len(ix.records)-1]
}

// Nearest returns the record closest to target.
//
// Equidistant candidates resolve to the earlier record. When the future
// fallback is enabled and target is after every record, the latest record is
// returned with Substituted set, regardless of tolerance.
func (ix *Index) Nearest(target time.Time) (Match, error) {
	if len(ix.records) == 0 {
		return Match{}, ErrNoData
	}

	targetMs := target.In(ix.loc).UnixMilli()

	latest := ix.records[len(ix.records)-1]
	if ix.futureFallback && targetMs > latest.TimestampMs {
		return Match{
			Record:      latest,
			Offset:      time.Duration(latest.TimestampMs-targetMs) * time.Millisecond,
			Substituted: true,
		}, nil
	}

	return ix.nearestStrict(targetMs)
}

// NearestStrict is Nearest without the future fallback.
func (ix *Index) NearestStrict(target time.Time) (Match, error) {
	if len(ix.records) == 0 {
		return Match{}, ErrNoData
	}
	return ix.nearestStrict(target.In(ix.loc).UnixMilli())
}

func (ix *Index) nearestStrict(targetMs int64) (Match, error) {
	// First record at or after target.
	idx := sort.Search(len(ix.records), func(i int) bool {
		return ix.records[i].TimestampMs >= targetMs
	})

	best := -1
	var bestDiff int64
	for _, i := range []int{idx - 1, idx} {
		if i < 0 || i >= len(ix.records) {
			continue
		}
		diff := absMs(ix.records[i].TimestampMs - targetMs)
		// Strict < keeps the earlier candidate on ties.
		if best < 0 || diff < bestDiff {
			best = i
			bestDiff = diff
		}
	}

	if best < 0 || time.Duration(bestDiff)*time.Millisecond > ix.tolerance {
		return Match{}, ErrNotFound
	}

	rec := ix.records[best]
	return Match{
		Record: rec,
		Offset: time.Duration(rec.TimestampMs-targetMs) * time.Millisecond,
	}, nil
}

func absMs(d int64) int64 {
	if d < 0 {
		return -d
	}
	return d
}

// naiveLayouts are accepted for timestamps without a zone; they are read as
// wall-clock time in the index location.
var naiveLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseTime parses an RFC 3339 timestamp, or a zone-less one as wall-clock
// time in the index location.
func (ix *Index) ParseTime(value string) (time.Time, error) {
	return ParseTimeIn(value, ix.loc)
}

// ParseTimeIn is ParseTime for an explicit location.
func ParseTimeIn(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q: unsupported format", value)
}
