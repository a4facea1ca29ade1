// Package labels loads logged emotion labels and joins them onto dataset rows.
//
// Label timestamps are wall-clock times in the tracker's location. A trailing
// "Z" is a formatting artefact of the logging app and is ignored rather than
// read as UTC.
package labels

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"affect-lab/internal/domain"
	"affect-lab/internal/lookup"
)

// ErrMalformed is returned for label input that cannot be parsed.
var ErrMalformed = errors.New("malformed label input")

// ParseLocal parses a label timestamp as wall-clock time in loc.
func ParseLocal(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSuffix(strings.TrimSpace(value), "Z")
	t, err := lookup.ParseTimeIn(value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return t, nil
}

// RoundDownEvenMinute truncates t to the start of its even wall-clock minute.
func RoundDownEvenMinute(t time.Time) time.Time {
	minute := t.Minute() - t.Minute()%2
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), minute, 0, 0, t.Location())
}

// Combine merges label sets, keeps complete labels and sorts them by timestamp.
// Labels sharing a timestamp keep their input order.
func Combine(sets ...[]*domain.EmotionLabel) []*domain.EmotionLabel {
	var result []*domain.EmotionLabel
	for _, set := range sets {
		for _, l := range set {
			if l != nil && l.Complete() {
				result = append(result, l)
			}
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result
}

// Attach joins labels onto rows by exact timestamp.
//
// One labelled row is produced per matching label, in label order, so two
// labels logged at the same minute yield two rows. Labels with no row at
// their timestamp are skipped. Input rows are not modified.
func Attach(rows []*domain.DatasetRow, labels []*domain.EmotionLabel) []*domain.DatasetRow {
	byTs := make(map[int64]*domain.DatasetRow, len(rows))
	for _, r := range rows {
		byTs[r.TimestampMs] = r
	}

	var result []*domain.DatasetRow
	for _, l := range labels {
		if !l.Complete() {
			continue
		}
		r, ok := byTs[l.TimestampMs]
		if !ok {
			continue
		}
		labelled := *r
		labelled.Valence = domain.Float(*l.Valence)
		labelled.Arousal = domain.Float(*l.Arousal)
		labelled.Emotion = l.Emotion
		result = append(result, &labelled)
	}
	return result
}

// Timestamps returns the distinct label timestamps in ascending order.
func Timestamps(labels []*domain.EmotionLabel) []int64 {
	seen := make(map[int64]struct{}, len(labels))
	var result []int64
	for _, l := range labels {
		if _, ok := seen[l.TimestampMs]; ok {
			continue
		}
		seen[l.TimestampMs] = struct{}{}
		result = append(result, l.TimestampMs)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}
