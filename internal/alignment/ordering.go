package alignment

import (
	"sort"

	"affect-lab/internal/domain"
)

// DedupeReadings collapses sorted readings sharing a timestamp, keeping the last.
func DedupeReadings(readings []domain.Reading) []domain.Reading {
	if len(readings) == 0 {
		return nil
	}

	result := make([]domain.Reading, 0, len(readings))
	for _, r := range readings {
		if n := len(result); n > 0 && result[n-1].TimestampMs == r.TimestampMs {
			result[n-1] = r
			continue
		}
		result = append(result, r)
	}
	return result
}

// SortRecords orders records by timestamp ASC.
func SortRecords(records []*domain.AlignedRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].TimestampMs < records[j].TimestampMs
	})
}

// MergeBatches concatenates two aligned batches keyed by timestamp.
// On an exact timestamp collision the record from next wins. The result is
// sorted and unique, so merging a batch with itself is a no-op.
func MergeBatches(prior, next []*domain.AlignedRecord) []*domain.AlignedRecord {
	byTs := make(map[int64]*domain.AlignedRecord, len(prior)+len(next))
	for _, r := range prior {
		byTs[r.TimestampMs] = r
	}
	for _, r := range next {
		byTs[r.TimestampMs] = r
	}

	result := make([]*domain.AlignedRecord, 0, len(byTs))
	for _, r := range byTs {
		result = append(result, r.Clone())
	}
	SortRecords(result)
	return result
}

// FromDays flattens day buckets into one series per signal plus the daily scalars.
// Days are processed in date order so that, for duplicate timestamps across
// buckets, the later day's reading is the one kept.
func FromDays(days []*domain.DayBucket) (domain.SignalSeries, []domain.SignalSeries, []domain.DailyScalar) {
	sorted := make([]*domain.DayBucket, 0, len(days))
	for _, d := range days {
		if d != nil {
			sorted = append(sorted, d)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date < sorted[j].Date
	})

	reference := domain.SignalSeries{Name: domain.ReferenceSignal}
	secondary := make(map[domain.SignalName]*domain.SignalSeries, len(domain.SecondarySignals))
	for _, name := range domain.SecondarySignals {
		secondary[name] = &domain.SignalSeries{Name: name}
	}

	var scalars []domain.DailyScalar
	for _, d := range sorted {
		reference.Readings = append(reference.Readings, d.Signals[domain.ReferenceSignal]...)
		for _, name := range domain.SecondarySignals {
			secondary[name].Readings = append(secondary[name].Readings, d.Signals[name]...)
		}
		for _, name := range domain.DailyScalars {
			if v, ok := d.Scalars[name]; ok && v != nil {
				scalars = append(scalars, domain.DailyScalar{Date: d.Date, Name: name, Value: v})
			}
		}
	}

	secondaries := make([]domain.SignalSeries, 0, len(domain.SecondarySignals))
	for _, name := range domain.SecondarySignals {
		secondaries = append(secondaries, *secondary[name])
	}
	return reference, secondaries, scalars
}
