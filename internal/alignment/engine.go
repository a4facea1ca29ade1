// Package alignment merges independently sampled signals onto the reference
// signal's timestamps using last-observation-carried-forward.
package alignment

import (
	"time"

	"affect-lab/internal/domain"
)

// DefaultLocation is the tracker's home location used for calendar dates.
const DefaultLocation = "Europe/Madrid"

// Engine aligns one window of signals. It holds no state between calls.
type Engine struct {
	loc *time.Location
}

// NewEngine creates an engine that buckets records into calendar dates in loc.
// A nil loc means UTC.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{loc: loc}
}

// Location returns the location used for calendar dates.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// LocalDate returns the YYYY-MM-DD date of ms in the engine's location.
func (e *Engine) LocalDate(ms int64) string {
	return time.UnixMilli(ms).In(e.loc).Format(time.DateOnly)
}

// Align produces one record per reference timestamp.
//
// For each secondary signal a cursor walks its readings in step with the
// reference timestamps: every reading at or before the current reference
// timestamp updates the signal's slot, so a slot never holds a value from the
// future. Absent readings do not clear a slot. Duplicate reference timestamps
// collapse to the last reading.
//
// Daily scalars attach by exact match on the record's local date.
func (e *Engine) Align(reference domain.SignalSeries, secondaries []domain.SignalSeries, scalars []domain.DailyScalar) []*domain.AlignedRecord {
	ref := DedupeReadings(reference.Sorted().Readings)
	if len(ref) == 0 {
		return nil
	}

	cursors := make([]*cursor, 0, len(secondaries))
	for _, s := range secondaries {
		cursors = append(cursors, newCursor(s))
	}

	byDate := indexScalars(scalars)

	result := make([]*domain.AlignedRecord, 0, len(ref))
	for _, r := range ref {
		rec := &domain.AlignedRecord{
			TimestampMs: r.TimestampMs,
			LocalDate:   e.LocalDate(r.TimestampMs),
			HeartRate:   copyValue(r.Value),
			Values:      make(map[domain.SignalName]*float64, len(cursors)),
			SourceMs:    make(map[domain.SignalName]int64, len(cursors)),
			Scalars:     make(map[domain.ScalarName]*float64, len(domain.DailyScalars)),
		}

		for _, c := range cursors {
			c.advance(r.TimestampMs)
			rec.Values[c.name] = copyValue(c.last)
			if c.last != nil {
				rec.SourceMs[c.name] = c.lastMs
			}
		}

		for name, v := range byDate[rec.LocalDate] {
			rec.Scalars[name] = copyValue(v)
		}

		result = append(result, rec)
	}

	return result
}

// cursor tracks the last known value of one secondary signal.
type cursor struct {
	name     domain.SignalName
	readings []domain.Reading
	pos      int
	last     *float64
	lastMs   int64
}

func newCursor(s domain.SignalSeries) *cursor {
	return &cursor{name: s.Name, readings: s.Sorted().Readings}
}

// advance consumes every reading at or before ts.
func (c *cursor) advance(ts int64) {
	for c.pos < len(c.readings) && c.readings[c.pos].TimestampMs <= ts {
		r := c.readings[c.pos]
		if r.Value != nil {
			c.last = r.Value
			c.lastMs = r.TimestampMs
		}
		c.pos++
	}
}

func indexScalars(scalars []domain.DailyScalar) map[string]map[domain.ScalarName]*float64 {
	byDate := make(map[string]map[domain.ScalarName]*float64)
	for _, s := range scalars {
		if s.Value == nil {
			continue
		}
		m, ok := byDate[s.Date]
		if !ok {
			m = make(map[domain.ScalarName]*float64)
			byDate[s.Date] = m
		}
		m[s.Name] = s.Value
	}
	return byDate
}

func copyValue(v *float64) *float64 {
	if v == nil {
		return nil
	}
	x := *v
	return &x
}
