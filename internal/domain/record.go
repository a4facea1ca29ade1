package domain

// AlignedRecord is one row keyed by a reference (heart rate) timestamp.
// Secondary values are carried forward from their latest reading at or before
// TimestampMs; SourceMs holds the timestamp that reading came from.
type AlignedRecord struct {
	TimestampMs int64                   // reference timestamp (ms)
	LocalDate   string                  // YYYY-MM-DD in the tracker's location
	HeartRate   *float64                // reference value, nil if reported as null
	Values      map[SignalName]*float64 // carried-forward secondary values
	SourceMs    map[SignalName]int64    // origin timestamp of each present carried value
	Scalars     map[ScalarName]*float64 // daily scalars for LocalDate
}

// Value returns the carried value for a signal, or the reference value for heart_rate.
func (r *AlignedRecord) Value(name SignalName) *float64 {
	if name == ReferenceSignal {
		return r.HeartRate
	}
	return r.Values[name]
}

// Scalar returns a daily scalar, nil when absent.
func (r *AlignedRecord) Scalar(name ScalarName) *float64 {
	return r.Scalars[name]
}

// Clone returns a deep copy.
func (r *AlignedRecord) Clone() *AlignedRecord {
	c := &AlignedRecord{
		TimestampMs: r.TimestampMs,
		LocalDate:   r.LocalDate,
		HeartRate:   clonePtr(r.HeartRate),
		Values:      make(map[SignalName]*float64, len(r.Values)),
		SourceMs:    make(map[SignalName]int64, len(r.SourceMs)),
		Scalars:     make(map[ScalarName]*float64, len(r.Scalars)),
	}
	for k, v := range r.Values {
		c.Values[k] = clonePtr(v)
	}
	for k, v := range r.SourceMs {
		c.SourceMs[k] = v
	}
	for k, v := range r.Scalars {
		c.Scalars[k] = clonePtr(v)
	}
	return c
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	x := *v
	return &x
}
