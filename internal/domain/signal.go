package domain

import "sort"

// SignalName identifies a physiological time series reported by the tracker.
type SignalName string

const (
	SignalHeartRate   SignalName = "heart_rate"
	SignalStress      SignalName = "stress"
	SignalRespiration SignalName = "respiration"
	SignalBodyBattery SignalName = "body_battery"
	SignalSpO2        SignalName = "spo2"
	SignalHRV         SignalName = "hrv"
)

// ReferenceSignal is the fast, regularly sampled signal every record is keyed on.
const ReferenceSignal = SignalHeartRate

// SecondarySignals lists the slow signals carried forward onto reference timestamps,
// in column order.
var SecondarySignals = []SignalName{
	SignalStress,
	SignalRespiration,
	SignalBodyBattery,
	SignalSpO2,
	SignalHRV,
}

// String returns the string representation of SignalName.
func (s SignalName) String() string {
	return string(s)
}

// IsValid checks if the signal is a known value.
func (s SignalName) IsValid() bool {
	if s == ReferenceSignal {
		return true
	}
	for _, n := range SecondarySignals {
		if s == n {
			return true
		}
	}
	return false
}

// Reading is a single sample. Value is nil when the tracker reported no measurement.
type Reading struct {
	TimestampMs int64    // Unix timestamp in milliseconds, second precision
	Value       *float64 // nil = absent
}

// SignalSeries is one signal's readings for a fetch window, ordered by timestamp ASC.
type SignalSeries struct {
	Name     SignalName
	Readings []Reading
}

// Len returns the number of readings.
func (s SignalSeries) Len() int {
	return len(s.Readings)
}

// Sorted returns a copy of the series ordered by timestamp.
// Readings sharing a timestamp keep their input order, so the last one wins
// when callers collapse duplicates.
func (s SignalSeries) Sorted() SignalSeries {
	readings := make([]Reading, len(s.Readings))
	copy(readings, s.Readings)
	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].TimestampMs < readings[j].TimestampMs
	})
	return SignalSeries{Name: s.Name, Readings: readings}
}

// SecondPrecision truncates a millisecond timestamp to whole seconds.
func SecondPrecision(ms int64) int64 {
	if ms >= 0 {
		return ms - ms%1000
	}
	rem := ms % 1000
	if rem == 0 {
		return ms
	}
	return ms - rem - 1000
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
