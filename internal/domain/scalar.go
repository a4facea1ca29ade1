package domain

// ScalarName identifies a once-per-day value.
type ScalarName string

const (
	ScalarSleepScore ScalarName = "sleep_score"
	ScalarHRVAvg     ScalarName = "hrv_avg"
)

// DailyScalars lists the per-day values attached to records, in column order.
var DailyScalars = []ScalarName{ScalarSleepScore, ScalarHRVAvg}

// String returns the string representation of ScalarName.
func (s ScalarName) String() string {
	return string(s)
}

// DailyScalar applies uniformly to every record whose tracker-local date is Date.
// Corresponds to daily_scalars table in PostgreSQL.
type DailyScalar struct {
	Date  string     // YYYY-MM-DD, tracker-local
	Name  ScalarName // sleep_score | hrv_avg
	Value *float64   // nil = absent
}

// DayBucket is the tracker's native per-day shape after parsing.
// Signals or scalars that were missing or malformed are simply not present.
type DayBucket struct {
	Date    string
	Signals map[SignalName][]Reading
	Scalars map[ScalarName]*float64
}

// NewDayBucket creates an empty bucket for date.
func NewDayBucket(date string) *DayBucket {
	return &DayBucket{
		Date:    date,
		Signals: make(map[SignalName][]Reading),
		Scalars: make(map[ScalarName]*float64),
	}
}
