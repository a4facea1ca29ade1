package reporting

import "time"

// Report summarises one dataset build.
type Report struct {
	GeneratedAt time.Time

	DataSummary DataSummary
	DataQuality DataQualitySection

	// Distributions over labelled rows, sorted by name.
	Emotions    []CountRow
	TimesOfDay  []CountRow
	SleepTiers  []CountRow
	TargetStats []TargetStatRow
}

// DataSummary describes the dataset.
type DataSummary struct {
	TotalRows      int
	LabelledRows   int
	DateRangeStart int64 // Unix ms
	DateRangeEnd   int64 // Unix ms
}

// DataQualitySection contains data sufficiency checks.
type DataQualitySection struct {
	SufficiencyChecks []SufficiencyCheckRow
	AllChecksPassed   bool
}

// SufficiencyCheckRow represents one sufficiency criterion.
type SufficiencyCheckRow struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// CountRow is one bucket of a distribution.
type CountRow struct {
	Name  string
	Count int
}

// TargetStatRow summarises one label target.
type TargetStatRow struct {
	Target string
	Mean   float64
	Median float64
	Min    float64
	Max    float64
}
