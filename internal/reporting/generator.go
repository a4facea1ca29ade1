package reporting

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"affect-lab/internal/domain"
)

// DefaultMinLabelledRows is the smallest labelled set considered trainable.
const DefaultMinLabelledRows = 30

// Generator produces dataset reports.
type Generator struct {
	minLabelled int
	now         func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{
		minLabelled: DefaultMinLabelledRows,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithMinLabelled sets the labelled row threshold.
func (g *Generator) WithMinLabelled(n int) *Generator {
	g.minLabelled = n
	return g
}

// Generate builds a report from the full dataset and its labelled subset.
func (g *Generator) Generate(rows, labelled []*domain.DatasetRow) *Report {
	summary := DataSummary{TotalRows: len(rows), LabelledRows: len(labelled)}
	for i, r := range rows {
		if i == 0 || r.TimestampMs < summary.DateRangeStart {
			summary.DateRangeStart = r.TimestampMs
		}
		if r.TimestampMs > summary.DateRangeEnd {
			summary.DateRangeEnd = r.TimestampMs
		}
	}

	emotions := make(map[string]int)
	times := make(map[string]int)
	tiers := make(map[string]int)
	var valence, arousal []float64
	for _, r := range labelled {
		emotions[r.Emotion]++
		times[string(r.TimeOfDay)]++
		tiers[string(r.SleepTier)]++
		if r.Valence != nil {
			valence = append(valence, *r.Valence)
		}
		if r.Arousal != nil {
			arousal = append(arousal, *r.Arousal)
		}
	}

	var targets []TargetStatRow
	for _, t := range []struct {
		name   string
		values []float64
	}{{TargetValence, valence}, {TargetArousal, arousal}} {
		if len(t.values) == 0 {
			continue
		}
		sorted := append([]float64(nil), t.values...)
		sort.Float64s(sorted)
		targets = append(targets, TargetStatRow{
			Target: t.name,
			Mean:   stat.Mean(sorted, nil),
			Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
			Min:    floats.Min(sorted),
			Max:    floats.Max(sorted),
		})
	}

	quality := g.checks(len(labelled), times)

	return &Report{
		GeneratedAt: g.now(),
		DataSummary: summary,
		DataQuality: quality,
		Emotions:    countRows(emotions),
		TimesOfDay:  countRows(times),
		SleepTiers:  countRows(tiers),
		TargetStats: targets,
	}
}

func (g *Generator) checks(labelled int, times map[string]int) DataQualitySection {
	checks := []SufficiencyCheckRow{{
		Name:      "Labelled rows",
		Threshold: fmt.Sprintf(">= %d", g.minLabelled),
		Actual:    fmt.Sprintf("%d", labelled),
		Pass:      labelled >= g.minLabelled,
	}}
	for _, t := range domain.TimesOfDay {
		n := times[string(t)]
		checks = append(checks, SufficiencyCheckRow{
			Name:      fmt.Sprintf("Labels in %s", t),
			Threshold: ">= 1",
			Actual:    fmt.Sprintf("%d", n),
			Pass:      n >= 1,
		})
	}

	all := true
	for _, c := range checks {
		all = all && c.Pass
	}
	return DataQualitySection{SufficiencyChecks: checks, AllChecksPassed: all}
}

func countRows(m map[string]int) []CountRow {
	rows := make([]CountRow, 0, len(m))
	for name, n := range m {
		rows = append(rows, CountRow{Name: name, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Name < rows[j].Name
	})
	return rows
}
