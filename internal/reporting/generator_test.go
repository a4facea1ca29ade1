package reporting

import (
	"strings"
	"testing"
	"time"
)

func TestGenerator_Generate(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := sampleRows()

	r := NewGenerator().WithClock(func() time.Time { return fixed }).WithMinLabelled(1).Generate(rows, rows[:1])

	if !r.GeneratedAt.Equal(fixed) {
		t.Errorf("expected injected clock, got %v", r.GeneratedAt)
	}
	if r.DataSummary.TotalRows != 2 || r.DataSummary.LabelledRows != 1 {
		t.Errorf("unexpected summary %+v", r.DataSummary)
	}
	if r.DataSummary.DateRangeStart != 1740470640000 || r.DataSummary.DateRangeEnd != 1740470760000 {
		t.Errorf("unexpected date range %+v", r.DataSummary)
	}
	if len(r.Emotions) != 1 || r.Emotions[0].Name != "Content" || r.Emotions[0].Count != 1 {
		t.Errorf("unexpected emotions %+v", r.Emotions)
	}
	if len(r.TargetStats) != 2 || r.TargetStats[0].Mean != 0.75 || r.TargetStats[1].Max != -0.45 {
		t.Errorf("unexpected target stats %+v", r.TargetStats)
	}

	// Only Morning has labels.
	if r.DataQuality.AllChecksPassed {
		t.Error("expected missing time-of-day coverage to fail")
	}
	if !r.DataQuality.SufficiencyChecks[0].Pass {
		t.Error("expected labelled row check to pass with threshold 1")
	}
}

func TestRenderMarkdown(t *testing.T) {
	rows := sampleRows()
	r := NewGenerator().Generate(rows, rows[:1])

	md := RenderMarkdown(r)
	for _, want := range []string{"# Dataset Report", "| Total Rows | 2 |", "| Labelled rows | >= 30 | 1 | FAIL |", "| Content | 1 |", "| valence | 0.75 |"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestGenerator_Empty(t *testing.T) {
	r := NewGenerator().Generate(nil, nil)
	if r.DataSummary.TotalRows != 0 || len(r.TargetStats) != 0 {
		t.Errorf("unexpected report for empty input %+v", r)
	}
	if !strings.Contains(RenderMarkdown(r), "No labelled rows.") {
		t.Error("expected empty targets notice")
	}
}
