package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Dataset Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Rows | %d |\n", r.DataSummary.TotalRows))
	sb.WriteString(fmt.Sprintf("| Labelled Rows | %d |\n", r.DataSummary.LabelledRows))
	sb.WriteString(fmt.Sprintf("| Date Range Start (ms) | %d |\n", r.DataSummary.DateRangeStart))
	sb.WriteString(fmt.Sprintf("| Date Range End (ms) | %d |\n", r.DataSummary.DateRangeEnd))
	sb.WriteString("\n")

	sb.WriteString("## Data Quality\n\n")
	sb.WriteString("| Check | Threshold | Actual | Status |\n")
	sb.WriteString("|-------|-----------|--------|--------|\n")
	for _, check := range r.DataQuality.SufficiencyChecks {
		status := "FAIL"
		if check.Pass {
			status = "PASS"
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
			check.Name, check.Threshold, check.Actual, status))
	}
	sb.WriteString("\n")
	if r.DataQuality.AllChecksPassed {
		sb.WriteString("**All checks passed.**\n\n")
	} else {
		sb.WriteString("**Some checks failed.** More labels are needed before training.\n\n")
	}

	sb.WriteString("## Targets\n\n")
	if len(r.TargetStats) > 0 {
		sb.WriteString("| Target | Mean | Median | Min | Max |\n")
		sb.WriteString("|--------|------|--------|-----|-----|\n")
		for _, s := range r.TargetStats {
			sb.WriteString(fmt.Sprintf("| %s | %.2f | %.2f | %.2f | %.2f |\n",
				s.Target, s.Mean, s.Median, s.Min, s.Max))
		}
	} else {
		sb.WriteString("No labelled rows.\n")
	}
	sb.WriteString("\n")

	writeCounts(&sb, "Emotions", r.Emotions)
	writeCounts(&sb, "Time of Day", r.TimesOfDay)
	writeCounts(&sb, "Sleep Tiers", r.SleepTiers)

	return sb.String()
}

func writeCounts(sb *strings.Builder, title string, rows []CountRow) {
	sb.WriteString(fmt.Sprintf("## %s\n\n", title))
	if len(rows) == 0 {
		sb.WriteString("None.\n\n")
		return
	}
	sb.WriteString("| Name | Count |\n")
	sb.WriteString("|------|-------|\n")
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", row.Name, row.Count))
	}
	sb.WriteString("\n")
}
