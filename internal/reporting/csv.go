package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"affect-lab/internal/domain"
)

// Split targets.
const (
	TargetValence = "valence"
	TargetArousal = "arousal"
)

// datasetHeader lists the dataset CSV columns in order.
var datasetHeader = []string{
	"timestamp_ms", "timestamp",
	domain.FeatureHeartRate, domain.FeatureStress, domain.FeatureRespiration,
	domain.FeatureBodyBattery, domain.FeatureSpO2, domain.FeatureHRVAvg, domain.FeatureSleepScore,
	"sleep_score_tier", "time_of_day",
	domain.FeatureHRLag2, domain.FeatureHRLag4, domain.FeatureHRChangeNow, domain.FeatureHRChange2Min,
	"valence", "arousal", "emotion",
}

// RenderDatasetCSV renders dataset rows as CSV, one row per aligned timestamp.
// Label columns are empty for unlabelled rows.
func RenderDatasetCSV(rows []*domain.DatasetRow) string {
	var sb strings.Builder

	sb.WriteString(strings.Join(datasetHeader, ","))
	sb.WriteString("\n")

	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%d,%s,%.2f,%.2f,%.2f,%.2f,%.2f,%.2f,%.2f,%s,%s,%.2f,%.2f,%.2f,%.2f,%s,%s,%s\n",
			r.TimestampMs,
			r.LocalTime,
			r.HeartRate,
			r.Stress,
			r.Respiration,
			r.BodyBattery,
			r.SpO2,
			r.HRVAvg,
			r.SleepScore,
			r.SleepTier,
			r.TimeOfDay,
			r.HRLag2,
			r.HRLag4,
			r.HRChangeNow,
			r.HRChange2Min,
			optional(r.Valence),
			optional(r.Arousal),
			field(r.Emotion),
		))
	}

	return sb.String()
}

// SplitFeatures returns the feature columns used for a target.
func SplitFeatures(target string) ([]string, error) {
	switch target {
	case TargetValence:
		return domain.ValenceFeatures, nil
	case TargetArousal:
		return domain.ArousalFeatures, nil
	default:
		return nil, fmt.Errorf("unknown target %q", target)
	}
}

// RenderSplitCSV renders the per-target training file: the local timestamp,
// the target's feature columns, then the target. Rows without a value for
// the target are skipped.
func RenderSplitCSV(rows []*domain.DatasetRow, target string) (string, error) {
	features, err := SplitFeatures(target)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("timestamp,")
	sb.WriteString(strings.Join(features, ","))
	sb.WriteString(",")
	sb.WriteString(target)
	sb.WriteString("\n")

	for _, r := range rows {
		value := r.Valence
		if target == TargetArousal {
			value = r.Arousal
		}
		if value == nil {
			continue
		}

		values := r.Features()
		sb.WriteString(r.LocalTime)
		for _, name := range features {
			sb.WriteString(fmt.Sprintf(",%.2f", values[name]))
		}
		sb.WriteString(fmt.Sprintf(",%.2f\n", *value))
	}

	return sb.String(), nil
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(path, content string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteDataset writes dataset.csv plus the valence and arousal splits into dir.
// Splits are built from the labelled rows.
func WriteDataset(dir string, rows, labelled []*domain.DatasetRow) error {
	if err := WriteFile(filepath.Join(dir, "dataset.csv"), RenderDatasetCSV(rows)); err != nil {
		return err
	}
	if err := WriteFile(filepath.Join(dir, "labelled_data.csv"), RenderDatasetCSV(labelled)); err != nil {
		return err
	}
	for _, target := range []string{TargetValence, TargetArousal} {
		content, err := RenderSplitCSV(labelled, target)
		if err != nil {
			return err
		}
		if err := WriteFile(filepath.Join(dir, "final_"+target+".csv"), content); err != nil {
			return err
		}
	}
	return nil
}

func optional(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}

// field quotes a free-text value when it would break the row.
func field(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
