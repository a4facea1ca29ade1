package normalization

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/stat"

	"affect-lab/internal/domain"
)

// Drop reasons reported by Impute.
const (
	DropNoTier     = "no_sleep_tier"
	DropIncomplete = "incomplete"
)

// draft is a record's columns before imputation; nil means absent.
type draft struct {
	ts          int64
	heartRate   *float64
	stress      *float64
	respiration *float64
	bodyBattery *float64
	spo2        *float64
	hrvAvg      *float64
	sleepScore  *float64
	tier        domain.SleepTier
	hasTier     bool
	timeOfDay   domain.TimeOfDay
}

// ImputeStats counts what the imputation passes changed.
type ImputeStats struct {
	Filled  map[string]int // column -> values filled
	Dropped map[string]int // reason -> rows dropped
}

func newImputeStats() ImputeStats {
	return ImputeStats{Filled: make(map[string]int), Dropped: make(map[string]int)}
}

// Impute fills absent columns and drops rows that stay incomplete.
//
// Passes run in order: sleep_score median, sleep tier, hrv_avg mean per tier,
// spo2 median, time of day, body_battery mean per time of day. Statistics
// are computed over the records given. Surviving values are rounded half
// to even at 2 decimals. Lag columns are left zero.
func Impute(records []*domain.AlignedRecord, loc *time.Location) ([]*domain.DatasetRow, ImputeStats) {
	if loc == nil {
		loc = time.UTC
	}
	stats := newImputeStats()

	drafts := make([]*draft, 0, len(records))
	for _, r := range records {
		drafts = append(drafts, &draft{
			ts:          r.TimestampMs,
			heartRate:   r.HeartRate,
			stress:      r.Value(domain.SignalStress),
			respiration: r.Value(domain.SignalRespiration),
			bodyBattery: r.Value(domain.SignalBodyBattery),
			spo2:        r.Value(domain.SignalSpO2),
			hrvAvg:      r.Scalar(domain.ScalarHRVAvg),
			sleepScore:  r.Scalar(domain.ScalarSleepScore),
			timeOfDay:   TimeOfDayAt(r.TimestampMs, loc),
		})
	}

	fillMedian(drafts, domain.FeatureSleepScore, func(d *draft) **float64 { return &d.sleepScore }, stats)

	for _, d := range drafts {
		if d.sleepScore != nil {
			d.tier, d.hasTier = SleepTierFor(*d.sleepScore)
		}
	}

	fillGroupMean(drafts, domain.FeatureHRVAvg,
		func(d *draft) **float64 { return &d.hrvAvg },
		func(d *draft) (string, bool) { return string(d.tier), d.hasTier },
		stats)

	fillMedian(drafts, domain.FeatureSpO2, func(d *draft) **float64 { return &d.spo2 }, stats)

	fillGroupMean(drafts, domain.FeatureBodyBattery,
		func(d *draft) **float64 { return &d.bodyBattery },
		func(d *draft) (string, bool) { return string(d.timeOfDay), true },
		stats)

	rows := make([]*domain.DatasetRow, 0, len(drafts))
	for _, d := range drafts {
		if !d.hasTier {
			stats.Dropped[DropNoTier]++
			continue
		}
		if !d.complete() {
			stats.Dropped[DropIncomplete]++
			continue
		}
		rows = append(rows, &domain.DatasetRow{
			TimestampMs: d.ts,
			LocalTime:   LocalTime(d.ts, loc),
			HeartRate:   Round2(*d.heartRate),
			Stress:      Round2(*d.stress),
			Respiration: Round2(*d.respiration),
			BodyBattery: Round2(*d.bodyBattery),
			SpO2:        Round2(*d.spo2),
			HRVAvg:      Round2(*d.hrvAvg),
			SleepScore:  Round2(*d.sleepScore),
			SleepTier:   d.tier,
			TimeOfDay:   d.timeOfDay,
		})
	}
	return rows, stats
}

func (d *draft) complete() bool {
	for _, v := range []*float64{d.heartRate, d.stress, d.respiration, d.bodyBattery, d.spo2, d.hrvAvg, d.sleepScore} {
		if v == nil {
			return false
		}
	}
	return true
}

// Round2 rounds half to even at 2 decimals.
func Round2(v float64) float64 {
	return scalar.RoundEven(v, 2)
}

// Median returns the median of values, averaging the middle pair for even
// counts. ok is false for an empty slice.
func Median(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], true
	}
	return (sorted[mid-1] + sorted[mid]) / 2, true
}

func fillMedian(drafts []*draft, column string, field func(*draft) **float64, stats ImputeStats) {
	var present []float64
	for _, d := range drafts {
		if v := *field(d); v != nil {
			present = append(present, *v)
		}
	}
	m, ok := Median(present)
	if !ok {
		return
	}
	for _, d := range drafts {
		if p := field(d); *p == nil {
			*p = domain.Float(m)
			stats.Filled[column]++
		}
	}
}

func fillGroupMean(drafts []*draft, column string, field func(*draft) **float64, group func(*draft) (string, bool), stats ImputeStats) {
	byGroup := make(map[string][]float64)
	for _, d := range drafts {
		key, ok := group(d)
		if !ok {
			continue
		}
		if v := *field(d); v != nil {
			byGroup[key] = append(byGroup[key], *v)
		}
	}

	means := make(map[string]float64, len(byGroup))
	for key, values := range byGroup {
		means[key] = stat.Mean(values, nil)
	}

	for _, d := range drafts {
		p := field(d)
		if *p != nil {
			continue
		}
		key, ok := group(d)
		if !ok {
			continue
		}
		if m, ok := means[key]; ok {
			*p = domain.Float(m)
			stats.Filled[column]++
		}
	}
}
