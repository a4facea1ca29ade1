package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"affect-lab/internal/domain"
)

// ErrDayNotFound is returned when a source has no payload for a date.
var ErrDayNotFound = errors.New("tracker: day not found")

// Keys of the per-day payload.
const (
	keyHeartRate   = "heart_rate"
	keyStress      = "stress"
	keyRespiration = "respiration"
	keyBodyBattery = "body_battery"
	keySpO2        = "spo2"
	keyHRV         = "hrv"
	keySleepScore  = "sleep_score"
	keyHRVAvg      = "hrv_avg"
)

// hrvTimeLayouts are the accepted readingTimeGMT formats.
var hrvTimeLayouts = []string{
	"2006-01-02T15:04:05.0",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

// ParseDump parses a whole dump ({date: day payload}) into buckets sorted by
// date. Only a dump that is not a JSON object is an error; anything wrong
// inside a day collapses to absence.
func ParseDump(data []byte) ([]*domain.DayBucket, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse dump: %w", err)
	}

	buckets := make([]*domain.DayBucket, 0, len(raw))
	for date, payload := range raw {
		buckets = append(buckets, ParseDay(date, payload))
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Date < buckets[j].Date
	})
	return buckets, nil
}

// ParseDay parses one day payload. It never fails: "No Data", null, missing
// keys and unexpected nesting all yield no readings for the affected signal.
func ParseDay(date string, payload []byte) *domain.DayBucket {
	bucket := domain.NewDayBucket(date)

	var day map[string]any
	if err := json.Unmarshal(payload, &day); err != nil || day == nil {
		return bucket
	}

	signals := map[domain.SignalName][]domain.Reading{
		domain.SignalHeartRate:   pairs(unwrap(day[keyHeartRate], "heartRateValues")),
		domain.SignalStress:      pairs(unwrap(day[keyStress], "stressValuesArray")),
		domain.SignalRespiration: pairs(unwrap(day[keyRespiration], "respirationValuesArray")),
		domain.SignalBodyBattery: bodyBattery(day[keyBodyBattery]),
		domain.SignalSpO2:        pairs(unwrap(day[keySpO2], "spO2HourlyAverages")),
		domain.SignalHRV:         hrvReadings(day[keyHRV]),
	}
	for name, readings := range signals {
		if len(readings) > 0 {
			bucket.Signals[name] = readings
		}
	}

	if v := scalar(day[keySleepScore], "dailySleepDTO", "sleepScores", "overall", "value"); v != nil {
		bucket.Scalars[domain.ScalarSleepScore] = v
	}
	if v := scalar(day[keyHRVAvg], "hrvSummary", "lastNightAvg"); v != nil {
		bucket.Scalars[domain.ScalarHRVAvg] = v
	}

	return bucket
}

// unwrap returns v[key] when v is an object, v itself otherwise.
func unwrap(v any, key string) any {
	if obj, ok := v.(map[string]any); ok {
		return obj[key]
	}
	return v
}

// pairs converts [[ts, value], ...] into sorted readings. Entries whose
// timestamp is unusable are skipped; an unusable value is kept as absent.
func pairs(v any) []domain.Reading {
	list, ok := v.([]any)
	if !ok {
		return nil
	}

	readings := make([]domain.Reading, 0, len(list))
	for _, item := range list {
		entry, ok := item.([]any)
		if !ok || len(entry) < 2 {
			continue
		}
		ts := number(entry[0])
		if ts == nil || *ts <= 0 {
			continue
		}
		value := number(entry[1])
		// [ts, "MEASURED", level, version]
		if _, isStatus := entry[1].(string); isStatus && len(entry) > 2 {
			value = number(entry[2])
		}
		readings = append(readings, domain.Reading{
			TimestampMs: domain.SecondPrecision(int64(*ts)),
			Value:       value,
		})
	}
	return sortReadings(readings)
}

// bodyBattery accepts a list of day objects or a single one.
func bodyBattery(v any) []domain.Reading {
	switch b := v.(type) {
	case []any:
		var readings []domain.Reading
		for _, item := range b {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			readings = append(readings, pairs(obj["bodyBatteryValuesArray"])...)
		}
		return sortReadings(readings)
	case map[string]any:
		return pairs(b["bodyBatteryValuesArray"])
	}
	return nil
}

// hrvReadings accepts {readingTimeGMT: value} or {"hrvReadings": [...]}.
func hrvReadings(v any) []domain.Reading {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}

	if list, ok := obj["hrvReadings"].([]any); ok {
		flat := make(map[string]any, len(list))
		for _, item := range list {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if ts, ok := entry["readingTimeGMT"].(string); ok {
				flat[ts] = entry["hrvValue"]
			}
		}
		obj = flat
	}

	readings := make([]domain.Reading, 0, len(obj))
	for key, value := range obj {
		ts, ok := parseGMT(key)
		if !ok {
			continue
		}
		readings = append(readings, domain.Reading{
			TimestampMs: domain.SecondPrecision(ts.UnixMilli()),
			Value:       number(value),
		})
	}
	return sortReadings(readings)
}

func parseGMT(s string) (time.Time, bool) {
	for _, layout := range hrvTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// scalar accepts a bare number or an object holding one under path.
func scalar(v any, path ...string) *float64 {
	if n := number(v); n != nil {
		return n
	}
	cur := v
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[key]
	}
	return number(cur)
}

// number converts JSON numbers and numeric strings; everything else is absent.
func number(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return domain.Float(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return nil
		}
		return domain.Float(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		return domain.Float(f)
	}
	return nil
}

func sortReadings(readings []domain.Reading) []domain.Reading {
	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].TimestampMs < readings[j].TimestampMs
	})
	return readings
}
