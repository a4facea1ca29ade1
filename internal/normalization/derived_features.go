package normalization

import (
	"time"

	"affect-lab/internal/domain"
)

// SleepTierFor buckets a sleep score into right-inclusive tiers:
// (0,50] Poor, (50,70] Fair, (70,90] Good, (90,100] Excellent.
// Scores outside (0,100] have no tier.
func SleepTierFor(score float64) (domain.SleepTier, bool) {
	switch {
	case score <= 0 || score > 100:
		return "", false
	case score <= 50:
		return domain.SleepTierPoor, true
	case score <= 70:
		return domain.SleepTierFair, true
	case score <= 90:
		return domain.SleepTierGood, true
	default:
		return domain.SleepTierExcellent, true
	}
}

// TimeOfDayFor buckets a local hour (0-23):
// 0-6 Night, 7-12 Morning, 13-18 Afternoon, 19-22 Evening, 23 Night.
func TimeOfDayFor(hour int) domain.TimeOfDay {
	switch {
	case hour <= 6:
		return domain.TimeNight
	case hour <= 12:
		return domain.TimeMorning
	case hour <= 18:
		return domain.TimeAfternoon
	case hour <= 22:
		return domain.TimeEvening
	default:
		return domain.TimeNight
	}
}

// TimeOfDayAt buckets the local hour of ms in loc.
func TimeOfDayAt(ms int64, loc *time.Location) domain.TimeOfDay {
	return TimeOfDayFor(time.UnixMilli(ms).In(loc).Hour())
}

// LocalTime formats ms as a zone-less wall-clock timestamp in loc.
func LocalTime(ms int64, loc *time.Location) string {
	return time.UnixMilli(ms).In(loc).Format(time.DateTime)
}
