package domain

// LagFeatureSet holds reference values at t, t-2min and t-4min and their differences.
type LagFeatureSet struct {
	Target     *AlignedRecord // resolved record for t
	Prev2      *AlignedRecord // resolved record for t-2min
	Prev4      *AlignedRecord // resolved record for t-4min
	HR         float64        // heart rate at t
	HRLag2     float64        // heart rate at t-2min
	HRLag4     float64        // heart rate at t-4min
	ChangeNow  float64        // HR - HRLag2
	Change2Min float64        // HRLag2 - HRLag4
	// Substituted is set when t was beyond the available data and the latest
	// record was used as the anchor instead.
	Substituted bool
}

// SleepTier buckets a sleep score.
type SleepTier string

const (
	SleepTierPoor      SleepTier = "Poor"
	SleepTierFair      SleepTier = "Fair"
	SleepTierGood      SleepTier = "Good"
	SleepTierExcellent SleepTier = "Excellent"
)

// SleepTiers lists every tier in ascending order.
var SleepTiers = []SleepTier{SleepTierPoor, SleepTierFair, SleepTierGood, SleepTierExcellent}

// TimeOfDay buckets a local hour.
type TimeOfDay string

const (
	TimeNight     TimeOfDay = "Night"
	TimeMorning   TimeOfDay = "Morning"
	TimeAfternoon TimeOfDay = "Afternoon"
	TimeEvening   TimeOfDay = "Evening"
)

// TimesOfDay lists every bucket in one-hot column order.
var TimesOfDay = []TimeOfDay{TimeMorning, TimeAfternoon, TimeEvening, TimeNight}

// DatasetRow is a fully imputed training row. Corresponds to dataset_rows table in ClickHouse.
type DatasetRow struct {
	TimestampMs  int64     // reference timestamp (ms)
	LocalTime    string    // YYYY-MM-DD HH:MM:SS in the tracker's location
	HeartRate    float64   // bpm
	Stress       float64   // 0-100
	Respiration  float64   // breaths/min
	BodyBattery  float64   // 0-100
	SpO2         float64   // percent
	HRVAvg       float64   // nightly average (ms)
	SleepScore   float64   // 0-100
	SleepTier    SleepTier // derived from SleepScore
	TimeOfDay    TimeOfDay // derived from local hour
	HRLag2       float64   // heart rate 2 minutes earlier
	HRLag4       float64   // heart rate 4 minutes earlier
	HRChangeNow  float64   // HeartRate - HRLag2
	HRChange2Min float64   // HRLag2 - HRLag4
	Valence      *float64  // label, NULL if unlabelled
	Arousal      *float64  // label, NULL if unlabelled
	Emotion      string    // label name, empty if unlabelled
}

// Labelled reports whether the row carries a complete emotion label.
func (r *DatasetRow) Labelled() bool {
	return r.Valence != nil && r.Arousal != nil && r.Emotion != ""
}

// Feature column names shared by dataset exports and the predictor.
const (
	FeatureHeartRate    = "heart_rate"
	FeatureStress       = "stress"
	FeatureRespiration  = "respiration"
	FeatureBodyBattery  = "body_battery"
	FeatureSpO2         = "spo2"
	FeatureHRVAvg       = "hrv_avg"
	FeatureSleepScore   = "sleep_score"
	FeatureHRLag2       = "hr_lag_2min"
	FeatureHRLag4       = "hr_lag_4min"
	FeatureHRChangeNow  = "hr_change_now"
	FeatureHRChange2Min = "hr_change_2min"
)

// ValenceFeatures are the model inputs for valence, in column order.
var ValenceFeatures = []string{
	FeatureHeartRate, FeatureRespiration, FeatureBodyBattery, FeatureSleepScore,
	FeatureHRChangeNow, TimeOfDayColumn(TimeMorning), TimeOfDayColumn(TimeEvening), TimeOfDayColumn(TimeNight),
}

// ArousalFeatures are the model inputs for arousal, in column order.
var ArousalFeatures = []string{
	FeatureHeartRate, FeatureRespiration, FeatureSpO2, FeatureHRVAvg,
	FeatureHRChangeNow, FeatureHRChange2Min, TimeOfDayColumn(TimeMorning), TimeOfDayColumn(TimeAfternoon),
}

// TimeOfDayColumn is the one-hot column name for a time-of-day bucket.
func TimeOfDayColumn(t TimeOfDay) string {
	return "time_" + string(t)
}

// SleepTierColumn is the one-hot column name for a sleep tier.
func SleepTierColumn(t SleepTier) string {
	return "sleep_tier_" + string(t)
}

// Features flattens the row into named numeric features, including one-hot
// time_* and sleep_tier_* columns.
func (r *DatasetRow) Features() map[string]float64 {
	f := map[string]float64{
		FeatureHeartRate:    r.HeartRate,
		FeatureStress:       r.Stress,
		FeatureRespiration:  r.Respiration,
		FeatureBodyBattery:  r.BodyBattery,
		FeatureSpO2:         r.SpO2,
		FeatureHRVAvg:       r.HRVAvg,
		FeatureSleepScore:   r.SleepScore,
		FeatureHRLag2:       r.HRLag2,
		FeatureHRLag4:       r.HRLag4,
		FeatureHRChangeNow:  r.HRChangeNow,
		FeatureHRChange2Min: r.HRChange2Min,
	}
	for _, t := range TimesOfDay {
		f[TimeOfDayColumn(t)] = oneHot(r.TimeOfDay == t)
	}
	for _, t := range SleepTiers {
		f[SleepTierColumn(t)] = oneHot(r.SleepTier == t)
	}
	return f
}

func oneHot(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
