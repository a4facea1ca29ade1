package domain

import "testing"

func TestDatasetRowFeatures_OneHot(t *testing.T) {
	r := &DatasetRow{HeartRate: 70, TimeOfDay: TimeEvening, SleepTier: SleepTierFair}
	f := r.Features()

	if f["time_Evening"] != 1 || f["time_Morning"] != 0 || f["time_Night"] != 0 {
		t.Errorf("unexpected time one-hot %v", f)
	}
	if f["sleep_tier_Fair"] != 1 || f["sleep_tier_Good"] != 0 {
		t.Errorf("unexpected sleep tier one-hot %v", f)
	}
	if f[FeatureHeartRate] != 70 {
		t.Errorf("expected heart_rate 70, got %v", f[FeatureHeartRate])
	}

	for _, name := range append(append([]string{}, ValenceFeatures...), ArousalFeatures...) {
		if _, ok := f[name]; !ok {
			t.Errorf("model feature %q missing from row features", name)
		}
	}
}
