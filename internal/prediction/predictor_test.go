package prediction

import (
	"context"
	"errors"
	"testing"
	"time"

	"affect-lab/internal/domain"
	"affect-lab/internal/lookup"
)

var base = time.Date(2025, 2, 25, 9, 0, 0, 0, time.UTC)

func records(hr ...float64) []*domain.AlignedRecord {
	var out []*domain.AlignedRecord
	for i, v := range hr {
		out = append(out, &domain.AlignedRecord{
			TimestampMs: base.Add(time.Duration(2*i) * time.Minute).UnixMilli(),
			HeartRate:   domain.Float(v),
			Values: map[domain.SignalName]*float64{
				domain.SignalRespiration: domain.Float(15),
				domain.SignalSpO2:        nil,
			},
			Scalars: map[domain.ScalarName]*float64{
				domain.ScalarSleepScore: domain.Float(85),
			},
		})
	}
	return out
}

// identity models echo a single feature so tests can see the vector.
func identity(feature string) *Model {
	return &Model{Features: []string{feature}, Coef: []float64{1}}
}

func newPredictor(t *testing.T, valence, arousal *Model, recs []*domain.AlignedRecord) *Predictor {
	t.Helper()
	ix, err := lookup.NewIndex(recs)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	p := NewPredictor(valence, arousal, time.UTC)
	p.SetIndex(ix)
	return p
}

func TestPredictor_Predict(t *testing.T) {
	p := newPredictor(t, identity(domain.FeatureHRChangeNow), identity(domain.FeatureHRChange2Min), records(70, 74, 75))

	target := base.Add(4 * time.Minute)
	got, err := p.Predict(context.Background(), target)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	if got.Valence != 1 || got.Arousal != 4 {
		t.Errorf("expected (1, 4), got (%v, %v)", got.Valence, got.Arousal)
	}
	if got.Emotion != domain.EmotionExcited {
		t.Errorf("expected excited, got %s", got.Emotion)
	}
	if got.Substituted || got.ResolvedMs != target.UnixMilli() {
		t.Errorf("unexpected resolution %+v", got)
	}
	if got.Features[domain.FeatureSpO2] != 0 {
		t.Errorf("absent spo2 must be 0, got %v", got.Features[domain.FeatureSpO2])
	}
	if got.Features["time_Morning"] != 1 {
		t.Errorf("expected time_Morning one-hot, got %v", got.Features)
	}
	if got.Features["sleep_tier_Good"] != 1 {
		t.Errorf("expected sleep_tier_Good one-hot, got %v", got.Features)
	}
}

func TestPredictor_FutureTarget(t *testing.T) {
	p := newPredictor(t, identity(domain.FeatureHeartRate), identity(domain.FeatureRespiration), records(70, 72, 76))

	got, err := p.Predict(context.Background(), base.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if !got.Substituted {
		t.Error("expected substituted prediction")
	}
	if got.ResolvedMs != base.Add(4*time.Minute).UnixMilli() {
		t.Errorf("expected latest record, got %d", got.ResolvedMs)
	}
	if got.Valence != 76 {
		t.Errorf("expected heart rate 76, got %v", got.Valence)
	}
}

func TestPredictor_InsufficientHistory(t *testing.T) {
	p := newPredictor(t, identity(domain.FeatureHeartRate), identity(domain.FeatureHeartRate), records(70, 72, 74))

	// -4m from the first record is 240s away from anything.
	_, err := p.Predict(context.Background(), base)
	if !errors.Is(err, lookup.ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestPredictor_NotReady(t *testing.T) {
	p := NewPredictor(identity("a"), identity("b"), nil)

	if _, err := p.Predict(context.Background(), base); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestPredictor_Cancelled(t *testing.T) {
	p := newPredictor(t, identity("a"), identity("b"), records(70, 72, 74))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Predict(ctx, base); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
