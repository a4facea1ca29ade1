package prediction

import (
	"context"
	"errors"
	"sync"
	"time"

	"affect-lab/internal/domain"
	"affect-lab/internal/lookup"
	"affect-lab/internal/normalization"
	"affect-lab/internal/observability"
)

// ErrNotReady is returned before an index has been set.
var ErrNotReady = errors.New("predictor has no aligned data")

// Prediction outcomes reported to metrics.
const (
	OutcomeOK                  = "ok"
	OutcomeSubstituted         = "substituted"
	OutcomeNotFound            = "not_found"
	OutcomeInsufficientHistory = "insufficient_history"
	OutcomeError               = "error"
)

// Predictor resolves a target time to aligned records and applies the
// valence and arousal models. The index can be swapped while predictions
// are in flight.
type Predictor struct {
	valence *Model
	arousal *Model
	loc     *time.Location

	mu sync.RWMutex
	ix *lookup.Index
}

// NewPredictor creates a predictor. loc is the location used for the
// time-of-day features; nil means UTC.
func NewPredictor(valence, arousal *Model, loc *time.Location) *Predictor {
	if loc == nil {
		loc = time.UTC
	}
	return &Predictor{valence: valence, arousal: arousal, loc: loc}
}

// SetIndex replaces the aligned records predictions are made from.
func (p *Predictor) SetIndex(ix *lookup.Index) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ix = ix
}

// Index returns the current index, nil if none is set.
func (p *Predictor) Index() *lookup.Index {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ix
}

// Predict estimates valence and arousal at target.
//
// Errors wrap lookup.ErrInsufficientHistory when target or its lag offsets
// cannot be resolved.
func (p *Predictor) Predict(ctx context.Context, target time.Time) (*domain.Prediction, error) {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ix := p.Index()
	if ix == nil {
		observability.RecordPrediction(OutcomeError, time.Since(start).Seconds())
		return nil, ErrNotReady
	}

	lag, err := ix.LagFeatures(target)
	if err != nil {
		observability.RecordPrediction(outcomeFor(err), time.Since(start).Seconds())
		return nil, err
	}

	features := FeatureVector(lag, p.loc)
	valence := p.valence.Predict(features)
	arousal := p.arousal.Predict(features)

	outcome := OutcomeOK
	if lag.Substituted {
		outcome = OutcomeSubstituted
	}
	observability.RecordPrediction(outcome, time.Since(start).Seconds())

	return &domain.Prediction{
		TargetMs:    target.UnixMilli(),
		ResolvedMs:  lag.Target.TimestampMs,
		Substituted: lag.Substituted,
		Valence:     normalization.Round2(valence),
		Arousal:     normalization.Round2(arousal),
		Emotion:     domain.Quadrant(valence, arousal),
		Features:    features,
	}, nil
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, lookup.ErrInsufficientHistory):
		return OutcomeInsufficientHistory
	case errors.Is(err, lookup.ErrNotFound), errors.Is(err, lookup.ErrNoData):
		return OutcomeNotFound
	default:
		return OutcomeError
	}
}

// FeatureVector builds named features from a resolved lag set. Absent
// secondaries and scalars are 0; the time of day is taken from the resolved
// record's local hour.
func FeatureVector(lag *domain.LagFeatureSet, loc *time.Location) map[string]float64 {
	rec := lag.Target
	row := &domain.DatasetRow{
		TimestampMs:  rec.TimestampMs,
		HeartRate:    lag.HR,
		Stress:       valueOrZero(rec.Value(domain.SignalStress)),
		Respiration:  valueOrZero(rec.Value(domain.SignalRespiration)),
		BodyBattery:  valueOrZero(rec.Value(domain.SignalBodyBattery)),
		SpO2:         valueOrZero(rec.Value(domain.SignalSpO2)),
		HRVAvg:       valueOrZero(rec.Scalar(domain.ScalarHRVAvg)),
		SleepScore:   valueOrZero(rec.Scalar(domain.ScalarSleepScore)),
		TimeOfDay:    normalization.TimeOfDayAt(rec.TimestampMs, loc),
		HRLag2:       lag.HRLag2,
		HRLag4:       lag.HRLag4,
		HRChangeNow:  lag.ChangeNow,
		HRChange2Min: lag.Change2Min,
	}
	if tier, ok := normalization.SleepTierFor(row.SleepScore); ok {
		row.SleepTier = tier
	}
	return row.Features()
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
