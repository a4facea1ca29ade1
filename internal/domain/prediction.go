package domain

// Emotion quadrants of the valence/arousal plane.
const (
	EmotionNeutral    = "neutral"
	EmotionFrustrated = "frustrated"
	EmotionSad        = "sad"
	EmotionCalm       = "calm"
	EmotionExcited    = "excited"
)

// neutralBand is the half-width around the origin treated as neutral.
const neutralBand = 0.1

// Quadrant maps a valence/arousal point to its emotion quadrant.
func Quadrant(valence, arousal float64) string {
	switch {
	case abs(valence) < neutralBand && abs(arousal) < neutralBand:
		return EmotionNeutral
	case valence < 0 && arousal > 0:
		return EmotionFrustrated
	case valence < 0 && arousal < 0:
		return EmotionSad
	case valence > 0 && arousal < 0:
		return EmotionCalm
	case valence > 0 && arousal > 0:
		return EmotionExcited
	}
	return EmotionNeutral
}

// Prediction is a single-point valence/arousal estimate.
type Prediction struct {
	TargetMs    int64              `json:"target_ms"`
	ResolvedMs  int64              `json:"resolved_ms"`
	Substituted bool               `json:"substituted"`
	Valence     float64            `json:"valence"`
	Arousal     float64            `json:"arousal"`
	Emotion     string             `json:"emotion"`
	Features    map[string]float64 `json:"features"`
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
