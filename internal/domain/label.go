package domain

// EmotionLabel is a logged emotional state. Corresponds to emotion_labels table in PostgreSQL.
type EmotionLabel struct {
	TimestampMs int64       // wall-clock minute in the tracker's location, as epoch ms
	Valence     *float64    // -1..1, NULL if not given
	Arousal     *float64    // -1..1, NULL if not given
	Emotion     string      // e.g. "Happy"
	Source      LabelSource // app | manual
	CreatedAt   int64       // record creation timestamp (ms)
}

// Complete reports whether valence, arousal and emotion are all present.
func (l *EmotionLabel) Complete() bool {
	return l.Valence != nil && l.Arousal != nil && l.Emotion != ""
}
