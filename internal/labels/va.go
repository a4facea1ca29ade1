package labels

import "strings"

// vaRange is the valence/arousal box associated with a named emotion.
type vaRange struct {
	valenceLo, valenceHi float64
	arousalLo, arousalHi float64
}

func (r vaRange) center() (float64, float64) {
	return (r.valenceLo + r.valenceHi) / 2, (r.arousalLo + r.arousalHi) / 2
}

var emotionRanges = map[string]vaRange{
	"happy":     {0.85, 1.0, 0.4, 0.6},
	"excited":   {0.65, 0.85, 0.75, 0.95},
	"confident": {0.7, 0.9, 0.1, 0.3},
	"pleased":   {1.0, 1.2, -0.25, -0.05},
	"content":   {0.65, 0.85, -0.55, -0.35},
	"anxious":   {-0.8, -0.6, 0.9, 1.1},
	"angry":     {-1.0, -0.8, 0.59, 0.79},
	"annoyed":   {-1.05, -0.85, 0.35, 0.55},
	"sad":       {-1.1, -0.9, -0.65, -0.45},
	"tired":     {-0.3, -0.1, -1.2, -1.0},
	"neutral":   {-0.1, 0.1, -0.1, 0.1},
}

// ValenceArousalFor returns the reference point for a named emotion, the
// center of its range. Unknown names map to neutral and report false.
func ValenceArousalFor(emotion string) (valence, arousal float64, known bool) {
	r, ok := emotionRanges[strings.ToLower(strings.TrimSpace(emotion))]
	if !ok {
		r = emotionRanges["neutral"]
	}
	valence, arousal = r.center()
	return valence, arousal, ok
}
