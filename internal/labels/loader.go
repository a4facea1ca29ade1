package labels

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"affect-lab/internal/domain"
)

// Loader reads label exports. Timestamps are interpreted in Location.
type Loader struct {
	Location *time.Location
	// FillFromEmotion assigns the emotion's reference valence/arousal to
	// manual labels that carry only a name.
	FillFromEmotion bool
	now             func() time.Time
}

// NewLoader creates a loader for loc. A nil loc means UTC.
func NewLoader(loc *time.Location) *Loader {
	if loc == nil {
		loc = time.UTC
	}
	return &Loader{Location: loc, FillFromEmotion: true, now: time.Now}
}

// appColumns are the columns read from the app export. Colour columns
// (hue, saturation, brightness) are ignored.
var appColumns = []string{"timestamp", "valence", "arousal", "emotion"}

// LoadAppCSV reads the app export. Empty valence/arousal cells load as absent.
func (l *Loader) LoadAppCSV(r io.Reader) ([]*domain.EmotionLabel, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrMalformed, err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range appColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrMalformed, c)
		}
	}

	var result []*domain.EmotionLabel
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
		}

		field := func(name string) string {
			i := cols[name]
			if i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		ts, err := ParseLocal(field("timestamp"), l.Location)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		valence, err := optionalFloat(field("valence"))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: valence: %v", ErrMalformed, line, err)
		}
		arousal, err := optionalFloat(field("arousal"))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: arousal: %v", ErrMalformed, line, err)
		}

		result = append(result, &domain.EmotionLabel{
			TimestampMs: ts.UnixMilli(),
			Valence:     valence,
			Arousal:     arousal,
			Emotion:     field("emotion"),
			Source:      domain.LabelSourceApp,
			CreatedAt:   l.now().UnixMilli(),
		})
	}
	return result, nil
}

// manualEntry is one element of the manual JSON log.
type manualEntry struct {
	Timestamp string   `json:"timestamp"`
	Emotion   string   `json:"emotion"`
	Valence   *float64 `json:"valence"`
	Arousal   *float64 `json:"arousal"`
}

// LoadManualJSON reads the manual log. Timestamps are rounded down to the
// even minute so they line up with the reference sampling grid.
func (l *Loader) LoadManualJSON(r io.Reader) ([]*domain.EmotionLabel, error) {
	var entries []manualEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	result := make([]*domain.EmotionLabel, 0, len(entries))
	for i, e := range entries {
		ts, err := ParseLocal(e.Timestamp, l.Location)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}

		label := &domain.EmotionLabel{
			TimestampMs: RoundDownEvenMinute(ts).UnixMilli(),
			Valence:     e.Valence,
			Arousal:     e.Arousal,
			Emotion:     strings.TrimSpace(e.Emotion),
			Source:      domain.LabelSourceManual,
			CreatedAt:   l.now().UnixMilli(),
		}
		if l.FillFromEmotion && label.Emotion != "" && (label.Valence == nil || label.Arousal == nil) {
			v, a, _ := ValenceArousalFor(label.Emotion)
			if label.Valence == nil {
				label.Valence = domain.Float(v)
			}
			if label.Arousal == nil {
				label.Arousal = domain.Float(a)
			}
		}
		result = append(result, label)
	}
	return result, nil
}

// LoadFiles reads the app CSV and manual JSON at the given paths and
// combines them. An empty path is skipped.
func (l *Loader) LoadFiles(appPath, manualPath string) ([]*domain.EmotionLabel, error) {
	var app, manual []*domain.EmotionLabel

	if appPath != "" {
		f, err := os.Open(appPath)
		if err != nil {
			return nil, fmt.Errorf("open app labels: %w", err)
		}
		app, err = l.LoadAppCSV(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("load app labels: %w", err)
		}
	}

	if manualPath != "" {
		f, err := os.Open(manualPath)
		if err != nil {
			return nil, fmt.Errorf("open manual labels: %w", err)
		}
		manual, err = l.LoadManualJSON(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("load manual labels: %w", err)
		}
	}

	return Combine(app, manual), nil
}

func optionalFloat(s string) (*float64, error) {
	if s == "" || strings.EqualFold(s, "nan") {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
