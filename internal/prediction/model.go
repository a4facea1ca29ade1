// Package prediction estimates valence and arousal for a point in time from
// aligned tracker records.
package prediction

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gonum.org/v1/gonum/floats"
)

// ErrInvalidModel is returned for a model file with inconsistent dimensions.
var ErrInvalidModel = errors.New("invalid model")

// Model is an exported linear regression over standardised features:
// y = intercept + sum(coef[i] * (x[i] - mean[i]) / scale[i]).
type Model struct {
	Target    string    `json:"target"`
	Features  []string  `json:"features"`
	Mean      []float64 `json:"mean"`
	Scale     []float64 `json:"scale"`
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

// ParseModel decodes and validates a model.
func ParseModel(data []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadModel reads a model from a JSON file.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	m, err := ParseModel(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Validate checks that every per-feature slice has one entry per feature.
func (m *Model) Validate() error {
	n := len(m.Features)
	if n == 0 {
		return fmt.Errorf("%w: no features", ErrInvalidModel)
	}
	if len(m.Coef) != n {
		return fmt.Errorf("%w: %d coefficients for %d features", ErrInvalidModel, len(m.Coef), n)
	}
	if m.Mean != nil && len(m.Mean) != n {
		return fmt.Errorf("%w: %d means for %d features", ErrInvalidModel, len(m.Mean), n)
	}
	if m.Scale != nil && len(m.Scale) != n {
		return fmt.Errorf("%w: %d scales for %d features", ErrInvalidModel, len(m.Scale), n)
	}
	return nil
}

// Vector picks the model's features from values in model order. Missing
// features are 0.
func (m *Model) Vector(values map[string]float64) []float64 {
	x := make([]float64, len(m.Features))
	for i, name := range m.Features {
		x[i] = values[name]
	}
	return x
}

// Predict applies the model to named feature values.
func (m *Model) Predict(values map[string]float64) float64 {
	x := m.Vector(values)
	if m.Mean != nil {
		floats.Sub(x, m.Mean)
	}
	if m.Scale != nil {
		for i, s := range m.Scale {
			// A constant training column has scale 0 and contributes nothing.
			if s == 0 {
				x[i] = 0
				continue
			}
			x[i] /= s
		}
	}
	return floats.Dot(x, m.Coef) + m.Intercept
}
