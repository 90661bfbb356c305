package predictor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Model maps feature rows to predicted bandgaps in eV.
type Model interface {
	Predict(ctx context.Context, features [][]float32) ([]float32, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, features [][]float32) ([]float32, error)

func (f ModelFunc) Predict(ctx context.Context, features [][]float32) ([]float32, error) {
	return f(ctx, features)
}

// Linear is a linear model over the feature vector, read from a JSON file
// of the form {"intercept": 0.1, "weights": [...]}.
type Linear struct {
	Intercept float32   `json:"intercept"`
	Weights   []float32 `json:"weights"`
}

// LoadLinear reads a Linear model from path.
func LoadLinear(path string) (*Linear, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read linear model: %w", err)
	}

	var m Linear
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode linear model: %w", err)
	}
	if len(m.Weights) != FeatureCount {
		return nil, fmt.Errorf("%w: linear model has %d weights, want %d", ErrModel, len(m.Weights), FeatureCount)
	}
	return &m, nil
}

func (m *Linear) Predict(ctx context.Context, features [][]float32) ([]float32, error) {
	out := make([]float32, len(features))
	for i, row := range features {
		if len(row) != len(m.Weights) {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", ErrModel, i, len(row), len(m.Weights))
		}
		y := m.Intercept
		for j, x := range row {
			y += m.Weights[j] * x
		}
		out[i] = y
	}
	return out, ctx.Err()
}
