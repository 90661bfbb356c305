package predictor_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/sieve/internal/composition"
	"github.com/JaimeStill/sieve/internal/predictor"
)

// fixed returns a model that predicts by formula.
func fixed(gaps map[string]float32) predictor.Model {
	return predictor.ModelFunc(func(_ context.Context, rows [][]float32) ([]float32, error) {
		out := make([]float32, len(rows))
		for i, row := range rows {
			// mean atomic number identifies the test compositions uniquely
			for f, g := range gaps {
				feat, _ := predictor.Featurize(composition.MustParse(f))
				if float32(feat[0]) == row[0] {
					out[i] = g
				}
			}
		}
		return out, nil
	})
}

func TestWindowBoundaryInclusive(t *testing.T) {
	w := predictor.Window{Min: 1.0, Max: 2.5}

	tests := []struct {
		gap  float64
		want bool
	}{
		{0.99, false},
		{1.0, true},
		{1.7, true},
		{2.5, true},
		{2.5001, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, w.Contains(tt.gap), "gap %v", tt.gap)
	}
}

func TestPredictAppliesWindow(t *testing.T) {
	p := predictor.New(fixed(map[string]float32{
		"Fe2O3": 2.0,
		"NaCl":  5.0,
		"ZnS":   1.0,
	}), predictor.Window{Min: 1.0, Max: 2.5})

	comps := []composition.Composition{
		composition.MustParse("Fe2O3"),
		composition.MustParse("NaCl"),
		composition.MustParse("ZnS"),
	}

	preds, err := p.Predict(context.Background(), comps)
	require.NoError(t, err)
	require.Len(t, preds, 3)

	assert.True(t, preds[0].Accepted)
	assert.False(t, preds[1].Accepted)
	assert.True(t, preds[2].Accepted, "lower boundary is inclusive")
	assert.InDelta(t, 5.0, preds[1].Bandgap, 1e-6)
}

func TestFeaturize(t *testing.T) {
	f, err := predictor.Featurize(composition.MustParse("NaCl"))
	require.NoError(t, err)
	require.Len(t, f, predictor.FeatureCount)
	assert.Len(t, predictor.FeatureNames(), predictor.FeatureCount)

	// atomic number: Na 11, Cl 17
	assert.InDelta(t, 14, f[0], 1e-9, "mean")
	assert.InDelta(t, 3, f[1], 1e-9, "mean absolute deviation")
	assert.InDelta(t, 11, f[2], 1e-9, "min")
	assert.InDelta(t, 17, f[3], 1e-9, "max")
	assert.InDelta(t, 6, f[4], 1e-9, "range")
	assert.Equal(t, 2.0, f[len(f)-1])
}

func TestFeaturizeEmpty(t *testing.T) {
	_, err := predictor.Featurize(composition.Composition{})
	assert.ErrorIs(t, err, predictor.ErrFeaturize)
}

func TestLoadLinear(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")

	weights := make([]string, predictor.FeatureCount)
	for i := range weights {
		weights[i] = "0"
	}
	weights[0] = "0.1"
	body := `{"intercept": 0.5, "weights": [` + strings.Join(weights, ",") + `]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	m, err := predictor.LoadLinear(path)
	require.NoError(t, err)

	p := predictor.New(m, predictor.Window{Min: 1, Max: 2.5})
	preds, err := p.Predict(context.Background(), []composition.Composition{composition.MustParse("NaCl")})
	require.NoError(t, err)

	// 0.5 + 0.1 * 14
	assert.InDelta(t, 1.9, preds[0].Bandgap, 1e-5)
	assert.True(t, preds[0].Accepted)
}

func TestLoadLinearWrongWidth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"intercept": 0, "weights": [1, 2]}`), 0o644))

	_, err := predictor.LoadLinear(path)
	assert.ErrorIs(t, err, predictor.ErrModel)
}
