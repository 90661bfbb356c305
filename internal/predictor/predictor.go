// Package predictor estimates bandgaps from composition features with a
// pre-trained regression model and accepts those inside a target window.
package predictor

import (
	"context"
	"errors"
	"fmt"

	"github.com/JaimeStill/sieve/internal/composition"
)

var (
	// ErrFeaturize indicates a composition that cannot be encoded.
	ErrFeaturize = errors.New("featurize composition")
	// ErrModel indicates the model rejected its input or failed to run.
	ErrModel = errors.New("bandgap model")
)

// Window is a closed bandgap interval in eV.
type Window struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies in the window, boundaries included.
func (w Window) Contains(v float64) bool {
	return v >= w.Min && v <= w.Max
}

// Prediction is the model output for one composition.
type Prediction struct {
	Bandgap  float64 `json:"bandgap"`
	Accepted bool    `json:"accepted"`
	Err      error   `json:"-"`
}

// Predictor applies a Model and a Window.
type Predictor struct {
	model  Model
	window Window
}

// New creates a Predictor.
func New(model Model, window Window) *Predictor {
	return &Predictor{model: model, window: window}
}

// Window returns the acceptance window.
func (p *Predictor) Window() Window {
	return p.window
}

// Predict featurizes comps and runs them through the model as one batch.
// A composition that cannot be featurized carries its error in the
// matching Prediction and is not sent to the model.
func (p *Predictor) Predict(ctx context.Context, comps []composition.Composition) ([]Prediction, error) {
	out := make([]Prediction, len(comps))
	rows := make([][]float32, 0, len(comps))
	index := make([]int, 0, len(comps))

	for i, c := range comps {
		features, err := Featurize(c)
		if err != nil {
			out[i].Err = err
			continue
		}
		row := make([]float32, len(features))
		for j, f := range features {
			row[j] = float32(f)
		}
		rows = append(rows, row)
		index = append(index, i)
	}

	if len(rows) == 0 {
		return out, nil
	}

	values, err := p.model.Predict(ctx, rows)
	if err != nil {
		return nil, err
	}
	if len(values) != len(rows) {
		return nil, fmt.Errorf("%w: got %d predictions for %d rows", ErrModel, len(values), len(rows))
	}

	for k, i := range index {
		gap := float64(values[k])
		out[i] = Prediction{Bandgap: gap, Accepted: p.window.Contains(gap)}
	}
	return out, nil
}
