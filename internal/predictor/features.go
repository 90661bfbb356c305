package predictor

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/JaimeStill/sieve/internal/composition"
)

var properties = []struct {
	name  string
	value func(composition.Element) float64
}{
	{"number", func(e composition.Element) float64 { return float64(e.Number) }},
	{"mass", func(e composition.Element) float64 { return e.Mass }},
	{"electronegativity", func(e composition.Element) float64 { return e.Electronegativity }},
	{"period", func(e composition.Element) float64 { return float64(e.Period) }},
	{"group", func(e composition.Element) float64 { return float64(e.Group) }},
	{"covalent_radius", func(e composition.Element) float64 { return e.CovalentRadius }},
	{"mendeleev", func(e composition.Element) float64 { return float64(e.Mendeleev) }},
}

var statistics = []string{"mean", "mad", "min", "max", "range"}

// FeatureCount is the length of every feature vector.
var FeatureCount = len(properties)*len(statistics) + 1

// FeatureNames returns feature labels in vector order.
func FeatureNames() []string {
	names := make([]string, 0, FeatureCount)
	for _, p := range properties {
		for _, s := range statistics {
			names = append(names, p.name+"_"+s)
		}
	}
	return append(names, "n_elements")
}

// Featurize encodes c as atom-fraction weighted statistics of elemental
// properties followed by the number of elements.
func Featurize(c composition.Composition) ([]float64, error) {
	if c.IsEmpty() {
		return nil, fmt.Errorf("%w: empty composition", ErrFeaturize)
	}

	els := c.Elements()
	weights := make([]float64, len(els))
	entries := make([]composition.Element, len(els))
	for i, el := range els {
		e, ok := composition.Lookup(el)
		if !ok {
			return nil, fmt.Errorf("%w: unknown element %s", ErrFeaturize, el)
		}
		entries[i] = e
		weights[i] = c.Fraction(el)
	}

	out := make([]float64, 0, FeatureCount)
	values := make([]float64, len(els))
	for _, p := range properties {
		for i, e := range entries {
			values[i] = p.value(e)
		}

		mean := stat.Mean(values, weights)
		var mad float64
		for i, v := range values {
			mad += weights[i] * math.Abs(v-mean)
		}
		lo, hi := floats.Min(values), floats.Max(values)

		out = append(out, mean, mad, lo, hi, hi-lo)
	}

	return append(out, float64(len(els))), nil
}
