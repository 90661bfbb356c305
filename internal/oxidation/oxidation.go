// Package oxidation scores the oxidation states implied by a structure's
// sites against element-wise occurrence statistics.
package oxidation

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/JaimeStill/sieve/internal/structure"
)

// ErrImprobable indicates the best assignment falls below the filter threshold.
var ErrImprobable = errors.New("oxidation states improbable")

// Table maps an element to the probability of each oxidation state.
type Table map[string]map[int]float64

// Assignment is one oxidation state per element and its joint probability.
type Assignment struct {
	States      map[string]int `json:"states"`
	Probability float64        `json:"probability"`
}

// Evaluator enumerates charge-balanced oxidation state assignments.
type Evaluator struct {
	table Table
}

// NewEvaluator creates an Evaluator over a read-only table.
func NewEvaluator(table Table) *Evaluator {
	return &Evaluator{table: table}
}

// Evaluate returns the most probable charge-balanced assignment for s.
// Structures with no charge-balanced assignment yield probability 0.
func (e *Evaluator) Evaluate(s structure.Structure) Assignment {
	counts := make(map[string]int)
	for _, site := range s.Sites {
		counts[site.Species]++
	}
	elements := slices.Sorted(maps.Keys(counts))

	best := Assignment{States: map[string]int{}}
	current := make(map[string]int, len(elements))

	var walk func(i, charge int, prob float64)
	walk = func(i, charge int, prob float64) {
		if prob <= best.Probability {
			return
		}
		if i == len(elements) {
			if charge == 0 {
				best = Assignment{States: maps.Clone(current), Probability: prob}
			}
			return
		}

		el := elements[i]
		states := e.table[el]
		for _, state := range slices.Sorted(maps.Keys(states)) {
			current[el] = state
			walk(i+1, charge+state*counts[el], prob*states[state])
		}
		delete(current, el)
	}
	walk(0, 0, 1)

	return best
}

// Filter rejects assignments below Threshold.
type Filter struct {
	Evaluator *Evaluator
	Threshold float64
}

// Check evaluates s and returns ErrImprobable when the joint probability
// is below the threshold. The assignment is returned in both cases.
func (f Filter) Check(s structure.Structure) (Assignment, error) {
	a := f.Evaluator.Evaluate(s)
	if a.Probability < f.Threshold || math.IsNaN(a.Probability) {
		return a, fmt.Errorf("%w: %.4g < %.4g", ErrImprobable, a.Probability, f.Threshold)
	}
	return a, nil
}
