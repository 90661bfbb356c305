package stability

import (
	"fmt"
	"math"
)

// Label classifies a candidate by energy above hull.
type Label string

const (
	Stable     Label = "stable"
	Metastable Label = "metastable"
	Unstable   Label = "unstable"
)

// Result is the stability verdict for one candidate.
//
// HullEnergy and Products come from the hull over the competing phases and
// the candidate itself, so EnergyAboveHull is never negative and a candidate
// below its competitors decomposes to itself. DecompositionEnergy is the
// signed distance to the hull of the competing phases alone.
type Result struct {
	Label               Label     `json:"label"`
	EnergyAboveHull     float64   `json:"energy_above_hull"`
	DecompositionEnergy float64   `json:"decomposition_energy"`
	HullEnergy          float64   `json:"hull_energy"`
	Products            []Product `json:"products"`
}

// Evaluator classifies candidate energies against competing phases.
type Evaluator struct {
	// Tolerance is the largest energy above hull, in eV/atom, still
	// counted as on the hull.
	Tolerance float64
	// MetastableCutoff is the largest energy above hull counted as metastable.
	MetastableCutoff float64
}

// Evaluate places candidate on the phase diagram of its chemical system.
// Every element of the system needs an elemental phase among phases; the
// candidate never stands in for a missing terminal.
func (e Evaluator) Evaluate(candidate Entry, phases []Entry) (Result, error) {
	if candidate.Composition.IsEmpty() || math.IsNaN(candidate.EnergyPerAtom) || math.IsInf(candidate.EnergyPerAtom, 0) {
		return Result{}, fmt.Errorf("%w: candidate %s energy %v", ErrInvalidEntry, candidate.ID, candidate.EnergyPerAtom)
	}

	system := candidate.Composition.ElementSet()

	competing, err := NewPhaseDiagram(system, phases)
	if err != nil {
		return Result{}, err
	}
	others, _, err := competing.Decompose(candidate.Composition)
	if err != nil {
		return Result{}, err
	}

	pd, err := NewPhaseDiagram(system, append(competing.Entries(), candidate))
	if err != nil {
		return Result{}, err
	}
	hull, products, err := pd.Decompose(candidate.Composition)
	if err != nil {
		return Result{}, err
	}

	eah := math.Max(0, candidate.EnergyPerAtom-hull)
	return Result{
		Label:               e.Classify(eah),
		EnergyAboveHull:     eah,
		DecompositionEnergy: candidate.EnergyPerAtom - others,
		HullEnergy:          hull,
		Products:            products,
	}, nil
}

// Classify labels an energy above hull.
func (e Evaluator) Classify(eah float64) Label {
	switch {
	case eah <= e.Tolerance:
		return Stable
	case eah <= e.MetastableCutoff:
		return Metastable
	default:
		return Unstable
	}
}
