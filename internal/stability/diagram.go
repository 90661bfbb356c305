// Package stability builds compositional phase diagrams and classifies
// candidates by their energy above the convex hull.
package stability

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/JaimeStill/sieve/internal/composition"
)

var (
	// ErrInsufficientCompetingPhases indicates the hull is undefined over part
	// of the chemical system.
	ErrInsufficientCompetingPhases = errors.New("insufficient competing phases")
	// ErrInvalidEntry indicates an entry with a non-finite energy or empty composition.
	ErrInvalidEntry = errors.New("invalid phase diagram entry")
)

const (
	simplexTolerance = 1e-10
	productCutoff    = 1e-9
)

// Entry is a composition with its energy per atom in eV.
type Entry struct {
	ID            string                  `json:"id"`
	Composition   composition.Composition `json:"composition"`
	EnergyPerAtom float64                 `json:"energy_per_atom"`
}

// Product is one phase of a decomposition.
type Product struct {
	ID      string `json:"id"`
	Formula string `json:"formula"`
	// Fraction is the share of the decomposed composition's atoms held by this phase.
	Fraction float64 `json:"fraction"`
	// Amount is formula units of the phase per reduced formula unit decomposed.
	Amount float64 `json:"amount"`
}

// PhaseDiagram is the lower convex hull of entries over a chemical system.
type PhaseDiagram struct {
	elements  []string
	entries   []Entry
	terminals []int
}

// NewPhaseDiagram keeps the entries whose element set lies within elements
// and locates the lowest elemental entry for every element.
func NewPhaseDiagram(elements []string, entries []Entry) (*PhaseDiagram, error) {
	els := slices.Clone(elements)
	slices.Sort(els)
	els = slices.Compact(els)

	pd := &PhaseDiagram{elements: els}
	inSystem := func(c composition.Composition) bool {
		for _, el := range c.ElementSet() {
			if !slices.Contains(els, el) {
				return false
			}
		}
		return true
	}

	for _, e := range entries {
		if e.Composition.IsEmpty() || math.IsNaN(e.EnergyPerAtom) || math.IsInf(e.EnergyPerAtom, 0) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidEntry, e.ID)
		}
		if inSystem(e.Composition) {
			pd.entries = append(pd.entries, e)
		}
	}

	for _, el := range els {
		best := -1
		for i, e := range pd.entries {
			set := e.Composition.ElementSet()
			if len(set) != 1 || set[0] != el {
				continue
			}
			if best < 0 || e.EnergyPerAtom < pd.entries[best].EnergyPerAtom {
				best = i
			}
		}
		if best < 0 {
			return nil, fmt.Errorf("%w: no elemental phase for %s", ErrInsufficientCompetingPhases, el)
		}
		pd.terminals = append(pd.terminals, best)
	}

	return pd, nil
}

// Elements returns the sorted chemical system.
func (pd *PhaseDiagram) Elements() []string {
	return slices.Clone(pd.elements)
}

// Entries returns the entries inside the chemical system.
func (pd *PhaseDiagram) Entries() []Entry {
	return slices.Clone(pd.entries)
}

// Decompose returns the hull energy per atom at c and the lowest-energy
// combination of entries that reproduces it.
//
// The hull energy solves min Σ xⱼeⱼ subject to Σ xⱼfᵢⱼ = cᵢ, x ≥ 0, where
// fᵢⱼ is the atom fraction of element i in entry j. The elemental entries
// form an identity basis that is feasible at x = c.
func (pd *PhaseDiagram) Decompose(c composition.Composition) (float64, []Product, error) {
	for _, el := range c.ElementSet() {
		if !slices.Contains(pd.elements, el) {
			return 0, nil, fmt.Errorf("%w: %s outside %v", ErrInsufficientCompetingPhases, el, pd.elements)
		}
	}

	m, n := len(pd.elements), len(pd.entries)
	a := mat.NewDense(m, n, nil)
	cost := make([]float64, n)
	for j, e := range pd.entries {
		cost[j] = e.EnergyPerAtom
		for i, el := range pd.elements {
			a.Set(i, j, e.Composition.Fraction(el))
		}
	}

	b := make([]float64, m)
	for i, el := range pd.elements {
		b[i] = c.Fraction(el)
	}

	hull, x, err := lp.Simplex(cost, a, b, simplexTolerance, pd.terminals)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrInsufficientCompetingPhases, err)
	}

	reduced, _ := c.Reduced()
	atoms := reduced.NumAtoms()

	var products []Product
	for j, frac := range x {
		if frac <= productCutoff {
			continue
		}
		e := pd.entries[j]
		r, _ := e.Composition.Reduced()
		products = append(products, Product{
			ID:       e.ID,
			Formula:  r.Formula(),
			Fraction: frac,
			Amount:   frac * atoms / r.NumAtoms(),
		})
	}

	slices.SortFunc(products, func(p, q Product) int {
		return cmp.Compare(q.Fraction, p.Fraction)
	})

	return hull, products, nil
}
