// Package materials retrieves reference compounds competing with
// candidates for thermodynamic stability.
package materials

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/JaimeStill/sieve/internal/composition"
	"github.com/JaimeStill/sieve/internal/structure"
)

var (
	// ErrSource indicates the materials database could not be queried.
	ErrSource = errors.New("materials source")
	// ErrInvalidPhase indicates a record that cannot be decoded into a phase.
	ErrInvalidPhase = errors.New("invalid competing phase")
)

// Phase is a known reference compound.
type Phase struct {
	ID            string                  `json:"id"`
	Composition   composition.Composition `json:"composition"`
	EnergyPerAtom float64                 `json:"energy_per_atom"`
	Structure     *structure.Structure    `json:"structure,omitempty"`
	Experimental  bool                    `json:"experimental"`
}

// Source returns every phase whose element set lies within elements.
type Source interface {
	Phases(ctx context.Context, elements []string) ([]Phase, error)
}

// Subsystems returns every non-empty subset of elements as a sorted,
// dash-joined chemical system.
func Subsystems(elements []string) []string {
	els := slices.Clone(elements)
	slices.Sort(els)
	els = slices.Compact(els)

	out := make([]string, 0, 1<<len(els)-1)
	for mask := 1; mask < 1<<len(els); mask++ {
		var parts []string
		for i, el := range els {
			if mask&(1<<i) != 0 {
				parts = append(parts, el)
			}
		}
		out = append(out, strings.Join(parts, "-"))
	}
	slices.Sort(out)
	return out
}

func within(c composition.Composition, elements []string) bool {
	for _, el := range c.ElementSet() {
		if !slices.Contains(elements, el) {
			return false
		}
	}
	return true
}
