// Package structure models crystal structures and assigns them to
// compositions by substituting species into known prototypes.
package structure

import (
	"math"

	"github.com/JaimeStill/sieve/internal/composition"
)

// Lattice holds the three lattice vectors as rows, in angstroms.
type Lattice [3][3]float64

// Volume returns the cell volume.
func (l Lattice) Volume() float64 {
	a, b, c := l[0], l[1], l[2]
	cross := [3]float64{
		b[1]*c[2] - b[2]*c[1],
		b[2]*c[0] - b[0]*c[2],
		b[0]*c[1] - b[1]*c[0],
	}
	return math.Abs(a[0]*cross[0] + a[1]*cross[1] + a[2]*cross[2])
}

// Scale returns the lattice with every vector multiplied by factor.
func (l Lattice) Scale(factor float64) Lattice {
	var out Lattice
	for i := range l {
		for j := range l[i] {
			out[i][j] = l[i][j] * factor
		}
	}
	return out
}

// Site is one atom in fractional coordinates.
type Site struct {
	Species string     `json:"species"`
	Coords  [3]float64 `json:"coords"`
}

// Structure is a periodic crystal structure.
type Structure struct {
	Lattice    Lattice `json:"lattice"`
	Sites      []Site  `json:"sites"`
	SpaceGroup string  `json:"space_group,omitempty"`
	Prototype  string  `json:"prototype,omitempty"`
}

// Composition returns the cell contents.
func (s Structure) Composition() (composition.Composition, error) {
	amounts := make(map[string]float64)
	for _, site := range s.Sites {
		amounts[site.Species]++
	}
	return composition.New(amounts)
}

// Species returns the distinct species in site order.
func (s Structure) Species() []string {
	seen := make(map[string]bool)
	var out []string
	for _, site := range s.Sites {
		if !seen[site.Species] {
			seen[site.Species] = true
			out = append(out, site.Species)
		}
	}
	return out
}

// Substitute returns a copy of the structure with species renamed through
// mapping. Species missing from mapping are kept.
func (s Structure) Substitute(mapping map[string]string) Structure {
	out := Structure{
		Lattice:    s.Lattice,
		SpaceGroup: s.SpaceGroup,
		Prototype:  s.Prototype,
		Sites:      make([]Site, len(s.Sites)),
	}
	for i, site := range s.Sites {
		if to, ok := mapping[site.Species]; ok {
			site.Species = to
		}
		out.Sites[i] = site
	}
	return out
}

func (s Structure) covalentVolume() float64 {
	var v float64
	for _, site := range s.Sites {
		if e, ok := composition.Lookup(site.Species); ok {
			v += math.Pow(e.CovalentRadius, 3)
		}
	}
	return v
}
