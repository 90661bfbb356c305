package structure

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/JaimeStill/sieve/internal/composition"
)

var (
	// ErrNoMatch indicates no prototype can host the composition.
	ErrNoMatch = errors.New("no structure match")
	// ErrInvalidPrototype indicates a library entry whose sites disagree with its formula.
	ErrInvalidPrototype = errors.New("invalid prototype")
)

// Prototype is a library entry that compositions are substituted into.
type Prototype struct {
	ID         string  `json:"id"`
	Formula    string  `json:"formula"`
	SpaceGroup string  `json:"space_group"`
	Lattice    Lattice `json:"lattice"`
	Sites      []Site  `json:"sites"`
}

// Substitutions holds pairwise species substitution probabilities.
// Pairs is keyed by prototype species then candidate species; lookups
// fall back to the reverse pair and then to Default.
type Substitutions struct {
	Default float64                       `json:"default"`
	Pairs   map[string]map[string]float64 `json:"pairs"`
}

// Probability returns p(to | from).
func (s Substitutions) Probability(from, to string) float64 {
	if from == to {
		return 1
	}
	if p, ok := s.Pairs[from][to]; ok {
		return p
	}
	if p, ok := s.Pairs[to][from]; ok {
		return p
	}
	return s.Default
}

// Match is one candidate structure with its normalized probability.
type Match struct {
	Structure   Structure         `json:"structure"`
	Probability float64           `json:"probability"`
	Mapping     map[string]string `json:"mapping"`
}

type prototype struct {
	Prototype
	reduced composition.Composition
}

// Assigner matches compositions against a read-only prototype library.
type Assigner struct {
	byAnonymized map[string][]prototype
	subs         Substitutions
}

// NewAssigner indexes prototypes by anonymized formula.
func NewAssigner(prototypes []Prototype, subs Substitutions) (*Assigner, error) {
	a := &Assigner{
		byAnonymized: make(map[string][]prototype),
		subs:         subs,
	}

	for _, p := range prototypes {
		s := Structure{Lattice: p.Lattice, Sites: p.Sites}
		cell, err := s.Composition()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPrototype, p.ID, err)
		}
		declared, err := composition.Parse(p.Formula)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPrototype, p.ID, err)
		}
		if cell.ReducedFormula() != declared.ReducedFormula() {
			return nil, fmt.Errorf("%w: %s: sites give %s, formula is %s",
				ErrInvalidPrototype, p.ID, cell.ReducedFormula(), declared.ReducedFormula())
		}

		reduced, _ := cell.Reduced()
		key := reduced.Anonymized()
		a.byAnonymized[key] = append(a.byAnonymized[key], prototype{Prototype: p, reduced: reduced})
	}

	return a, nil
}

// Assign returns every substitution of c into a matching prototype,
// ranked by descending probability with ties broken by prototype id.
func (a *Assigner) Assign(c composition.Composition) ([]Match, error) {
	reduced, _ := c.Reduced()
	candidates := a.byAnonymized[reduced.Anonymized()]

	var (
		matches []Match
		total   float64
	)
	for _, p := range candidates {
		for _, mapping := range speciesMappings(p.reduced, reduced) {
			score := 1.0
			for from, to := range mapping {
				score *= a.subs.Probability(from, to)
			}
			if score <= 0 {
				continue
			}

			base := Structure{
				Lattice:    p.Lattice,
				Sites:      p.Sites,
				SpaceGroup: p.SpaceGroup,
				Prototype:  p.ID,
			}
			s := base.Substitute(mapping)
			if v0 := base.covalentVolume(); v0 > 0 {
				s.Lattice = s.Lattice.Scale(math.Cbrt(s.covalentVolume() / v0))
			}

			matches = append(matches, Match{Structure: s, Probability: score, Mapping: mapping})
			total += score
		}
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, c.Formula())
	}

	for i := range matches {
		matches[i].Probability /= total
	}

	slices.SortStableFunc(matches, func(x, y Match) int {
		if c := cmp.Compare(y.Probability, x.Probability); c != 0 {
			return c
		}
		if c := cmp.Compare(x.Structure.Prototype, y.Structure.Prototype); c != 0 {
			return c
		}
		return cmp.Compare(mappingKey(x.Mapping), mappingKey(y.Mapping))
	})

	return matches, nil
}

// speciesMappings enumerates bijections from prototype species to target
// species that preserve reduced amounts.
func speciesMappings(proto, target composition.Composition) []map[string]string {
	protoClasses := amountClasses(proto)
	targetClasses := amountClasses(target)

	mappings := []map[string]string{{}}
	for amt, from := range protoClasses {
		to := targetClasses[amt]
		if len(to) != len(from) {
			return nil
		}

		var next []map[string]string
		for _, perm := range permutations(to) {
			for _, m := range mappings {
				extended := maps.Clone(m)
				for i, el := range from {
					extended[el] = perm[i]
				}
				next = append(next, extended)
			}
		}
		mappings = next
	}
	return mappings
}

func amountClasses(c composition.Composition) map[string][]string {
	out := make(map[string][]string)
	for _, el := range c.ElementSet() {
		key := fmt.Sprintf("%.6f", c.Amount(el))
		out[key] = append(out[key], el)
	}
	return out
}

func permutations(items []string) [][]string {
	if len(items) <= 1 {
		return [][]string{slices.Clone(items)}
	}
	var out [][]string
	for i, head := range items {
		rest := make([]string, 0, len(items)-1)
		rest = append(rest, items[:i]...)
		rest = append(rest, items[i+1:]...)
		for _, tail := range permutations(rest) {
			out = append(out, append([]string{head}, tail...))
		}
	}
	return out
}

func mappingKey(m map[string]string) string {
	keys := slices.Sorted(maps.Keys(m))
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('>')
		b.WriteString(m[k])
		b.WriteByte(';')
	}
	return b.String()
}
