// Package composition implements immutable chemical compositions: formula
// parsing, normalized and reduced formulas, atom and weight fractions, and
// the chemical system (element set) a composition belongs to.
package composition

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
)

const amountTolerance = 1e-8

// Composition is an immutable multiset of (element, amount) pairs.
// The zero value is an empty composition.
type Composition struct {
	amounts map[string]float64
}

// New builds a Composition from element amounts. Amounts must be positive
// and every element must be known.
func New(amounts map[string]float64) (Composition, error) {
	if len(amounts) == 0 {
		return Composition{}, ErrEmptyFormula
	}

	out := make(map[string]float64, len(amounts))
	for el, amt := range amounts {
		if _, ok := table[el]; !ok {
			return Composition{}, fmt.Errorf("%w: %s", ErrUnknownElement, el)
		}
		if amt <= 0 || math.IsNaN(amt) || math.IsInf(amt, 0) {
			return Composition{}, fmt.Errorf("%w: %s=%v", ErrInvalidAmount, el, amt)
		}
		out[el] += amt
	}

	return Composition{amounts: out}, nil
}

// MustParse parses formula and panics on error. Intended for tests and
// package-level fixtures.
func MustParse(formula string) Composition {
	c, err := Parse(formula)
	if err != nil {
		panic(err)
	}
	return c
}

// IsEmpty reports whether the composition has no elements.
func (c Composition) IsEmpty() bool {
	return len(c.amounts) == 0
}

// Amount returns the amount of el, or zero when absent.
func (c Composition) Amount(el string) float64 {
	return c.amounts[el]
}

// Amounts returns a copy of the element amounts.
func (c Composition) Amounts() map[string]float64 {
	return maps.Clone(c.amounts)
}

// NumAtoms returns the total number of atoms.
func (c Composition) NumAtoms() float64 {
	var n float64
	for _, amt := range c.amounts {
		n += amt
	}
	return n
}

// Elements returns the element symbols ordered by Pauling electronegativity,
// ties broken by symbol.
func (c Composition) Elements() []string {
	els := slices.Collect(maps.Keys(c.amounts))
	slices.SortFunc(els, func(a, b string) int {
		ea, eb := table[a].Electronegativity, table[b].Electronegativity
		if ea != eb {
			if ea < eb {
				return -1
			}
			return 1
		}
		return strings.Compare(a, b)
	})
	return els
}

// Formula returns the normalized formula string. Equal compositions
// always produce the same formula.
func (c Composition) Formula() string {
	var b strings.Builder
	for _, el := range c.Elements() {
		b.WriteString(el)
		b.WriteString(formatAmount(c.amounts[el]))
	}
	return b.String()
}

func (c Composition) String() string {
	return c.Formula()
}

// Reduced returns the composition divided by its greatest common
// integer factor along with that factor. Non-integral compositions are
// returned unchanged with factor 1.
func (c Composition) Reduced() (Composition, float64) {
	if c.IsEmpty() {
		return c, 1
	}

	var divisor int64
	for _, amt := range c.amounts {
		if !isIntegral(amt) {
			return c, 1
		}
		divisor = gcd(divisor, int64(math.Round(amt)))
	}
	if divisor <= 1 {
		return c, 1
	}

	factor := float64(divisor)
	out := make(map[string]float64, len(c.amounts))
	for el, amt := range c.amounts {
		out[el] = math.Round(amt) / factor
	}
	return Composition{amounts: out}, factor
}

// ReducedFormula returns the normalized formula of the reduced composition.
func (c Composition) ReducedFormula() string {
	r, _ := c.Reduced()
	return r.Formula()
}

// Anonymized returns the reduced formula with elements replaced by letters
// in ascending amount order, e.g. SrTiO3 -> ABC3.
func (c Composition) Anonymized() string {
	r, _ := c.Reduced()
	amounts := slices.Collect(maps.Values(r.amounts))
	slices.Sort(amounts)

	var b strings.Builder
	for i, amt := range amounts {
		b.WriteRune(rune('A' + i))
		b.WriteString(formatAmount(amt))
	}
	return b.String()
}

// Fraction returns the atom fraction of el.
func (c Composition) Fraction(el string) float64 {
	n := c.NumAtoms()
	if n == 0 {
		return 0
	}
	return c.amounts[el] / n
}

// Fractions returns the atom fraction of every element.
func (c Composition) Fractions() map[string]float64 {
	n := c.NumAtoms()
	out := make(map[string]float64, len(c.amounts))
	for el, amt := range c.amounts {
		out[el] = amt / n
	}
	return out
}

// Weight returns the formula mass in atomic mass units.
func (c Composition) Weight() float64 {
	var w float64
	for el, amt := range c.amounts {
		w += amt * table[el].Mass
	}
	return w
}

// WeightFractions returns the mass fraction of every element.
func (c Composition) WeightFractions() map[string]float64 {
	total := c.Weight()
	out := make(map[string]float64, len(c.amounts))
	for el, amt := range c.amounts {
		out[el] = amt * table[el].Mass / total
	}
	return out
}

// ChemicalSystem returns the sorted, dash-joined element set, e.g. "Ba-N-O".
func (c Composition) ChemicalSystem() string {
	return strings.Join(c.ElementSet(), "-")
}

// ElementSet returns the alphabetically sorted element symbols.
func (c Composition) ElementSet() []string {
	els := slices.Collect(maps.Keys(c.amounts))
	slices.Sort(els)
	return els
}

// Contains reports whether el is present.
func (c Composition) Contains(el string) bool {
	_, ok := c.amounts[el]
	return ok
}

// WithinSystem reports whether every element of c is also in other.
func (c Composition) WithinSystem(other Composition) bool {
	for el := range c.amounts {
		if !other.Contains(el) {
			return false
		}
	}
	return true
}

// Equal reports whether both compositions hold the same amounts within tolerance.
func (c Composition) Equal(other Composition) bool {
	if len(c.amounts) != len(other.amounts) {
		return false
	}
	for el, amt := range c.amounts {
		o, ok := other.amounts[el]
		if !ok || math.Abs(o-amt) > amountTolerance {
			return false
		}
	}
	return true
}

// Scale returns the composition multiplied by factor.
func (c Composition) Scale(factor float64) Composition {
	out := make(map[string]float64, len(c.amounts))
	for el, amt := range c.amounts {
		out[el] = amt * factor
	}
	return Composition{amounts: out}
}

// MarshalJSON encodes the composition as an element amount object.
func (c Composition) MarshalJSON() ([]byte, error) {
	if c.amounts == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.amounts)
}

// UnmarshalJSON accepts either an element amount object or a formula string.
func (c *Composition) UnmarshalJSON(data []byte) error {
	var formula string
	if err := json.Unmarshal(data, &formula); err == nil {
		parsed, err := Parse(formula)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}

	var amounts map[string]float64
	if err := json.Unmarshal(data, &amounts); err != nil {
		return err
	}
	if len(amounts) == 0 {
		*c = Composition{}
		return nil
	}

	parsed, err := New(amounts)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func formatAmount(amt float64) string {
	if isIntegral(amt) {
		n := int64(math.Round(amt))
		if n == 1 {
			return ""
		}
		return strconv.FormatInt(n, 10)
	}
	rounded := math.Round(amt*1e8) / 1e8
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}

func isIntegral(x float64) bool {
	return math.Abs(x-math.Round(x)) < amountTolerance
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}
