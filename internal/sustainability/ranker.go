// Package sustainability scores compositions by elemental crustal
// abundance and market price and orders them best-first.
package sustainability

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/JaimeStill/sieve/internal/composition"
)

// ErrMissingElement indicates the reference table has no entry for an element.
var ErrMissingElement = errors.New("element missing from abundance table")

// Entry holds the reference data for one element.
type Entry struct {
	AbundancePPM  float64 `json:"abundance_ppm"`
	PriceUSDPerKg float64 `json:"price_usd_per_kg"`
}

// Table maps element symbols to abundance and price data.
type Table map[string]Entry

// Ranker scores compositions against a read-only reference table.
type Ranker struct {
	table Table
}

// NewRanker creates a Ranker over table. The table is not copied and must
// not be mutated afterwards.
func NewRanker(table Table) *Ranker {
	return &Ranker{table: table}
}

// Score returns the weight-fraction weighted log10 abundance minus the
// weight-fraction weighted log10 price. Higher is more sustainable.
func (r *Ranker) Score(c composition.Composition) (float64, error) {
	var abundance, price float64
	for el, w := range c.WeightFractions() {
		e, ok := r.table[el]
		if !ok || e.AbundancePPM <= 0 || e.PriceUSDPerKg <= 0 {
			return 0, fmt.Errorf("%w: %s", ErrMissingElement, el)
		}
		abundance += w * math.Log10(e.AbundancePPM)
		price += w * math.Log10(e.PriceUSDPerKg)
	}
	return abundance - price, nil
}

// Rank stably orders items by descending score. Items whose
// score is unknown (ok == false) follow every scored item; ties keep input order.
func Rank[T any](items []T, score func(T) (value float64, ok bool)) {
	slices.SortStableFunc(items, func(a, b T) int {
		sa, oka := score(a)
		sb, okb := score(b)
		switch {
		case oka && !okb:
			return -1
		case !oka && okb:
			return 1
		case !oka && !okb:
			return 0
		}
		return cmp.Compare(sb, sa)
	})
}
