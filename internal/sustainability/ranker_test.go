package sustainability_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/JaimeStill/sieve/internal/composition"
	"github.com/JaimeStill/sieve/internal/sustainability"
)

var table = sustainability.Table{
	"Fe": {AbundancePPM: 56300, PriceUSDPerKg: 0.4},
	"O":  {AbundancePPM: 461000, PriceUSDPerKg: 0.15},
	"Ti": {AbundancePPM: 5650, PriceUSDPerKg: 11},
	"Ta": {AbundancePPM: 2, PriceUSDPerKg: 300},
	"N":  {AbundancePPM: 19, PriceUSDPerKg: 0.14},
}

func TestScoreOrdersAbundantCheapElementsFirst(t *testing.T) {
	r := sustainability.NewRanker(table)

	fe, err := r.Score(composition.MustParse("Fe2O3"))
	if err != nil {
		t.Fatalf("score Fe2O3: %v", err)
	}
	ta, err := r.Score(composition.MustParse("Ta3N5"))
	if err != nil {
		t.Fatalf("score Ta3N5: %v", err)
	}

	if fe <= ta {
		t.Errorf("Fe2O3 (%f) should outscore Ta3N5 (%f)", fe, ta)
	}
}

func TestScoreMissingElement(t *testing.T) {
	r := sustainability.NewRanker(table)

	_, err := r.Score(composition.MustParse("BaO"))
	if !errors.Is(err, sustainability.ErrMissingElement) {
		t.Errorf("got %v, want ErrMissingElement", err)
	}
}

type scored struct {
	name  string
	score float64
	ok    bool
}

func TestRankIsStable(t *testing.T) {
	input := []scored{
		{"a", 1, true},
		{"b", 3, true},
		{"unscored-1", 0, false},
		{"c", 1, true},
		{"d", 3, true},
		{"unscored-2", 0, false},
	}
	key := func(s scored) (float64, bool) { return s.score, s.ok }

	first := slices.Clone(input)
	sustainability.Rank(first, key)

	want := []string{"b", "d", "a", "c", "unscored-1", "unscored-2"}
	for i, s := range first {
		if s.name != want[i] {
			t.Fatalf("position %d: got %s, want %s", i, s.name, want[i])
		}
	}

	second := slices.Clone(first)
	sustainability.Rank(second, key)
	if !slices.Equal(first, second) {
		t.Error("re-sorting an ordered input should not change it")
	}
}
