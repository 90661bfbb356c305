package reference_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/JaimeStill/sieve/internal/composition"
	"github.com/JaimeStill/sieve/internal/reference"
	"github.com/JaimeStill/sieve/internal/structure"
	"github.com/JaimeStill/sieve/internal/sustainability"
)

func TestLoadDefaults(t *testing.T) {
	tables, err := reference.Load(reference.Paths{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	for _, el := range composition.Symbols() {
		if _, ok := tables.Abundance[el]; !ok {
			t.Errorf("abundance table missing %s", el)
		}
		if len(tables.Oxidation[el]) == 0 {
			t.Errorf("oxidation table missing %s", el)
		}
	}

	if tables.Oxidation["O"][-2] < 0.9 {
		t.Errorf("O2- probability: got %f", tables.Oxidation["O"][-2])
	}

	if _, err := structure.NewAssigner(tables.Prototypes, tables.Substitutions); err != nil {
		t.Errorf("default prototypes are inconsistent: %v", err)
	}

	if _, err := sustainability.NewRanker(tables.Abundance).Score(composition.MustParse("BaTaO2N")); err != nil {
		t.Errorf("score: %v", err)
	}
}

func TestLoadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abundance.json")
	body := `{"Fe": {"abundance_ppm": 1, "price_usd_per_kg": 1}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	tables, err := reference.Load(reference.Paths{Abundance: path})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(tables.Abundance) != 1 {
		t.Errorf("abundance entries: got %d, want 1", len(tables.Abundance))
	}
	if len(tables.Prototypes) == 0 {
		t.Error("prototypes should still load from defaults")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := reference.Load(reference.Paths{Oxidation: filepath.Join(t.TempDir(), "missing.json")})
	if err == nil {
		t.Error("expected error for missing override file")
	}
}
