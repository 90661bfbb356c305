// Package reference loads the read-only tables shared by the screening
// stages: elemental abundance and price, oxidation state statistics,
// structure prototypes, and substitution probabilities.
package reference

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/JaimeStill/sieve/internal/oxidation"
	"github.com/JaimeStill/sieve/internal/structure"
	"github.com/JaimeStill/sieve/internal/sustainability"
)

//go:embed data/*.json
var defaults embed.FS

// Paths overrides embedded tables with files. Empty paths use the defaults.
type Paths struct {
	Abundance     string
	Oxidation     string
	Prototypes    string
	Substitutions string
}

// Tables holds every reference table. Tables are never mutated after Load.
type Tables struct {
	Abundance     sustainability.Table
	Oxidation     oxidation.Table
	Prototypes    []structure.Prototype
	Substitutions structure.Substitutions
}

// Load reads every table.
func Load(paths Paths) (*Tables, error) {
	var t Tables

	sources := []struct {
		name string
		path string
		dst  any
	}{
		{"abundance", paths.Abundance, &t.Abundance},
		{"oxidation", paths.Oxidation, &t.Oxidation},
		{"prototypes", paths.Prototypes, &t.Prototypes},
		{"substitutions", paths.Substitutions, &t.Substitutions},
	}

	for _, s := range sources {
		data, err := read(s.name, s.path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, s.dst); err != nil {
			return nil, fmt.Errorf("decode %s table: %w", s.name, err)
		}
	}

	return &t, nil
}

func read(name, path string) ([]byte, error) {
	if path == "" {
		return defaults.ReadFile("data/" + name + ".json")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s table: %w", name, err)
	}
	return data, nil
}
