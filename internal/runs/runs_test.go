package runs_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"testing"

	"github.com/JaimeStill/sieve/internal/runs"
)

func TestParseFormulas(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"lines", "ZnO\nBaTaO2N\n", []string{"ZnO", "BaTaO2N"}},
		{"comments and blanks", "# oxides\n\nZnO\n  \nTiO2 \n", []string{"ZnO", "TiO2"}},
		{"csv with header", "formula,source\nZnO,icsd\n\"SrTiO3\",mp\n", []string{"ZnO", "SrTiO3"}},
		{"header only once", "ZnO\nformula\n", []string{"ZnO", "formula"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := runs.ParseFormulas(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", runs.ErrNotFound, http.StatusNotFound},
		{"duplicate", runs.ErrDuplicate, http.StatusConflict},
		{"invalid state", runs.ErrInvalidState, http.StatusConflict},
		{"empty run", runs.ErrEmptyRun, http.StatusBadRequest},
		{"invalid request", runs.ErrInvalidRequest, http.StatusBadRequest},
		{"too large", runs.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{"wrapped not found", fmt.Errorf("find: %w", runs.ErrNotFound), http.StatusNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runs.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestFiltersFromQuery(t *testing.T) {
	f := runs.FiltersFromQuery(url.Values{"status": {"screened"}, "name": {"oxides"}})

	if f.Status == nil || *f.Status != "screened" {
		t.Errorf("Status = %v, want screened", f.Status)
	}
	if f.Name == nil || *f.Name != "oxides" {
		t.Errorf("Name = %v, want oxides", f.Name)
	}

	empty := runs.FiltersFromQuery(url.Values{})
	if empty.Status != nil || empty.Name != nil {
		t.Error("expected nil filters for empty query")
	}
}
