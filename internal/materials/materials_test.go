package materials_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JaimeStill/sieve/internal/composition"
	"github.com/JaimeStill/sieve/internal/materials"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSubsystems(t *testing.T) {
	got := materials.Subsystems([]string{"O", "Ba", "O", "N"})
	want := []string{"Ba", "Ba-N", "Ba-N-O", "Ba-O", "N", "N-O", "O"}
	if !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestHTTPSource(t *testing.T) {
	var (
		mu      sync.Mutex
		queried []string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-KEY") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/materials/summary/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.URL.Query().Get("theoretical") != "false" {
			t.Errorf("experimental filter not applied: %s", r.URL.RawQuery)
		}

		chemsys := r.URL.Query().Get("chemsys")
		if chemsys == "O" {
			// finish last so arrival order differs from ID order
			time.Sleep(20 * time.Millisecond)
		}
		mu.Lock()
		queried = append(queried, chemsys)
		mu.Unlock()

		docs := map[string][]map[string]any{
			"Zn": {{"material_id": "mp-79", "composition": map[string]float64{"Zn": 1}, "energy_per_atom": -1.26}},
			"O":  {{"material_id": "mp-12957", "composition": map[string]float64{"O": 8}, "energy_per_atom": -4.95}},
			"O-Zn": {
				{
					"material_id":     "mp-2133",
					"composition":     map[string]float64{"Zn": 2, "O": 2},
					"energy_per_atom": -4.56,
					"structure": map[string]any{
						"lattice": map[string]any{"matrix": [][]float64{{3.2, 0, 0}, {-1.6, 2.8, 0}, {0, 0, 5.2}}},
						"sites": []map[string]any{
							{"species": []map[string]any{{"element": "Zn"}}, "abc": []float64{1.0 / 3, 2.0 / 3, 0}},
							{"species": []map[string]any{{"element": "O"}}, "abc": []float64{1.0 / 3, 2.0 / 3, 0.38}},
						},
					},
				},
				{"material_id": "mp-bad", "composition": map[string]float64{"Zn": 1, "O": 2}},
			},
		}
		json.NewEncoder(w).Encode(map[string]any{"data": docs[chemsys]})
	}))
	defer srv.Close()

	src := materials.NewHTTPSource(materials.HTTPOptions{
		BaseURL:          srv.URL,
		APIKey:           "secret",
		ExperimentalOnly: true,
		Timeout:          time.Second,
	}, discard())

	phases, err := src.Phases(context.Background(), []string{"Zn", "O"})
	if err != nil {
		t.Fatalf("phases: %v", err)
	}

	slices.Sort(queried)
	if !slices.Equal(queried, []string{"O", "O-Zn", "Zn"}) {
		t.Errorf("queried: got %v", queried)
	}

	if len(phases) != 3 {
		t.Fatalf("got %d phases, want 3 (record without energy skipped)", len(phases))
	}

	ids := make([]string, len(phases))
	for i, p := range phases {
		ids[i] = p.ID
	}
	if !slices.Equal(ids, []string{"mp-12957", "mp-2133", "mp-79"}) {
		t.Errorf("phases not ordered by id: %v", ids)
	}

	for _, p := range phases {
		if p.ID == "mp-2133" {
			if p.Structure == nil || len(p.Structure.Sites) != 2 {
				t.Errorf("structure not decoded: %+v", p.Structure)
			}
			if !p.Experimental {
				t.Error("phase should be experimental")
			}
		}
	}
}

func TestHTTPSourceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	src := materials.NewHTTPSource(materials.HTTPOptions{BaseURL: srv.URL, Timeout: time.Second}, discard())
	if _, err := src.Phases(context.Background(), []string{"Zn"}); err == nil {
		t.Error("expected error")
	}
}

func TestFileSource(t *testing.T) {
	phases := []map[string]any{
		{"id": "zn", "composition": "Zn", "energy_per_atom": -1.26, "experimental": true},
		{"id": "zno", "composition": "ZnO", "energy_per_atom": -4.56, "experimental": true},
		{"id": "zno2", "composition": "ZnO2", "energy_per_atom": -4.1, "experimental": false},
		{"id": "fe", "composition": "Fe", "energy_per_atom": -8.4, "experimental": true},
	}
	data, _ := json.Marshal(phases)
	path := filepath.Join(t.TempDir(), "phases.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := materials.NewFileSource(path, true)
	if err != nil {
		t.Fatalf("new file source: %v", err)
	}

	got, err := src.Phases(context.Background(), composition.MustParse("ZnO").ElementSet())
	if err != nil {
		t.Fatalf("phases: %v", err)
	}

	var ids []string
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	if !slices.Equal(ids, []string{"zn", "zno"}) {
		t.Errorf("got %v, want [zn zno]", ids)
	}
}

type countingSource struct {
	calls atomic.Int32
}

func (s *countingSource) Phases(_ context.Context, elements []string) ([]materials.Phase, error) {
	s.calls.Add(1)
	time.Sleep(10 * time.Millisecond)
	return []materials.Phase{{ID: "x"}}, nil
}

func TestCacheFetchesOncePerSystem(t *testing.T) {
	src := &countingSource{}
	cache := materials.NewCache(src)

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			if _, err := cache.Phases(context.Background(), []string{"O", "Zn"}); err != nil {
				t.Error(err)
			}
		})
	}
	wg.Wait()

	if _, err := cache.Phases(context.Background(), []string{"Zn", "O"}); err != nil {
		t.Fatal(err)
	}

	if got := src.calls.Load(); got != 1 {
		t.Errorf("source calls: got %d, want 1", got)
	}
	if cache.Len() != 1 {
		t.Errorf("cached systems: got %d, want 1", cache.Len())
	}
}
