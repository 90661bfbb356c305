package pagination_test

import (
	"net/url"
	"strings"
	"testing"

	"github.com/JaimeStill/sieve/pkg/pagination"
	"github.com/JaimeStill/sieve/pkg/query"
)

var bounds = pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}

func TestConfigFinalize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var cfg pagination.Config
		if err := cfg.Finalize(nil); err != nil {
			t.Fatalf("Finalize() error = %v", err)
		}
		if cfg != bounds {
			t.Errorf("got %+v, want %+v", cfg, bounds)
		}
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("SIEVE_TEST_PAGE_SIZE", "50")
		t.Setenv("SIEVE_TEST_MAX_PAGE", "not-a-number")

		var cfg pagination.Config
		err := cfg.Finalize(&pagination.ConfigEnv{
			DefaultPageSize: "SIEVE_TEST_PAGE_SIZE",
			MaxPageSize:     "SIEVE_TEST_MAX_PAGE",
		})
		if err != nil {
			t.Fatalf("Finalize() error = %v", err)
		}
		if cfg.DefaultPageSize != 50 || cfg.MaxPageSize != 100 {
			t.Errorf("got %+v, want default 50 and max 100", cfg)
		}
	})

	t.Run("default above max", func(t *testing.T) {
		cfg := pagination.Config{DefaultPageSize: 200, MaxPageSize: 100}
		err := cfg.Finalize(nil)
		if err == nil || !strings.Contains(err.Error(), "cannot exceed") {
			t.Fatalf("Finalize() error = %v, want bound violation", err)
		}
	})
}

func TestConfigMerge(t *testing.T) {
	base := bounds
	base.Merge(&pagination.Config{MaxPageSize: 250})

	if base.DefaultPageSize != 20 || base.MaxPageSize != 250 {
		t.Errorf("got %+v", base)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		req      pagination.PageRequest
		page     int
		pageSize int
		offset   int
	}{
		{"zero values", pagination.PageRequest{}, 1, 20, 0},
		{"negative page", pagination.PageRequest{Page: -3, PageSize: 10}, 1, 10, 0},
		{"size above max", pagination.PageRequest{Page: 2, PageSize: 500}, 2, 100, 100},
		{"kept", pagination.PageRequest{Page: 3, PageSize: 25}, 3, 25, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Normalize(bounds)
			if tt.req.Page != tt.page || tt.req.PageSize != tt.pageSize {
				t.Errorf("got page %d size %d, want %d/%d", tt.req.Page, tt.req.PageSize, tt.page, tt.pageSize)
			}
			if got := tt.req.Offset(); got != tt.offset {
				t.Errorf("Offset() = %d, want %d", got, tt.offset)
			}
		})
	}
}

func TestPageRequestFromQuery(t *testing.T) {
	t.Run("full", func(t *testing.T) {
		req := pagination.PageRequestFromQuery(url.Values{
			"page":      {"2"},
			"page_size": {"15"},
			"search":    {"BaTa"},
			"sort":      {"formula,-predicted_bandgap"},
		}, bounds)

		if req.Page != 2 || req.PageSize != 15 {
			t.Errorf("page = %d size = %d", req.Page, req.PageSize)
		}
		if req.Search == nil || *req.Search != "BaTa" {
			t.Errorf("search = %v", req.Search)
		}
		want := []query.SortField{
			{Field: "formula"},
			{Field: "predicted_bandgap", Descending: true},
		}
		if len(req.Sort) != len(want) {
			t.Fatalf("sort = %v", req.Sort)
		}
		for i := range want {
			if req.Sort[i] != want[i] {
				t.Errorf("sort[%d] = %v, want %v", i, req.Sort[i], want[i])
			}
		}
	})

	t.Run("garbage falls back", func(t *testing.T) {
		req := pagination.PageRequestFromQuery(url.Values{
			"page":      {"first"},
			"page_size": {"lots"},
		}, bounds)

		if req.Page != 1 || req.PageSize != 20 || req.Search != nil {
			t.Errorf("got %+v", req)
		}
	})
}

func TestNewPageResult(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		pageSize int
		pages    int
	}{
		{"exact", 100, 20, 5},
		{"remainder", 101, 20, 6},
		{"single", 5, 20, 1},
		{"empty", 0, 20, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := pagination.NewPageResult([]string{"ZnO"}, tt.total, 1, tt.pageSize)
			if result.TotalPages != tt.pages {
				t.Errorf("TotalPages = %d, want %d", result.TotalPages, tt.pages)
			}
			if result.Total != tt.total || result.PageSize != tt.pageSize {
				t.Errorf("got %+v", result)
			}
		})
	}

	t.Run("nil data", func(t *testing.T) {
		result := pagination.NewPageResult[string](nil, 0, 1, 20)
		if result.Data == nil {
			t.Error("Data should be an empty slice")
		}
	})
}
