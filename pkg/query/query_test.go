package query_test

import (
	"reflect"
	"testing"

	"github.com/JaimeStill/sieve/pkg/query"
)

func candidates() *query.ProjectionMap {
	return query.NewProjectionMap("public", "candidates", "c").
		Project("id", "ID").
		Project("formula", "Formula").
		Project("status", "Status").
		Project("predicted_bandgap", "PredictedBandgap")
}

func ptr[T any](v T) *T { return &v }

func TestProjectionMap(t *testing.T) {
	p := candidates()

	if got := p.From(); got != "public.candidates c" {
		t.Errorf("From() = %q", got)
	}
	if got := p.Columns(); got != "c.id, c.formula, c.status, c.predicted_bandgap" {
		t.Errorf("Columns() = %q", got)
	}

	tests := []struct {
		name   string
		lookup string
		want   string
		ok     bool
	}{
		{"field", "PredictedBandgap", "c.predicted_bandgap", true},
		{"column", "predicted_bandgap", "c.predicted_bandgap", true},
		{"case folded", "formula", "c.formula", true},
		{"unmapped", "record", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.Lookup(tt.lookup)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Lookup(%q) = %q, %v", tt.lookup, got, ok)
			}
		})
	}
}

func TestParseSortFields(t *testing.T) {
	tests := []struct {
		in   string
		want []query.SortField
	}{
		{"", nil},
		{"formula", []query.SortField{{Field: "formula"}}},
		{"formula, -predicted_bandgap", []query.SortField{
			{Field: "formula"},
			{Field: "predicted_bandgap", Descending: true},
		}},
		{",,-,", nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := query.ParseSortFields(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseSortFields(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	sql, args := query.NewBuilder(candidates(), query.SortField{Field: "ID"}).
		WhereEquals("Status", ptr("pending")).
		WhereEquals("Formula", (*string)(nil)).
		WhereAtLeast("PredictedBandgap", ptr(1.0)).
		WhereAtMost("PredictedBandgap", ptr(2.5)).
		WhereSearch(ptr("Ta"), "Formula", "Status").
		Build()

	want := "SELECT c.id, c.formula, c.status, c.predicted_bandgap FROM public.candidates c" +
		" WHERE c.status = $1 AND c.predicted_bandgap >= $2 AND c.predicted_bandgap <= $3" +
		" AND (c.formula ILIKE $4 OR c.status ILIKE $5) ORDER BY c.id ASC"
	if sql != want {
		t.Errorf("sql:\n got %s\nwant %s", sql, want)
	}
	if len(args) != 5 || args[3] != "%Ta%" || args[4] != "%Ta%" {
		t.Errorf("args = %v", args)
	}
}

func TestBuildCount(t *testing.T) {
	sql, args := query.NewBuilder(candidates()).
		WhereContains("Formula", ptr("O2")).
		BuildCount()

	if sql != "SELECT COUNT(*) FROM public.candidates c WHERE c.formula ILIKE $1" {
		t.Errorf("sql = %s", sql)
	}
	if len(args) != 1 || args[0] != "%O2%" {
		t.Errorf("args = %v", args)
	}
}

func TestBuildPage(t *testing.T) {
	sql, _ := query.NewBuilder(candidates()).BuildPage(3, 25)

	want := "SELECT c.id, c.formula, c.status, c.predicted_bandgap FROM public.candidates c LIMIT 25 OFFSET 50"
	if sql != want {
		t.Errorf("sql = %s", sql)
	}
}

func TestBuildSingle(t *testing.T) {
	sql, args := query.NewBuilder(candidates()).
		WhereEquals("Status", ptr("ignored")).
		BuildSingle("ID", 7)

	if sql != "SELECT c.id, c.formula, c.status, c.predicted_bandgap FROM public.candidates c WHERE c.id = $1" {
		t.Errorf("sql = %s", sql)
	}
	if len(args) != 1 || args[0] != 7 {
		t.Errorf("args = %v", args)
	}
}

func TestOrderByFields(t *testing.T) {
	defaultSort := query.SortField{Field: "ID", Descending: true}

	tests := []struct {
		name string
		sort []query.SortField
		want string
	}{
		{"default", nil, " ORDER BY c.id DESC"},
		{"override", []query.SortField{{Field: "formula"}, {Field: "PredictedBandgap", Descending: true}},
			" ORDER BY c.formula ASC, c.predicted_bandgap DESC"},
		{"unknown dropped", []query.SortField{{Field: "1; DROP TABLE runs"}, {Field: "status"}},
			" ORDER BY c.status ASC"},
		{"all unknown keeps default", []query.SortField{{Field: "nope"}}, " ORDER BY c.id DESC"},
	}

	base := "SELECT c.id, c.formula, c.status, c.predicted_bandgap FROM public.candidates c"
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, _ := query.NewBuilder(candidates(), defaultSort).OrderByFields(tt.sort).Build()
			if sql != base+tt.want {
				t.Errorf("sql = %s", sql)
			}
		})
	}
}
