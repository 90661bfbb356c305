package runs

import (
	"net/url"

	"github.com/JaimeStill/sieve/pkg/query"
	"github.com/JaimeStill/sieve/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "runs", "r").
	Project("id", "ID").
	Project("name", "Name").
	Project("source_key", "SourceKey").
	Project("status", "Status").
	Project("total", "Total").
	Project("error", "Error").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for run queries.
// Name uses case-insensitive contains matching.
type Filters struct {
	Status *string `json:"status,omitempty"`
	Name   *string `json:"name,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereContains("Name", f.Name)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}
	if n := values.Get("name"); n != "" {
		f.Name = &n
	}

	return f
}

func scanRun(s repository.Scanner) (Run, error) {
	var r Run
	err := s.Scan(
		&r.ID,
		&r.Name,
		&r.SourceKey,
		&r.Status,
		&r.Total,
		&r.Error,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	return r, err
}
