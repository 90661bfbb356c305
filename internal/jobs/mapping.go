package jobs

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/JaimeStill/sieve/pkg/query"
	"github.com/JaimeStill/sieve/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "compute_jobs", "j").
	Project("id", "ID").
	Project("identity", "Identity").
	Project("profile", "Profile").
	Project("structure", "Structure").
	Project("state", "State").
	Project("result", "Result").
	Project("message", "Message").
	Project("worker", "Worker").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt").
	Project("claimed_at", "ClaimedAt").
	Project("completed_at", "CompletedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for job queries.
// Identity uses case-insensitive contains matching; the rest match exactly.
type Filters struct {
	State    *string `json:"state,omitempty"`
	Profile  *string `json:"profile,omitempty"`
	Identity *string `json:"identity,omitempty"`
	Worker   *string `json:"worker,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("State", f.State).
		WhereEquals("Profile", f.Profile).
		WhereContains("Identity", f.Identity).
		WhereEquals("Worker", f.Worker)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("state"); s != "" {
		f.State = &s
	}
	if p := values.Get("profile"); p != "" {
		f.Profile = &p
	}
	if id := values.Get("identity"); id != "" {
		f.Identity = &id
	}
	if w := values.Get("worker"); w != "" {
		f.Worker = &w
	}

	return f
}

func scanJob(s repository.Scanner) (Job, error) {
	var (
		j         Job
		structure []byte
		result    []byte
	)
	err := s.Scan(
		&j.ID,
		&j.Identity,
		&j.Profile,
		&structure,
		&j.State,
		&result,
		&j.Message,
		&j.Worker,
		&j.CreatedAt,
		&j.UpdatedAt,
		&j.ClaimedAt,
		&j.CompletedAt,
	)
	if err != nil {
		return j, err
	}

	if err := json.Unmarshal(structure, &j.Structure); err != nil {
		return j, fmt.Errorf("decode job structure: %w", err)
	}
	if len(result) > 0 {
		j.Result = new(Result)
		if err := json.Unmarshal(result, j.Result); err != nil {
			return j, fmt.Errorf("decode job result: %w", err)
		}
	}

	return j, nil
}
