package candidates

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/JaimeStill/sieve/pkg/query"
	"github.com/JaimeStill/sieve/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "candidates", "c").
	Project("id", "ID").
	Project("run_id", "RunID").
	Project("position", "Position").
	Project("formula", "Formula").
	Project("status", "Status").
	Project("stage", "Stage").
	Project("reason", "Reason").
	Project("predicted_bandgap", "PredictedBandgap").
	Project("sustainability_score", "SustainabilityScore").
	Project("energy_above_hull", "EnergyAboveHull").
	Project("final_bandgap", "FinalBandgap").
	Project("record", "Record").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{Field: "Position"}

// Filters contains optional filtering criteria for candidate queries.
// Formula uses case-insensitive contains matching; MaxEnergyAboveHull and
// the bandgap bounds are inclusive.
type Filters struct {
	RunID              *uuid.UUID `json:"run_id,omitempty"`
	Status             *string    `json:"status,omitempty"`
	Stage              *string    `json:"stage,omitempty"`
	Reason             *string    `json:"reason,omitempty"`
	Formula            *string    `json:"formula,omitempty"`
	MinBandgap         *float64   `json:"min_bandgap,omitempty"`
	MaxBandgap         *float64   `json:"max_bandgap,omitempty"`
	MaxEnergyAboveHull *float64   `json:"max_energy_above_hull,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("RunID", f.RunID).
		WhereEquals("Status", f.Status).
		WhereEquals("Stage", f.Stage).
		WhereEquals("Reason", f.Reason).
		WhereContains("Formula", f.Formula).
		WhereAtLeast("PredictedBandgap", f.MinBandgap).
		WhereAtMost("PredictedBandgap", f.MaxBandgap).
		WhereAtMost("EnergyAboveHull", f.MaxEnergyAboveHull)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) (Filters, error) {
	var f Filters

	if s := values.Get("run_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return f, fmt.Errorf("%w: run_id: %v", ErrInvalidQuery, err)
		}
		f.RunID = &id
	}

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}
	if s := values.Get("stage"); s != "" {
		f.Stage = &s
	}
	if s := values.Get("reason"); s != "" {
		f.Reason = &s
	}
	if s := values.Get("formula"); s != "" {
		f.Formula = &s
	}

	floats := []struct {
		key string
		dst **float64
	}{
		{"min_bandgap", &f.MinBandgap},
		{"max_bandgap", &f.MaxBandgap},
		{"max_energy_above_hull", &f.MaxEnergyAboveHull},
	}
	for _, fl := range floats {
		s := values.Get(fl.key)
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return f, fmt.Errorf("%w: %s: %v", ErrInvalidQuery, fl.key, err)
		}
		*fl.dst = &v
	}

	return f, nil
}

// scanCandidate decodes the record column. The remaining columns are
// denormalized copies kept for filtering and sorting.
func scanCandidate(s repository.Scanner) (Candidate, error) {
	var (
		c      Candidate
		skip   any
		record []byte
	)
	err := s.Scan(
		&skip, &skip, &skip, &skip, &skip, &skip, &skip,
		&skip, &skip, &skip, &skip,
		&record,
		&skip,
	)
	if err != nil {
		return c, err
	}

	if err := json.Unmarshal(record, &c); err != nil {
		return c, fmt.Errorf("decode candidate record: %w", err)
	}
	return c, nil
}
