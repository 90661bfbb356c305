package candidates

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/sieve/pkg/pagination"
	"github.com/JaimeStill/sieve/pkg/query"
	"github.com/JaimeStill/sieve/pkg/repository"
)

// System defines the public contract for candidate persistence.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Candidate], error)

	Find(ctx context.Context, id uuid.UUID) (*Candidate, error)
	// ByRun returns every candidate of a run in input order.
	ByRun(ctx context.Context, runID uuid.UUID) ([]Candidate, error)
	// Tally counts a run's candidates by status and reason.
	Tally(ctx context.Context, runID uuid.UUID) ([]Count, error)
	// Save upserts candidates by id.
	Save(ctx context.Context, items []Candidate) error
}

// Count is the number of candidates sharing a status and reason.
type Count struct {
	Status Status  `json:"status"`
	Reason *Reason `json:"reason,omitempty"`
	Count  int     `json:"count"`
}

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a candidate repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "candidates"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Candidate], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Formula")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	result, err := repository.QueryPage(ctx, r.db, qb, page, scanCandidate)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	return result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Candidate, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	c, err := repository.QueryOne(ctx, r.db, q, args, scanCandidate)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &c, nil
}

func (r *repo) ByRun(ctx context.Context, runID uuid.UUID) ([]Candidate, error) {
	q, args := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("RunID", runID).
		Build()

	items, err := repository.QueryMany(ctx, r.db, q, args, scanCandidate)
	if err != nil {
		return nil, fmt.Errorf("query run candidates: %w", err)
	}
	return items, nil
}

func (r *repo) Tally(ctx context.Context, runID uuid.UUID) ([]Count, error) {
	q := `
		SELECT status, reason, COUNT(*)
		FROM candidates
		WHERE run_id = $1
		GROUP BY status, reason
		ORDER BY status, reason`

	return repository.QueryMany(ctx, r.db, q, []any{runID}, func(s repository.Scanner) (Count, error) {
		var c Count
		err := s.Scan(&c.Status, &c.Reason, &c.Count)
		return c, err
	})
}

func (r *repo) Save(ctx context.Context, items []Candidate) error {
	if len(items) == 0 {
		return nil
	}

	q := `
		INSERT INTO candidates(id, run_id, position, formula, status, stage, reason,
			predicted_bandgap, sustainability_score, energy_above_hull, final_bandgap, record)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			stage = EXCLUDED.stage,
			reason = EXCLUDED.reason,
			predicted_bandgap = EXCLUDED.predicted_bandgap,
			sustainability_score = EXCLUDED.sustainability_score,
			energy_above_hull = EXCLUDED.energy_above_hull,
			final_bandgap = EXCLUDED.final_bandgap,
			record = EXCLUDED.record,
			updated_at = NOW()`

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecEach(ctx, tx, q, items, func(c Candidate) ([]any, error) {
			record, err := json.Marshal(c)
			if err != nil {
				return nil, fmt.Errorf("encode candidate %s: %w", c.ID, err)
			}
			return []any{
				c.ID,
				c.RunID,
				c.Position,
				c.Formula,
				c.Status,
				c.Stage,
				c.Reason(),
				c.PredictedBandgap,
				c.SustainabilityScore,
				c.EnergyAboveHull,
				c.FinalBandgap,
				string(record),
			}, nil
		})
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Debug("candidates saved", "count", len(items))
	return nil
}
