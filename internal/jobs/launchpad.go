package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/sieve/pkg/pagination"
	"github.com/JaimeStill/sieve/pkg/query"
	"github.com/JaimeStill/sieve/pkg/repository"
)

// System is the persistent job queue shared by the orchestrator and
// compute workers.
type System interface {
	Submitter

	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Job], error)

	Find(ctx context.Context, id uuid.UUID) (*Job, error)
	// Claim moves the oldest queued job matching profiles to running and
	// assigns it to worker. An empty profiles slice matches every profile.
	Claim(ctx context.Context, worker string, profiles []Profile) (*Job, error)
	Complete(ctx context.Context, id uuid.UUID, result Result) (*Job, error)
	Fail(ctx context.Context, id uuid.UUID, message string) (*Job, error)
}

type launchpad struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// NewLaunchpad creates a PostgreSQL-backed job queue.
func NewLaunchpad(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &launchpad{
		db:         db,
		logger:     logger.With("system", "launchpad"),
		pagination: pagination,
	}
}

func (l *launchpad) Handler() *Handler {
	return NewHandler(l, l.logger, l.pagination)
}

func (l *launchpad) Submit(ctx context.Context, spec Spec) (uuid.UUID, error) {
	if spec.Identity == "" || !spec.Profile.Valid() {
		return uuid.Nil, ErrInvalidSpec
	}

	structure, err := json.Marshal(spec.Structure)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode structure: %w", err)
	}

	q := `
		INSERT INTO compute_jobs(id, identity, profile, structure)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (identity, profile) DO UPDATE SET identity = EXCLUDED.identity
		RETURNING id`

	var id uuid.UUID
	err = l.db.QueryRowContext(ctx, q, uuid.New(), spec.Identity, spec.Profile, string(structure)).Scan(&id)
	if err != nil {
		return uuid.Nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return id, nil
}

func (l *launchpad) Status(ctx context.Context, id uuid.UUID) (Status, error) {
	j, err := l.Find(ctx, id)
	if err != nil {
		return Status{}, err
	}

	s := Status{State: j.State, Result: j.Result}
	if j.Message != nil {
		s.Message = *j.Message
	}
	return s, nil
}

func (l *launchpad) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Job], error) {
	page.Normalize(l.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Identity", "Worker")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	result, err := repository.QueryPage(ctx, l.db, qb, page, scanJob)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return result, nil
}

func (l *launchpad) Find(ctx context.Context, id uuid.UUID) (*Job, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	j, err := repository.QueryOne(ctx, l.db, q, args, scanJob)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &j, nil
}

func (l *launchpad) Claim(ctx context.Context, worker string, profiles []Profile) (*Job, error) {
	if worker == "" {
		return nil, fmt.Errorf("%w: worker is required", ErrInvalidRequest)
	}

	names := make([]string, len(profiles))
	for i, p := range profiles {
		names[i] = string(p)
	}

	q := fmt.Sprintf(`
		UPDATE compute_jobs j
		SET state = 'running', worker = $1, claimed_at = NOW(), updated_at = NOW()
		WHERE j.id = (
			SELECT id FROM compute_jobs
			WHERE state = 'queued' AND (cardinality($2::text[]) = 0 OR profile = ANY($2::text[]))
			ORDER BY created_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING %s`, projection.Columns())

	j, err := repository.WithTx(ctx, l.db, func(tx *sql.Tx) (Job, error) {
		return repository.QueryOne(ctx, tx, q, []any{worker, names}, scanJob)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNoneAvailable, ErrDuplicate)
	}

	l.logger.Info("job claimed", "id", j.ID, "worker", worker, "profile", j.Profile)
	return &j, nil
}

func (l *launchpad) Complete(ctx context.Context, id uuid.UUID, result Result) (*Job, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}

	q := fmt.Sprintf(`
		UPDATE compute_jobs j
		SET state = 'completed', result = $2, completed_at = NOW(), updated_at = NOW()
		WHERE j.id = $1 AND j.state = 'running'
		RETURNING %s`, projection.Columns())

	j, err := l.transition(ctx, id, q, string(data))
	if err != nil {
		return nil, err
	}

	l.logger.Info("job completed", "id", id, "converged", result.Converged())
	return j, nil
}

func (l *launchpad) Fail(ctx context.Context, id uuid.UUID, message string) (*Job, error) {
	q := fmt.Sprintf(`
		UPDATE compute_jobs j
		SET state = 'failed', message = $2, completed_at = NOW(), updated_at = NOW()
		WHERE j.id = $1 AND j.state = 'running'
		RETURNING %s`, projection.Columns())

	j, err := l.transition(ctx, id, q, message)
	if err != nil {
		return nil, err
	}

	l.logger.Warn("job failed", "id", id, "message", message)
	return j, nil
}

// transition runs a guarded state update, distinguishing a missing job
// from one in the wrong state.
func (l *launchpad) transition(ctx context.Context, id uuid.UUID, q string, arg any) (*Job, error) {
	j, err := repository.WithTx(ctx, l.db, func(tx *sql.Tx) (Job, error) {
		return repository.QueryOne(ctx, tx, q, []any{id, arg}, scanJob)
	})
	if err == nil {
		return &j, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if _, findErr := l.Find(ctx, id); findErr != nil {
		return nil, findErr
	}
	return nil, ErrInvalidState
}
