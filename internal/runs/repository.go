package runs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/sieve/internal/candidates"
	"github.com/JaimeStill/sieve/internal/report"
	"github.com/JaimeStill/sieve/pkg/lifecycle"
	"github.com/JaimeStill/sieve/pkg/pagination"
	"github.com/JaimeStill/sieve/pkg/query"
	"github.com/JaimeStill/sieve/pkg/repository"
	"github.com/JaimeStill/sieve/pkg/storage"
)

const returning = "RETURNING id, name, source_key, status, total, error, created_at, updated_at"

type repo struct {
	db         *sql.DB
	storage    storage.System
	candidates candidates.System
	exec       Executor
	lc         *lifecycle.Coordinator
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a run repository implementing the System interface. Runs are
// executed by exec on goroutines tracked by lc.
func New(
	db *sql.DB,
	store storage.System,
	cands candidates.System,
	exec Executor,
	lc *lifecycle.Coordinator,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		storage:    store,
		candidates: cands,
		exec:       exec,
		lc:         lc,
		logger:     logger.With("system", "runs"),
		pagination: pagination,
	}
}

func (r *repo) Handler(maxUploadSize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxUploadSize)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Run], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Name")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	result, err := repository.QueryPage(ctx, r.db, qb, page, scanRun)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Run, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	run, err := repository.QueryOne(ctx, r.db, q, args, scanRun)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &run, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Run, error) {
	var formulas []string
	for _, f := range cmd.Formulas {
		if f = strings.TrimSpace(f); f != "" {
			formulas = append(formulas, f)
		}
	}
	if len(formulas) == 0 {
		return nil, ErrEmptyRun
	}

	id := uuid.New()
	key := sourceKey(id)
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		name = id.String()
	}

	source := strings.NewReader(strings.Join(formulas, "\n") + "\n")
	if err := r.storage.Upload(ctx, key, source, "text/plain"); err != nil {
		return nil, fmt.Errorf("upload run source: %w", err)
	}

	q := `
		INSERT INTO runs(id, name, source_key, status, total)
		VALUES ($1, $2, $3, $4, $5)
		` + returning

	run, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Run, error) {
		return repository.QueryOne(ctx, tx, q, []any{id, name, key, StatusScreening, len(formulas)}, scanRun)
	})
	if err != nil {
		if delErr := r.storage.Delete(ctx, key); delErr != nil {
			r.logger.Warn("compensating blob delete failed", "key", key, "error", delErr)
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("run created", "id", run.ID, "name", run.Name, "total", run.Total)
	r.launchScreen(run.ID)
	return &run, nil
}

func (r *repo) Evaluate(ctx context.Context, id uuid.UUID) (*Run, error) {
	q := `
		UPDATE runs
		SET status = $2, error = NULL, updated_at = NOW()
		WHERE id = $1 AND status IN ('screened', 'evaluated')
		` + returning

	run, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Run, error) {
		return repository.QueryOne(ctx, tx, q, []any{id, StatusEvaluating}, scanRun)
	})
	if errors.Is(err, sql.ErrNoRows) {
		if _, findErr := r.Find(ctx, id); findErr != nil {
			return nil, findErr
		}
		return nil, ErrInvalidState
	}
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("run evaluation started", "id", run.ID)
	r.launchEvaluate(run.ID)
	return &run, nil
}

func (r *repo) Report(ctx context.Context, id uuid.UUID) (*report.Report, error) {
	run, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	counts, err := r.candidates.Tally(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("tally candidates: %w", err)
	}

	items, err := r.candidates.ByRun(ctx, id)
	if err != nil {
		return nil, err
	}

	return report.New(report.Header{
		RunID:     run.ID,
		Name:      run.Name,
		Status:    string(run.Status),
		CreatedAt: run.CreatedAt,
	}, counts, items), nil
}

func (r *repo) Recover(ctx context.Context) error {
	q := `
		SELECT id, name, source_key, status, total, error, created_at, updated_at
		FROM runs
		WHERE status = ANY($1::text[])
		ORDER BY created_at`

	interrupted, err := repository.QueryMany(ctx, r.db, q,
		[]any{[]string{string(StatusScreening), string(StatusEvaluating)}}, scanRun)
	if err != nil {
		return fmt.Errorf("query interrupted runs: %w", err)
	}

	for _, run := range interrupted {
		r.logger.Info("recovering run", "id", run.ID, "status", run.Status)
		switch run.Status {
		case StatusScreening:
			r.launchScreen(run.ID)
		case StatusEvaluating:
			r.launchEvaluate(run.ID)
		}
	}
	return nil
}

func (r *repo) launchScreen(id uuid.UUID) {
	r.lc.Go(func(ctx context.Context) {
		err := r.screen(ctx, id)
		r.finish(ctx, id, StatusScreened, err)
	})
}

func (r *repo) launchEvaluate(id uuid.UUID) {
	r.lc.Go(func(ctx context.Context) {
		_, err := r.exec.Evaluate(ctx, id)
		r.finish(ctx, id, StatusEvaluated, err)
	})
}

func (r *repo) screen(ctx context.Context, id uuid.UUID) error {
	rc, err := r.storage.Download(ctx, sourceKey(id))
	if err != nil {
		return fmt.Errorf("download run source: %w", err)
	}
	defer rc.Close()

	formulas, err := ParseFormulas(rc)
	if err != nil {
		return err
	}

	_, err = r.exec.Screen(ctx, id, formulas)
	return err
}

// finish records the outcome of a background stage. A run interrupted by
// shutdown keeps its in-progress status so Recover picks it up.
func (r *repo) finish(ctx context.Context, id uuid.UUID, done Status, err error) {
	if err != nil && ctx.Err() != nil {
		r.logger.Warn("run interrupted", "id", id, "error", err)
		return
	}

	status := done
	var message *string
	if err != nil {
		status = StatusFailed
		msg := err.Error()
		message = &msg
		r.logger.Error("run failed", "id", id, "error", err)
	} else {
		r.logger.Info("run stage complete", "id", id, "status", status)
	}

	ctx = context.WithoutCancel(ctx)
	if err := repository.ExecExpectOne(ctx, r.db,
		"UPDATE runs SET status = $2, error = $3, updated_at = NOW() WHERE id = $1",
		id, status, message,
	); err != nil {
		r.logger.Error("run status update failed", "id", id, "status", status, "error", err)
	}
}

func sourceKey(id uuid.UUID) string {
	return fmt.Sprintf("runs/%s/source.txt", id)
}
