package runs

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/sieve/internal/report"
	"github.com/JaimeStill/sieve/pkg/pagination"
)

// System defines the public contract for run operations.
type System interface {
	Handler(maxUploadSize int64) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Run], error)

	Find(ctx context.Context, id uuid.UUID) (*Run, error)
	// Create stores the run's formulas and starts screening in the background.
	Create(ctx context.Context, cmd CreateCommand) (*Run, error)
	// Evaluate starts the stability and bandgap stages of a screened run.
	Evaluate(ctx context.Context, id uuid.UUID) (*Run, error)
	Report(ctx context.Context, id uuid.UUID) (*report.Report, error)
	// Recover restarts runs left screening or evaluating by a previous process.
	Recover(ctx context.Context) error
}
