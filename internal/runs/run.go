// Package runs manages screening runs: their input formulas, background
// execution through the pipeline, and the resulting report.
package runs

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/sieve/internal/candidates"
)

// Status is the execution state of a run.
type Status string

const (
	StatusScreening  Status = "screening"
	StatusScreened   Status = "screened"
	StatusEvaluating Status = "evaluating"
	StatusEvaluated  Status = "evaluated"
	StatusFailed     Status = "failed"
)

// Run is one batch of compositions moving through the pipeline.
type Run struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	SourceKey string    `json:"source_key"`
	Status    Status    `json:"status"`
	Total     int       `json:"total"`
	Error     *string   `json:"error"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateCommand carries the name and formulas of a new run.
type CreateCommand struct {
	Name     string   `json:"name"`
	Formulas []string `json:"formulas"`
}

// Executor runs the pipeline stages for a run.
type Executor interface {
	Screen(ctx context.Context, runID uuid.UUID, inputs []string) ([]candidates.Candidate, error)
	Evaluate(ctx context.Context, runID uuid.UUID) ([]candidates.Candidate, error)
}

// ParseFormulas reads one formula per line. Blank lines and lines starting
// with '#' are skipped. For CSV input the first column is used and a
// leading "formula" header is ignored.
func ParseFormulas(r io.Reader) ([]string, error) {
	var out []string

	scanner := bufio.NewScanner(r)
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if i := strings.IndexByte(line, ','); i >= 0 {
			line = strings.TrimSpace(strings.Trim(line[:i], `"`))
		}
		if first && strings.EqualFold(line, "formula") {
			first = false
			continue
		}
		first = false

		if line != "" {
			out = append(out, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read formulas: %w", err)
	}

	return out, nil
}
