package materials

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// FileSource serves phases from a JSON array on disk, for offline runs.
type FileSource struct {
	phases           []Phase
	experimentalOnly bool
}

// NewFileSource reads phases from path.
func NewFileSource(path string, experimentalOnly bool) (*FileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read phases file: %w", err)
	}

	var phases []Phase
	if err := json.Unmarshal(data, &phases); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPhase, err)
	}

	for i, p := range phases {
		if p.ID == "" || p.Composition.IsEmpty() {
			return nil, fmt.Errorf("%w: entry %d missing id or composition", ErrInvalidPhase, i)
		}
	}

	return NewStaticSource(phases, experimentalOnly), nil
}

// NewStaticSource serves a fixed set of phases.
func NewStaticSource(phases []Phase, experimentalOnly bool) *FileSource {
	return &FileSource{phases: phases, experimentalOnly: experimentalOnly}
}

func (s *FileSource) Phases(ctx context.Context, elements []string) ([]Phase, error) {
	var out []Phase
	for _, p := range s.phases {
		if s.experimentalOnly && !p.Experimental {
			continue
		}
		if within(p.Composition, elements) {
			out = append(out, p)
		}
	}
	return out, ctx.Err()
}
