package materials

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/sieve/internal/composition"
	"github.com/JaimeStill/sieve/internal/structure"
)

const summaryFields = "material_id,composition,energy_per_atom,theoretical,structure"

// HTTPOptions configures an HTTPSource.
type HTTPOptions struct {
	BaseURL          string
	APIKey           string
	ExperimentalOnly bool
	Timeout          time.Duration
	Concurrency      int
}

// HTTPSource queries a Materials Project style summary endpoint, one
// request per chemical subsystem.
type HTTPSource struct {
	client *http.Client
	opts   HTTPOptions
	logger *slog.Logger
}

// NewHTTPSource creates an HTTPSource.
func NewHTTPSource(opts HTTPOptions, logger *slog.Logger) *HTTPSource {
	if opts.Concurrency < 1 {
		opts.Concurrency = 4
	}
	return &HTTPSource{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
		logger: logger.With("system", "materials"),
	}
}

type summaryResponse struct {
	Data []summaryDoc `json:"data"`
}

type summaryDoc struct {
	MaterialID    string             `json:"material_id"`
	Composition   map[string]float64 `json:"composition"`
	EnergyPerAtom *float64           `json:"energy_per_atom"`
	Theoretical   bool               `json:"theoretical"`
	Structure     *summaryStructure  `json:"structure"`
}

type summaryStructure struct {
	Lattice struct {
		Matrix structure.Lattice `json:"matrix"`
	} `json:"lattice"`
	Sites []struct {
		Species []struct {
			Element string `json:"element"`
		} `json:"species"`
		Abc [3]float64 `json:"abc"`
	} `json:"sites"`
}

// Phases returns the phases of every subsystem of elements ordered by ID,
// independent of the order the requests complete in.
func (s *HTTPSource) Phases(ctx context.Context, elements []string) ([]Phase, error) {
	systems := Subsystems(elements)

	var (
		mu  sync.Mutex
		out []Phase
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for _, chemsys := range systems {
		g.Go(func() error {
			phases, err := s.fetch(gctx, chemsys)
			if err != nil {
				return err
			}
			mu.Lock()
			out = append(out, phases...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(out, func(a, b Phase) int {
		return cmp.Compare(a.ID, b.ID)
	})

	s.logger.Debug("fetched competing phases", "elements", elements, "subsystems", len(systems), "phases", len(out))
	return out, nil
}

func (s *HTTPSource) fetch(ctx context.Context, chemsys string) ([]Phase, error) {
	params := url.Values{
		"chemsys": {chemsys},
		"_fields": {summaryFields},
		"_limit":  {"1000"},
	}
	if s.opts.ExperimentalOnly {
		params.Set("theoretical", "false")
	}

	endpoint := strings.TrimRight(s.opts.BaseURL, "/") + "/materials/summary/?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSource, err)
	}
	req.Header.Set("Accept", "application/json")
	if s.opts.APIKey != "" {
		req.Header.Set("X-API-KEY", s.opts.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSource, chemsys, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s: status %d: %s", ErrSource, chemsys, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload summaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrSource, chemsys, err)
	}

	phases := make([]Phase, 0, len(payload.Data))
	for _, doc := range payload.Data {
		p, err := doc.phase()
		if err != nil {
			s.logger.Warn("skipping phase", "chemsys", chemsys, "id", doc.MaterialID, "error", err)
			continue
		}
		phases = append(phases, p)
	}
	return phases, nil
}

func (d summaryDoc) phase() (Phase, error) {
	if d.EnergyPerAtom == nil {
		return Phase{}, fmt.Errorf("%w: %s has no energy", ErrInvalidPhase, d.MaterialID)
	}

	c, err := composition.New(d.Composition)
	if err != nil {
		return Phase{}, fmt.Errorf("%w: %s: %v", ErrInvalidPhase, d.MaterialID, err)
	}

	p := Phase{
		ID:            d.MaterialID,
		Composition:   c,
		EnergyPerAtom: *d.EnergyPerAtom,
		Experimental:  !d.Theoretical,
	}

	if d.Structure != nil {
		st := structure.Structure{Lattice: d.Structure.Lattice.Matrix, Prototype: d.MaterialID}
		for _, site := range d.Structure.Sites {
			if len(site.Species) == 0 {
				continue
			}
			st.Sites = append(st.Sites, structure.Site{Species: site.Species[0].Element, Coords: site.Abc})
		}
		p.Structure = &st
	}

	return p, nil
}
