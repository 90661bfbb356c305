package jobs_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/sieve/internal/jobs"
	"github.com/JaimeStill/sieve/pkg/pagination"
	"github.com/JaimeStill/sieve/pkg/routes"
)

type mockSystem struct {
	claimFn    func(ctx context.Context, worker string, profiles []jobs.Profile) (*jobs.Job, error)
	completeFn func(ctx context.Context, id uuid.UUID, result jobs.Result) (*jobs.Job, error)
	failFn     func(ctx context.Context, id uuid.UUID, message string) (*jobs.Job, error)
	findFn     func(ctx context.Context, id uuid.UUID) (*jobs.Job, error)
}

func (m *mockSystem) Handler() *jobs.Handler {
	return jobs.NewHandler(m, slog.New(slog.NewTextHandler(io.Discard, nil)), pagination.Config{
		DefaultPageSize: 20,
		MaxPageSize:     100,
	})
}

func (m *mockSystem) Submit(context.Context, jobs.Spec) (uuid.UUID, error) {
	return uuid.New(), nil
}

func (m *mockSystem) Status(context.Context, uuid.UUID) (jobs.Status, error) {
	return jobs.Status{State: jobs.StateQueued}, nil
}

func (m *mockSystem) List(context.Context, pagination.PageRequest, jobs.Filters) (*pagination.PageResult[jobs.Job], error) {
	return pagination.NewPageResult[jobs.Job](nil, 0, 1, 20), nil
}

func (m *mockSystem) Find(ctx context.Context, id uuid.UUID) (*jobs.Job, error) {
	return m.findFn(ctx, id)
}

func (m *mockSystem) Claim(ctx context.Context, worker string, profiles []jobs.Profile) (*jobs.Job, error) {
	return m.claimFn(ctx, worker, profiles)
}

func (m *mockSystem) Complete(ctx context.Context, id uuid.UUID, result jobs.Result) (*jobs.Job, error) {
	return m.completeFn(ctx, id, result)
}

func (m *mockSystem) Fail(ctx context.Context, id uuid.UUID, message string) (*jobs.Job, error) {
	return m.failFn(ctx, id, message)
}

func serve(m *mockSystem, method, path, body string) *httptest.ResponseRecorder {
	mux := routes.NewMux(m.Handler().Routes())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestHandlerClaim(t *testing.T) {
	var gotWorker string
	var gotProfiles []jobs.Profile

	m := &mockSystem{
		claimFn: func(_ context.Context, worker string, profiles []jobs.Profile) (*jobs.Job, error) {
			gotWorker, gotProfiles = worker, profiles
			return &jobs.Job{ID: uuid.New(), Profile: jobs.ProfileRelax, State: jobs.StateRunning}, nil
		},
	}

	rec := serve(m, "POST", "/jobs/claim", `{"worker":"node-7","profiles":["relax","relax_loose"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if gotWorker != "node-7" {
		t.Errorf("worker = %q", gotWorker)
	}
	if !slices.Equal(gotProfiles, []jobs.Profile{jobs.ProfileRelax, jobs.ProfileRelaxLoose}) {
		t.Errorf("profiles = %v", gotProfiles)
	}

	var job jobs.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if job.State != jobs.StateRunning {
		t.Errorf("state = %s, want running", job.State)
	}
}

func TestHandlerClaimEmptyQueue(t *testing.T) {
	m := &mockSystem{
		claimFn: func(context.Context, string, []jobs.Profile) (*jobs.Job, error) {
			return nil, jobs.ErrNoneAvailable
		},
	}

	rec := serve(m, "POST", "/jobs/claim", `{"worker":"node-7"}`)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}

func TestHandlerClaimRejectsUnknownFields(t *testing.T) {
	m := &mockSystem{
		claimFn: func(context.Context, string, []jobs.Profile) (*jobs.Job, error) {
			t.Fatal("claim should not be called")
			return nil, nil
		},
	}

	rec := serve(m, "POST", "/jobs/claim", `{"worker":"node-7","priority":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandlerComplete(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name string
		path string
		body string
		err  error
		want int
	}{
		{"completed", "/jobs/" + id.String() + "/complete", `{"electronic_converged":true,"ionic_converged":true,"gap":2.1}`, nil, http.StatusOK},
		{"not running", "/jobs/" + id.String() + "/complete", `{}`, jobs.ErrInvalidState, http.StatusConflict},
		{"missing", "/jobs/" + id.String() + "/complete", `{}`, jobs.ErrNotFound, http.StatusNotFound},
		{"bad id", "/jobs/xyz/complete", `{}`, nil, http.StatusBadRequest},
		{"malformed", "/jobs/" + id.String() + "/complete", `{"gap":`, nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockSystem{
				completeFn: func(_ context.Context, got uuid.UUID, result jobs.Result) (*jobs.Job, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					if got != id {
						t.Errorf("id = %s, want %s", got, id)
					}
					if !result.Converged() || result.Gap == nil || *result.Gap != 2.1 {
						t.Errorf("result = %+v", result)
					}
					return &jobs.Job{ID: got, State: jobs.StateCompleted, Result: &result}, nil
				},
			}

			rec := serve(m, "POST", tt.path, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestHandlerFail(t *testing.T) {
	id := uuid.New()
	var gotMessage string

	m := &mockSystem{
		failFn: func(_ context.Context, got uuid.UUID, message string) (*jobs.Job, error) {
			gotMessage = message
			return &jobs.Job{ID: got, State: jobs.StateFailed, Message: &message}, nil
		},
	}

	rec := serve(m, "POST", "/jobs/"+id.String()+"/fail", `{"message":"SCF did not converge"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotMessage != "SCF did not converge" {
		t.Errorf("message = %q", gotMessage)
	}
}

func TestHandlerFind(t *testing.T) {
	m := &mockSystem{
		findFn: func(context.Context, uuid.UUID) (*jobs.Job, error) {
			return nil, jobs.ErrNotFound
		},
	}

	rec := serve(m, "GET", "/jobs/"+uuid.NewString(), "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
