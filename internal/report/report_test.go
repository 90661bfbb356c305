package report_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/sieve/internal/candidates"
	"github.com/JaimeStill/sieve/internal/composition"
	"github.com/JaimeStill/sieve/internal/confirm"
	"github.com/JaimeStill/sieve/internal/report"
	"github.com/JaimeStill/sieve/internal/stability"
)

func sample() *report.Report {
	runID := uuid.New()

	zno := candidates.NewCandidate(runID, 0, "ZnO", composition.MustParse("ZnO"))
	zno.ApplyPrediction(2.2)
	zno.ApplyStability(stability.Result{Label: stability.Stable, EnergyAboveHull: 0, DecompositionEnergy: -0.395})
	zno.ApplyBandgap(confirm.Confirmation{Bandgap: 2.2, Trustworthy: true})
	zno.Confirm()

	nacl := candidates.NewCandidate(runID, 1, "NaCl", composition.MustParse("NaCl"))
	nacl.ApplyPrediction(5.8)
	nacl.Drop(candidates.StagePredict, candidates.ReasonBandgapOutOfWindow, "5.800 eV outside [1.000, 3.000]")

	reason := candidates.ReasonBandgapOutOfWindow
	counts := []candidates.Count{
		{Status: candidates.StatusConfirmed, Count: 1},
		{Status: candidates.StatusRejected, Reason: &reason, Count: 1},
	}

	return report.New(report.Header{
		RunID:     runID,
		Name:      "oxides | batch 1",
		Status:    "evaluated",
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}, counts, []candidates.Candidate{zno, nacl})
}

func TestMarkdown(t *testing.T) {
	out := string(sample().Markdown())

	for _, want := range []string{
		`# Screening run oxides \| batch 1`,
		"- Confirmed: 1",
		"| rejected | bandgap_out_of_window | 1 |",
		"| ZnO |  | 2.200 | 2.200 | 0.0000 | stable |  |",
		"| NaCl | rejected | predict | bandgap_out_of_window | 5.800 eV outside [1.000, 3.000] |",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q\n%s", want, out)
		}
	}
}

func TestHTML(t *testing.T) {
	out, err := sample().HTML()
	if err != nil {
		t.Fatalf("html: %v", err)
	}

	s := string(out)
	for _, want := range []string{"<title>oxides | batch 1</title>", "<table>", "<td>ZnO</td>", "<h2>Confirmed candidates</h2>"} {
		if !strings.Contains(s, want) {
			t.Errorf("html missing %q", want)
		}
	}
}

func TestNoConfirmed(t *testing.T) {
	r := report.New(report.Header{Name: "empty"}, nil, nil)
	if !strings.Contains(string(r.Markdown()), "None.") {
		t.Error("expected placeholder for empty confirmed list")
	}
}
