// Package report renders the outcome of a screening run as markdown and HTML.
package report

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/JaimeStill/sieve/internal/candidates"
)

// Header identifies the run being reported.
type Header struct {
	RunID     uuid.UUID
	Name      string
	Status    string
	CreatedAt time.Time
}

// Report summarizes a run: counts by disposition, the confirmed candidates,
// and why every other candidate was dropped.
type Report struct {
	Header    Header
	Counts    []candidates.Count
	Confirmed []candidates.Candidate
	Dropped   []candidates.Candidate
	Active    int
}

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// New builds a report from a run's candidates, kept in the given order.
func New(h Header, counts []candidates.Count, items []candidates.Candidate) *Report {
	r := &Report{Header: h, Counts: counts}
	for _, c := range items {
		switch c.Status {
		case candidates.StatusConfirmed:
			r.Confirmed = append(r.Confirmed, c)
		case candidates.StatusActive:
			r.Active++
		default:
			r.Dropped = append(r.Dropped, c)
		}
	}
	return r
}

// Markdown renders the report as GitHub-flavored markdown.
func (r *Report) Markdown() []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "# Screening run %s\n\n", cell(r.Header.Name))
	fmt.Fprintf(&b, "- Run: `%s`\n", r.Header.RunID)
	fmt.Fprintf(&b, "- Status: %s\n", r.Header.Status)
	fmt.Fprintf(&b, "- Created: %s\n", r.Header.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Confirmed: %d\n", len(r.Confirmed))
	if r.Active > 0 {
		fmt.Fprintf(&b, "- Still active: %d\n", r.Active)
	}

	b.WriteString("\n## Summary\n\n")
	b.WriteString("| Status | Reason | Count |\n|---|---|---:|\n")
	for _, c := range r.Counts {
		reason := ""
		if c.Reason != nil {
			reason = string(*c.Reason)
		}
		fmt.Fprintf(&b, "| %s | %s | %d |\n", c.Status, reason, c.Count)
	}

	b.WriteString("\n## Confirmed candidates\n\n")
	if len(r.Confirmed) == 0 {
		b.WriteString("None.\n")
	} else {
		b.WriteString("| Formula | Structure | Predicted gap (eV) | Final gap (eV) | E above hull (eV/atom) | Stability | Sustainability |\n")
		b.WriteString("|---|---|---:|---:|---:|---|---:|\n")
		for _, c := range r.Confirmed {
			prototype := ""
			if c.Structure != nil {
				prototype = c.Structure.Prototype
			}
			stability := ""
			if c.Stability != nil {
				stability = string(*c.Stability)
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
				cell(c.Formula),
				cell(prototype),
				number(c.PredictedBandgap, 3),
				number(c.FinalBandgap, 3),
				number(c.EnergyAboveHull, 4),
				stability,
				number(c.SustainabilityScore, 2),
			)
		}
	}

	if len(r.Dropped) > 0 {
		b.WriteString("\n## Other candidates\n\n")
		b.WriteString("| Formula | Status | Stage | Reason | Detail |\n|---|---|---|---|---|\n")
		for _, c := range r.Dropped {
			reason, detail := lastDrop(c)
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				cell(c.Formula), c.Status, c.Stage, reason, cell(detail))
		}
	}

	return b.Bytes()
}

// HTML renders the markdown report into a standalone HTML page.
func (r *Report) HTML() ([]byte, error) {
	var body bytes.Buffer
	if err := md.Convert(r.Markdown(), &body); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	var b bytes.Buffer
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(r.Header.Name))
	b.WriteString("</head>\n<body>\n")
	b.Write(body.Bytes())
	b.WriteString("</body>\n</html>\n")
	return b.Bytes(), nil
}

func lastDrop(c candidates.Candidate) (candidates.Reason, string) {
	for i := len(c.Events) - 1; i >= 0; i-- {
		if e := c.Events[i]; e.Reason != "" {
			return e.Reason, e.Detail
		}
	}
	return "", ""
}

func number(v *float64, precision int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.*f", precision, *v)
}

// cell escapes text for a markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
