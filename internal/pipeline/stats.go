package pipeline

import (
	"time"

	"github.com/a3tai/mcp-pdf-labeler/internal/label/resolve"
	"github.com/a3tai/mcp-pdf-labeler/internal/pdf"
)

// DocumentOutcome records what happened to one input document.
type DocumentOutcome struct {
	RunID    string            `json:"run_id"`
	Input    string            `json:"input"`
	Output   string            `json:"output,omitempty"`
	Sidecar  string            `json:"sidecar,omitempty"`
	Fields   int               `json:"fields"`
	Unlock   *pdf.UnlockResult `json:"unlock,omitempty"`
	Report   resolve.Report    `json:"report"`
	Apply    *pdf.ApplyStats   `json:"apply,omitempty"`
	Verify   *pdf.VerifyResult `json:"verify,omitempty"`
	Duration time.Duration     `json:"duration_ns"`
	Err      string            `json:"error,omitempty"`
}

// Failed reports whether the document did not make it through the
// whole pipeline.
func (o DocumentOutcome) Failed() bool {
	return o.Err != ""
}

// RunStats aggregates one batch run.
type RunStats struct {
	RunID         string            `json:"run_id"`
	Scanned       int               `json:"scanned"`
	AlreadyDone   int               `json:"already_done"`
	Selected      int               `json:"selected"`
	Processed     int               `json:"processed"`
	Succeeded     int               `json:"succeeded"`
	Failed        int               `json:"failed"`
	TotalFields   int               `json:"total_fields"`
	LabelsCreated int               `json:"labels_created"`
	LabelsMatched int               `json:"labels_matched"`
	Duplicates    int               `json:"duplicates"`
	CheckOnly     bool              `json:"check_only,omitempty"`
	Pending       []string          `json:"pending,omitempty"`
	Duration      time.Duration     `json:"duration_ns"`
	Outcomes      []DocumentOutcome `json:"outcomes,omitempty"`
}

// aggregate folds per-document outcomes into the run totals.
func (s *RunStats) aggregate(outcomes []DocumentOutcome) {
	s.Outcomes = outcomes
	for _, o := range outcomes {
		s.Processed++
		if o.Failed() {
			s.Failed++
			continue
		}
		s.Succeeded++
		s.TotalFields += o.Fields
		s.LabelsCreated += o.Report.Created
		s.LabelsMatched += o.Report.Matched + o.Report.Kept
		s.Duplicates += len(o.Report.Duplicated)
	}
}
