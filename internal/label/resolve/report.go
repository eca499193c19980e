package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/a3tai/mcp-pdf-labeler/internal/label/oracle"
	"github.com/a3tai/mcp-pdf-labeler/internal/label/tracker"
)

// FieldFailure records a field the protocol gave up on. The document
// keeps processing its remaining fields.
type FieldFailure struct {
	FieldID string `json:"field_id"`
	RawName string `json:"raw_name,omitempty"`
	Kind    string `json:"kind"`
	Error   string `json:"error"`
}

// Report partitions a finished document's ledger into unique and
// duplicated labels and tallies outcomes per action. Duplicated labels
// produce a warning, never an error; by the time a report is built the
// document has already been processed.
type Report struct {
	Document      string         `json:"document"`
	TotalFields   int            `json:"total_fields"`
	Unique        []string       `json:"unique_labels"`
	Duplicated    map[string]int `json:"duplicated_labels,omitempty"`
	Kept          int            `json:"kept"`
	Matched       int            `json:"matched"`
	Created       int            `json:"created"`
	Failed        int            `json:"failed"`
	AddedToCorpus int            `json:"added_to_corpus"`
	Failures      []FieldFailure `json:"failures,omitempty"`
	Warning       string         `json:"warning,omitempty"`
}

// HasDuplicates reports whether any label was assigned to more than
// one field.
func (r Report) HasDuplicates() bool { return len(r.Duplicated) > 0 }

// BuildReport summarizes a document's resolutions against its ledger.
func BuildReport(document string, tr *tracker.Tracker, resolutions []Resolution, failures []FieldFailure) Report {
	r := Report{
		Document:    document,
		TotalFields: len(resolutions) + len(failures),
		Failed:      len(failures),
		Failures:    failures,
	}
	for _, res := range resolutions {
		switch res.Action {
		case oracle.ActionKeep:
			r.Kept++
		case oracle.ActionCreate:
			r.Created++
		default:
			r.Matched++
		}
		if res.Created {
			r.AddedToCorpus++
		}
	}
	for label, count := range tr.Snapshot() {
		if count == 1 {
			r.Unique = append(r.Unique, label)
			continue
		}
		if r.Duplicated == nil {
			r.Duplicated = map[string]int{}
		}
		r.Duplicated[label] = count
	}
	sort.Strings(r.Unique)
	if len(r.Duplicated) > 0 {
		names := make([]string, 0, len(r.Duplicated))
		for label := range r.Duplicated {
			names = append(names, label)
		}
		sort.Strings(names)
		r.Warning = fmt.Sprintf("%d label(s) assigned to more than one field: %s",
			len(r.Duplicated), strings.Join(names, ", "))
	}
	return r
}
