package resolve

import (
	"context"

	"github.com/a3tai/mcp-pdf-labeler/internal/label/tracker"
)

// DocumentResult is the outcome of resolving one document's fields.
type DocumentResult struct {
	Document    string         `json:"document"`
	Resolutions []Resolution   `json:"resolutions"`
	Failures    []FieldFailure `json:"failures,omitempty"`
	Report      Report         `json:"report"`
}

// ResolveDocument walks the fields in document order, resolving each
// against a fresh ledger. A field that exhausts its retries is recorded
// as a failure and its siblings continue; only context cancellation and
// a failed corpus write abort the document, since neither leaves
// anything sensible to continue with.
func (p *Protocol) ResolveDocument(ctx context.Context, document string, fields []Field) (*DocumentResult, error) {
	tr := tracker.New()
	result := &DocumentResult{Document: document}

	for _, f := range fields {
		resolution, err := p.ResolveField(ctx, tr, f)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			if KindOf(err) == KindCorpusWriteConflict {
				return nil, err
			}
			result.Failures = append(result.Failures, FieldFailure{
				FieldID: f.ID,
				RawName: f.RawName,
				Kind:    KindOf(err).String(),
				Error:   err.Error(),
			})
			continue
		}
		result.Resolutions = append(result.Resolutions, resolution)
	}

	result.Report = BuildReport(document, tr, result.Resolutions, result.Failures)
	return result, nil
}
