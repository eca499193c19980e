package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/a3tai/mcp-pdf-labeler/internal/label/resolve"
	"github.com/a3tai/mcp-pdf-labeler/internal/pdf"
)

// processDocument runs one input PDF through every stage. Each stage
// failure is final for the document; the unlocked intermediate is
// removed on the way out.
func (r *Runner) processDocument(ctx context.Context, file pdf.FileInfo) (outcome DocumentOutcome) {
	start := time.Now()
	outcome = DocumentOutcome{
		RunID: uuid.NewString(),
		Input: file.Path,
	}
	defer func() { outcome.Duration = time.Since(start) }()

	stem := pdf.Stem(file.Path)
	unlockedPath := filepath.Join(r.opts.OutputDir, stem+"_unlocked.pdf")
	refinedPath := pdf.RefinedPath(r.opts.OutputDir, file.Path)

	r.logger.Printf("[%s] %s: unlocking", shortID(outcome.RunID), file.Name)
	unlockRes, err := pdf.Unlock(file.Path, unlockedPath)
	if err != nil {
		outcome.Err = fmt.Sprintf("unlock: %v", err)
		return outcome
	}
	defer os.Remove(unlockedPath)
	outcome.Unlock = unlockRes

	doc, err := r.extractor.ExtractFile(unlockedPath)
	if err != nil {
		outcome.Err = fmt.Sprintf("extract: %v", err)
		return outcome
	}
	// The sidecar should name the original input, not the intermediate.
	doc.Filename = file.Name
	doc.Filepath = file.Path
	outcome.Fields = doc.TotalFields

	sidecarPath := pdf.SidecarPath(r.opts.OutputDir, file.Path)
	if err := pdf.WriteFieldsDocument(sidecarPath, doc); err != nil {
		outcome.Err = fmt.Sprintf("sidecar: %v", err)
		return outcome
	}
	outcome.Sidecar = sidecarPath

	if doc.TotalFields == 0 {
		r.logger.Printf("[%s] %s: no form fields, nothing to label", shortID(outcome.RunID), file.Name)
		return outcome
	}

	r.logger.Printf("[%s] %s: resolving %d fields", shortID(outcome.RunID), file.Name, doc.TotalFields)
	result, err := r.protocol.ResolveDocument(ctx, file.Name, resolveFields(doc))
	if err != nil {
		outcome.Err = fmt.Sprintf("resolve: %v", err)
		return outcome
	}
	outcome.Report = result.Report
	for _, failure := range result.Failures {
		r.logger.Printf("[%s] %s: field %s failed: %s", shortID(outcome.RunID), file.Name, failure.FieldID, failure.Error)
	}

	mapping := make(map[string]string, len(result.Resolutions))
	expected := make([]string, 0, len(result.Resolutions))
	for _, res := range result.Resolutions {
		mapping[res.Field.RawName] = res.Label
		expected = append(expected, res.Label)
	}

	applyStats, err := pdf.ApplyLabels(unlockedPath, refinedPath, mapping)
	if err != nil {
		outcome.Err = fmt.Sprintf("apply: %v", err)
		return outcome
	}
	outcome.Apply = applyStats
	outcome.Output = refinedPath

	verifyRes, err := pdf.VerifyLabels(refinedPath, expected)
	if err != nil {
		outcome.Err = fmt.Sprintf("verify: %v", err)
		return outcome
	}
	outcome.Verify = verifyRes

	if !verifyRes.Verified {
		r.logger.Printf("[%s] %s: verification found problems: %d missing, %d duplicated",
			shortID(outcome.RunID), file.Name, len(verifyRes.Missing), len(verifyRes.Duplicated))
	}
	if outcome.Report.HasDuplicates() {
		r.logger.Printf("[%s] %s: %s", shortID(outcome.RunID), file.Name, outcome.Report.Warning)
	}
	r.logger.Printf("[%s] %s: done, %d renamed, %d skipped",
		shortID(outcome.RunID), file.Name, applyStats.Renamed, applyStats.Skipped)
	return outcome
}

// resolveFields converts extracted widgets into resolver fields,
// preserving document order.
func resolveFields(doc *pdf.FieldsDocument) []resolve.Field {
	all := doc.AllFields()
	fields := make([]resolve.Field, len(all))
	for i, f := range all {
		fields[i] = resolve.Field{
			ID:       fmt.Sprintf("%s#%d", f.Name, i),
			RawName:  f.Name,
			Type:     string(f.Type),
			Context:  f.Context(),
			Page:     f.Page,
			Position: f.PositionString(),
		}
	}
	return fields
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
