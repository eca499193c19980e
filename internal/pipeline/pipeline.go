// Package pipeline drives whole documents through the labeling stages:
// unlock, extract, resolve, apply, verify. Documents run in parallel,
// fields within a document strictly in order.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/a3tai/mcp-pdf-labeler/internal/label/corpus"
	"github.com/a3tai/mcp-pdf-labeler/internal/label/oracle"
	"github.com/a3tai/mcp-pdf-labeler/internal/label/resolve"
	"github.com/a3tai/mcp-pdf-labeler/internal/pdf"
)

const (
	// DefaultWorkers is the number of documents processed in parallel.
	DefaultWorkers = 4

	// DefaultMaxFileSize caps input PDFs at 100MB.
	DefaultMaxFileSize = 100 * 1024 * 1024
)

// Options configures a batch run.
type Options struct {
	InputDir    string
	OutputDir   string
	Workers     int
	Filter      string
	CheckOnly   bool
	MaxFileSize int64
	TopK        int
	RetryBound  int
	Debug       bool
}

// Runner owns the shared pieces of a labeling run: one corpus, one
// oracle, one protocol. Per-document state is created per task.
type Runner struct {
	corpus    *corpus.Corpus
	oracle    oracle.Oracle
	protocol  *resolve.Protocol
	scanner   *pdf.Scanner
	extractor *pdf.Extractor
	opts      Options
	logger    *log.Logger
}

// NewRunner wires a runner over a loaded corpus and an oracle.
func NewRunner(c *corpus.Corpus, orc oracle.Oracle, opts Options, logger *log.Logger) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &Runner{
		corpus: c,
		oracle: orc,
		protocol: resolve.NewProtocol(c, orc, resolve.Config{
			TopK:       opts.TopK,
			RetryBound: opts.RetryBound,
		}),
		scanner:   pdf.NewScanner(opts.MaxFileSize),
		extractor: pdf.NewExtractor(opts.Debug),
		opts:      opts,
		logger:    logger,
	}
}

// CheckPrerequisites verifies the run can start: directories, corpus
// and oracle. The output directory is created if missing.
func (r *Runner) CheckPrerequisites() error {
	var problems []string

	if r.opts.InputDir == "" {
		problems = append(problems, "input directory not configured")
	} else if info, err := os.Stat(r.opts.InputDir); err != nil || !info.IsDir() {
		problems = append(problems, fmt.Sprintf("input directory not accessible: %s", r.opts.InputDir))
	}

	if r.opts.OutputDir == "" {
		problems = append(problems, "output directory not configured")
	} else if err := os.MkdirAll(r.opts.OutputDir, 0o750); err != nil {
		problems = append(problems, fmt.Sprintf("cannot create output directory: %v", err))
	}

	if r.corpus == nil {
		problems = append(problems, "label corpus not loaded")
	}
	if r.oracle == nil {
		problems = append(problems, "no decision oracle configured")
	}

	if len(problems) > 0 {
		return fmt.Errorf("prerequisites not met: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Run processes every pending input document and returns the run
// totals. Individual document failures are recorded, not fatal; only
// context cancellation aborts the run.
func (r *Runner) Run(ctx context.Context) (*RunStats, error) {
	start := time.Now()
	stats := &RunStats{
		RunID:     uuid.NewString(),
		CheckOnly: r.opts.CheckOnly,
	}

	if err := r.CheckPrerequisites(); err != nil {
		return nil, err
	}

	scanned, err := r.scanner.ScanDirectory(r.opts.InputDir, "")
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}
	stats.Scanned = scanned.TotalCount

	pending, err := r.scanner.PendingDocuments(r.opts.InputDir, r.opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to determine pending documents: %w", err)
	}
	stats.AlreadyDone = stats.Scanned - len(pending)

	pending = r.filterDocuments(pending)
	stats.Selected = len(pending)
	for _, f := range pending {
		stats.Pending = append(stats.Pending, f.Name)
	}

	r.logger.Printf("run %s: %d scanned, %d already done, %d selected",
		stats.RunID, stats.Scanned, stats.AlreadyDone, stats.Selected)

	if r.opts.CheckOnly || len(pending) == 0 {
		stats.Duration = time.Since(start)
		return stats, nil
	}

	outcomes := make([]DocumentOutcome, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	for i, file := range pending {
		g.Go(func() error {
			outcomes[i] = r.processDocument(gctx, file)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.aggregate(outcomes)
	stats.Duration = time.Since(start)

	r.logger.Printf("run %s: %d succeeded, %d failed, %d labels created in %s",
		stats.RunID, stats.Succeeded, stats.Failed, stats.LabelsCreated,
		stats.Duration.Round(time.Millisecond))
	return stats, nil
}

// Options returns the runner's effective options after defaulting.
func (r *Runner) Options() Options { return r.opts }

// RunFile processes a single input PDF through the full labeling
// sequence, regardless of whether a refined output already exists.
// Explicit single-document requests use this instead of Run.
func (r *Runner) RunFile(ctx context.Context, path string) (*DocumentOutcome, error) {
	if err := r.CheckPrerequisites(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access input file: %w", err)
	}
	if err := pdf.NewValidator(r.opts.MaxFileSize).ValidateFileInfo(path, info); err != nil {
		return nil, err
	}

	outcome := r.processDocument(ctx, pdf.FileInfo{
		Path:         path,
		Name:         filepath.Base(path),
		Size:         info.Size(),
		ModifiedTime: info.ModTime().Format("2006-01-02 15:04:05"),
	})
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return &outcome, nil
}

// filterDocuments keeps only the files matching the configured name
// filter, when one is set.
func (r *Runner) filterDocuments(files []pdf.FileInfo) []pdf.FileInfo {
	filter := strings.ToLower(strings.TrimSpace(r.opts.Filter))
	if filter == "" {
		return files
	}
	var kept []pdf.FileInfo
	for _, f := range files {
		if strings.Contains(strings.ToLower(f.Name), filter) {
			kept = append(kept, f)
		}
	}
	return kept
}
