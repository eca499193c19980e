// Package label exposes the labeling engine as a set of operations the
// MCP tools and the batch command share. One Service owns the corpus,
// the similarity index, and the document pipeline; every operation
// takes a request struct and returns a result struct.
package label

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/a3tai/mcp-pdf-labeler/internal/label/corpus"
	"github.com/a3tai/mcp-pdf-labeler/internal/label/oracle"
	"github.com/a3tai/mcp-pdf-labeler/internal/label/resolve"
	"github.com/a3tai/mcp-pdf-labeler/internal/label/similarity"
	"github.com/a3tai/mcp-pdf-labeler/internal/label/tracker"
	"github.com/a3tai/mcp-pdf-labeler/internal/label/variations"
	"github.com/a3tai/mcp-pdf-labeler/internal/pdf"
	"github.com/a3tai/mcp-pdf-labeler/internal/pipeline"
)

// defaultRecentLabels is how many trailing corpus labels stats reports
// when the request does not say.
const defaultRecentLabels = 10

// Config carries the dependencies and settings for a Service.
type Config struct {
	Corpus      *corpus.Corpus
	Oracle      oracle.Oracle
	OracleName  string
	Pipeline    pipeline.Options
	StorePath   string
	StoreDriver string
	Logger      *log.Logger
}

// Service handles label operations by orchestrating the corpus, the
// similarity index, the variation resolver, and the document pipeline
type Service struct {
	corpus   *corpus.Corpus
	index    *similarity.Index
	vars     *variations.Resolver
	protocol *resolve.Protocol
	runner   *pipeline.Runner
	scanner  *pdf.Scanner
	paths    *pdf.PathValidator

	storePath   string
	storeDriver string
	oracleName  string
}

// NewService creates a label service with all components
func NewService(cfg Config) (*Service, error) {
	if cfg.Corpus == nil {
		return nil, errors.New("corpus is required")
	}
	if cfg.Oracle == nil {
		return nil, errors.New("oracle is required")
	}

	runner := pipeline.NewRunner(cfg.Corpus, cfg.Oracle, cfg.Pipeline, cfg.Logger)
	opts := runner.Options()

	var paths *pdf.PathValidator
	if opts.InputDir != "" {
		var err error
		paths, err = pdf.NewPathValidator(opts.InputDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create path validator: %w", err)
		}
	}

	return &Service{
		corpus: cfg.Corpus,
		index:  similarity.NewIndex(cfg.Corpus),
		vars:   variations.NewResolver(cfg.Corpus),
		protocol: resolve.NewProtocol(cfg.Corpus, cfg.Oracle, resolve.Config{
			TopK:       cfg.Pipeline.TopK,
			RetryBound: cfg.Pipeline.RetryBound,
		}),
		runner:      runner,
		scanner:     pdf.NewScanner(opts.MaxFileSize),
		paths:       paths,
		storePath:   cfg.StorePath,
		storeDriver: cfg.StoreDriver,
		oracleName:  cfg.OracleName,
	}, nil
}

// RunBatch processes every pending document in the configured input
// directory.
func (s *Service) RunBatch(ctx context.Context) (*pipeline.RunStats, error) {
	return s.runner.Run(ctx)
}

// ResolveDocument runs one PDF through unlock, extraction, label
// resolution, apply, and verify.
func (s *Service) ResolveDocument(ctx context.Context, req ResolveDocumentRequest) (*ResolveDocumentResult, error) {
	if strings.TrimSpace(req.Path) == "" {
		return nil, errors.New("path is required")
	}
	if s.paths != nil {
		if err := s.paths.ValidatePath(req.Path); err != nil {
			return nil, fmt.Errorf("security validation failed: %w", err)
		}
	}

	outcome, err := s.runner.RunFile(ctx, req.Path)
	if err != nil {
		return nil, err
	}

	result := &ResolveDocumentResult{
		Input:    outcome.Input,
		Output:   outcome.Output,
		Sidecar:  outcome.Sidecar,
		Fields:   outcome.Fields,
		Report:   outcome.Report,
		Duration: outcome.Duration.String(),
		Error:    outcome.Err,
	}
	if outcome.Verify != nil {
		result.Verified = outcome.Verify.Verified
	}
	return result, nil
}

// ResolveField resolves a single form field against the corpus. Each
// call uses a fresh per-document tracker, so repeated calls do not
// accumulate duplicate pressure.
func (s *Service) ResolveField(ctx context.Context, req ResolveFieldRequest) (*ResolveFieldResult, error) {
	if strings.TrimSpace(req.RawName) == "" && strings.TrimSpace(req.Context) == "" {
		return nil, errors.New("raw_name or context is required")
	}

	id := req.FieldID
	if id == "" {
		id = req.RawName
	}
	res, err := s.protocol.ResolveField(ctx, tracker.New(), resolve.Field{
		ID:       id,
		RawName:  req.RawName,
		Type:     req.Type,
		Context:  req.Context,
		Page:     req.Page,
		Position: req.Position,
	})
	if err != nil {
		return nil, err
	}

	return &ResolveFieldResult{
		Label:      res.Label,
		Action:     string(res.Action),
		Confidence: res.Confidence,
		Created:    res.Created,
		Attempts:   res.Attempts,
		Reasoning:  res.Reasoning,
	}, nil
}

// SearchSimilar ranks corpus labels against the given context text. An
// empty corpus yields an empty match list, not an error.
func (s *Service) SearchSimilar(req SearchSimilarRequest) (*SearchSimilarResult, error) {
	if strings.TrimSpace(req.Context) == "" {
		return nil, errors.New("context text is required")
	}

	topK := req.TopK
	if topK <= 0 {
		topK = similarity.DefaultTopK
	}

	matches, err := s.index.Rank(req.Context, topK)
	switch {
	case errors.Is(err, similarity.ErrEmptyCorpus):
		matches = nil
	case err != nil:
		return nil, err
	}

	return &SearchSimilarResult{
		Context:    req.Context,
		Matches:    matches,
		TotalCount: len(matches),
		CorpusSize: s.corpus.Len(),
	}, nil
}

// CheckLabel reports whether a label exists, along with its numbered
// variations and the next free variation when it does.
func (s *Service) CheckLabel(req CheckLabelRequest) (*CheckLabelResult, error) {
	name := strings.TrimSpace(req.Label)
	if name == "" {
		return nil, errors.New("label is required")
	}

	result := &CheckLabelResult{Label: name}
	if entry, ok := s.corpus.Get(name); ok {
		result.Exists = true
		result.Entry = &entry
	}
	if found := s.vars.Find(name); len(found) > 0 {
		result.Variations = found
	}
	if result.Exists {
		result.NextLabel = s.vars.NextLabel(name, s.corpus.Has)
	}
	return result, nil
}

// ValidateFormat checks label syntax and returns the normalized form
// the corpus would accept.
func (s *Service) ValidateFormat(req ValidateFormatRequest) (*ValidateFormatResult, error) {
	if strings.TrimSpace(req.Label) == "" {
		return nil, errors.New("label is required")
	}

	result := &ValidateFormatResult{
		Label:      req.Label,
		Normalized: corpus.Normalize(req.Label, req.RawName),
	}
	if err := corpus.Validate(req.Label); err != nil {
		result.Problem = err.Error()
	} else {
		result.Valid = true
	}
	return result, nil
}

// AddLabel normalizes, validates, and appends a label to the corpus.
// Appending a label that already exists is reported, not failed.
func (s *Service) AddLabel(req AddLabelRequest) (*AddLabelResult, error) {
	name := corpus.Normalize(req.Label, "")
	if name == "" {
		return nil, errors.New("label is required")
	}
	if err := corpus.Validate(name); err != nil {
		return nil, fmt.Errorf("invalid label %q: %w", name, err)
	}

	entry := corpus.Entry{Label: name, Description: strings.TrimSpace(req.Description)}
	if c := strings.TrimSpace(req.Context); c != "" {
		entry.Contexts = []string{c}
	}

	result := &AddLabelResult{Label: name}
	err := s.corpus.Append(entry)
	switch {
	case errors.Is(err, corpus.ErrDuplicate):
		result.Message = "label already exists in corpus"
	case err != nil:
		return nil, err
	default:
		result.Added = true
	}
	result.CorpusSize = s.corpus.Len()
	return result, nil
}

// CorpusStats returns the corpus size and its most recent labels.
func (s *Service) CorpusStats(req CorpusStatsRequest) (*CorpusStatsResult, error) {
	recent := req.Recent
	if recent <= 0 {
		recent = defaultRecentLabels
	}

	labels := s.corpus.Labels()
	start := len(labels) - recent
	if start < 0 {
		start = 0
	}

	return &CorpusStatsResult{
		TotalLabels:  len(labels),
		StorePath:    s.storePath,
		StoreDriver:  s.storeDriver,
		RecentLabels: labels[start:],
	}, nil
}

// ScanDirectory lists labelable input PDFs. Refined outputs and
// unlocked intermediates are never reported.
func (s *Service) ScanDirectory(req ScanDirectoryRequest) (*ScanDirectoryResult, error) {
	dir := strings.TrimSpace(req.Directory)
	if dir == "" {
		dir = s.runner.Options().InputDir
	}
	if dir == "" {
		return nil, errors.New("directory is required")
	}
	if s.paths != nil {
		if err := s.paths.ValidateDirectory(dir); err != nil {
			return nil, fmt.Errorf("security validation failed: %w", err)
		}
	}

	res, err := s.scanner.ScanDirectory(dir, req.Query)
	if err != nil {
		return nil, err
	}

	return &ScanDirectoryResult{
		Files:       res.Files,
		TotalCount:  res.TotalCount,
		Directory:   res.Directory,
		SearchQuery: res.Query,
	}, nil
}
