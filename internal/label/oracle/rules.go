package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/a3tai/mcp-pdf-labeler/internal/label/corpus"
	"github.com/a3tai/mcp-pdf-labeler/internal/label/similarity"
)

// DefaultMatchThreshold is the candidate score above which the rules
// oracle reuses an existing label without asking anything else.
const DefaultMatchThreshold = 0.5

// maxCreatedLabelTokens bounds labels minted from context text.
const maxCreatedLabelTokens = 5

// RulesOracle is the deterministic offline oracle. It exists for runs
// without an API key, for dry runs, and as the predictable baseline in
// tests: same request in, same decision out, no network.
type RulesOracle struct {
	matchThreshold float64
	tok            similarity.Tokenizer
}

// NewRulesOracle creates a rules oracle. A threshold of zero or below
// selects DefaultMatchThreshold.
func NewRulesOracle(matchThreshold float64) *RulesOracle {
	if matchThreshold <= 0 {
		matchThreshold = DefaultMatchThreshold
	}
	return &RulesOracle{
		matchThreshold: matchThreshold,
		tok:            similarity.NewLabelTokenizer(),
	}
}

// Name identifies the oracle in logs and reports.
func (r *RulesOracle) Name() string { return "rules" }

// Decide applies the rule ladder: honor a conflict re-entry first,
// then a strong candidate match, then a descriptive raw name, and
// finally mint a label from the context text.
func (r *RulesOracle) Decide(_ context.Context, req Request) (Decision, error) {
	if req.ConflictNote != "" && len(req.Candidates) > 0 {
		top := req.Candidates[0]
		return Decision{
			Action:     ActionMatch,
			RawName:    req.RawName,
			Label:      top.Label,
			Confidence: 85,
			Reasoning:  "conflict re-entry, taking the strongest remaining candidate",
		}, nil
	}

	if len(req.Candidates) > 0 && req.Candidates[0].Score >= r.matchThreshold {
		top := req.Candidates[0]
		return Decision{
			Action:     ActionMatch,
			RawName:    req.RawName,
			Label:      top.Label,
			Confidence: 90,
			Reasoning:  fmt.Sprintf("top candidate scored %.2f against the field context", top.Score),
		}, nil
	}

	if corpus.IsDescriptive(req.RawName) {
		label := corpus.Normalize(req.RawName, req.RawName)
		if corpus.Validate(label) == nil {
			return Decision{
				Action:     ActionKeep,
				RawName:    req.RawName,
				Label:      label,
				Confidence: 70,
				Reasoning:  "raw field name is already descriptive",
			}, nil
		}
	}

	return Decision{
		Action:      ActionCreate,
		RawName:     req.RawName,
		Label:       r.mintLabel(req),
		Description: strings.TrimSpace(req.Context),
		Confidence:  60,
		Reasoning:   "no usable candidate or descriptive name, minting from context",
	}, nil
}

// mintLabel builds a new label from the context text, falling back to
// the normalized raw name and finally to a fixed placeholder.
func (r *RulesOracle) mintLabel(req Request) string {
	tokens := r.tok.Tokenize(req.Context)
	if len(tokens) > maxCreatedLabelTokens {
		tokens = tokens[:maxCreatedLabelTokens]
	}
	if len(tokens) > 0 {
		label := corpus.Normalize(strings.Join(tokens, "_"), req.RawName)
		if corpus.Validate(label) == nil {
			return label
		}
	}

	label := corpus.Normalize(req.RawName, req.RawName)
	if corpus.Validate(label) == nil {
		return label
	}
	return "unlabeled_field"
}
