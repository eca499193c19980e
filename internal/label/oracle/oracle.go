// Package oracle is the decision boundary of the resolver: given one
// field and a short list of candidate labels, an Oracle returns exactly
// one of keep, match, or create. The production implementation talks to
// Gemini; a deterministic rule-based implementation covers offline runs
// and a scripted one drives tests. The resolution protocol treats all
// of them identically and owns every correctness guarantee, so an
// oracle is allowed to be wrong, slow, or unparseable.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Action is an oracle verdict in wire form.
type Action string

const (
	// ActionKeep keeps the raw field name, normalized.
	ActionKeep Action = "keep_original"

	// ActionMatch reuses one of the offered candidate labels.
	ActionMatch Action = "match_existing"

	// ActionCreate mints a new canonical label.
	ActionCreate Action = "create_new"
)

// ParseAction normalizes a wire action string.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ActionKeep), "keep":
		return ActionKeep, nil
	case string(ActionMatch), "match":
		return ActionMatch, nil
	case string(ActionCreate), "create", "new":
		return ActionCreate, nil
	default:
		return "", fmt.Errorf("unknown action %q: %w", s, ErrMalformed)
	}
}

// Candidate is one ranked corpus label offered to the oracle.
type Candidate struct {
	Label       string  `json:"label"`
	Description string  `json:"description,omitempty"`
	Score       float64 `json:"score"`
}

// Request carries one field to decide on.
type Request struct {
	FieldID      string      `json:"field_id"`
	RawName      string      `json:"raw_name"`
	FieldType    string      `json:"field_type"`
	Context      string      `json:"context"`
	Page         int         `json:"page"`
	Position     string      `json:"position,omitempty"`
	Candidates   []Candidate `json:"candidates"`
	ConflictNote string      `json:"conflict_note,omitempty"`
}

// Decision is the oracle's verdict for one field.
type Decision struct {
	Action      Action `json:"action"`
	RawName     string `json:"original_field_name"`
	Label       string `json:"standardized_label"`
	Description string `json:"description,omitempty"`
	Confidence  int    `json:"confidence"`
	Reasoning   string `json:"reasoning,omitempty"`
}

// Oracle decides labels for fields. Implementations must be safe for
// concurrent use; the pipeline shares one oracle across document
// workers. Decide blocks until a verdict, an error, or ctx ends.
type Oracle interface {
	Decide(ctx context.Context, req Request) (Decision, error)
	Name() string
}

// Error classes. The resolution protocol retries both classes up to
// its attempt bound; the transport retry layer additionally retries
// ErrTimeout and ErrRateLimited with backoff.
var (
	// ErrTimeout covers transient oracle unavailability: request
	// timeouts and upstream 5xx responses.
	ErrTimeout = errors.New("oracle timed out")

	// ErrMalformed covers verdicts that cannot be used: unparseable
	// bodies, unknown actions, and labels that survive no amount of
	// auto-fixing.
	ErrMalformed = errors.New("oracle response malformed")

	// ErrRateLimited maps upstream 429 responses.
	ErrRateLimited = errors.New("oracle rate limited")
)

// wireDecision is the JSON shape the oracle returns. Confidence is raw
// because models send it as a number, a float fraction, or a prose
// bucket like "very high".
type wireDecision struct {
	Action      string          `json:"action"`
	RawName     string          `json:"original_field_name"`
	Label       string          `json:"standardized_label"`
	Description string          `json:"description"`
	Confidence  json.RawMessage `json:"confidence"`
	Reasoning   string          `json:"reasoning"`
}

// normalizeConfidence folds the accepted confidence shapes into a
// 0-100 integer. Prose buckets map through a fixed table; unknown
// strings fall back to 90; fractions scale by 100.
func normalizeConfidence(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		buckets := map[string]int{
			"very high": 95,
			"high":      90,
			"medium":    70,
			"low":       50,
			"very low":  30,
		}
		if v, ok := buckets[strings.ToLower(strings.TrimSpace(s))]; ok {
			return v
		}
		return 90
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if f > 0 && f <= 1 {
			return int(f*100 + 0.5)
		}
		if f < 0 {
			return 0
		}
		if f > 100 {
			return 100
		}
		return int(f + 0.5)
	}
	return 90
}

// formatCandidates renders the candidate list for a prompt, best match
// first. The score gives the model a sense of how confident the
// ranking itself is.
func formatCandidates(candidates []Candidate) string {
	if len(candidates) == 0 {
		return "  (none yet; the corpus is empty, so create_new is expected)"
	}
	var b strings.Builder
	for _, c := range candidates {
		b.WriteString("  - ")
		b.WriteString(c.Label)
		if c.Score > 0 {
			b.WriteString(" (score ")
			b.WriteString(strconv.FormatFloat(c.Score, 'f', 2, 64))
			b.WriteString(")")
		}
		if c.Description != "" {
			b.WriteString(": ")
			b.WriteString(c.Description)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
