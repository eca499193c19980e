package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/a3tai/mcp-pdf-labeler/internal/label/corpus"
	"github.com/a3tai/mcp-pdf-labeler/internal/label/oracle"
	"github.com/a3tai/mcp-pdf-labeler/internal/label/similarity"
	"github.com/a3tai/mcp-pdf-labeler/internal/label/tracker"
	"github.com/a3tai/mcp-pdf-labeler/internal/label/variations"
)

// State identifies a stop on the per-field decision path.
type State int

const (
	StateAnalyzing State = iota
	StateCandidatesGathered
	StateOracleQueried
	StateValidated
	StateCommitted
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case StateAnalyzing:
		return "ANALYZING"
	case StateCandidatesGathered:
		return "CANDIDATES_GATHERED"
	case StateOracleQueried:
		return "ORACLE_QUERIED"
	case StateValidated:
		return "VALIDATED"
	case StateCommitted:
		return "COMMITTED"
	default:
		return "UNKNOWN"
	}
}

const (
	// DefaultRetryBound is how many re-entries a field gets after its
	// first failed cycle before it is reported as failed.
	DefaultRetryBound = 2

	// contextSampleLimit caps the context excerpt stored with a newly
	// created corpus entry.
	contextSampleLimit = 160
)

// Field is one form field to resolve, in document order.
type Field struct {
	ID       string `json:"id"`
	RawName  string `json:"raw_name"`
	Type     string `json:"type,omitempty"`
	Context  string `json:"context,omitempty"`
	Page     int    `json:"page,omitempty"`
	Position string `json:"position,omitempty"`
}

// Resolution is the committed outcome for one field. Action reflects
// what actually happened, not what the oracle asked for: a create on a
// label the corpus already holds is reported as a match, and a match
// on a label the corpus lacks is reported as a create.
type Resolution struct {
	Field      Field         `json:"field"`
	Label      string        `json:"label"`
	Action     oracle.Action `json:"action"`
	Confidence int           `json:"confidence"`
	Reasoning  string        `json:"reasoning,omitempty"`
	Created    bool          `json:"created"`
	Attempts   int           `json:"attempts"`
	CueFired   bool          `json:"cue_fired,omitempty"`
	Trace      []State       `json:"-"`
}

// Config tunes a Protocol. Zero values select the defaults.
type Config struct {
	TopK       int
	RetryBound int
}

// Protocol runs the decision path for each field: gather candidates,
// consult the oracle, validate the verdict against the document ledger
// and commit. One Protocol serves many documents concurrently; all
// shared state lives in the corpus, which serializes its own writes.
type Protocol struct {
	corpus     *corpus.Corpus
	index      *similarity.Index
	vars       *variations.Resolver
	oracle     oracle.Oracle
	topK       int
	retryBound int
}

// NewProtocol wires a protocol over a corpus and an oracle.
func NewProtocol(c *corpus.Corpus, orc oracle.Oracle, cfg Config) *Protocol {
	topK := cfg.TopK
	if topK <= 0 {
		topK = similarity.DefaultTopK
	} else if topK < similarity.MinTopK {
		topK = similarity.MinTopK
	}
	retryBound := cfg.RetryBound
	if retryBound <= 0 {
		retryBound = DefaultRetryBound
	}
	return &Protocol{
		corpus:     c,
		index:      similarity.NewIndex(c),
		vars:       variations.NewResolver(c),
		oracle:     orc,
		topK:       topK,
		retryBound: retryBound,
	}
}

// ResolveField drives one field through the decision path. The tracker
// is the document's ledger; it must not be shared across goroutines.
// Failures past the retry bound come back as RESOLUTION_FAILED and
// leave both the tracker and the corpus untouched for this field.
func (p *Protocol) ResolveField(ctx context.Context, tr *tracker.Tracker, f Field) (Resolution, error) {
	cue := DetectCue(f.Context)

	var (
		trace        = []State{StateAnalyzing}
		attempts     = 0
		lastErr      error
		conflictNote string
		preferred    []oracle.Candidate
		excluded     = map[string]bool{}
	)

	for {
		if err := ctx.Err(); err != nil {
			return Resolution{}, err
		}

		candidates := p.gatherCandidates(f, cue, excluded, preferred)
		trace = append(trace, StateCandidatesGathered)

		decision, err := p.oracle.Decide(ctx, oracle.Request{
			FieldID:      f.ID,
			RawName:      f.RawName,
			FieldType:    f.Type,
			Context:      f.Context,
			Page:         f.Page,
			Position:     f.Position,
			Candidates:   candidates,
			ConflictNote: conflictNote,
		})
		trace = append(trace, StateOracleQueried)

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return Resolution{}, err
			}
			lastErr = &ResolveError{Kind: classifyOracleError(err), FieldID: f.ID, Err: err}
			attempts++
			if attempts > p.retryBound {
				return Resolution{}, &ResolveError{
					Kind:     KindResolutionFailed,
					FieldID:  f.ID,
					Attempts: attempts,
					Err:      lastErr,
				}
			}
			continue
		}

		label := corpus.Normalize(decision.Label, f.RawName)
		if corpus.Validate(label) != nil {
			lastErr = &ResolveError{
				Kind:    KindOracleMalformed,
				FieldID: f.ID,
				Label:   decision.Label,
				Err:     fmt.Errorf("oracle produced unusable label %q", decision.Label),
			}
			attempts++
			if attempts > p.retryBound {
				return Resolution{}, &ResolveError{
					Kind:     KindResolutionFailed,
					FieldID:  f.ID,
					Attempts: attempts,
					Err:      lastErr,
				}
			}
			continue
		}

		if used, _ := tr.IsUsed(label); used {
			lastErr = &ResolveError{Kind: KindUniquenessConflict, FieldID: f.ID, Label: label}
			attempts++
			if attempts > p.retryBound {
				return Resolution{}, &ResolveError{
					Kind:     KindResolutionFailed,
					FieldID:  f.ID,
					Attempts: attempts,
					Err:      lastErr,
				}
			}
			excluded[label] = true
			variant := p.vars.NextLabel(label, func(l string) bool {
				u, _ := tr.IsUsed(l)
				return u
			})
			conflictNote = fmt.Sprintf(
				"The label %q is already assigned to another field in this document. Each field needs a distinct label. The next free numbered variant is %q.",
				label, variant,
			)
			preferred = []oracle.Candidate{{Label: variant, Description: p.describe(label)}}
			continue
		}
		trace = append(trace, StateValidated)

		action := decision.Action
		created := false
		if !p.corpus.Has(label) {
			entry := corpus.Entry{Label: label, Description: strings.TrimSpace(decision.Description)}
			if c := sampleContext(f.Context); c != "" {
				entry.Contexts = []string{c}
			}
			switch err := p.corpus.Append(entry); {
			case err == nil:
				created = true
			case errors.Is(err, corpus.ErrDuplicate):
				// A sibling document committed the same label first.
			default:
				return Resolution{}, &ResolveError{
					Kind:    KindCorpusWriteConflict,
					FieldID: f.ID,
					Label:   label,
					Err:     err,
				}
			}
		}
		if action != oracle.ActionKeep {
			if created {
				action = oracle.ActionCreate
			} else {
				action = oracle.ActionMatch
			}
		}
		tr.Record(f.ID, label)
		trace = append(trace, StateCommitted)

		return Resolution{
			Field:      f,
			Label:      label,
			Action:     action,
			Confidence: decision.Confidence,
			Reasoning:  decision.Reasoning,
			Created:    created,
			Attempts:   attempts + 1,
			CueFired:   cue.Fired,
			Trace:      trace,
		}, nil
	}
}

// gatherCandidates merges, in preference order, the conflict variant
// from a re-entry, numbered variations when the context carries a
// repeating-structure cue, and the similarity ranking. Labels the
// re-entry excluded never reappear.
func (p *Protocol) gatherCandidates(f Field, cue Cue, excluded map[string]bool, preferred []oracle.Candidate) []oracle.Candidate {
	seen := map[string]bool{}
	out := make([]oracle.Candidate, 0, p.topK+len(preferred)+2)

	add := func(c oracle.Candidate) {
		if c.Label == "" || seen[c.Label] || excluded[c.Label] {
			return
		}
		seen[c.Label] = true
		out = append(out, c)
	}

	for _, c := range preferred {
		add(c)
	}

	if cue.Fired {
		for _, v := range p.vars.Find(cue.Base) {
			add(oracle.Candidate{Label: v.Label, Description: p.describe(v.Label)})
		}
	}

	query := strings.TrimSpace(f.Context)
	if query == "" {
		query = f.RawName
	}
	ranked, err := p.index.Rank(query, p.topK)
	if err != nil {
		// An empty corpus is the bootstrap case: the oracle is
		// consulted with no candidates and creates the first label.
		return out
	}
	for _, m := range ranked {
		add(oracle.Candidate{Label: m.Label, Description: m.Description, Score: m.Score})
	}
	return out
}

func (p *Protocol) describe(label string) string {
	if e, ok := p.corpus.Get(label); ok {
		return e.Description
	}
	return ""
}

func classifyOracleError(err error) ErrorKind {
	if errors.Is(err, oracle.ErrTimeout) || errors.Is(err, oracle.ErrRateLimited) {
		return KindOracleTimeout
	}
	return KindOracleMalformed
}

func sampleContext(context string) string {
	c := strings.Join(strings.Fields(context), " ")
	if len(c) > contextSampleLimit {
		c = c[:contextSampleLimit]
	}
	return c
}
