package similarity

import (
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/a3tai/mcp-pdf-labeler/internal/label/corpus"
)

// ErrEmptyCorpus is returned by Rank when there are no labels to rank.
// Callers recover by forcing a create-new decision, so this error must
// stay distinguishable from real failures.
var ErrEmptyCorpus = errors.New("label corpus is empty")

// Ranking parameters. k1 and b are the standard BM25 constants; the
// embedding weight keeps the hashed-vector blend strictly a tiebreaker
// within the lexical band rather than a competing signal.
const (
	bm25K1          = 1.2
	bm25B           = 0.75
	embeddingWeight = 0.25

	// DefaultTopK is the candidate list size handed to the oracle.
	DefaultTopK = 8

	// MinTopK is the floor for candidate lists; fewer candidates makes
	// the oracle invent near-duplicates of labels it was never shown.
	MinTopK = 5
)

// Match is one ranked corpus label.
type Match struct {
	Label       string  `json:"label"`
	Description string  `json:"description,omitempty"`
	Score       float64 `json:"score"`
}

// Index ranks corpus labels against field context text. It reads the
// corpus live on every call, so labels appended mid-run are rankable
// for the next field without cache invalidation.
type Index struct {
	corpus    *corpus.Corpus
	tokenizer Tokenizer
	embedder  *Embedder
}

// NewIndex creates an index over the given corpus.
func NewIndex(c *corpus.Corpus) *Index {
	return &Index{
		corpus:    c,
		tokenizer: NewLabelTokenizer(),
		embedder:  NewEmbedder(DefaultEmbeddingDim),
	}
}

type scoredEntry struct {
	order   int
	overlap int
	score   float64
	entry   corpus.Entry
}

// Rank scores every corpus label against the context and returns the
// topK best, highest first. Ordering is deterministic: ties fall back
// to corpus insertion order, and labels sharing no token with the
// context never outrank labels sharing at least one. topK values below
// one fall back to DefaultTopK.
func (x *Index) Rank(context string, topK int) ([]Match, error) {
	entries := x.corpus.Entries()
	if len(entries) == 0 {
		return nil, ErrEmptyCorpus
	}
	if topK < 1 {
		topK = DefaultTopK
	}

	queryTokens := x.tokenizer.Tokenize(context)
	queryVec := x.embedder.Embed(queryTokens)

	docs := make([][]string, len(entries))
	docFreq := make(map[string]int)
	totalLen := 0
	for i, e := range entries {
		docs[i] = x.tokenizer.Tokenize(entryText(e))
		totalLen += len(docs[i])
		seen := make(map[string]bool, len(docs[i]))
		for _, term := range docs[i] {
			if !seen[term] {
				seen[term] = true
				docFreq[term]++
			}
		}
	}
	n := float64(len(entries))
	avgDL := float64(totalLen) / n
	if avgDL == 0 {
		avgDL = 1
	}

	scored := make([]scoredEntry, len(entries))
	for i, e := range entries {
		freqs := make(map[string]int, len(docs[i]))
		for _, term := range docs[i] {
			freqs[term]++
		}

		var lexical float64
		overlap := 0
		docLen := float64(len(docs[i]))
		for _, term := range queryTokens {
			freq := freqs[term]
			if freq == 0 {
				continue
			}
			overlap++
			nq := float64(docFreq[term])
			idf := math.Log((n-nq+0.5)/(nq+0.5) + 1)
			numerator := float64(freq) * (bm25K1 + 1)
			denominator := float64(freq) + bm25K1*(1-bm25B+bm25B*docLen/avgDL)
			lexical += idf * numerator / denominator
		}

		cos := Cosine(queryVec, x.embedder.Embed(docs[i]))
		score := embeddingWeight * cos
		if overlap > 0 {
			score += lexical
		}
		scored[i] = scoredEntry{order: i, overlap: overlap, score: score, entry: e}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		si, sj := scored[i], scored[j]
		if (si.overlap > 0) != (sj.overlap > 0) {
			return si.overlap > 0
		}
		if si.score != sj.score {
			return si.score > sj.score
		}
		return si.order < sj.order
	})

	if topK > len(scored) {
		topK = len(scored)
	}
	matches := make([]Match, topK)
	for i := 0; i < topK; i++ {
		matches[i] = Match{
			Label:       scored[i].entry.Label,
			Description: scored[i].entry.Description,
			Score:       scored[i].score,
		}
	}
	return matches, nil
}

// entryText is the document the index scores for one corpus entry: the
// label itself, its description, and the contexts it was minted from.
func entryText(e corpus.Entry) string {
	parts := make([]string, 0, 2+len(e.Contexts))
	parts = append(parts, e.Label)
	if e.Description != "" {
		parts = append(parts, e.Description)
	}
	parts = append(parts, e.Contexts...)
	return strings.Join(parts, " ")
}
