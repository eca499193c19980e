// Package variations resolves numbered label families. Forms with
// repeating sections (multiple marriages, multiple employers) produce
// label series like marriage_1_date, marriage_2_date; this package
// finds the existing members of such a series and proposes the label
// for the next occurrence. Everything here is a pure proposal: the
// corpus is only read, never written.
package variations

import (
	"strconv"
	"strings"

	"github.com/a3tai/mcp-pdf-labeler/internal/label/corpus"
	"github.com/a3tai/mcp-pdf-labeler/internal/label/similarity"
)

// Variation is one numbered member of a label family.
type Variation struct {
	Label string `json:"label"`
	Index int    `json:"index"`

	// slot is the underscore-separated position of the index token in
	// Label, kept for reconstructing sibling labels.
	slot int
}

// Resolver finds numbered variations against a live corpus.
type Resolver struct {
	corpus *corpus.Corpus
	tok    similarity.Tokenizer
}

// NewResolver creates a resolver over the given corpus.
func NewResolver(c *corpus.Corpus) *Resolver {
	return &Resolver{corpus: c, tok: similarity.NewLabelTokenizer()}
}

// Find returns the corpus labels that are numbered variations of base,
// in corpus insertion order. A label is a variation when removing one
// embedded positive integer token leaves a token multiset that covers
// every token of base's stem, ignoring order. Base may itself carry an
// index (marriage_1_date finds its own siblings). Never fails: no
// family in the corpus means an empty result.
func (r *Resolver) Find(base string) []Variation {
	stem := r.stemTokens(base)
	if len(stem) == 0 {
		return nil
	}

	var found []Variation
	for _, label := range r.corpus.Labels() {
		if v, ok := r.match(label, stem); ok {
			found = append(found, v)
		}
	}
	return found
}

// NextLabel proposes the label for the smallest index not claimed in
// the corpus and not rejected by taken. The callback typically checks
// the per-document ledger; nil means no document check. The proposal
// follows the token pattern of the highest-indexed existing variation,
// so marriage_1_date and marriage_2_date yield marriage_3_date rather
// than marriage_date_3.
func (r *Resolver) NextLabel(base string, taken func(string) bool) string {
	if taken == nil {
		taken = func(string) bool { return false }
	}

	family := r.Find(base)
	claimed := make(map[int]bool, len(family))
	var rep Variation
	haveRep := false
	for _, v := range family {
		claimed[v.Index] = true
		if !haveRep || v.Index > rep.Index {
			rep = v
			haveRep = true
		}
	}

	if !haveRep {
		// No corpus family. If base carries its own index, its pattern
		// is the family pattern; otherwise numbering starts by
		// suffixing the base, with the bare base counting as the first
		// occurrence.
		if v, ok := selfIndexed(base); ok {
			rep = v
			claimed[v.Index] = true
		} else {
			bare := strings.Trim(base, "_")
			if r.corpus.Has(bare) || taken(bare) {
				claimed[1] = true
			}
			rep = Variation{Label: bare + "_1", Index: 1, slot: strings.Count(bare, "_") + 1}
		}
	}

	// Bounded scan keeps a hostile taken callback from hanging the
	// resolver; past the cap the candidate is returned as-is.
	for idx := 1; idx <= 1000; idx++ {
		if claimed[idx] {
			continue
		}
		candidate := rebuild(rep, idx)
		if taken(candidate) || r.corpus.Has(candidate) {
			continue
		}
		return candidate
	}
	return rebuild(rep, len(claimed)+1001)
}

// stemTokens tokenizes base with every integer token removed.
func (r *Resolver) stemTokens(base string) []string {
	tokens := r.tok.Tokenize(base)
	stem := tokens[:0]
	for _, t := range tokens {
		if _, err := strconv.Atoi(t); err == nil {
			continue
		}
		stem = append(stem, t)
	}
	return stem
}

// match tests whether label is a numbered variation of the stem. The
// leftmost integer part whose removal covers the stem wins; its value
// and underscore slot identify the variation.
func (r *Resolver) match(label string, stem []string) (Variation, bool) {
	parts := strings.Split(label, "_")
	for i, p := range parts {
		idx, err := strconv.Atoi(p)
		if err != nil || idx < 1 {
			continue
		}
		rest := make([]string, 0, len(parts)-1)
		rest = append(rest, parts[:i]...)
		rest = append(rest, parts[i+1:]...)
		if covers(r.tok.Tokenize(strings.Join(rest, "_")), stem) {
			return Variation{Label: label, Index: idx, slot: i}, true
		}
	}
	return Variation{}, false
}

// covers reports whether the candidate token multiset contains every
// stem token at least as often as the stem does.
func covers(candidate, stem []string) bool {
	counts := make(map[string]int, len(candidate))
	for _, t := range candidate {
		counts[t]++
	}
	for _, t := range stem {
		if counts[t] == 0 {
			return false
		}
		counts[t]--
	}
	return true
}

// selfIndexed extracts the index pattern from a base that already
// carries one, like marriage_1_date.
func selfIndexed(base string) (Variation, bool) {
	parts := strings.Split(base, "_")
	for i, p := range parts {
		if idx, err := strconv.Atoi(p); err == nil && idx >= 1 {
			return Variation{Label: base, Index: idx, slot: i}, true
		}
	}
	return Variation{}, false
}

// rebuild writes the sibling label of v with the given index.
func rebuild(v Variation, idx int) string {
	parts := strings.Split(v.Label, "_")
	if v.slot >= 0 && v.slot < len(parts) {
		parts[v.slot] = strconv.Itoa(idx)
		return strings.Join(parts, "_")
	}
	return v.Label + "_" + strconv.Itoa(idx)
}
