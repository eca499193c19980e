// Package similarity ranks corpus labels against a field's detected
// context. Scoring is purely lexical plus a hashed bag-of-words blend,
// so identical inputs always produce identical rankings.
package similarity

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Tokenizer splits text into normalized terms.
type Tokenizer interface {
	Tokenize(text string) []string
}

// LabelTokenizer normalizes form text and snake_case labels into
// comparable terms: NFKC folding (scanned PDFs produce full-width and
// ligature characters), splitting on everything that is not a letter or
// digit, lowercasing, stop-word removal, and a small synonym table for
// common form-field abbreviations.
type LabelTokenizer struct{}

// NewLabelTokenizer returns the shared tokenizer used by the index and
// the embedder.
func NewLabelTokenizer() *LabelTokenizer {
	return &LabelTokenizer{}
}

// stopWords that carry no signal in form-field contexts. Deliberately
// excludes "yes" and "no": both are meaningful checkbox captions.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"if": true, "of": true, "to": true, "in": true, "on": true,
	"for": true, "with": true, "at": true, "by": true, "from": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"been": true, "do": true, "does": true, "did": true,
	"this": true, "that": true, "these": true, "those": true,
	"you": true, "your": true, "please": true, "enter": true,
}

// synonymTable maps common form abbreviations to the word the corpus
// spells out. Matching is per token, after lowercasing.
var synonymTable = map[string]string{
	"telephone": "phone",
	"tel":       "phone",
	"dob":       "birth",
	"birthdate": "birth",
	"addr":      "address",
	"num":       "number",
	"nbr":       "number",
	"amt":       "amount",
	"acct":      "account",
	"when":      "date",
}

// Tokenize splits text into normalized terms. Digits survive as their
// own tokens; numbered labels rely on that.
func (t *LabelTokenizer) Tokenize(text string) []string {
	folded := norm.NFKC.String(text)
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.ToLower(f)
		if stopWords[w] {
			continue
		}
		if canonical, ok := synonymTable[w]; ok {
			w = canonical
		}
		if len(w) == 1 && !isDigit(w) {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

func isDigit(w string) bool {
	for _, r := range w {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(w) > 0
}
