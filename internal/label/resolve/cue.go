package resolve

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/a3tai/mcp-pdf-labeler/internal/label/similarity"
)

// Cue is the outcome of repeating-structure detection on a field's
// context. When the context names an occurrence ("PREVIOUS MARRIAGE 2",
// "second child"), Fired is true, Index carries the occurrence number
// and Base carries the concept text with the occurrence marker removed.
type Cue struct {
	Fired bool
	Base  string
	Index int
}

// maxOccurrenceIndex bounds what counts as an occurrence marker.
// Larger integers in form text are years, amounts or line numbers.
const maxOccurrenceIndex = 99

var ordinalWords = map[string]int{
	"first":   1,
	"second":  2,
	"third":   3,
	"fourth":  4,
	"fifth":   5,
	"sixth":   6,
	"seventh": 7,
	"eighth":  8,
	"ninth":   9,
	"tenth":   10,
}

var ordinalSuffixPattern = regexp.MustCompile(`^(\d{1,2})(st|nd|rd|th)$`)

// occurrenceMarkers introduce an index without carrying concept
// meaning of their own, as in "marriage number 2".
var occurrenceMarkers = map[string]bool{
	"number": true,
	"no":     true,
}

// DetectCue inspects a field context for repeating-structure wording.
// Detection is best effort; a missed cue only costs candidate quality,
// never correctness.
func DetectCue(context string) Cue {
	tok := similarity.NewLabelTokenizer()
	tokens := tok.Tokenize(context)
	if len(tokens) < 2 {
		return Cue{}
	}

	hit := -1
	index := 0
	for i, t := range tokens {
		if n, ok := occurrenceIndex(t); ok {
			hit = i
			index = n
			break
		}
	}
	if hit < 0 {
		return Cue{}
	}

	base := make([]string, 0, len(tokens)-1)
	for i, t := range tokens {
		if i == hit {
			continue
		}
		if i == hit-1 && occurrenceMarkers[t] {
			continue
		}
		base = append(base, t)
	}
	if len(base) == 0 {
		return Cue{}
	}
	return Cue{Fired: true, Base: strings.Join(base, " "), Index: index}
}

func occurrenceIndex(token string) (int, bool) {
	if n, ok := ordinalWords[token]; ok {
		return n, true
	}
	if m := ordinalSuffixPattern.FindStringSubmatch(token); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 {
			return n, true
		}
		return 0, false
	}
	if !allDigits(token) {
		return 0, false
	}
	n, err := strconv.Atoi(token)
	if err != nil || n < 1 || n > maxOccurrenceIndex {
		return 0, false
	}
	return n, true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
