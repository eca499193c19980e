package corpus

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Label length bounds. Two characters keeps degenerate single-letter
// labels out; eighty keeps labels usable as form field names.
const (
	MinLabelLength = 2
	MaxLabelLength = 80
)

var (
	labelPattern   = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	camelBoundary  = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	nonAlnumRuns   = regexp.MustCompile(`[^a-zA-Z0-9]+`)
	underscoreRuns = regexp.MustCompile(`_+`)
)

// semanticReplacements maps common shorthand labels to their canonical
// expanded form. Matching is exact, after snake_case conversion.
var semanticReplacements = map[string]string{
	"wage_earner_ssn": "wage_earner_social_security_number",
	"ssn":             "social_security_number",
	"spouse_ssn":      "spouse_social_security_number",
	"wage_earner":     "wage_earner_name",
	"spouse":          "spouse_name",
}

// checkboxIndicators mark a raw field name as belonging to a checkbox
// widget. Checked against the raw name, not the proposed label.
var checkboxIndicators = []string{"cb", "checkbox", "check", "yes", "no"}

// gibberishIndicators are fragments of generator-produced field names
// (XFA paths, indexed widget arrays) that carry no human meaning.
var gibberishIndicators = []string{
	"topmostSubform",
	"BodyPage",
	"[0]",
	"[1]",
	"[2]",
	".",
	"FLD[",
	"CB[",
}

// descriptivePatterns are substrings that indicate a field name was
// authored by a human and is worth keeping.
var descriptivePatterns = []string{
	"first_name",
	"last_name",
	"middle_name",
	"full_name",
	"city",
	"state",
	"zip_code",
	"address",
	"phone",
	"email",
	"date",
	"signature",
	"ssn",
	"social_security",
	"yes",
	"no",
	"checkbox",
	"check",
}

// Validate checks that a label is well-formed lower_snake_case.
func Validate(label string) error {
	if label == "" {
		return errors.New("label is empty")
	}
	if len(label) < MinLabelLength {
		return fmt.Errorf("label %q is shorter than %d characters", label, MinLabelLength)
	}
	if len(label) > MaxLabelLength {
		return fmt.Errorf("label %q is longer than %d characters", label, MaxLabelLength)
	}
	if !labelPattern.MatchString(label) {
		return fmt.Errorf("label %q must be lower_snake_case starting with a letter", label)
	}
	if strings.Contains(label, "__") {
		return fmt.Errorf("label %q contains consecutive underscores", label)
	}
	if strings.HasSuffix(label, "_") {
		return fmt.Errorf("label %q ends with an underscore", label)
	}
	return nil
}

// AutoFix converts free-form text into a snake_case label and applies
// the semantic replacement table. It does not guarantee the result
// passes Validate; callers that require validity must check.
func AutoFix(raw string) string {
	fixed := camelBoundary.ReplaceAllString(raw, "${1}_${2}")
	fixed = nonAlnumRuns.ReplaceAllString(fixed, "_")
	fixed = underscoreRuns.ReplaceAllString(fixed, "_")
	fixed = strings.Trim(fixed, "_")
	fixed = strings.ToLower(fixed)

	if replacement, ok := semanticReplacements[fixed]; ok {
		return replacement
	}
	return fixed
}

// Normalize runs AutoFix and then appends a _checkbox suffix when the
// raw field name indicates a checkbox widget. The suffix check looks at
// the raw name because the proposed label usually loses the cb/check
// fragments during standardization.
func Normalize(label, rawName string) string {
	fixed := AutoFix(label)
	if fixed == "" {
		return fixed
	}
	rawLower := strings.ToLower(rawName)
	for _, indicator := range checkboxIndicators {
		if strings.Contains(rawLower, indicator) {
			if !strings.HasSuffix(fixed, "_checkbox") && fixed != "checkbox" {
				fixed += "_checkbox"
			}
			break
		}
	}
	return fixed
}

// IsDescriptive reports whether a raw field name looks human-authored.
// Generator gibberish wins over descriptive fragments: a name like
// topmostSubform[0].date[0] is still gibberish even though it contains
// "date".
func IsDescriptive(rawName string) bool {
	for _, indicator := range gibberishIndicators {
		if strings.Contains(rawName, indicator) {
			return false
		}
	}
	lower := strings.ToLower(rawName)
	for _, pattern := range descriptivePatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
