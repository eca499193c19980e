package corpus

import "sort"

// Conversion records one label that was rewritten during cleanup.
type Conversion struct {
	Original string `json:"original"`
	Cleaned  string `json:"cleaned"`
	Reason   string `json:"reason"`
}

// Problem records one label that could not be salvaged.
type Problem struct {
	Original  string `json:"original"`
	Attempted string `json:"attempted"`
	Reason    string `json:"reason"`
}

// CleanResult summarizes a corpus cleanup pass.
type CleanResult struct {
	Entries           []Entry
	Conversions       []Conversion
	Problematic       []Problem
	DuplicatesRemoved int
}

// Clean normalizes every entry to valid lower_snake_case, drops
// duplicates, and sorts the survivors alphabetically. Cleanup is an
// offline re-baseline of the corpus: it deliberately replaces the
// historical insertion order with a stable alphabetical one.
func Clean(entries []Entry) CleanResult {
	var result CleanResult
	kept := make(map[string]Entry, len(entries))
	survivors := 0

	for _, e := range entries {
		cleaned := e.Label
		if Validate(cleaned) != nil {
			cleaned = AutoFix(e.Label)
			if cleaned == "" {
				result.Problematic = append(result.Problematic, Problem{
					Original: e.Label,
					Reason:   "empty after cleaning",
				})
				continue
			}
			if err := Validate(cleaned); err != nil {
				result.Problematic = append(result.Problematic, Problem{
					Original:  e.Label,
					Attempted: cleaned,
					Reason:    err.Error(),
				})
				continue
			}
			result.Conversions = append(result.Conversions, Conversion{
				Original: e.Label,
				Cleaned:  cleaned,
				Reason:   "converted to snake_case",
			})
		}

		survivors++
		if _, exists := kept[cleaned]; exists {
			continue
		}
		e.Label = cleaned
		kept[cleaned] = e
	}

	result.DuplicatesRemoved = survivors - len(kept)

	labels := make([]string, 0, len(kept))
	for label := range kept {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	result.Entries = make([]Entry, len(labels))
	for i, label := range labels {
		result.Entries[i] = kept[label]
	}
	return result
}
