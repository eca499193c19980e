package pdf

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// minFuzzyRatio is the similarity score a mapping key must reach to
// rename a field whose stored name drifted from the extracted one
// through whitespace or encoding cleanup.
const minFuzzyRatio = 95

// ApplyStats summarizes one relabeling pass.
type ApplyStats struct {
	Total   int `json:"total_fields"`
	Renamed int `json:"renamed"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// RefinedPath returns the output path for a relabeled copy of
// inputPath: the input stem plus a _refined suffix, placed in dir.
func RefinedPath(dir, inputPath string) string {
	return filepath.Join(dir, Stem(inputPath)+"_refined.pdf")
}

// ApplyLabels renames every form field named in mapping (original
// name to new label), flattens the field tree so each terminal widget
// becomes a top level field, and writes the result to outputPath.
func ApplyLabels(inputPath, outputPath string, mapping map[string]string) (*ApplyStats, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer file.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(file, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}

	rootDict, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}

	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		return nil, errors.New("document has no AcroForm dictionary")
	}
	acroFormDict, err := ctx.DereferenceDict(acroFormObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference AcroForm: %w", err)
	}
	if acroFormDict == nil {
		return nil, errors.New("document has no AcroForm dictionary")
	}

	var terminals []terminalField
	if fieldsObj, found := acroFormDict.Find("Fields"); found {
		if fieldsArray, err := ctx.DereferenceArray(fieldsObj); err == nil {
			for _, fieldRef := range fieldsArray {
				collectTerminalFields(ctx, fieldRef, "", 0, &terminals)
			}
		}
	}

	matcher := newNameMatcher(mapping)
	stats := &ApplyStats{Total: len(terminals)}
	flat := make(types.Array, 0, len(terminals))
	for _, t := range terminals {
		flat = append(flat, t.ref)
		label, ok := matcher.lookup(t.name)
		if !ok {
			stats.Skipped++
			continue
		}
		t.dict["T"] = types.StringLiteral(label)
		delete(t.dict, "Parent")
		stats.Renamed++
	}
	acroFormDict["Fields"] = flat

	out, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	if err := api.WriteContext(ctx, out); err != nil {
		return nil, fmt.Errorf("failed to write relabeled PDF: %w", err)
	}
	return stats, nil
}

type terminalField struct {
	name string
	dict types.Dict
	ref  types.Object
}

// collectTerminalFields descends the field tree gathering terminal
// nodes with their fully qualified dotted names. Kids without their own
// T entry are widget annotations and keep the parent name.
func collectTerminalFields(ctx *model.Context, obj types.Object, parentName string, depth int, out *[]terminalField) {
	if depth > 50 {
		return
	}
	fieldDict, err := ctx.DereferenceDict(obj)
	if err != nil || fieldDict == nil {
		return
	}

	name := parentName
	if nameObj, found := fieldDict.Find("T"); found {
		if own, err := ctx.DereferenceStringOrHexLiteral(nameObj, model.V10, nil); err == nil && own != "" {
			if name != "" {
				name = name + "." + own
			} else {
				name = own
			}
		}
	}

	if kidsObj, found := fieldDict.Find("Kids"); found {
		if kidsArray, err := ctx.DereferenceArray(kidsObj); err == nil {
			for _, kid := range kidsArray {
				collectTerminalFields(ctx, kid, name, depth+1, out)
			}
			return
		}
	}

	*out = append(*out, terminalField{name: name, dict: fieldDict, ref: obj})
}

// nameMatcher resolves extracted field names back to mapping entries.
type nameMatcher struct {
	exact map[string]string
	keys  []string
}

func newNameMatcher(mapping map[string]string) *nameMatcher {
	m := &nameMatcher{exact: make(map[string]string, len(mapping))}
	for name, label := range mapping {
		if label == "" {
			continue
		}
		m.exact[normalizeFieldName(name)] = label
	}
	m.keys = make([]string, 0, len(m.exact))
	for k := range m.exact {
		m.keys = append(m.keys, k)
	}
	sort.Strings(m.keys)
	return m
}

// lookup finds the label for a stored field name, first exactly, then
// by the closest fuzzy match above minFuzzyRatio.
func (m *nameMatcher) lookup(name string) (string, bool) {
	key := normalizeFieldName(name)
	if label, ok := m.exact[key]; ok {
		return label, true
	}
	bestScore := 0
	bestLabel := ""
	for _, k := range m.keys {
		if score := matchRatio(key, k); score > bestScore {
			bestScore = score
			bestLabel = m.exact[k]
		}
	}
	if bestScore >= minFuzzyRatio {
		return bestLabel, true
	}
	return "", false
}

func normalizeFieldName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// matchRatio scores the similarity of two names from 0 to 100 using
// Levenshtein distance over the longer length.
func matchRatio(a, b string) int {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	dist := levenshtein(a, b)
	longer := max(len([]rune(a)), len([]rune(b)))
	return int(math.Round(100 * (1 - float64(dist)/float64(longer))))
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
