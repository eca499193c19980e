package pdf

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// VerifyResult reports whether a relabeled document carries the
// expected labels exactly once each and kept its fields interactive.
type VerifyResult struct {
	Path           string         `json:"path"`
	TotalFields    int            `json:"total_fields"`
	ExpectedLabels int            `json:"expected_labels"`
	FoundLabels    int            `json:"found_labels"`
	Missing        []string       `json:"missing,omitempty"`
	Duplicated     map[string]int `json:"duplicated,omitempty"`
	WithType       int            `json:"fields_with_type"`
	WithFlags      int            `json:"fields_with_flags"`
	WithValue      int            `json:"fields_with_value"`
	WithDefault    int            `json:"fields_with_default"`
	WithMaxLen     int            `json:"fields_with_maxlen"`
	Verified       bool           `json:"verified"`
}

// VerifyLabels reads a document and checks that every expected label is
// present exactly once among its terminal fields. The interactive
// property counts confirm relabeling did not strip the form.
func VerifyLabels(path string, expected []string) (*VerifyResult, error) {
	file, err := os.Open(path)
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

	var terminals []terminalField
	if acroFormObj, found := rootDict.Find("AcroForm"); found {
		if acroFormDict, err := ctx.DereferenceDict(acroFormObj); err == nil && acroFormDict != nil {
			if fieldsObj, found := acroFormDict.Find("Fields"); found {
				if fieldsArray, err := ctx.DereferenceArray(fieldsObj); err == nil {
					for _, fieldRef := range fieldsArray {
						collectTerminalFields(ctx, fieldRef, "", 0, &terminals)
					}
				}
			}
		}
	}

	result := &VerifyResult{
		Path:           path,
		TotalFields:    len(terminals),
		ExpectedLabels: len(expected),
	}

	counts := make(map[string]int, len(terminals))
	for _, t := range terminals {
		counts[t.name]++
		if _, found := t.dict.Find("FT"); found {
			result.WithType++
		}
		if _, found := t.dict.Find("Ff"); found {
			result.WithFlags++
		}
		if _, found := t.dict.Find("V"); found {
			result.WithValue++
		}
		if _, found := t.dict.Find("DV"); found {
			result.WithDefault++
		}
		if _, found := t.dict.Find("MaxLen"); found {
			result.WithMaxLen++
		}
	}

	for _, label := range expected {
		switch counts[label] {
		case 0:
			result.Missing = append(result.Missing, label)
		case 1:
			result.FoundLabels++
		default:
			if result.Duplicated == nil {
				result.Duplicated = map[string]int{}
			}
			result.Duplicated[label] = counts[label]
			result.FoundLabels++
		}
	}

	result.Verified = len(result.Missing) == 0 && len(result.Duplicated) == 0
	return result, nil
}
