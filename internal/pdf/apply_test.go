package pdf

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"flaw", "lawn", 2},
	}

	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestMatchRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"marriage date", "marriage date", 100},
		{"", "marriage date", 0},
		{"kitten", "sitting", 57},
		{"Petitioner Home Adress", "Petitioner Home Address", 96},
	}

	for _, tt := range tests {
		if got := matchRatio(tt.a, tt.b); got != tt.want {
			t.Errorf("matchRatio(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestNormalizeFieldName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Field A  1", "Field A 1"},
		{"  Name \t of  Spouse ", "Name of Spouse"},
		{"plain", "plain"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := normalizeFieldName(tt.in); got != tt.want {
			t.Errorf("normalizeFieldName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNameMatcherLookup(t *testing.T) {
	matcher := newNameMatcher(map[string]string{
		"Petitioner Home Address": "petitioner_home_address",
		"Field A  1":              "field_a_one",
		"Ignored":                 "",
	})

	tests := []struct {
		name      string
		fieldName string
		wantLabel string
		wantOK    bool
	}{
		{
			name:      "exact match",
			fieldName: "Petitioner Home Address",
			wantLabel: "petitioner_home_address",
			wantOK:    true,
		},
		{
			name:      "whitespace normalized match",
			fieldName: "Field A \t 1",
			wantLabel: "field_a_one",
			wantOK:    true,
		},
		{
			name:      "fuzzy match above threshold",
			fieldName: "Petitioner Home Adress",
			wantLabel: "petitioner_home_address",
			wantOK:    true,
		},
		{
			name:      "no match below threshold",
			fieldName: "Spouse Name",
			wantOK:    false,
		},
		{
			name:      "empty mapping value is not a match",
			fieldName: "Ignored",
			wantOK:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, ok := matcher.lookup(tt.fieldName)
			if ok != tt.wantOK {
				t.Fatalf("lookup(%q) ok = %v, want %v", tt.fieldName, ok, tt.wantOK)
			}
			if ok && label != tt.wantLabel {
				t.Errorf("lookup(%q) = %q, want %q", tt.fieldName, label, tt.wantLabel)
			}
		})
	}
}

func TestApplyLabelsFile(t *testing.T) {
	testPath := filepath.Join("testdata", "sample_form.pdf")
	if _, err := os.Stat(testPath); os.IsNotExist(err) {
		t.Skipf("Test file %s not found", testPath)
	}

	extractor := NewExtractor(false)
	doc, err := extractor.ExtractFile(testPath)
	if err != nil {
		t.Fatalf("ExtractFile failed: %v", err)
	}
	fields := doc.AllFields()
	if len(fields) == 0 {
		t.Skip("sample form has no fields")
	}

	mapping := map[string]string{fields[0].Name: "applied_test_label"}
	outPath := RefinedPath(t.TempDir(), testPath)

	stats, err := ApplyLabels(testPath, outPath, mapping)
	if err != nil {
		t.Fatalf("ApplyLabels failed: %v", err)
	}
	if stats.Renamed != 1 {
		t.Errorf("expected 1 renamed field, got %d", stats.Renamed)
	}
	if stats.Total != len(fields) {
		t.Errorf("expected %d total fields, got %d", len(fields), stats.Total)
	}

	verify, err := VerifyLabels(outPath, []string{"applied_test_label"})
	if err != nil {
		t.Fatalf("VerifyLabels failed: %v", err)
	}
	if !verify.Verified {
		t.Errorf("expected verified output, missing=%v duplicated=%v", verify.Missing, verify.Duplicated)
	}
}
