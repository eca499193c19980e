package similarity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/a3tai/mcp-pdf-labeler/internal/label/corpus"
)

func buildCorpus(t *testing.T, labels ...string) *corpus.Corpus {
	t.Helper()
	c := corpus.New()
	for _, label := range labels {
		if err := c.Append(corpus.Entry{Label: label}); err != nil {
			t.Fatalf("Append(%q) error = %v", label, err)
		}
	}
	return c
}

func TestRankEmptyCorpus(t *testing.T) {
	idx := NewIndex(corpus.New())
	_, err := idx.Rank("Name of Wage Earner", 5)
	if !errors.Is(err, ErrEmptyCorpus) {
		t.Errorf("Rank() error = %v, want ErrEmptyCorpus", err)
	}
}

func TestRankBestMatchFirst(t *testing.T) {
	c := buildCorpus(t,
		"zip_code",
		"wage_earner_name",
		"spouse_name",
		"hearing_date",
	)
	idx := NewIndex(c)

	matches, err := idx.Rank("Name of Wage Earner", 4)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if len(matches) != 4 {
		t.Fatalf("Rank() returned %d matches, want 4", len(matches))
	}
	if matches[0].Label != "wage_earner_name" {
		t.Errorf("top match = %q, want wage_earner_name", matches[0].Label)
	}
}

func TestRankDeterministic(t *testing.T) {
	c := buildCorpus(t,
		"marriage_1_date",
		"marriage_2_date",
		"spouse_name",
		"wage_earner_name",
		"city",
		"state",
		"zip_code",
	)
	idx := NewIndex(c)

	first, err := idx.Rank("Date of marriage", 7)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	for run := 0; run < 5; run++ {
		again, err := idx.Rank("Date of marriage", 7)
		if err != nil {
			t.Fatalf("Rank() error = %v", err)
		}
		for i := range first {
			if again[i].Label != first[i].Label {
				t.Fatalf("run %d: position %d = %q, want %q", run, i, again[i].Label, first[i].Label)
			}
			if again[i].Score != first[i].Score {
				t.Fatalf("run %d: score for %q = %v, want %v", run, again[i].Label, again[i].Score, first[i].Score)
			}
		}
	}
}

func TestRankTieBreaksByInsertionOrder(t *testing.T) {
	// Identical token multisets score identically, lexically and in the
	// bag-of-words blend, so insertion order must decide.
	c := buildCorpus(t, "date_hearing", "hearing_date")
	idx := NewIndex(c)

	matches, err := idx.Rank("hearing date", 2)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if matches[0].Label != "date_hearing" {
		t.Errorf("top match = %q, want date_hearing (inserted first)", matches[0].Label)
	}
	if matches[0].Score != matches[1].Score {
		t.Errorf("scores differ (%v vs %v), expected exact tie", matches[0].Score, matches[1].Score)
	}
}

func TestRankZeroOverlapNeverOutranksOverlap(t *testing.T) {
	// zip_code is inserted first and shares no token with the query; it
	// must still rank below every label with at least one shared token.
	c := buildCorpus(t, "zip_code", "case_number", "spouse_name")
	idx := NewIndex(c)

	matches, err := idx.Rank("name of spouse", 3)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if matches[0].Label != "spouse_name" {
		t.Errorf("top match = %q, want spouse_name", matches[0].Label)
	}
	if matches[2].Label != "zip_code" && matches[1].Label != "zip_code" {
		t.Error("zip_code missing from results")
	}
	for i, m := range matches {
		if m.Label == "zip_code" && i == 0 {
			t.Error("zero-overlap label ranked first")
		}
	}
}

func TestRankEmptyContextFallsBackToInsertionOrder(t *testing.T) {
	c := buildCorpus(t, "city", "state", "zip_code")
	idx := NewIndex(c)

	matches, err := idx.Rank("", 3)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	want := []string{"city", "state", "zip_code"}
	for i := range want {
		if matches[i].Label != want[i] {
			t.Errorf("position %d = %q, want %q", i, matches[i].Label, want[i])
		}
	}
}

func TestRankTopKTruncation(t *testing.T) {
	labels := make([]string, 20)
	for i := range labels {
		labels[i] = fmt.Sprintf("label_%d_value", i)
	}
	c := buildCorpus(t, labels...)
	idx := NewIndex(c)

	matches, err := idx.Rank("value", 5)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if len(matches) != 5 {
		t.Errorf("Rank() returned %d matches, want 5", len(matches))
	}

	all, err := idx.Rank("value", 100)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if len(all) != 20 {
		t.Errorf("Rank() with large topK returned %d matches, want 20", len(all))
	}

	defaulted, err := idx.Rank("value", 0)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if len(defaulted) != DefaultTopK {
		t.Errorf("Rank() with topK=0 returned %d matches, want %d", len(defaulted), DefaultTopK)
	}
}

func TestRankSeesLabelsAppendedAfterIndexCreation(t *testing.T) {
	c := buildCorpus(t, "city")
	idx := NewIndex(c)

	if err := c.Append(corpus.Entry{Label: "spouse_name"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	matches, err := idx.Rank("spouse", 2)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if matches[0].Label != "spouse_name" {
		t.Errorf("top match = %q, want spouse_name", matches[0].Label)
	}
}

func BenchmarkRank(b *testing.B) {
	c := corpus.New()
	for i := 0; i < 200; i++ {
		label := fmt.Sprintf("section_%d_field_value", i)
		if err := c.Append(corpus.Entry{Label: label}); err != nil {
			b.Fatalf("Append() error = %v", err)
		}
	}
	idx := NewIndex(c)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := idx.Rank("Date of first marriage to wage earner", 8); err != nil {
			b.Fatal(err)
		}
	}
}
