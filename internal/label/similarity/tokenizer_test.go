package similarity

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tok := NewLabelTokenizer()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "plain context",
			text: "Name of Wage Earner",
			want: []string{"name", "wage", "earner"},
		},
		{
			name: "snake label",
			text: "wage_earner_name",
			want: []string{"wage", "earner", "name"},
		},
		{
			name: "digits survive",
			text: "Date of marriage 2",
			want: []string{"date", "marriage", "2"},
		},
		{
			name: "stop words removed",
			text: "Please enter the name of your spouse",
			want: []string{"name", "spouse"},
		},
		{
			name: "yes and no are kept",
			text: "Yes or No",
			want: []string{"yes", "no"},
		},
		{
			name: "synonyms folded",
			text: "Telephone Num",
			want: []string{"phone", "number"},
		},
		{
			name: "fullwidth folded",
			text: "Ｎａｍｅ",
			want: []string{"name"},
		},
		{
			name: "single letters dropped",
			text: "P 1 b Name",
			want: []string{"1", "name"},
		},
		{
			name: "empty",
			text: "",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tok.Tokenize(tt.text)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestEmbedDeterministic(t *testing.T) {
	e := NewEmbedder(DefaultEmbeddingDim)
	tokens := []string{"wage", "earner", "name"}

	a := e.Embed(tokens)
	b := e.Embed(tokens)
	if !reflect.DeepEqual(a, b) {
		t.Error("Embed() produced different vectors for identical input")
	}

	if got := Cosine(a, b); got < 0.999 {
		t.Errorf("Cosine(v, v) = %v, want ~1", got)
	}
}

func TestEmbedOrderInsensitive(t *testing.T) {
	e := NewEmbedder(DefaultEmbeddingDim)
	a := e.Embed([]string{"hearing", "date"})
	b := e.Embed([]string{"date", "hearing"})
	if !reflect.DeepEqual(a, b) {
		t.Error("bag-of-words embedding should ignore token order")
	}
}

func TestEmbedEmpty(t *testing.T) {
	e := NewEmbedder(DefaultEmbeddingDim)
	vec := e.Embed(nil)
	for i, v := range vec {
		if v != 0 {
			t.Fatalf("Embed(nil)[%d] = %v, want 0", i, v)
		}
	}
	if got := Cosine(vec, e.Embed([]string{"name"})); got != 0 {
		t.Errorf("Cosine(zero, v) = %v, want 0", got)
	}
}

func BenchmarkTokenize(b *testing.B) {
	tok := NewLabelTokenizer()
	for i := 0; i < b.N; i++ {
		tok.Tokenize("Enter the date of the wage earner's first marriage")
	}
}
