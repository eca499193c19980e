package resolve

import "testing"

func TestDetectCue(t *testing.T) {
	tests := []struct {
		name    string
		context string
		fired   bool
		base    string
		index   int
	}{
		{
			name:    "section heading with integer",
			context: "PREVIOUS MARRIAGE 2 WHEN",
			fired:   true,
			base:    "previous marriage date",
			index:   2,
		},
		{
			name:    "ordinal word",
			context: "Second Child Name",
			fired:   true,
			base:    "child name",
			index:   2,
		},
		{
			name:    "ordinal suffix",
			context: "2nd Marriage Date",
			fired:   true,
			base:    "marriage date",
			index:   2,
		},
		{
			name:    "number marker word absorbed",
			context: "Dependent number 3 name",
			fired:   true,
			base:    "dependent name",
			index:   3,
		},
		{
			name:    "year is not an occurrence",
			context: "Tax year 2024 income",
			fired:   false,
		},
		{
			name:    "plain context",
			context: "Name of spouse",
			fired:   false,
		},
		{
			name:    "bare integer has no concept",
			context: "2",
			fired:   false,
		},
		{
			name:    "empty",
			context: "",
			fired:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cue := DetectCue(tt.context)
			if cue.Fired != tt.fired {
				t.Fatalf("Fired = %v, want %v", cue.Fired, tt.fired)
			}
			if !tt.fired {
				return
			}
			if cue.Base != tt.base {
				t.Errorf("Base = %q, want %q", cue.Base, tt.base)
			}
			if cue.Index != tt.index {
				t.Errorf("Index = %d, want %d", cue.Index, tt.index)
			}
		})
	}
}
