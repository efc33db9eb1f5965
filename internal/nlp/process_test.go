package nlp

import (
	"strings"
	"testing"
)

func TestProcess(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"scenario drops stopword", "नेपाल को सुन्दरता", "नेपाल सुन्दरता"},
		{"stems after normalising", "केटाहरूमा।", "केटा"},
		{"single pronoun falls back to raw", "म", "म"},
		{"all stopwords fall back to raw", "छ र पनि", "छ र पनि"},
		{"punctuation only falls back to raw", "।।", "।।"},
		{"whitespace only falls back to raw", "   ", "   "},
		{"empty stays empty", "", ""},
		{"latin", "Kathmandu, Nepal!", "Kathmandu Nepal"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Process(tc.in); got != tc.want {
				t.Errorf("Process(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestProcess_NeverEmptyForNonEmptyInput(t *testing.T) {
	inputs := []string{
		"म", "को", " ", "\u200B", "\uFEFF", "?", "\u0964", "छ र पनि", "a", "नेपाल",
		"\u200B\u200C\u200D", "\u201C\u201D",
	}
	for _, in := range inputs {
		if got := Process(in); len(got) == 0 {
			t.Errorf("Process(%q) returned empty string", in)
		}
	}
}

func TestProcess_ExcludesStopwordFromTerm(t *testing.T) {
	term := Process("नेपाल को सुन्दरता")
	for _, tok := range strings.Fields(term) {
		if tok == "को" {
			t.Fatalf("term %q still contains stopword", term)
		}
	}
}
