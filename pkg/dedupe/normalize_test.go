package dedupe

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"", ""},
		{"The Hobbit!!!", "the hobbit"},
		{"the   hobbit", "the hobbit"},
		{"  Dune ", "dune"},
		{"Dune", "dune"},
		{"L'Étranger", "letranger"},
		{"War & Peace", "war peace"},
		{"Fahrenheit 451", "fahrenheit 451"},
		{"A\tTale\nof Two Cities", "a tale of two cities"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		got := Normalize(tt.input)
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeCaseInsensitive(t *testing.T) {
	inputs := []string{"The Hobbit", "dune messiah", "Foundation and Empire", "isbn 978"}
	for _, s := range inputs {
		if Normalize(s) != Normalize(strings.ToUpper(s)) {
			t.Errorf("Normalize(%q) != Normalize(upper)", s)
		}
	}
}

func TestNormalizeAllSorts(t *testing.T) {
	got := normalizeAll([]string{"Terry Pratchett", "Neil Gaiman"})
	if got[0] != "neil gaiman" || got[1] != "terry pratchett" {
		t.Errorf("normalizeAll not sorted: %v", got)
	}
}
