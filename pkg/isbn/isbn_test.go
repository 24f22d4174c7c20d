package isbn

import "testing"

func TestValidateISBN10(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"054792822X", true},
		{"0-547-92822-X", true},
		{"043942089X", true},
		{"0439420890", false},
		{"0547928226", false},
		{"054792822", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidateISBN10(tt.input); got != tt.want {
			t.Errorf("ValidateISBN10(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestValidateISBN13(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"9780547928227", true},
		{"978-0-547-92822-7", true},
		{"9790547928227", false}, // 979 prefix requires its own check digit; this one is wrong
		{"9780547928228", false},
		{"978054792822", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidateISBN13(tt.input); got != tt.want {
			t.Errorf("ValidateISBN13(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestValidateDispatch(t *testing.T) {
	if !Validate("054792822X") || !Validate("9780547928227") {
		t.Error("valid ISBNs rejected")
	}
	if Validate("12345") || Validate("") {
		t.Error("junk accepted")
	}
}

func TestExtractFromText(t *testing.T) {
	text := `First edition. ISBN-13: 978-0-547-92822-7. Also available as
ISBN 043942089X (paperback). Call 555-1234-5678 for orders.`

	got := ExtractFromText(text)
	if len(got) != 2 {
		t.Fatalf("extracted %v, want 2 ISBNs", got)
	}
	if got[0] != "9780547928227" {
		t.Errorf("first = %q, want the ISBN-13", got[0])
	}
	if got[1] != "043942089X" {
		t.Errorf("second = %q, want the ISBN-10", got[1])
	}
}

func TestExtractFromTextDedupes(t *testing.T) {
	text := "ISBN 9780547928227 and again ISBN 9780547928227"
	if got := ExtractFromText(text); len(got) != 1 {
		t.Errorf("duplicate ISBN reported twice: %v", got)
	}
}

func TestExtractFromTextEmpty(t *testing.T) {
	if got := ExtractFromText(""); got != nil {
		t.Errorf("got %v from empty text", got)
	}
	if got := ExtractFromText("no numbers here"); got != nil {
		t.Errorf("got %v from prose", got)
	}
}

func TestNormalize(t *testing.T) {
	if Normalize("0-439-42089-x") != "043942089X" {
		t.Error("Normalize should strip separators and upper-case X")
	}
}
