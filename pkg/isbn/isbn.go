// Package isbn validates ISBN-10/ISBN-13 strings and extracts candidate
// ISBNs from free text such as book descriptions.
package isbn

import (
	"regexp"
	"strings"
)

var (
	separators = regexp.MustCompile(`[-\s]`)
	isbn10Form = regexp.MustCompile(`^\d{9}[\dX]$`)
	isbn13Form = regexp.MustCompile(`^97[89]\d{10}$`)

	// Loose patterns for scanning prose; every hit is checksum-validated
	// before being reported.
	isbn10Scan = regexp.MustCompile(`(?i)(?:ISBN(?:-10)?:?\s*)?(\d{1,5}[-\s]?\d{1,7}[-\s]?\d{1,7}[-\s]?[\dXx])`)
	isbn13Scan = regexp.MustCompile(`(?i)(?:ISBN(?:-13)?:?\s*)?(97[89][-\s]?\d{1,5}[-\s]?\d{1,7}[-\s]?\d{1,7}[-\s]?\d)`)
)

// Normalize strips separators and upper-cases the check character.
func Normalize(s string) string {
	return strings.ToUpper(separators.ReplaceAllString(s, ""))
}

// ValidateISBN10 reports whether s is a checksum-valid ISBN-10.
func ValidateISBN10(s string) bool {
	s = Normalize(s)
	if !isbn10Form.MatchString(s) {
		return false
	}
	sum := 0
	for i, c := range s {
		d := 10 // 'X'
		if c != 'X' {
			d = int(c - '0')
		}
		sum += (10 - i) * d
	}
	return sum%11 == 0
}

// ValidateISBN13 reports whether s is a checksum-valid ISBN-13.
func ValidateISBN13(s string) bool {
	s = Normalize(s)
	if !isbn13Form.MatchString(s) {
		return false
	}
	sum := 0
	for i := 0; i < 12; i++ {
		d := int(s[i] - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	check := (10 - sum%10) % 10
	return check == int(s[12]-'0')
}

// Validate dispatches on normalized length.
func Validate(s string) bool {
	switch len(Normalize(s)) {
	case 10:
		return ValidateISBN10(s)
	case 13:
		return ValidateISBN13(s)
	}
	return false
}

// ExtractFromText scans text for ISBNs and returns the checksum-valid ones,
// normalized, de-duplicated, 13-digit hits first, in order of appearance.
func ExtractFromText(text string) []string {
	if text == "" {
		return nil
	}
	var found []string
	seen := make(map[string]bool)

	for _, m := range isbn13Scan.FindAllStringSubmatch(text, -1) {
		v := Normalize(m[1])
		if ValidateISBN13(v) && !seen[v] {
			seen[v] = true
			found = append(found, v)
		}
	}
	for _, m := range isbn10Scan.FindAllStringSubmatch(text, -1) {
		v := Normalize(m[1])
		if ValidateISBN10(v) && !seen[v] {
			seen[v] = true
			found = append(found, v)
		}
	}
	return found
}
