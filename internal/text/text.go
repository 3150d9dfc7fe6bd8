// Package text provides string case and slug helpers shared across the
// query subsystem. All functions are pure.
package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Slug normalizes a slug-like string: NFC form, trimmed, lowercased.
func Slug(value string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(value)))
}

// Snake converts a string to lower_snake_case.
//
// Separators are inserted at camelCase and StudlyCaps boundaries (including
// acronym runs), non-alphanumeric runs collapse to a single separator, and
// leading/trailing separators are trimmed.
func Snake(value string, sep ...rune) string {
	separator := '_'
	if len(sep) > 0 {
		separator = sep[0]
	}

	v := strings.TrimSpace(value)
	if v == "" {
		return ""
	}

	var b strings.Builder
	runes := []rune(v)
	pendingSep := false
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if unicode.IsUpper(r) && b.Len() > 0 && !pendingSep {
				prev := runes[i-1]
				// camelCase boundary, or end of an acronym run ("HTTPServer").
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteRune(separator)
				}
			}
			if pendingSep && b.Len() > 0 {
				b.WriteRune(separator)
			}
			pendingSep = false
			b.WriteRune(unicode.ToLower(r))
		default:
			pendingSep = true
		}
	}
	return b.String()
}

var monthNames = map[string]int{
	"jan": 1, "january": 1,
	"feb": 2, "february": 2,
	"mar": 3, "march": 3,
	"apr": 4, "april": 4,
	"may": 5,
	"jun": 6, "june": 6,
	"jul": 7, "july": 7,
	"aug": 8, "august": 8,
	"sep": 9, "sept": 9, "september": 9,
	"oct": 10, "october": 10,
	"nov": 11, "november": 11,
	"dec": 12, "december": 12,
}

// MonthNumber maps a month name or abbreviation to 1..12.
// Returns 0 when the name is not recognized.
func MonthNumber(name string) int {
	return monthNames[strings.ToLower(strings.TrimSpace(name))]
}
