package htmlutil

import (
	"regexp"
	"strings"
	"unicode"
)

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// CleanCell normalizes the text content of a scraped table cell:
// non-printable runes (the portal pads empty cells with &nbsp;) are
// dropped, inner whitespace runs are collapsed and the result is trimmed.
func CleanCell(s string) string {
	var out strings.Builder
	for _, c := range s {
		if unicode.IsPrint(c) {
			out.WriteRune(c)
		}
	}
	cleaned := innerWhitespace.ReplaceAllString(out.String(), " ")
	return strings.Trim(cleaned, " \t\n ")
}

// IsEmptyCell reports whether a scraped cell holds no real value.
// The portal emits literal non-breaking spaces for blank fields.
func IsEmptyCell(s string) bool {
	switch strings.TrimSpace(s) {
	case "", " ", "&#160;":
		return true
	}
	return false
}
