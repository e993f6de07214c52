package prompt

import (
	"strings"
	"unicode"
)

// SegmentWords splits poem text into display tokens on whitespace and
// punctuation, dropping empty tokens.
func SegmentWords(text string) []string {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
	if words == nil {
		return []string{}
	}
	return words
}
