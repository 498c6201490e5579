package align

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var foldCaser = cases.Fold()

// Normalize canonicalizes a word for comparison: Unicode NFKC form, case
// folded, punctuation and symbols stripped. Korean and other non-Latin
// scripts pass through unchanged apart from compatibility normalization.
func Normalize(word string) string {
	word = norm.NFKC.String(word)
	word = foldCaser.String(word)
	var b strings.Builder
	b.Grow(len(word))
	for _, r := range word {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// Tokenize splits text into comparison words on anything that is not a
// letter, digit, or underscore, normalizing each word.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	words := make([]string, 0, len(fields))
	for _, field := range fields {
		if word := Normalize(field); word != "" {
			words = append(words, word)
		}
	}
	return words
}
