package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// diacriticFolder decomposes accented characters and strips the combining
// marks so "Tiësto" and "Tiesto" normalize identically.
var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldDiacritics maps accented characters to their ASCII base forms.
// Input that fails to transform is returned unchanged.
func FoldDiacritics(value string) string {
	folded, _, err := transform.String(diacriticFolder, value)
	if err != nil {
		return value
	}
	return folded
}

// NormalizeForComparison reduces a tag string to its comparable core:
// diacritics folded, lowercased, everything that is not a letter or digit
// replaced by a space, runs of whitespace collapsed to single spaces.
// Punctuation and casing differences never count against similarity.
func NormalizeForComparison(value string) string {
	value = strings.ToLower(FoldDiacritics(value))
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
