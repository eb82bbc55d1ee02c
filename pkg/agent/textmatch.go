package agent

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer strips combining marks so "Olhão" folds to "Olhao".
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases and removes diacritics for comparison purposes.
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// FoldContains reports whether haystack contains needle, case- and
// diacritic-insensitively.
func FoldContains(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(Fold(haystack), Fold(needle))
}
