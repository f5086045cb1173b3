package feature

import (
	"strings"
	"unicode"
)

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

// Tokenize splits s into word tokens of at least two word characters.
// Word characters are letters, digits and underscore. The input is expected
// to be lower-cased already.
func Tokenize(s string) []string {
	var tokens []string
	start := -1
	runes := 0
	flush := func(end int) {
		if start >= 0 && runes >= 2 {
			tokens = append(tokens, s[start:end])
		}
		start, runes = -1, 0
	}
	for i, r := range s {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			runes++
			continue
		}
		flush(i)
	}
	flush(len(s))
	return tokens
}

// Normalize applies the title normalization shared by training and serving.
func Normalize(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
