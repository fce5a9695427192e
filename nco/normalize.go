package nco

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText performs Unicode normalization and trims whitespace.
// Case is preserved so embeddings see the text as typed.
func NormalizeText(text string) string {
	normed := norm.NFKC.String(text)
	normed = strings.TrimSpace(normed)
	// Collapse internal control characters except newlines.
	normed = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, normed)
	return normed
}

// NormalizeAll normalizes a slice of strings into a new slice.
func NormalizeAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = NormalizeText(t)
	}
	return out
}

// CoerceLabel turns a raw cell into a usable label. Invalid UTF-8 sequences
// are replaced and blank values become "".
func CoerceLabel(raw string) string {
	if !utf8.ValidString(raw) {
		raw = strings.ToValidUTF8(raw, string(utf8.RuneError))
	}
	return strings.TrimSpace(raw)
}
