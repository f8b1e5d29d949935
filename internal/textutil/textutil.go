// Package textutil provides text processing utilities for word segmentation.
package textutil

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	newlineRe    = regexp.MustCompile(`[\n\r]`)
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
)

// NormalizeWhitespaces replaces newlines and multiple whitespace with a single space.
func NormalizeWhitespaces(text string) string {
	text = newlineRe.ReplaceAllString(text, " ")
	return multiSpaceRe.ReplaceAllString(text, " ")
}

// Normalize composes text to NFC so that kana with voicing marks occupy a
// single symbol, the form the model is trained on.
func Normalize(text string) string {
	return norm.NFC.String(text)
}

// NormalizeLine is Normalize followed by NormalizeWhitespaces and trimming.
func NormalizeLine(text string) string {
	return strings.TrimSpace(NormalizeWhitespaces(Normalize(text)))
}

// SymbolCount returns the number of code points in text.
func SymbolCount(text string) int {
	return utf8.RuneCountInString(text)
}

// LastSymbols returns the trailing n code points of text.
func LastSymbols(text string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := len(text); i > 0; {
		_, size := utf8.DecodeLastRuneInString(text[:i])
		i -= size
		count++
		if count == n {
			return text[i:]
		}
	}
	return text
}

// SplitWords cuts text before every code point i with starts(i) true. The
// first word always begins at 0.
func SplitWords(text string, starts func(i int) bool) []string {
	var words []string
	begin := 0
	i := 0
	for pos := range text {
		if i > 0 && starts(i) {
			words = append(words, text[begin:pos])
			begin = pos
		}
		i++
	}
	if begin < len(text) {
		words = append(words, text[begin:])
	}
	return words
}
