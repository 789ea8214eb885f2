package utils

import (
	"strings"
	"unicode"
)

// CountWords counts words in markdown, ignoring fenced code blocks and
// markup characters.
func CountWords(markdown string) int {
	text := stripCodeFences(markdown)

	count := 0
	for _, field := range strings.FieldsFunc(text, unicode.IsSpace) {
		if strings.IndexFunc(field, isWordRune) >= 0 {
			count++
		}
	}
	return count
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func stripCodeFences(text string) string {
	for {
		start := strings.Index(text, "```")
		if start == -1 {
			return text
		}
		end := strings.Index(text[start+3:], "```")
		if end == -1 {
			return text
		}
		text = text[:start] + " " + text[start+3+end+3:]
	}
}
