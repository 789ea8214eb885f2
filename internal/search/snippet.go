package search

import (
	"strings"
)

// SnippetWidth is the number of characters shown around a match
const SnippetWidth = 120

const ellipsis = "…"

// Snippet cuts a window of width characters centred on the first
// case-insensitive occurrence of q in text. Without a match it returns the
// first width characters.
func Snippet(text, q string, width int) string {
	runes := []rune(text)
	needle := []rune(strings.ToLower(q))
	i := indexRunes([]rune(strings.ToLower(text)), needle)

	if i < 0 || len(needle) == 0 {
		end := min(width, len(runes))
		out := flatten(string(runes[:end]))
		if end < len(runes) {
			out += ellipsis
		}
		return out
	}

	start := max(0, i-width/2)
	end := min(len(runes), i+len(needle)+width/2)

	out := flatten(string(runes[start:end]))
	if start > 0 {
		out = ellipsis + out
	}
	if end < len(runes) {
		out += ellipsis
	}
	return out
}

// containsFold reports whether q occurs in text, ignoring case
func containsFold(text, q string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(q))
}

func flatten(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}

// indexRunes returns the rune offset of needle in haystack, or -1
func indexRunes(haystack, needle []rune) int {
	if len(needle) == 0 {
		return 0
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j, r := range needle {
			if haystack[i+j] != r {
				continue outer
			}
		}
		return i
	}
	return -1
}
