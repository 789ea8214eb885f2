package search

import (
	"strings"
	"testing"
)

func TestSnippet(t *testing.T) {
	long := strings.Repeat("a", 200) + "NEEDLE" + strings.Repeat("b", 200)

	tests := []struct {
		name  string
		text  string
		q     string
		width int
		want  string
	}{
		{
			name:  "short text with match",
			text:  "Expense policy\nfor travel",
			q:     "policy",
			width: 120,
			want:  "Expense policy for travel",
		},
		{
			name:  "no match returns prefix",
			text:  "abcdefghij",
			q:     "zzz",
			width: 4,
			want:  "abcd…",
		},
		{
			name:  "no match on short text",
			text:  "abc",
			q:     "zzz",
			width: 120,
			want:  "abc",
		},
		{
			name:  "centred with ellipsis on both sides",
			text:  long,
			q:     "needle",
			width: 10,
			want:  "…aaaaaNEEDLEbbbbb…",
		},
		{
			name:  "match at start has no leading ellipsis",
			text:  "Onboarding checklist for new hires",
			q:     "ONBOARD",
			width: 10,
			want:  "Onboarding c…",
		},
		{
			name:  "multibyte text",
			text:  "Café menu: crème brûlée",
			q:     "CRÈME",
			width: 4,
			want:  "…: crème b…",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Snippet(tt.text, tt.q, tt.width); got != tt.want {
				t.Errorf("Snippet() = %q, want %q", got, tt.want)
			}
		})
	}
}
