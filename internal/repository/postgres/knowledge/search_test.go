package knowledge

import "testing"

func TestLikePattern(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"onboarding", "%onboarding%"},
		{"100%", `%100\%%`},
		{"snake_case", `%snake\_case%`},
		{`C:\path`, `%C:\\path%`},
	}

	for _, tt := range tests {
		if got := likePattern(tt.in); got != tt.want {
			t.Errorf("likePattern(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
