package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Demo Show", "Demo Show"},
		{"A/B: C", "A-B- C"},
		{`What? "Quotes" <here>`, "What Quotes here"},
		{"  padded  ", "padded"},
		{"a\\b*c", "a-b-c"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeFileName(tt.in); got != tt.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizePathSegment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Demo Show S01E01", "Demo-Show-S01E01"},
		{"A/B: C", "A-B--C"},
		{"  spaced   out  ", "spaced-out"},
		{"-_edges_-", "edges"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizePathSegment(tt.in); got != tt.want {
			t.Errorf("SanitizePathSegment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
