package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"":                    "",
		"  Nebula: X  ":       "Nebula- X",
		`a/b\c*d?e"f<g>h|i`:   "a-b-c-defghi",
		"Pillars of Creation": "Pillars of Creation",
	}
	for in, want := range cases {
		if got := SanitizeFileName(in); got != want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeToken(t *testing.T) {
	cases := map[string]string{
		"":            "unknown",
		"!!!":         "unknown",
		"Nebula X":    "nebula_x",
		"M-31 Galaxy": "m-31_galaxy",
	}
	for in, want := range cases {
		if got := SanitizeToken(in); got != want {
			t.Fatalf("SanitizeToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSlug(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"The  Horsehead: Nebula", 0, "the_horsehead_nebula"},
		{"Andromeda Galaxy Rising", 10, "andromeda"},
		{"***", 5, "unknown"},
		{"", 3, "unknown"},
		{"?? x", 1, "x"},
	}
	for _, tc := range cases {
		if got := Slug(tc.in, tc.max); got != tc.want {
			t.Fatalf("Slug(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}
