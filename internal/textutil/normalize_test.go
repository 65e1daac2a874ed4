package textutil_test

import (
	"testing"

	"crate/internal/textutil"
)

func TestNormalizeForComparison(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "ITHEMBA", "ithemba"},
		{"strips punctuation", "Ithemba (Official Mix!)", "ithemba official mix"},
		{"collapses whitespace", "  Calvin   Fallo  ", "calvin fallo"},
		{"folds diacritics", "Tiësto – Adagio", "tiesto adagio"},
		{"keeps digits", "Mix Vol. 2", "mix vol 2"},
		{"empty", "", ""},
		{"only punctuation", "!!! --- ...", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := textutil.NormalizeForComparison(tc.input); got != tc.want {
				t.Fatalf("NormalizeForComparison(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"Calvin Fallo - Ithemba.mp3", "Calvin Fallo - Ithemba.mp3"},
		{"a/b\\c:d.mp3", "a-b-c-d.mp3"},
		{"what?.mp3", "what.mp3"},
		{"  spaced  ", "spaced"},
	}
	for _, tc := range cases {
		if got := textutil.SanitizeFileName(tc.input); got != tc.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := textutil.SanitizeToken("Calvin Fallo!"); got != "calvin_fallo" {
		t.Fatalf("SanitizeToken = %q", got)
	}
	if got := textutil.SanitizeToken(""); got != "unknown" {
		t.Fatalf("SanitizeToken empty = %q", got)
	}
}
