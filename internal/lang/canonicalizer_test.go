package lang_test

import (
	"strings"
	"testing"

	"github.com/sprachpilot/parlo/internal/lang"
)

func newFrench(t *testing.T) *lang.Canonicalizer {
	t.Helper()
	return lang.NewCanonicalizer(lang.French())
}

func TestCanonicalize(t *testing.T) {
	t.Parallel()

	c := newFrench(t)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase and accents", "Écouter", "ecouter"},
		{"article stripped", "le livre", "livre"},
		{"partitive stripped", "de l'eau", "eau"},
		{"contraction splits and folds", "j'écoute", "ecouter"},
		{"conjugation folds to infinitive", "parle", "parler"},
		{"doubled token collapses", "je je je", "je"},
		{"punctuation dropped", "Bonjour, ça va ?", "bonjour ca va"},
		{"hyphen kept", "peut-être", "peut-etre"},
		{"whitespace only", "   \t ", ""},
		{"only articles", "le la les", ""},
		{"multi word", "Ouvrez le livre !", "ouvrir livre"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := c.Canonicalize(tt.in); got != tt.want {
				t.Errorf("Canonicalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCanonicalize_Idempotent(t *testing.T) {
	t.Parallel()

	c := newFrench(t)

	inputs := []string{
		"j'écoute", "Le livre", "je je je", "Bonjour, ça va ?",
		"Ouvrez le livre !", "parle", "", "de l'eau",
	}
	for _, in := range inputs {
		once := c.Canonicalize(in)
		twice := c.Canonicalize(once)
		if once != twice {
			t.Errorf("Canonicalize not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestCanonicalize_LemmaAndArticleEquivalences(t *testing.T) {
	t.Parallel()

	c := newFrench(t)

	// Pairs the scorer must treat as identical.
	pairs := [][2]string{
		{"je je je", "je"},
		{"le livre", "livre"},
		{"j'écoute", "écouter"},
		{"parle", "parler"},
	}
	for _, p := range pairs {
		if a, b := c.Canonicalize(p[0]), c.Canonicalize(p[1]); a != b {
			t.Errorf("Canonicalize(%q) = %q, Canonicalize(%q) = %q; want equal", p[0], a, p[1], b)
		}
	}
}

func TestTokens(t *testing.T) {
	t.Parallel()

	c := newFrench(t)

	got := c.Tokens("bonjour je voudrais")
	want := []string{"bonjour", "je", "voudrais"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("Tokens = %v, want %v", got, want)
	}

	if toks := c.Tokens("  "); len(toks) != 0 {
		t.Errorf("Tokens of whitespace = %v, want empty", toks)
	}
}
