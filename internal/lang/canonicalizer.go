// Package lang implements text canonicalization for pronunciation comparison.
//
// Raw lesson targets and recognizer transcripts differ in ways that have
// nothing to do with pronunciation quality: casing, accents, punctuation,
// elided articles ("l'école" vs "école"), conjugated verb forms where the
// lesson stores the infinitive, and recognizer artifacts such as doubled
// words. The Canonicalizer reduces both sides to a comparable token sequence
// before any similarity scoring happens.
//
// Canonicalization is deterministic and order-sensitive:
//
//  1. Lowercase, Unicode-decompose, strip combining marks.
//  2. Replace apostrophes and elision marks with spaces.
//  3. Drop every character outside [a-z0-9 -]; collapse whitespace.
//  4. Drop article/determiner tokens from the language pack.
//  5. Fold each token through the pack's lemma table.
//  6. Collapse immediately-adjacent duplicate tokens.
//
// An empty result means the input is unscorable; callers must check for it
// before scoring.
package lang

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Canonicalizer normalizes raw text into comparable token sequences using the
// article set and lemma table of a [Pack]. All methods are safe for concurrent
// use — the Canonicalizer is read-only after construction.
type Canonicalizer struct {
	stopTokens map[string]struct{}
	lemmas     map[string]string
}

// NewCanonicalizer builds a Canonicalizer from the given language pack.
// The pack's articles and lemma keys/values are themselves passed through the
// character pipeline, so pack authors may write them with their natural
// accents ("écoute: écouter").
func NewCanonicalizer(p *Pack) *Canonicalizer {
	c := &Canonicalizer{
		stopTokens: make(map[string]struct{}, len(p.Articles)),
		lemmas:     make(map[string]string, len(p.Lemmas)),
	}
	for _, a := range p.Articles {
		if t := foldChars(a); t != "" {
			c.stopTokens[t] = struct{}{}
		}
	}
	for from, to := range p.Lemmas {
		f, t := foldChars(from), foldChars(to)
		if f != "" && t != "" {
			c.lemmas[f] = t
		}
	}
	return c
}

// Canonicalize reduces raw to its canonical, space-joined token form.
// Returns the empty string when nothing survives; such input must be treated
// as unscorable by the caller.
func (c *Canonicalizer) Canonicalize(raw string) string {
	return strings.Join(c.Tokens(raw), " ")
}

// Tokens is like [Canonicalizer.Canonicalize] but returns the individual
// tokens. Useful for per-token scoring of single-word targets.
func (c *Canonicalizer) Tokens(raw string) []string {
	var out []string
	for _, tok := range strings.Fields(foldChars(raw)) {
		if _, stop := c.stopTokens[tok]; stop {
			continue
		}
		if lemma, ok := c.lemmas[tok]; ok {
			tok = lemma
		}
		// Recognizers occasionally emit a word twice in a row.
		if len(out) > 0 && out[len(out)-1] == tok {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// foldChars applies the character-level pipeline: lowercasing, diacritic
// stripping, apostrophe splitting, and removal of everything outside
// [a-z0-9 -]. Token-level steps happen afterwards in Tokens.
func foldChars(s string) string {
	s = strings.ToLower(s)
	s = stripMarks(s)

	var b strings.Builder
	b.Grow(len(s))
	space := true // swallow leading whitespace
	for _, r := range s {
		switch {
		case r == '\'' || r == '’' || r == 'ʼ' || r == '`':
			// Elision marks split contractions into separate tokens.
			if !space {
				b.WriteByte(' ')
				space = true
			}
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
			space = false
		case unicode.IsSpace(r):
			if !space {
				b.WriteByte(' ')
				space = true
			}
		default:
			// Punctuation and anything non-ASCII is dropped outright.
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// stripMarks decomposes s to NFD and removes combining marks, so "écouter"
// and "ecouter" compare equal character-wise.
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
