package lang

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Pack holds the per-language canonicalization data: the article/determiner
// set that is stripped from token sequences and the verb lemma table that
// folds conjugated forms back to the infinitive used in lesson data.
//
// Packs are data, not code. A lesson for a new language ships a YAML pack
// file instead of a code change.
//
// Example:
//
//	language: fr
//	articles: [le, la, les, un, une]
//	lemmas:
//	  écoute: écouter
//	  parle: parler
type Pack struct {
	// Language is the BCP-47 primary language tag this pack covers (e.g. "fr").
	Language string `yaml:"language"`

	// Articles lists tokens dropped during canonicalization: articles,
	// partitives, and single-letter elision remnants left behind when
	// contractions are split ("l'école" → "l école" → "école").
	Articles []string `yaml:"articles"`

	// Lemmas maps inflected forms to the base form stored in lesson data.
	// Entries are compared after diacritic stripping, so keys may be written
	// with their natural accents.
	Lemmas map[string]string `yaml:"lemmas"`
}

// French returns the built-in pack for French classroom vocabulary. It covers
// the determiners and the conjugations of the verbs that appear in the
// standard Vor-A1 lesson set; lesson authors extend it via a pack file when
// their material introduces new verbs.
func French() *Pack {
	return &Pack{
		Language: "fr",
		Articles: []string{
			"le", "la", "les", "un", "une", "des", "du", "de", "au", "aux",
			// Elision remnants after apostrophe splitting.
			"l", "d", "j", "c", "s", "n", "m", "t", "qu",
		},
		Lemmas: map[string]string{
			"écoute": "écouter", "écoutes": "écouter", "écoutent": "écouter",
			"écoutez": "écouter", "écoutons": "écouter",
			"parle": "parler", "parles": "parler", "parlent": "parler",
			"parlez": "parler", "parlons": "parler",
			"regarde": "regarder", "regardes": "regarder", "regardent": "regarder",
			"regardez": "regarder", "regardons": "regarder",
			"répète": "répéter", "répètes": "répéter", "répètent": "répéter",
			"répétez": "répéter",
			"lève":    "lever", "lèves": "lever", "lèvent": "lever", "levez": "lever",
			"ouvre": "ouvrir", "ouvres": "ouvrir", "ouvrent": "ouvrir", "ouvrez": "ouvrir",
			"ferme": "fermer", "fermes": "fermer", "ferment": "fermer", "fermez": "fermer",
			"lis": "lire", "lit": "lire", "lisez": "lire",
			"écris": "écrire", "écrit": "écrire", "écrivez": "écrire",
		},
	}
}

// LoadPack reads and validates a language pack YAML file from disk.
func LoadPack(path string) (*Pack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lang: open pack %q: %w", path, err)
	}
	defer f.Close()

	p, err := LoadPackFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("lang: parse pack %q: %w", path, err)
	}
	return p, nil
}

// LoadPackFromReader decodes a language pack from r and validates it.
// Useful in tests where packs are constructed from string literals.
func LoadPackFromReader(r io.Reader) (*Pack, error) {
	p := &Pack{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown keys to catch typos
	if err := dec.Decode(p); err != nil {
		return nil, fmt.Errorf("lang: decode pack yaml: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the pack for internal consistency. Lemma folding must be
// idempotent: a lemma value may not itself be a key mapping to a different
// form, otherwise canonicalization would not be stable under repetition.
func (p *Pack) Validate() error {
	if p.Language == "" {
		return fmt.Errorf("lang: pack language is required")
	}
	for from, to := range p.Lemmas {
		if foldChars(to) == "" {
			return fmt.Errorf("lang: lemma %q maps to an empty canonical form", from)
		}
		if next, ok := p.Lemmas[to]; ok && foldChars(next) != foldChars(to) {
			return fmt.Errorf("lang: lemma chain %q → %q → %q is not idempotent", from, to, next)
		}
	}
	return nil
}
