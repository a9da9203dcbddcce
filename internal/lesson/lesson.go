// Package lesson defines the static lesson document: the packs of vocabulary
// items and the closing sentence set a drill session runs over. A lesson is
// loaded once at startup and immutable afterwards.
package lesson

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sprachpilot/parlo/internal/lang"
)

// Item is one trainable unit: a word or phrase the learner must pronounce.
type Item struct {
	// ID uniquely identifies the item within the lesson.
	ID string `yaml:"id"`

	// TargetText is the phrase to pronounce, with accents preserved.
	TargetText string `yaml:"target"`

	// ImageRef is an opaque reference to a display image. Optional; sentence
	// items typically have none.
	ImageRef string `yaml:"image,omitempty"`

	// Translation is the item's meaning in the learner's language. Optional,
	// shown alongside the target.
	Translation string `yaml:"translation,omitempty"`
}

// Pack is a fixed-size ordered group of items that progresses together
// through the learn and test phases. Order matters for the learn traversal.
type Pack struct {
	// Title is an optional display name for the pack.
	Title string `yaml:"title,omitempty"`

	Items []Item `yaml:"items"`
}

// ItemIDs returns the ids of the pack's items in pack order.
func (p *Pack) ItemIDs() []string {
	ids := make([]string, len(p.Items))
	for i, it := range p.Items {
		ids[i] = it.ID
	}
	return ids
}

// Lesson is the top-level structure of a lesson YAML file.
//
// Example:
//
//	title: "Les animaux"
//	language: fr-FR
//	packs:
//	  - items:
//	      - {id: chien, target: "le chien", image: img/chien.png}
//	      - {id: chat, target: "le chat", image: img/chat.png}
//	sentences:
//	  - {id: s1, target: "le chien mange"}
type Lesson struct {
	// Title is the lesson's display name.
	Title string `yaml:"title"`

	// Language is the full locale tag of the target language (e.g. "fr-FR").
	Language string `yaml:"language"`

	Packs []Pack `yaml:"packs"`

	// Sentences are drilled in a final learn-like phase after all packs.
	Sentences []Item `yaml:"sentences,omitempty"`
}

// Item returns the item with the given id, searching packs then sentences.
func (l *Lesson) Item(id string) (Item, bool) {
	for i := range l.Packs {
		for _, it := range l.Packs[i].Items {
			if it.ID == id {
				return it, true
			}
		}
	}
	for _, it := range l.Sentences {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Load reads and parses a lesson YAML file from disk.
func Load(path string) (*Lesson, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lesson: open lesson file %q: %w", path, err)
	}
	defer f.Close()

	l, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("lesson: parse lesson file %q: %w", path, err)
	}
	return l, nil
}

// LoadFromReader parses lesson YAML from an [io.Reader].
// The reader is consumed entirely; the caller is responsible for closing it.
func LoadFromReader(r io.Reader) (*Lesson, error) {
	var l Lesson
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown keys to catch authoring typos
	if err := dec.Decode(&l); err != nil {
		return nil, fmt.Errorf("lesson: decode lesson yaml: %w", err)
	}
	return &l, nil
}

// Validate checks the lesson for authoring errors. It needs the language
// pack's canonicalizer because a target that canonicalizes to the empty
// string (e.g. an articles-only phrase) can never be scored and must be
// rejected at load time rather than fail on the learner's first attempt.
//
// Rules:
//   - Language and at least one pack must be present.
//   - Every pack must have at least one item.
//   - Item ids must be non-empty and unique across packs and sentences.
//   - Every target must canonicalize to a non-empty form.
func (l *Lesson) Validate(canon *lang.Canonicalizer) error {
	var errs []error

	if l.Language == "" {
		errs = append(errs, errors.New("language must not be empty"))
	}
	if len(l.Packs) == 0 {
		errs = append(errs, errors.New("lesson must contain at least one pack"))
	}

	seen := make(map[string]struct{})
	checkItem := func(where string, it Item) {
		if it.ID == "" {
			errs = append(errs, fmt.Errorf("%s: id must not be empty", where))
			return
		}
		if _, dup := seen[it.ID]; dup {
			errs = append(errs, fmt.Errorf("%s: duplicate item id %q", where, it.ID))
		}
		seen[it.ID] = struct{}{}
		if it.TargetText == "" {
			errs = append(errs, fmt.Errorf("%s: item %q: target must not be empty", where, it.ID))
			return
		}
		if canon.Canonicalize(it.TargetText) == "" {
			errs = append(errs, fmt.Errorf("%s: item %q: target %q canonicalizes to nothing and can never be scored",
				where, it.ID, it.TargetText))
		}
	}

	for pi := range l.Packs {
		p := &l.Packs[pi]
		if len(p.Items) == 0 {
			errs = append(errs, fmt.Errorf("pack[%d]: must contain at least one item", pi))
		}
		for _, it := range p.Items {
			checkItem(fmt.Sprintf("pack[%d]", pi), it)
		}
	}
	for _, it := range l.Sentences {
		checkItem("sentences", it)
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
