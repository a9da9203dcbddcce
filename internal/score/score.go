// Package score turns a lesson target and a recognizer transcript into a
// pass/fail pronunciation verdict.
//
// Scoring is purely text-based: both strings are canonicalized (see
// [lang.Canonicalizer]) and compared by character-level Levenshtein edit
// distance. Single-word targets are scored against the best-matching token of
// the transcript so that recognizer filler ("bonjour je voudrais" for the
// target "je") does not depress the score. Multi-word targets are scored on
// the full joined strings, optionally blended with a token-coverage ratio.
//
// The package also ships a remote judge (see [RemoteJudge]) that delegates the
// verdict to a pronunciation-assessment HTTP service instead of the local
// text pipeline.
package score

import (
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/sprachpilot/parlo/internal/lang"
)

// DefaultThreshold is the pass percentage used when a caller does not
// configure one. Exact-gating drill modes use 100 instead.
const DefaultThreshold = 80

// Verdict is the outcome of judging one pronunciation attempt.
type Verdict struct {
	// OverallPercent is the similarity score scaled to 0–100.
	OverallPercent int

	// Pass reports whether OverallPercent reached the threshold.
	Pass bool

	// UsedTarget and UsedHeard are the canonical forms actually compared,
	// surfaced so the UI can show the learner what was matched against what.
	UsedTarget string
	UsedHeard  string
}

// Option is a functional option for configuring a [Judge].
type Option func(*Judge)

// WithCoverageWeight blends a token-coverage ratio into multi-word scores:
// the fraction of target tokens present anywhere in the heard token set,
// weighted at w against (1-w) edit-distance similarity. w must be in [0, 1].
// Default: 0 (pure edit distance).
func WithCoverageWeight(w float64) Option {
	return func(j *Judge) {
		j.coverageWeight = w
	}
}

// Judge scores pronunciation attempts against lesson targets. All methods are
// safe for concurrent use — the Judge is read-only after construction.
type Judge struct {
	canon          *lang.Canonicalizer
	coverageWeight float64
}

// NewJudge constructs a Judge that canonicalizes with c.
func NewJudge(c *lang.Canonicalizer, opts ...Option) *Judge {
	j := &Judge{canon: c}
	for _, o := range opts {
		o(j)
	}
	return j
}

// Judge compares heardRaw against target and returns a [Verdict] for the
// given pass threshold (0–100).
//
// When either canonical form is empty the verdict is 0/fail; callers must
// treat an empty heard transcript as a capture failure, not a pronunciation
// failure, and leave fail counters untouched. Identical canonical forms short
// circuit to 100/pass, so surface differences that canonicalization already
// absorbs (verb form vs infinitive, stripped articles) never cost points.
func (j *Judge) Judge(target, heardRaw string, threshold int) Verdict {
	ct := j.canon.Canonicalize(target)
	ch := j.canon.Canonicalize(heardRaw)

	v := Verdict{UsedTarget: ct, UsedHeard: ch}
	if ct == "" || ch == "" {
		return v
	}
	if ct == ch {
		v.OverallPercent = 100
		v.Pass = true
		return v
	}

	sim := j.similarity(ct, ch)
	v.OverallPercent = int(sim*100 + 0.5)
	v.Pass = v.OverallPercent >= threshold
	return v
}

// Similarity returns the raw similarity in [0, 1] between two canonical
// strings. Exposed for diagnostics; Judge is the usual entry point.
func (j *Judge) Similarity(canonTarget, canonHeard string) float64 {
	if canonTarget == "" || canonHeard == "" {
		return 0
	}
	if canonTarget == canonHeard {
		return 1
	}
	return j.similarity(canonTarget, canonHeard)
}

func (j *Judge) similarity(ct, ch string) float64 {
	// Single-word target: score against the best-matching heard token.
	if !strings.Contains(ct, " ") {
		best := 0.0
		for _, tok := range strings.Fields(ch) {
			if s := charSimilarity(ct, tok); s > best {
				best = s
			}
		}
		return best
	}

	sim := charSimilarity(ct, ch)
	if j.coverageWeight <= 0 {
		return sim
	}
	return (1-j.coverageWeight)*sim + j.coverageWeight*coverage(ct, ch)
}

// charSimilarity is 1 - levenshtein/maxLen, clamped to [0, 1]. Canonical
// strings are ASCII after diacritic stripping, so byte length equals rune
// length.
func charSimilarity(a, b string) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 0
	}
	s := 1 - float64(matchr.Levenshtein(a, b))/float64(maxLen)
	if s < 0 {
		return 0
	}
	return s
}

// coverage is the fraction of target tokens present anywhere in the heard
// token set.
func coverage(ct, ch string) float64 {
	targetToks := strings.Fields(ct)
	if len(targetToks) == 0 {
		return 0
	}
	heard := make(map[string]struct{})
	for _, tok := range strings.Fields(ch) {
		heard[tok] = struct{}{}
	}
	found := 0
	for _, tok := range targetToks {
		if _, ok := heard[tok]; ok {
			found++
		}
	}
	return float64(found) / float64(len(targetToks))
}
