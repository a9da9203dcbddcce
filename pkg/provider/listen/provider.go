// Package listen defines the Provider interface for speech capture backends.
//
// A listen provider records one attempt from the microphone and returns a
// best-effort transcript. Capture is bounded: every call carries a maximum
// duration, and a capture that times out with nothing recognised resolves
// with an empty transcript rather than an error — silence is a valid outcome
// the drill must handle without penalising the learner.
//
// Implementations must be safe for concurrent use.
package listen

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned when the capture backend cannot start at all,
// e.g. no microphone or permission denied. It is distinct from an empty
// transcript: no attempt took place, so nothing may be scored.
var ErrUnavailable = errors.New("listen: capture unavailable")

// Config bounds and tunes a single capture.
type Config struct {
	// LanguageHint is the locale tag the recognizer should bias toward
	// (e.g. "fr-FR").
	LanguageHint string

	// MaxDuration caps the capture; the provider must resolve by then even
	// if no speech was detected.
	MaxDuration time.Duration
}

// Result is one completed capture.
type Result struct {
	// Text is the best transcript, or "" when nothing was recognised.
	Text string

	// Confidence is the recognizer's confidence in Text, in [0,1].
	// Zero when the backend reports none.
	Confidence float64

	// Alternatives are lower-ranked transcripts, best first, without Text.
	Alternatives []string

	// Source names the backend that produced the transcript. Diagnostics
	// only; scoring never branches on it.
	Source string

	// Elapsed is how long the learner actually spoke, as measured by the
	// backend. Zero when unknown.
	Elapsed time.Duration
}

// Empty reports whether the capture recognised nothing usable.
func (r *Result) Empty() bool {
	return r == nil || r.Text == ""
}

// Provider is the abstraction over any speech capture backend.
type Provider interface {
	// Listen records one attempt and returns its transcript. A timeout with
	// no speech yields a Result with empty Text and a nil error. Cancelling
	// ctx stops the capture and returns ctx.Err(). Backend startup failures
	// return an error wrapping [ErrUnavailable].
	Listen(ctx context.Context, cfg Config) (*Result, error)
}
