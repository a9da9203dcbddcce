// Package speak defines the Provider interface for audio prompt playback.
//
// A speak provider voices a target phrase to the learner, either through a
// speech synthesis backend or pre-recorded lesson audio. Playback is a
// blocking, cancelable operation: the drill loop cancels any in-progress
// playback before it opens the microphone, so speech capture never records
// the app's own voice.
//
// Implementations must be safe for concurrent use.
package speak

import "context"

// Playback rates. Rate is relative: 1.0 is normal speed, lower is slower.
const (
	// RateNormal plays the phrase at its natural speed.
	RateNormal = 1.0

	// RateSlow is the deliberate rate used for hints and first exposures.
	RateSlow = 0.7
)

// Provider is the abstraction over any playback backend.
type Provider interface {
	// Speak plays the given text at the given relative rate and blocks until
	// playback finishes, fails, or ctx is cancelled. Cancelling ctx must stop
	// the audio promptly; a cancelled playback returns ctx.Err().
	//
	// Playback errors are recoverable: callers log them and continue the
	// drill rather than abort the session.
	Speak(ctx context.Context, text string, rate float64) error
}
