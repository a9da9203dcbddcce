// Package console implements speak.Provider for terminal sessions: the phrase
// is printed instead of voiced, and playback time is simulated so the drill's
// capture/playback interlock behaves as it would with real audio.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sprachpilot/parlo/pkg/provider/speak"
)

// perRune approximates speaking time per character at normal rate.
const perRune = 60 * time.Millisecond

// Option is a functional option for configuring a [Speaker].
type Option func(*Speaker)

// WithWriter sets the output destination. Default: os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(s *Speaker) {
		s.w = w
	}
}

// WithoutDelay disables the simulated playback time. Intended for tests.
func WithoutDelay() Option {
	return func(s *Speaker) {
		s.noDelay = true
	}
}

// Speaker prints phrases to a writer. Safe for concurrent use.
type Speaker struct {
	mu      sync.Mutex
	w       io.Writer
	noDelay bool
}

// Compile-time interface assertion.
var _ speak.Provider = (*Speaker)(nil)

// New creates a console Speaker writing to os.Stdout.
func New(opts ...Option) *Speaker {
	s := &Speaker{w: os.Stdout}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Speak prints the phrase, marking slowed playback, then sleeps for the
// simulated playback duration unless ctx is cancelled first.
func (s *Speaker) Speak(ctx context.Context, text string, rate float64) error {
	if rate <= 0 {
		return fmt.Errorf("console: playback rate must be positive, got %v", rate)
	}

	s.mu.Lock()
	var err error
	if rate < speak.RateNormal {
		_, err = fmt.Fprintf(s.w, "🔊 (slow) %s\n", text)
	} else {
		_, err = fmt.Fprintf(s.w, "🔊 %s\n", text)
	}
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("console: write prompt: %w", err)
	}
	if s.noDelay {
		return nil
	}

	d := time.Duration(float64(len([]rune(text))) * float64(perRune) / rate)
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
