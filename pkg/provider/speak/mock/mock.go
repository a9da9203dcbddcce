// Package mock provides a test double for the speak.Provider interface.
//
// Use Provider to verify which phrases were voiced, at what rate, and to
// simulate playback failures or slow playback.
//
// Example:
//
//	p := &mock.Provider{SpeakErr: errors.New("no audio device")}
//	err := p.Speak(ctx, "le chien", speak.RateNormal)
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/sprachpilot/parlo/pkg/provider/speak"
)

// SpeakCall records a single invocation of Speak.
type SpeakCall struct {
	// Text is the phrase passed to Speak.
	Text string

	// Rate is the playback rate passed to Speak.
	Rate float64
}

// Provider is a mock implementation of speak.Provider.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// SpeakErr, if non-nil, is returned by every Speak call.
	SpeakErr error

	// Delay, if non-zero, makes Speak block for this long (or until ctx is
	// cancelled) to simulate real playback time.
	Delay time.Duration

	// --- Call records ---

	// SpeakCalls records every call to Speak in order.
	SpeakCalls []SpeakCall
}

// Compile-time interface assertion.
var _ speak.Provider = (*Provider)(nil)

// Speak records the call, waits out Delay, and returns SpeakErr.
func (p *Provider) Speak(ctx context.Context, text string, rate float64) error {
	p.mu.Lock()
	p.SpeakCalls = append(p.SpeakCalls, SpeakCall{Text: text, Rate: rate})
	delay, err := p.Delay, p.SpeakErr
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Calls returns a copy of the recorded Speak calls.
func (p *Provider) Calls() []SpeakCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]SpeakCall, len(p.SpeakCalls))
	copy(out, p.SpeakCalls)
	return out
}

// Spoken returns just the texts passed to Speak, in order.
func (p *Provider) Spoken() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.SpeakCalls))
	for i, c := range p.SpeakCalls {
		out[i] = c.Text
	}
	return out
}
