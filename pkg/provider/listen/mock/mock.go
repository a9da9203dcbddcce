// Package mock provides a test double for the listen.Provider interface.
//
// Use Provider to script a sequence of capture results (transcripts, empty
// captures, failures) and to inspect the capture configs the drill passed in.
//
// Example:
//
//	p := &mock.Provider{Results: []*listen.Result{
//	    {Text: "le chien", Confidence: 0.92, Source: "scripted"},
//	    {}, // an empty capture
//	}}
package mock

import (
	"context"
	"sync"

	"github.com/sprachpilot/parlo/pkg/provider/listen"
)

// Provider is a mock implementation of listen.Provider. Each Listen call
// consumes the next scripted result; when the script runs out, empty captures
// are returned.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// Results is the scripted sequence of capture results, consumed in order.
	Results []*listen.Result

	// Errs is the scripted sequence of errors, consumed in lockstep with
	// Results (a nil entry means success). May be shorter than Results.
	Errs []error

	// --- Call records ---

	// Calls records the Config of every Listen call in order.
	Calls []listen.Config

	next int
}

// Compile-time interface assertion.
var _ listen.Provider = (*Provider)(nil)

// Listen records the call and returns the next scripted result.
func (p *Provider) Listen(ctx context.Context, cfg listen.Config) (*listen.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, cfg)

	i := p.next
	p.next++
	if i < len(p.Errs) && p.Errs[i] != nil {
		return nil, p.Errs[i]
	}
	if i < len(p.Results) {
		return p.Results[i], nil
	}
	return &listen.Result{Source: "mock"}, nil
}

// CallCount returns how many times Listen was invoked.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
