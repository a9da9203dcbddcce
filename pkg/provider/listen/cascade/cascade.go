// Package cascade implements listen.Provider with automatic failover across
// multiple capture backends. Recognizers are tried in registration order; a
// backend that keeps erroring is benched for a cooldown period so a dead
// recognizer does not add its startup timeout to every attempt.
//
// An empty transcript is a successful capture (the learner said nothing
// usable) and never triggers failover — only backend errors do.
//
// Cascade is safe for concurrent use.
package cascade

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sprachpilot/parlo/pkg/provider/listen"
)

// Config tunes the per-recognizer benching behaviour.
type Config struct {
	// MaxErrors is the number of consecutive backend errors before a
	// recognizer is benched. Default: 3.
	MaxErrors int

	// Cooldown is how long a benched recognizer is skipped before it is
	// tried again. Default: 30s.
	Cooldown time.Duration
}

// entry pairs a recognizer with its bench bookkeeping.
type entry struct {
	name     string
	provider listen.Provider

	mu        sync.Mutex
	errStreak int
	benchedAt time.Time
}

// skip reports whether the recognizer is currently benched.
func (e *entry) skip(cooldown time.Duration) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.benchedAt.IsZero() && time.Since(e.benchedAt) < cooldown
}

func (e *entry) recordSuccess() {
	e.mu.Lock()
	e.errStreak = 0
	e.benchedAt = time.Time{}
	e.mu.Unlock()
}

func (e *entry) recordError(maxErrors int) (benched bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errStreak++
	if e.errStreak >= maxErrors {
		e.benchedAt = time.Now()
		e.errStreak = 0
		return true
	}
	return false
}

// Cascade chains a primary recognizer and zero or more fallbacks.
type Cascade struct {
	cfg     Config
	logger  *slog.Logger
	entries []*entry
}

// Compile-time interface assertion.
var _ listen.Provider = (*Cascade)(nil)

// New creates a Cascade with primary as the preferred recognizer.
// Zero-value config fields are replaced with sensible defaults.
func New(primaryName string, primary listen.Provider, cfg Config) *Cascade {
	if cfg.MaxErrors <= 0 {
		cfg.MaxErrors = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &Cascade{
		cfg:     cfg,
		logger:  slog.Default(),
		entries: []*entry{{name: primaryName, provider: primary}},
	}
}

// AddFallback registers an additional recognizer. Fallbacks are tried in the
// order they are added, after the primary.
func (c *Cascade) AddFallback(name string, provider listen.Provider) {
	c.entries = append(c.entries, &entry{name: name, provider: provider})
}

// Listen tries each healthy recognizer in order until one completes a
// capture. The winning backend's name is stamped into Result.Source when the
// backend left it empty.
func (c *Cascade) Listen(ctx context.Context, cfg listen.Config) (*listen.Result, error) {
	var lastErr error
	for _, e := range c.entries {
		if e.skip(c.cfg.Cooldown) {
			c.logger.Debug("skipping benched recognizer", "recognizer", e.name)
			continue
		}
		res, err := e.provider.Listen(ctx, cfg)
		if err == nil {
			e.recordSuccess()
			if res.Source == "" {
				res.Source = e.name
			}
			return res, nil
		}
		if ctx.Err() != nil {
			// Cancellation is the caller's doing, not a backend fault.
			return nil, err
		}
		lastErr = err
		if e.recordError(c.cfg.MaxErrors) {
			c.logger.Warn("benching recognizer after repeated errors",
				"recognizer", e.name, "cooldown", c.cfg.Cooldown, "error", err)
		} else {
			c.logger.Warn("recognizer failed, trying next",
				"recognizer", e.name, "error", err)
		}
	}
	if lastErr == nil {
		return nil, fmt.Errorf("cascade: %w: all recognizers benched", listen.ErrUnavailable)
	}
	return nil, fmt.Errorf("cascade: %w: %v", listen.ErrUnavailable, lastErr)
}
