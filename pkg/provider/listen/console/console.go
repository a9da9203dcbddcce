// Package console implements listen.Provider for terminal sessions: instead
// of recording the microphone, the learner types what they would have said.
// Useful for development and for exercising the full drill loop without an
// audio stack.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sprachpilot/parlo/pkg/provider/listen"
)

// Option is a functional option for configuring a [Recognizer].
type Option func(*Recognizer)

// WithInput sets the input source. Default: os.Stdin.
func WithInput(r io.Reader) Option {
	return func(c *Recognizer) {
		c.scanner = bufio.NewScanner(r)
	}
}

// WithPrompt sets the writer the capture prompt is printed to.
// Default: os.Stdout.
func WithPrompt(w io.Writer) Option {
	return func(c *Recognizer) {
		c.prompt = w
	}
}

// Recognizer reads one line per capture. A capture that outlives
// Config.MaxDuration resolves with an empty transcript; the line, once typed,
// is consumed by the next capture. Safe for concurrent use, though the drill
// only ever runs one capture at a time.
type Recognizer struct {
	mu      sync.Mutex
	scanner *bufio.Scanner
	prompt  io.Writer

	// lines carries input from the single reader goroutine. Its one-slot
	// buffer keeps a line that arrived after its capture timed out; the next
	// capture consumes it.
	lines   chan string
	started bool
	readErr error
}

// Compile-time interface assertion.
var _ listen.Provider = (*Recognizer)(nil)

// New creates a console Recognizer reading from os.Stdin.
func New(opts ...Option) *Recognizer {
	c := &Recognizer{
		scanner: bufio.NewScanner(os.Stdin),
		prompt:  os.Stdout,
		lines:   make(chan string, 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// start launches the reader goroutine on first use. The scanner can only be
// consumed from one goroutine, so all captures share this reader.
func (c *Recognizer) start() {
	if c.started {
		return
	}
	c.started = true
	go func() {
		for c.scanner.Scan() {
			c.lines <- c.scanner.Text()
		}
		c.mu.Lock()
		if err := c.scanner.Err(); err != nil {
			c.readErr = err
		} else {
			c.readErr = io.EOF
		}
		c.mu.Unlock()
		close(c.lines)
	}()
}

// Listen prompts for a typed line and waits for it up to cfg.MaxDuration.
func (c *Recognizer) Listen(ctx context.Context, cfg listen.Config) (*listen.Result, error) {
	c.mu.Lock()
	c.start()
	if c.readErr != nil {
		err := c.readErr
		c.mu.Unlock()
		return nil, fmt.Errorf("console: %w: input closed: %v", listen.ErrUnavailable, err)
	}
	c.mu.Unlock()

	fmt.Fprint(c.prompt, "🎤 ")

	var timeout <-chan time.Time
	if cfg.MaxDuration > 0 {
		t := time.NewTimer(cfg.MaxDuration)
		defer t.Stop()
		timeout = t.C
	}

	start := time.Now()
	select {
	case line, ok := <-c.lines:
		if !ok {
			return nil, fmt.Errorf("console: %w: input closed", listen.ErrUnavailable)
		}
		res := result(line)
		res.Elapsed = time.Since(start)
		return res, nil
	case <-timeout:
		// Nothing typed in time counts as silence, not as a failure.
		fmt.Fprintln(c.prompt)
		return &listen.Result{Source: "console"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func result(line string) *listen.Result {
	return &listen.Result{
		Text:       strings.TrimSpace(line),
		Confidence: 1,
		Source:     "console",
	}
}
