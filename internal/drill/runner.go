// Package drill runs the interactive attempt loop: it owns the microphone
// and speaker, gates captures by strictness, feeds judged results to the
// progression engine, and records metrics.
//
// Exactly one attempt may be in flight at a time. Playback and capture are
// mutually exclusive: starting a capture cancels any in-progress playback
// first, so the recognizer never hears the app's own prompt.
package drill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sprachpilot/parlo/internal/config"
	"github.com/sprachpilot/parlo/internal/lang"
	"github.com/sprachpilot/parlo/internal/lesson"
	"github.com/sprachpilot/parlo/internal/observe"
	"github.com/sprachpilot/parlo/internal/progression"
	"github.com/sprachpilot/parlo/internal/score"
	"github.com/sprachpilot/parlo/pkg/provider/listen"
	"github.com/sprachpilot/parlo/pkg/provider/speak"
)

// ErrBusy is returned when an attempt is requested while another one is
// still recording.
var ErrBusy = errors.New("drill: attempt already in flight")

// OutcomeKind classifies what one attempt amounted to.
type OutcomeKind string

const (
	// OutcomePass is a scored attempt at or above the threshold.
	OutcomePass OutcomeKind = "pass"

	// OutcomeFail is a scored attempt below the threshold.
	OutcomeFail OutcomeKind = "fail"

	// OutcomeEmpty means nothing usable was recognised. Empty captures never
	// touch mastery state.
	OutcomeEmpty OutcomeKind = "empty"

	// OutcomeGated means the capture was rejected by a strictness gate
	// (confidence floor, ambiguity, too-short speech). Like an empty
	// capture, it never touches mastery state.
	OutcomeGated OutcomeKind = "gated"

	// OutcomeNeedConfirm means the attempt passed but the ultra preset wants
	// it repeated once before it counts.
	OutcomeNeedConfirm OutcomeKind = "need_confirm"
)

// Outcome is the result of one spoken attempt, for the UI to render.
type Outcome struct {
	Kind OutcomeKind

	// Verdict carries the judged score for pass/fail/need-confirm outcomes.
	Verdict score.Verdict

	// Transcript is the raw text the recognizer heard.
	Transcript string

	// GateReason explains an [OutcomeGated] rejection.
	GateReason string

	// Hint is true when the fail streak triggered a replay of the target.
	Hint bool

	// State is the session state after the attempt was applied.
	State progression.State
}

// Params wires a Runner. All fields except Metrics and Logger are required.
type Params struct {
	Lesson   *lesson.Lesson
	Engine   *progression.Engine
	Canon    *lang.Canonicalizer
	Judge    *score.Judge
	Speaker  speak.Provider
	Listener listen.Provider

	Scoring config.ScoringConfig
	Gate    config.Gate
	Capture config.CaptureConfig

	// Metrics defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics

	// Logger defaults to [slog.Default].
	Logger *slog.Logger
}

// playback tracks one in-progress prompt so a capture can cancel it and wait
// for the speaker to go quiet.
type playback struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Runner owns the attempt lifecycle for one session.
type Runner struct {
	p Params

	mu        sync.Mutex
	recording bool
	playing   *playback

	// confirmID is the item awaiting its double-confirm repeat.
	confirmID string

	// deferredSize mirrors the deferred-set gauge.
	deferredSize int
}

// NewRunner creates a Runner over an already-initialised engine.
func NewRunner(p Params) *Runner {
	if p.Metrics == nil {
		p.Metrics = observe.DefaultMetrics()
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	return &Runner{p: p}
}

// State returns the session state without taking an attempt.
func (r *Runner) State() progression.State {
	return r.p.Engine.State()
}

// Target returns the lesson item the session is currently drilling.
func (r *Runner) Target() (lesson.Item, bool) {
	return r.p.Engine.Target()
}

// Busy reports whether a capture or playback is currently active. UI
// controls that start either should be disabled while it is true.
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording || r.playing != nil
}

// PlayPrompt voices the current target. slow selects the deliberate hint
// rate. Returns ErrBusy while a capture is active; playback errors are
// logged and returned but never block progression.
func (r *Runner) PlayPrompt(ctx context.Context, slow bool) error {
	target, ok := r.p.Engine.Target()
	if !ok {
		return fmt.Errorf("drill: no active target to play")
	}

	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return ErrBusy
	}
	if pb := r.playing; pb != nil {
		// Restarting playback replaces the previous prompt.
		pb.cancel()
		r.mu.Unlock()
		<-pb.done
		r.mu.Lock()
	}
	pctx, cancel := context.WithCancel(ctx)
	pb := &playback{cancel: cancel, done: make(chan struct{})}
	r.playing = pb
	r.mu.Unlock()

	err := r.speakTimed(pctx, target.TargetText, r.rate(slow))

	r.mu.Lock()
	if r.playing == pb {
		r.playing = nil
	}
	r.mu.Unlock()
	cancel()
	close(pb.done)

	if err != nil && !errors.Is(err, context.Canceled) {
		r.p.Logger.Warn("prompt playback failed", "item", target.ID, "error", err)
		return err
	}
	return nil
}

// Attempt captures one spoken attempt against the current target, judges it,
// and applies the result. Valid in the learn, production, review, and
// sentence modes. Returns ErrBusy while another attempt is recording.
func (r *Runner) Attempt(ctx context.Context) (*Outcome, error) {
	mode := r.p.Engine.Mode()
	switch mode {
	case progression.ModeLearn, progression.ModeTestC, progression.ModeReview, progression.ModeSentences:
	default:
		return nil, fmt.Errorf("drill: spoken attempt in mode %q", mode)
	}
	target, ok := r.p.Engine.Target()
	if !ok {
		return nil, fmt.Errorf("drill: no active target")
	}

	if err := r.beginCapture(); err != nil {
		return nil, err
	}
	defer r.endCapture()

	res, err := r.listenTimed(ctx, target.TargetText)
	if err != nil {
		// The lock is released by the deferred endCapture even on failure,
		// so a dead microphone cannot wedge the session.
		r.p.Metrics.RecordAttempt(ctx, string(mode), observe.OutcomeUnavailable)
		return nil, fmt.Errorf("drill: capture: %w", err)
	}

	if res.Empty() {
		r.p.Metrics.RecordAttempt(ctx, string(mode), observe.OutcomeEmpty)
		return &Outcome{Kind: OutcomeEmpty, State: r.p.Engine.State()}, nil
	}

	if reason := r.gateReason(target.TargetText, res); reason != "" {
		r.p.Logger.Debug("attempt gated", "item", target.ID, "reason", reason)
		r.p.Metrics.RecordAttempt(ctx, string(mode), observe.OutcomeGated)
		return &Outcome{Kind: OutcomeGated, GateReason: reason, Transcript: res.Text, State: r.p.Engine.State()}, nil
	}

	v := r.p.Judge.Judge(target.TargetText, res.Text, r.threshold(mode))
	r.p.Metrics.RecordJudgeScore(ctx, string(mode), v.OverallPercent)

	if v.Pass && r.p.Gate.DoubleConfirm && r.confirmID != target.ID {
		r.confirmID = target.ID
		r.p.Metrics.RecordAttempt(ctx, string(mode), observe.OutcomePass)
		return &Outcome{Kind: OutcomeNeedConfirm, Verdict: v, Transcript: res.Text, State: r.p.Engine.State()}, nil
	}
	r.confirmID = ""

	out := &Outcome{Verdict: v, Transcript: res.Text}
	if v.Pass {
		out.Kind = OutcomePass
		r.p.Metrics.RecordAttempt(ctx, string(mode), observe.OutcomePass)
	} else {
		out.Kind = OutcomeFail
		r.p.Metrics.RecordAttempt(ctx, string(mode), observe.OutcomeFail)
	}

	if err := r.apply(ctx, mode, target, v.Pass, out); err != nil {
		return nil, err
	}
	out.State = r.p.Engine.State()
	return out, nil
}

// Pick applies one picture/audio pick in TestA or TestB.
func (r *Runner) Pick(ctx context.Context, correct bool) (progression.State, error) {
	mode := r.p.Engine.Mode()
	if err := r.p.Engine.HandleRecognitionPick(correct); err != nil {
		return progression.State{}, fmt.Errorf("drill: %w", err)
	}
	outcome := observe.OutcomeFail
	if correct {
		outcome = observe.OutcomePass
	}
	r.p.Metrics.RecordAttempt(ctx, string(mode), outcome)
	return r.p.Engine.State(), nil
}

// Capture reads one raw utterance through the listen provider without
// judging it, for recognition picks and menu answers. It takes the same
// exclusive capture lock as Attempt.
func (r *Runner) Capture(ctx context.Context) (string, error) {
	if err := r.beginCapture(); err != nil {
		return "", err
	}
	defer r.endCapture()

	start := time.Now()
	res, err := r.p.Listener.Listen(ctx, listen.Config{
		LanguageHint: r.p.Lesson.Language,
		MaxDuration:  r.p.Capture.Max,
	})
	r.p.Metrics.ListenDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("drill: capture: %w", err)
	}
	return strings.TrimSpace(res.Text), nil
}

// Restart stops any in-progress playback and resets the whole session.
func (r *Runner) Restart(ctx context.Context) progression.State {
	r.mu.Lock()
	pb := r.playing
	r.mu.Unlock()
	if pb != nil {
		pb.cancel()
		<-pb.done
	}

	r.p.Engine.Restart()
	r.confirmID = ""
	r.p.Metrics.Restarts.Add(ctx, 1)
	r.syncDeferredGauge(ctx)
	return r.p.Engine.State()
}

// apply feeds a judged result to the engine and handles the hint replay.
func (r *Runner) apply(ctx context.Context, mode progression.Mode, target lesson.Item, passed bool, out *Outcome) error {
	switch mode {
	case progression.ModeLearn, progression.ModeSentences:
		if _, err := r.p.Engine.HandleLearnResult(passed); err != nil {
			return fmt.Errorf("drill: %w", err)
		}
	case progression.ModeTestC, progression.ModeReview:
		sig, err := r.p.Engine.HandleProductionResult(passed)
		if err != nil {
			return fmt.Errorf("drill: %w", err)
		}
		if sig.Hint {
			out.Hint = true
			r.p.Metrics.Hints.Add(ctx, 1)
			// Replay the target slowly; a broken speaker must not stall
			// the drill.
			if err := r.speakTimed(ctx, target.TargetText, speak.RateSlow); err != nil && !errors.Is(err, context.Canceled) {
				r.p.Logger.Warn("hint playback failed", "item", target.ID, "error", err)
			}
		}
	}
	r.syncDeferredGauge(ctx)
	return nil
}

// gateReason applies the strictness gates to a non-empty capture. An empty
// return means the capture may be scored.
func (r *Runner) gateReason(targetText string, res *listen.Result) string {
	g := r.p.Gate
	if res.Confidence > 0 && res.Confidence < g.MinConfidence {
		return fmt.Sprintf("confidence %.2f below floor %.2f", res.Confidence, g.MinConfidence)
	}
	if res.Elapsed > 0 {
		if minD := g.MinSpeakFor(targetText); res.Elapsed < minD {
			return fmt.Sprintf("spoke for %v, expected at least %v", res.Elapsed, minD)
		}
	}
	if g.AmbiguityGap > 0 && len(res.Alternatives) > 0 {
		ct := r.p.Canon.Canonicalize(targetText)
		best := r.p.Canon.Canonicalize(res.Text)
		bestSim := r.p.Judge.Similarity(ct, best)
		for _, alt := range res.Alternatives {
			ca := r.p.Canon.Canonicalize(alt)
			if ca == best {
				continue
			}
			if bestSim-r.p.Judge.Similarity(ct, ca) < g.AmbiguityGap {
				return fmt.Sprintf("recognizer could not separate %q from %q", res.Text, alt)
			}
		}
	}
	return ""
}

// threshold returns the pass score for the mode. Review re-tests previously
// failed items against the exact threshold.
func (r *Runner) threshold(mode progression.Mode) int {
	if mode == progression.ModeReview {
		return r.p.Scoring.ExactThreshold
	}
	return r.p.Scoring.Threshold
}

func (r *Runner) rate(slow bool) float64 {
	if slow {
		return speak.RateSlow
	}
	return speak.RateNormal
}

func (r *Runner) beginCapture() error {
	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return ErrBusy
	}
	pb := r.playing
	r.recording = true
	r.mu.Unlock()

	// The microphone must not open while the prompt is still sounding.
	if pb != nil {
		pb.cancel()
		<-pb.done
	}
	return nil
}

func (r *Runner) endCapture() {
	r.mu.Lock()
	r.recording = false
	r.mu.Unlock()
}

func (r *Runner) listenTimed(ctx context.Context, targetText string) (*listen.Result, error) {
	start := time.Now()
	res, err := r.p.Listener.Listen(ctx, listen.Config{
		LanguageHint: r.p.Lesson.Language,
		MaxDuration:  r.p.Capture.DurationFor(targetText),
	})
	r.p.Metrics.ListenDuration.Record(ctx, time.Since(start).Seconds())
	return res, err
}

func (r *Runner) speakTimed(ctx context.Context, text string, rate float64) error {
	start := time.Now()
	err := r.p.Speaker.Speak(ctx, text, rate)
	r.p.Metrics.SpeakDuration.Record(ctx, time.Since(start).Seconds())
	return err
}

func (r *Runner) syncDeferredGauge(ctx context.Context) {
	n := len(r.p.Engine.Deferred())
	if d := n - r.deferredSize; d != 0 {
		r.p.Metrics.DeferredItems.Add(ctx, int64(d))
	}
	r.deferredSize = n
}
