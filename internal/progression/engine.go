// Package progression implements the session state machine that carries a
// learner through a lesson: each vocabulary pack runs Learn, then three test
// phases, then an optional review of deferred items; after the last pack the
// sentences phase closes the session.
//
// The engine is a deterministic reduction over mastery state. It never
// performs I/O and is not safe for concurrent use; the drill loop owns it and
// feeds it one judged attempt at a time. Empty-transcript captures must not
// be fed to the engine at all, so they can never mutate mastery state.
package progression

import (
	"fmt"

	"github.com/sprachpilot/parlo/internal/lesson"
	"github.com/sprachpilot/parlo/internal/mastery"
)

// Mode is the single session-wide phase.
type Mode string

const (
	// ModeLearn walks the current pack's items in order, one spoken attempt
	// at a time.
	ModeLearn Mode = "learn"

	// ModeTestA is image recognition: the target is spoken, the learner
	// picks the matching picture.
	ModeTestA Mode = "test_a"

	// ModeTestB repeats TestA with audio-only presentation.
	ModeTestB Mode = "test_b"

	// ModeTestC is production: the item is shown and the learner speaks it.
	ModeTestC Mode = "test_c"

	// ModeReview revisits the pack's deferred items, scored like TestC.
	ModeReview Mode = "review"

	// ModeSentences is the final learn-like loop over sentence items.
	ModeSentences Mode = "sentences"

	// ModeEnd is terminal; only Restart leaves it.
	ModeEnd Mode = "end"
)

// IsValid reports whether m is a recognised mode.
func (m Mode) IsValid() bool {
	switch m {
	case ModeLearn, ModeTestA, ModeTestB, ModeTestC, ModeReview, ModeSentences, ModeEnd:
		return true
	}
	return false
}

// phase maps a test-phase mode to its mastery phase.
func (m Mode) phase() mastery.Phase {
	switch m {
	case ModeTestA:
		return mastery.PhaseTestA
	case ModeTestB:
		return mastery.PhaseTestB
	case ModeTestC:
		return mastery.PhaseTestC
	case ModeReview:
		return mastery.PhaseReview
	}
	return ""
}

// State is a snapshot of where the session currently stands.
type State struct {
	Mode Mode

	// PackIndex is the zero-based index of the active pack. Meaningless in
	// [ModeSentences] and [ModeEnd].
	PackIndex int

	// TargetID is the item the learner must answer next; empty in [ModeEnd].
	TargetID string
}

// Option is a functional option for configuring an [Engine].
type Option func(*Engine)

// WithTrackerOptions forwards options to every mastery tracker the engine
// creates (one per pack plus one for sentences).
func WithTrackerOptions(opts ...mastery.Option) Option {
	return func(e *Engine) {
		e.trackerOpts = opts
	}
}

// Engine drives one learner session over a validated lesson.
type Engine struct {
	lesson      *lesson.Lesson
	trackerOpts []mastery.Option

	mode    Mode
	packIdx int
	itemIdx int // position within the pack (learn) or sentence list
	target  string

	tracker   *mastery.Tracker // mastery of the active pack's items
	sentences *mastery.Tracker // fail-limit bookkeeping for the sentence loop
}

// New creates an engine positioned at the first item of the first pack.
// The lesson must have passed [lesson.Lesson.Validate].
func New(l *lesson.Lesson, opts ...Option) *Engine {
	e := &Engine{lesson: l}
	for _, o := range opts {
		o(e)
	}
	e.Restart()
	return e
}

// Restart wipes all mastery state and returns the session to Learn on the
// first item of the first pack. Stale deferred items never survive a restart.
func (e *Engine) Restart() {
	e.packIdx = 0
	e.itemIdx = 0
	e.sentences = nil
	e.enterPack()
}

// State returns a snapshot of the current mode, pack, and target.
func (e *Engine) State() State {
	return State{Mode: e.mode, PackIndex: e.packIdx, TargetID: e.target}
}

// Mode returns the active session mode.
func (e *Engine) Mode() Mode {
	return e.mode
}

// Target returns the item the learner must answer next.
func (e *Engine) Target() (lesson.Item, bool) {
	if e.target == "" {
		return lesson.Item{}, false
	}
	return e.lesson.Item(e.target)
}

// Deferred returns the active pack's deferred review set in insertion order.
func (e *Engine) Deferred() []string {
	if e.tracker == nil {
		return nil
	}
	return e.tracker.Deferred()
}

// HandleLearnResult records one judged spoken attempt in Learn or Sentences.
// A pass advances to the next item; a fail below the defer limit repeats the
// item; a fail at the limit defers it (vocabulary packs) or skips it
// (sentences) and advances.
func (e *Engine) HandleLearnResult(passed bool) (mastery.Action, error) {
	var tr *mastery.Tracker
	switch e.mode {
	case ModeLearn:
		tr = e.tracker
	case ModeSentences:
		tr = e.sentences
	default:
		return "", fmt.Errorf("progression: spoken learn attempt in mode %q", e.mode)
	}

	act, err := tr.RecordLearnAttempt(e.target, passed)
	if err != nil {
		return "", fmt.Errorf("progression: %w", err)
	}
	if act != mastery.ActionRetry {
		e.itemIdx++
		e.syncLearnTarget()
	}
	return act, nil
}

// HandleRecognitionPick records one picture/audio pick in TestA or TestB.
// Correct picks count toward the item's cap and move to a fresh random
// target; wrong picks change nothing and the learner retries.
func (e *Engine) HandleRecognitionPick(correct bool) error {
	if e.mode != ModeTestA && e.mode != ModeTestB {
		return fmt.Errorf("progression: recognition pick in mode %q", e.mode)
	}
	if !correct {
		return nil
	}
	phase := e.mode.phase()
	if _, err := e.tracker.RecordTestAttempt(phase, e.target, true); err != nil {
		return fmt.Errorf("progression: %w", err)
	}
	if e.tracker.PhaseComplete(phase) {
		if e.mode == ModeTestA {
			e.enterTest(ModeTestB)
		} else {
			e.enterTest(ModeTestC)
		}
		return nil
	}
	e.target, _ = e.tracker.PickNextTarget(phase)
	return nil
}

// HandleProductionResult records one judged spoken attempt in TestC or
// Review. The returned signal tells the drill whether to replay the target's
// audio as a hint. Phase completion moves to Review when items were deferred,
// otherwise to the next pack (or the sentences phase after the last pack).
func (e *Engine) HandleProductionResult(passed bool) (mastery.ProductionSignal, error) {
	if e.mode != ModeTestC && e.mode != ModeReview {
		return mastery.ProductionSignal{}, fmt.Errorf("progression: spoken production attempt in mode %q", e.mode)
	}
	phase := e.mode.phase()
	sig, err := e.tracker.RecordProductionAttempt(phase, e.target, passed)
	if err != nil {
		return mastery.ProductionSignal{}, fmt.Errorf("progression: %w", err)
	}
	if !passed {
		// Same target again; the hint, if any, is the caller's concern.
		return sig, nil
	}
	if !e.tracker.PhaseComplete(phase) {
		e.target, _ = e.tracker.PickNextTarget(phase)
		return sig, nil
	}
	if e.mode == ModeTestC && len(e.tracker.Deferred()) > 0 {
		e.enterReview()
		return sig, nil
	}
	e.nextPack()
	return sig, nil
}

// enterPack (re)initialises mastery for the pack at packIdx and starts Learn.
func (e *Engine) enterPack() {
	p := &e.lesson.Packs[e.packIdx]
	e.tracker = mastery.New(p.ItemIDs(), e.trackerOpts...)
	e.mode = ModeLearn
	e.itemIdx = 0
	e.syncLearnTarget()
}

func (e *Engine) enterTest(m Mode) {
	e.mode = m
	e.target, _ = e.tracker.PickNextTarget(m.phase())
}

func (e *Engine) enterReview() {
	e.tracker.BeginReview()
	e.mode = ModeReview
	e.target, _ = e.tracker.PickNextTarget(mastery.PhaseReview)
}

func (e *Engine) nextPack() {
	if e.packIdx+1 < len(e.lesson.Packs) {
		e.packIdx++
		e.enterPack()
		return
	}
	e.enterSentences()
}

func (e *Engine) enterSentences() {
	if len(e.lesson.Sentences) == 0 {
		e.end()
		return
	}
	ids := make([]string, len(e.lesson.Sentences))
	for i, s := range e.lesson.Sentences {
		ids[i] = s.ID
	}
	e.sentences = mastery.New(ids, e.trackerOpts...)
	e.mode = ModeSentences
	e.itemIdx = 0
	e.syncLearnTarget()
}

func (e *Engine) end() {
	e.mode = ModeEnd
	e.target = ""
}

// syncLearnTarget advances Learn/Sentences to the item at itemIdx, rolling
// over to the next phase when the list is exhausted.
func (e *Engine) syncLearnTarget() {
	switch e.mode {
	case ModeLearn:
		items := e.lesson.Packs[e.packIdx].Items
		if e.itemIdx >= len(items) {
			e.enterTest(ModeTestA)
			return
		}
		e.target = items[e.itemIdx].ID
	case ModeSentences:
		if e.itemIdx >= len(e.lesson.Sentences) {
			e.end()
			return
		}
		e.target = e.lesson.Sentences[e.itemIdx].ID
	}
}
