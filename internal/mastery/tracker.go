// Package mastery tracks per-item learning state within one vocabulary pack:
// learn-phase fail counts, per-test-phase correct counts, the deferred review
// set, and the production-phase fail streak that triggers hints.
//
// All operations are synchronous reductions over in-memory state. The tracker
// never signals expected conditions (a wrong answer, a low score) through
// errors; those are modeled as returned actions and counts. Errors are
// reserved for caller bugs such as an unknown item id.
package mastery

import (
	"fmt"
	"math/rand/v2"
	"slices"
)

// Defaults for the pack cycle, overridable per tracker.
const (
	// DefaultNeedEach is how many correct attempts finish an item per test phase.
	DefaultNeedEach = 2

	// DefaultFailsToContainer is how many consecutive learn fails defer an item.
	DefaultFailsToContainer = 4

	// DefaultFailsBeforeHint is the production fail streak that surfaces a hint.
	DefaultFailsBeforeHint = 3
)

// Phase identifies one test phase of the pack cycle.
type Phase string

const (
	// PhaseTestA is image recognition: hear the word, pick the picture.
	PhaseTestA Phase = "test_a"

	// PhaseTestB is the same shape as TestA with audio-only presentation.
	PhaseTestB Phase = "test_b"

	// PhaseTestC is production: see the item, speak it.
	PhaseTestC Phase = "test_c"

	// PhaseReview is the deferred-item pass after TestC; scored like TestC.
	PhaseReview Phase = "review"
)

// IsValid reports whether p is a recognised test phase.
func (p Phase) IsValid() bool {
	switch p {
	case PhaseTestA, PhaseTestB, PhaseTestC, PhaseReview:
		return true
	}
	return false
}

// Action is the tracker's decision after a learn-phase attempt.
type Action string

const (
	// ActionAdvance moves to the next item in the pack.
	ActionAdvance Action = "advance"

	// ActionRetry repeats the same item.
	ActionRetry Action = "retry"

	// ActionDefer pushes the item into the deferred review set and advances.
	ActionDefer Action = "defer"
)

// DeferPolicy decides what happens when the production fail streak hits the
// hint threshold. Lesson revisions disagreed on this, so it is configuration.
type DeferPolicy string

const (
	// DeferHintOnly surfaces a hint and keeps the item in rotation.
	DeferHintOnly DeferPolicy = "hint_only"

	// DeferToReview surfaces the hint and also pushes the item to review.
	DeferToReview DeferPolicy = "defer"
)

// IsValid reports whether d is a recognised defer policy.
func (d DeferPolicy) IsValid() bool {
	return d == DeferHintOnly || d == DeferToReview
}

// ProductionSignal is the tracker's decision after a production-phase
// (TestC or Review) attempt.
type ProductionSignal struct {
	// Correct echoes whether the attempt passed.
	Correct bool

	// Count is the item's correct count for the phase after this attempt.
	Count int

	// Done is true once the item reached the phase's required correct count.
	Done bool

	// Hint is true when the fail streak reached the hint threshold and the
	// target's audio should be replayed for the learner.
	Hint bool

	// Deferred is true when this attempt pushed the item into the deferred
	// review set (only under [DeferToReview] policy).
	Deferred bool
}

// itemState holds the per-item counters for the current pack cycle.
type itemState struct {
	learnFails  int
	testCorrect map[Phase]int
	deferred    bool
	failStreak  int
}

// Option is a functional option for configuring a [Tracker].
type Option func(*Tracker)

// WithNeedEach overrides the per-phase correct count required per item.
func WithNeedEach(n int) Option {
	return func(t *Tracker) {
		t.needEach = n
	}
}

// WithFailsToContainer overrides the learn fail count that defers an item.
func WithFailsToContainer(n int) Option {
	return func(t *Tracker) {
		t.failsToContainer = n
	}
}

// WithFailsBeforeHint overrides the production fail streak that surfaces a hint.
func WithFailsBeforeHint(n int) Option {
	return func(t *Tracker) {
		t.failsBeforeHint = n
	}
}

// WithDeferPolicy sets what a hint-threshold fail streak does in production
// phases. Default: [DeferHintOnly].
func WithDeferPolicy(p DeferPolicy) Option {
	return func(t *Tracker) {
		t.deferPolicy = p
	}
}

// WithRand injects the random source used by [Tracker.PickNextTarget], so
// tests can pin the selection order. Default: the shared process-wide source.
func WithRand(r *rand.Rand) Option {
	return func(t *Tracker) {
		t.intN = r.IntN
	}
}

// Tracker accumulates mastery state for the items of a single pack.
// It is not safe for concurrent use; the drill loop owns it.
type Tracker struct {
	needEach         int
	failsToContainer int
	failsBeforeHint  int
	deferPolicy      DeferPolicy

	intN func(int) int

	order    []string
	items    map[string]*itemState
	deferred []string
}

// New creates a tracker over the given pack item ids, in pack order.
func New(itemIDs []string, opts ...Option) *Tracker {
	t := &Tracker{
		needEach:         DefaultNeedEach,
		failsToContainer: DefaultFailsToContainer,
		failsBeforeHint:  DefaultFailsBeforeHint,
		deferPolicy:      DeferHintOnly,
		intN:             rand.IntN,
		order:            slices.Clone(itemIDs),
		items:            make(map[string]*itemState, len(itemIDs)),
	}
	for _, id := range itemIDs {
		t.items[id] = &itemState{testCorrect: make(map[Phase]int)}
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// RecordLearnAttempt records one scored learn-phase attempt and returns what
// the drill should do next. Callers must not invoke this for empty-transcript
// captures; those carry no information about the learner's pronunciation and
// must leave every counter untouched.
func (t *Tracker) RecordLearnAttempt(itemID string, passed bool) (Action, error) {
	st, ok := t.items[itemID]
	if !ok {
		return "", fmt.Errorf("mastery: unknown item %q", itemID)
	}
	if passed {
		st.learnFails = 0
		return ActionAdvance, nil
	}
	st.learnFails++
	if st.learnFails >= t.failsToContainer {
		t.pushDeferred(itemID, st)
		return ActionDefer, nil
	}
	return ActionRetry, nil
}

// RecordTestAttempt records one recognition-phase (TestA/TestB) attempt and
// returns the item's correct count for the phase. Only correct attempts count;
// wrong picks carry no penalty and the learner retries freely.
func (t *Tracker) RecordTestAttempt(phase Phase, itemID string, correct bool) (int, error) {
	st, ok := t.items[itemID]
	if !ok {
		return 0, fmt.Errorf("mastery: unknown item %q", itemID)
	}
	if !phase.IsValid() {
		return 0, fmt.Errorf("mastery: unknown phase %q", phase)
	}
	if correct && st.testCorrect[phase] < t.needEach {
		st.testCorrect[phase]++
	}
	return st.testCorrect[phase], nil
}

// RecordProductionAttempt records one scored TestC or Review attempt. A pass
// increments the phase correct count (capped) and clears the fail streak; a
// fail extends the streak and, at the hint threshold, surfaces a hint and
// optionally defers the item per the configured policy. As with learn
// attempts, empty-transcript captures must never reach this method.
func (t *Tracker) RecordProductionAttempt(phase Phase, itemID string, passed bool) (ProductionSignal, error) {
	if phase != PhaseTestC && phase != PhaseReview {
		return ProductionSignal{}, fmt.Errorf("mastery: phase %q is not a production phase", phase)
	}
	st, ok := t.items[itemID]
	if !ok {
		return ProductionSignal{}, fmt.Errorf("mastery: unknown item %q", itemID)
	}

	sig := ProductionSignal{Correct: passed}
	if passed {
		st.failStreak = 0
		if st.testCorrect[phase] < t.needEach {
			st.testCorrect[phase]++
		}
	} else {
		st.failStreak++
		if st.failStreak >= t.failsBeforeHint {
			sig.Hint = true
			st.failStreak = 0
			if phase == PhaseTestC && t.deferPolicy == DeferToReview && !st.deferred {
				t.pushDeferred(itemID, st)
				sig.Deferred = true
			}
		}
	}
	sig.Count = st.testCorrect[phase]
	sig.Done = sig.Count >= t.needEach
	if phase == PhaseReview && sig.Done {
		t.clearDeferred(itemID, st)
	}
	return sig, nil
}

// PhaseComplete reports whether every item of the pack reached the required
// correct count for the phase. For [PhaseReview] only deferred items count.
func (t *Tracker) PhaseComplete(phase Phase) bool {
	for _, id := range t.order {
		st := t.items[id]
		if phase == PhaseReview && !st.deferred {
			continue
		}
		if st.testCorrect[phase] < t.needEach {
			return false
		}
	}
	return true
}

// PickNextTarget returns a uniformly random item that has not yet reached the
// phase's correct-count cap, or "" and false when the phase is complete. For
// [PhaseReview] the choice is restricted to deferred items, in which case the
// earliest-deferred open item is returned instead of a random one.
func (t *Tracker) PickNextTarget(phase Phase) (string, bool) {
	if phase == PhaseReview {
		for _, id := range t.deferred {
			if t.items[id].testCorrect[phase] < t.needEach {
				return id, true
			}
		}
		return "", false
	}
	open := make([]string, 0, len(t.order))
	for _, id := range t.order {
		if t.items[id].testCorrect[phase] < t.needEach {
			open = append(open, id)
		}
	}
	if len(open) == 0 {
		return "", false
	}
	return open[t.intN(len(open))], true
}

// Deferred returns the deferred review set in insertion order.
func (t *Tracker) Deferred() []string {
	return slices.Clone(t.deferred)
}

// IsDeferred reports whether the item currently sits in the deferred set.
func (t *Tracker) IsDeferred(itemID string) bool {
	st, ok := t.items[itemID]
	return ok && st.deferred
}

// LearnFails returns the item's consecutive learn-phase fail count.
func (t *Tracker) LearnFails(itemID string) int {
	if st, ok := t.items[itemID]; ok {
		return st.learnFails
	}
	return 0
}

// BeginReview resets the per-phase counters of every deferred item so the
// review pass starts from zero, as a fresh cycle over the container.
func (t *Tracker) BeginReview() {
	for _, id := range t.deferred {
		st := t.items[id]
		st.testCorrect[PhaseReview] = 0
		st.failStreak = 0
	}
}

// Reset wipes all counters and the deferred set, returning the tracker to the
// state it had at construction. Used on session restart.
func (t *Tracker) Reset() {
	for _, st := range t.items {
		st.learnFails = 0
		st.failStreak = 0
		st.deferred = false
		clear(st.testCorrect)
	}
	t.deferred = t.deferred[:0]
}

func (t *Tracker) pushDeferred(itemID string, st *itemState) {
	if st.deferred {
		return
	}
	st.deferred = true
	t.deferred = append(t.deferred, itemID)
}

func (t *Tracker) clearDeferred(itemID string, st *itemState) {
	if !st.deferred {
		return
	}
	st.deferred = false
	if i := slices.Index(t.deferred, itemID); i >= 0 {
		t.deferred = slices.Delete(t.deferred, i, i+1)
	}
}
