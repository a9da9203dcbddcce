package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sprachpilot/parlo/internal/drill"
	"github.com/sprachpilot/parlo/internal/lang"
	"github.com/sprachpilot/parlo/internal/lesson"
	"github.com/sprachpilot/parlo/internal/progression"
	"github.com/sprachpilot/parlo/pkg/provider/listen"
)

// drillLoop drives one terminal session until the lesson ends or the
// context is cancelled. All learner input flows through the listen
// provider so the capture backend owns stdin exclusively.
func drillLoop(ctx context.Context, r *drill.Runner, canon *lang.Canonicalizer, les *lesson.Lesson) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		state := r.State()

		var err error
		switch state.Mode {
		case progression.ModeLearn, progression.ModeSentences:
			err = promptedTurn(ctx, r, state, true)
		case progression.ModeTestC, progression.ModeReview:
			err = promptedTurn(ctx, r, state, false)
		case progression.ModeTestA, progression.ModeTestB:
			err = recognitionTurn(ctx, r, canon, les, state)
		case progression.ModeEnd:
			again, endErr := endTurn(ctx, r, les)
			if endErr != nil {
				err = endErr
			} else if !again {
				return nil
			}
		default:
			return fmt.Errorf("drill loop: unexpected mode %q", state.Mode)
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if errors.Is(err, listen.ErrUnavailable) {
				slog.Info("capture ended, closing session")
				return nil
			}
			return err
		}
	}
}

// promptedTurn runs a single speak-and-repeat attempt. In learn and
// sentence modes the target is played first; in production test modes
// the learner must produce it unaided.
func promptedTurn(ctx context.Context, r *drill.Runner, state progression.State, play bool) error {
	item, ok := targetItem(r, state)
	if !ok {
		return fmt.Errorf("drill loop: no target for mode %q", state.Mode)
	}

	if item.Translation != "" {
		fmt.Printf("\n[%s] say: %s (%s)\n", modeLabel(state.Mode), item.TargetText, item.Translation)
	} else {
		fmt.Printf("\n[%s] say: %s\n", modeLabel(state.Mode), item.TargetText)
	}
	if play {
		if err := r.PlayPrompt(ctx, false); err != nil && !errors.Is(err, drill.ErrBusy) {
			slog.Warn("prompt playback failed", "err", err)
		}
	}

	out, err := r.Attempt(ctx)
	if err != nil {
		if errors.Is(err, drill.ErrBusy) {
			return nil
		}
		return err
	}
	printOutcome(out, item)
	return nil
}

// recognitionTurn presents the open pack items as numbered options,
// plays the target, and reads the learner's pick through the listener.
func recognitionTurn(ctx context.Context, r *drill.Runner, canon *lang.Canonicalizer, les *lesson.Lesson, state progression.State) error {
	item, ok := targetItem(r, state)
	if !ok {
		return fmt.Errorf("drill loop: no target for mode %q", state.Mode)
	}
	options := les.Packs[state.PackIndex].Items

	fmt.Printf("\n[%s] which one did you hear?\n", modeLabel(state.Mode))
	for i, opt := range options {
		fmt.Printf("  %d) %s\n", i+1, opt.TargetText)
	}
	if err := r.PlayPrompt(ctx, false); err != nil && !errors.Is(err, drill.ErrBusy) {
		slog.Warn("prompt playback failed", "err", err)
	}

	answer, err := readLine(ctx, r)
	if err != nil {
		return err
	}
	if answer == "" {
		fmt.Println("  no answer captured, playing it again")
		return nil
	}

	correct := matchesPick(canon, item, options, answer)
	if _, err := r.Pick(ctx, correct); err != nil {
		return err
	}
	if correct {
		fmt.Println("  ✓ correct")
	} else {
		fmt.Printf("  ✗ that was not it\n")
	}
	return nil
}

// endTurn reports lesson completion and asks whether to run it again.
func endTurn(ctx context.Context, r *drill.Runner, les *lesson.Lesson) (bool, error) {
	fmt.Printf("\n🎉 lesson %q complete! type \"again\" to restart, anything else to quit.\n", les.Title)
	answer, err := readLine(ctx, r)
	if err != nil {
		return false, err
	}
	if strings.EqualFold(strings.TrimSpace(answer), "again") {
		r.Restart(ctx)
		return true, nil
	}
	return false, nil
}

// matchesPick accepts an option number, an item id, or the typed text of
// the target itself.
func matchesPick(canon *lang.Canonicalizer, target lesson.Item, options []lesson.Item, answer string) bool {
	if n, err := strconv.Atoi(strings.TrimSpace(answer)); err == nil {
		return n >= 1 && n <= len(options) && options[n-1].ID == target.ID
	}
	if strings.EqualFold(strings.TrimSpace(answer), target.ID) {
		return true
	}
	return canon.Canonicalize(answer) == canon.Canonicalize(target.TargetText)
}

// readLine captures one line of learner input via the listen provider.
func readLine(ctx context.Context, r *drill.Runner) (string, error) {
	out, err := r.Capture(ctx)
	if err != nil {
		return "", err
	}
	return out, nil
}

func targetItem(r *drill.Runner, state progression.State) (lesson.Item, bool) {
	if state.TargetID == "" {
		return lesson.Item{}, false
	}
	return r.Target()
}

func printOutcome(out *drill.Outcome, item lesson.Item) {
	switch out.Kind {
	case drill.OutcomePass:
		fmt.Printf("  ✓ %d%% — heard %q\n", out.Verdict.OverallPercent, out.Transcript)
	case drill.OutcomeFail:
		fmt.Printf("  ✗ %d%% — heard %q, wanted %q\n", out.Verdict.OverallPercent, out.Transcript, item.TargetText)
	case drill.OutcomeEmpty:
		fmt.Println("  … nothing captured, try again")
	case drill.OutcomeGated:
		fmt.Printf("  ? didn't catch that (%s), try again\n", out.GateReason)
	case drill.OutcomeNeedConfirm:
		fmt.Printf("  ✓ %d%% — once more to confirm\n", out.Verdict.OverallPercent)
	}
	if out.Hint {
		fmt.Printf("  💡 listen closely: %s\n", item.TargetText)
	}
}

func modeLabel(m progression.Mode) string {
	switch m {
	case progression.ModeLearn:
		return "learn"
	case progression.ModeTestA:
		return "test A"
	case progression.ModeTestB:
		return "test B"
	case progression.ModeTestC:
		return "test C"
	case progression.ModeReview:
		return "review"
	case progression.ModeSentences:
		return "sentences"
	default:
		return string(m)
	}
}
