package games

import (
	"errors"
	"strings"
	"testing"
)

func sentenceSnap(t *testing.T, h *harness) SentenceSnapshot {
	t.Helper()
	return h.game.Snapshot().(SentenceSnapshot)
}

// The scripted source leaves the words in order, so they are rotated to
// "like red apples I".
func TestSentenceBuilderNeverShowsCanonicalOrder(t *testing.T) {
	h := newHarness(t, SentenceBuilder, nil)

	var words []string
	for _, tok := range sentenceSnap(t, h).Available {
		words = append(words, tok.Word)
	}
	if got := strings.Join(words, " "); got != "like red apples I" {
		t.Fatalf("unexpected display order %q", got)
	}
}

func TestSentenceBuilderCorrectOrder(t *testing.T) {
	h := newHarness(t, SentenceBuilder, nil)

	for _, id := range []int{3, 0, 1} {
		h.do(t, "add", id)
	}
	if err := h.game.Handle(Input{Action: "submit"}); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	h.do(t, "add", 2)
	h.do(t, "submit", 0)

	h.expectPhase(t, PhaseFeedback)
	h.expectScore(t, sentencePoints)
	expectRejected(t, h.game.Handle(Input{Action: "clear"}))
	expectRejected(t, h.game.Handle(Input{Action: "submit"}))
	if built := sentenceSnap(t, h).Built; len(built) != 4 {
		t.Fatalf("expected the built sentence kept during feedback, got %v", built)
	}
	if spoken := h.speaker.Spoken(); len(spoken) != 1 || spoken[0] != "I like red apples" {
		t.Fatalf("expected the sentence to be spoken, got %v", spoken)
	}

	h.clock.Advance(sentenceFeedbackDelay)
	h.expectPhase(t, PhaseComplete)
}

func TestSentenceBuilderNoPartialCredit(t *testing.T) {
	h := newHarness(t, SentenceBuilder, nil)

	for _, id := range []int{3, 0, 2, 1} {
		h.do(t, "add", id)
	}
	h.do(t, "submit", 0)

	h.expectScore(t, 0)
	if fb := sentenceSnap(t, h).Feedback; fb == nil || fb.Correct {
		t.Fatalf("expected incorrect feedback, got %+v", fb)
	}
	expectRejected(t, h.game.Handle(Input{Action: "remove", Index: 0}))
}

func TestSentenceBuilderRemoveAndClear(t *testing.T) {
	h := newHarness(t, SentenceBuilder, nil)

	h.do(t, "add", 3)
	h.do(t, "add", 0)
	h.do(t, "remove", 0)
	snap := sentenceSnap(t, h)
	if len(snap.Built) != 1 || snap.Built[0] != "like" || len(snap.Available) != 3 {
		t.Fatalf("unexpected state after remove %+v", snap)
	}

	h.do(t, "clear", 0)
	snap = sentenceSnap(t, h)
	if len(snap.Built) != 0 || len(snap.Available) != 4 {
		t.Fatalf("unexpected state after clear %+v", snap)
	}
}
