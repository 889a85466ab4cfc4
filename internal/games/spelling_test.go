package games

import (
	"errors"
	"testing"
)

func spellingSnap(t *testing.T, h *harness) SpellingSnapshot {
	t.Helper()
	return h.game.Snapshot().(SpellingSnapshot)
}

func slotLetters(snap SpellingSnapshot) string {
	out := ""
	for _, s := range snap.Slots {
		if s.Letter == "" {
			out += "_"
		} else {
			out += s.Letter
		}
	}
	return out
}

// With the scripted source the first word is CAT and the pool is
// C, A, T plus the distractors B and D, unshuffled.
func TestSpellingPoolHasDistractors(t *testing.T) {
	h := newHarness(t, Spelling, nil)
	snap := spellingSnap(t, h)

	if len(snap.Pool) != 5 {
		t.Fatalf("expected 5 tiles, got %d", len(snap.Pool))
	}
	letters := ""
	for _, tile := range snap.Pool {
		letters += tile.Letter
	}
	if letters != "CATBD" {
		t.Fatalf("unexpected pool %s", letters)
	}
	if snap.Translation != "gato" || len(snap.Slots) != 3 {
		t.Fatalf("unexpected prompt %+v", snap)
	}
}

func TestSpellingFullScoreWithoutHints(t *testing.T) {
	h := newHarness(t, Spelling, nil)

	h.do(t, "place", 0)
	h.do(t, "place", 1)
	h.expectPhase(t, PhaseAwaitingInput)
	h.do(t, "place", 2)
	h.do(t, "submit", 0)

	h.expectPhase(t, PhaseFeedback)
	h.expectScore(t, spellingTiers[0])
	expectRejected(t, h.game.Handle(Input{Action: "hint"}))
	expectRejected(t, h.game.Handle(Input{Action: "remove", Index: 0}))

	h.clock.Advance(spellingFeedbackDelay)
	h.expectPhase(t, PhaseAwaitingInput)
	if snap := spellingSnap(t, h); snap.Word != 2 || snap.HintsUsed != 0 {
		t.Fatalf("expected second word with hints reset, got %+v", snap)
	}
}

func TestSpellingHintLowersTier(t *testing.T) {
	h := newHarness(t, Spelling, nil)

	h.do(t, "hint", 0)
	snap := spellingSnap(t, h)
	if slotLetters(snap) != "C__" || !snap.Slots[0].Hinted || snap.HintsLeft != 1 {
		t.Fatalf("unexpected hint result %+v", snap)
	}

	h.do(t, "place", 1)
	h.do(t, "place", 2)
	h.do(t, "submit", 0)
	h.expectScore(t, spellingTiers[1])
}

func TestSpellingHintCap(t *testing.T) {
	h := newHarness(t, Spelling, nil)

	h.do(t, "hint", 0)
	h.do(t, "hint", 0)
	if err := h.game.Handle(Input{Action: "hint"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected third hint to fail, got %v", err)
	}
	if got := slotLetters(spellingSnap(t, h)); got != "CA_" {
		t.Fatalf("unexpected slots %s", got)
	}

	h.do(t, "place", 2)
	h.do(t, "submit", 0)
	h.expectScore(t, spellingTiers[2])
}

func TestSpellingWrongSubmissionKeepsCorrectTiles(t *testing.T) {
	h := newHarness(t, Spelling, nil)

	if err := h.game.Handle(Input{Action: "submit"}); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady for empty word, got %v", err)
	}

	h.do(t, "place", 0) // C
	h.do(t, "place", 3) // B
	h.do(t, "place", 2) // T
	h.do(t, "submit", 0)

	h.expectPhase(t, PhaseFeedback)
	h.expectScore(t, 0)
	expectRejected(t, h.game.Handle(Input{Action: "place", Index: 1}))
	snap := spellingSnap(t, h)
	if got := slotLetters(snap); got != "C_T" {
		t.Fatalf("expected only the misplaced tile returned, got %s", got)
	}
	if len(snap.Pool) != 3 {
		t.Fatalf("expected 3 tiles back in the pool, got %d", len(snap.Pool))
	}

	h.clock.Advance(spellingFeedbackDelay)
	h.expectPhase(t, PhaseAwaitingInput)
	if spellingSnap(t, h).Word != 1 {
		t.Fatal("expected to retry the same word")
	}

	h.do(t, "place", 1)
	h.do(t, "submit", 0)
	h.expectScore(t, spellingTiers[0])
}

func TestSpellingRemoveReturnsTile(t *testing.T) {
	h := newHarness(t, Spelling, nil)

	h.do(t, "place", 4)
	h.do(t, "remove", 0)
	snap := spellingSnap(t, h)
	if slotLetters(snap) != "___" || len(snap.Pool) != 5 {
		t.Fatalf("expected tile back in pool, got %+v", snap)
	}
	if err := h.game.Handle(Input{Action: "place", Index: 9}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected out of range error, got %v", err)
	}
}

func TestSpellingCompletesAfterAllWords(t *testing.T) {
	h := newHarness(t, Spelling, nil)

	for i := 0; i < spellingWords; i++ {
		spellRest(t, h)
		h.clock.Advance(spellingFeedbackDelay)
	}

	h.expectPhase(t, PhaseComplete)
	h.expectScore(t, spellingWords*spellingTiers[0])
}

// spellRest fills the remaining slots with the right letters and submits.
func spellRest(t *testing.T, h *harness) {
	t.Helper()
	g := h.game.(*spelling)
	for {
		g.mu.Lock()
		slot := g.firstEmptyLocked()
		var tile int
		if slot >= 0 {
			tile = g.freeTileLocked(g.target[slot])
		}
		g.mu.Unlock()
		if slot < 0 {
			break
		}
		h.do(t, "place", tile)
	}
	h.do(t, "submit", 0)
}
