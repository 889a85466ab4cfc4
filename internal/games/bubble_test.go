package games

import (
	"errors"
	"testing"
	"time"

	"github.com/goodtune/wordbuddy/internal/random"
)

func bubbleSnap(t *testing.T, h *harness) BubblePopSnapshot {
	t.Helper()
	return h.game.Snapshot().(BubblePopSnapshot)
}

func TestBubblePopTargetScoresAndChanges(t *testing.T) {
	h := newHarness(t, BubblePop, nil)

	snap := bubbleSnap(t, h)
	if snap.Target != "gato" || len(snap.Bubbles) != 1 || snap.Bubbles[0].Word != "cat" {
		t.Fatalf("unexpected start %+v", snap)
	}

	h.do(t, "pop", snap.Bubbles[0].ID)
	h.expectScore(t, bubblePoints)
	h.expectPhase(t, PhaseAwaitingInput)

	snap = bubbleSnap(t, h)
	if snap.Target == "gato" {
		t.Fatal("expected a new target after a correct pop")
	}
	if len(snap.Bubbles) != 0 || snap.Popped != 1 {
		t.Fatalf("expected popped bubble removed, got %+v", snap)
	}
}

func TestBubblePopWrongBubbleNoPenalty(t *testing.T) {
	// Target pick, then a distractor spawn, then a target spawn.
	h := newHarness(t, BubblePop, &random.Fixed{Values: []int{0, 1}})

	snap := bubbleSnap(t, h)
	if snap.Bubbles[0].Word != "dog" {
		t.Fatalf("expected a distractor bubble, got %+v", snap.Bubbles)
	}
	h.do(t, "pop", snap.Bubbles[0].ID)
	h.expectScore(t, 0)
	if snap := bubbleSnap(t, h); len(snap.Bubbles) != 0 || snap.Target != "gato" {
		t.Fatalf("expected bubble removed and target kept, got %+v", snap)
	}

	h.clock.Advance(bubbleSpawnInterval)
	snap = bubbleSnap(t, h)
	if len(snap.Bubbles) != 1 || snap.Bubbles[0].Word != "cat" {
		t.Fatalf("expected target bubble after spawn, got %+v", snap.Bubbles)
	}
	h.do(t, "pop", snap.Bubbles[0].ID)
	h.expectScore(t, bubblePoints)
}

func TestBubblePopBubblesRiseAway(t *testing.T) {
	h := newHarness(t, BubblePop, nil)

	h.clock.Advance(time.Second)
	snap := bubbleSnap(t, h)
	if len(snap.Bubbles) != 2 {
		t.Fatalf("expected 2 bubbles after 1s, got %d", len(snap.Bubbles))
	}
	if snap.Bubbles[0].Height < 11.9 || snap.Bubbles[0].Height > 12.1 {
		t.Fatalf("expected first bubble at 12%%, got %f", snap.Bubbles[0].Height)
	}

	h.clock.Advance(8 * time.Second)
	if err := h.game.Handle(Input{Action: "pop", Index: 0}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected escaped bubble to be gone, got %v", err)
	}
}

func TestBubblePopEndsOnCountdown(t *testing.T) {
	h := newHarness(t, BubblePop, nil)

	h.clock.Advance(bubbleDuration - bubbleSpawnInterval)
	h.expectPhase(t, PhaseAwaitingInput)
	h.clock.Advance(bubbleSpawnInterval)

	h.expectPhase(t, PhaseComplete)
	if snap := bubbleSnap(t, h); len(snap.Bubbles) != 0 || snap.Remaining != 0 {
		t.Fatalf("expected cleared board, got %+v", snap)
	}
	if h.clock.Pending() != 0 {
		t.Fatalf("expected no pending timers, got %d", h.clock.Pending())
	}
	expectRejected(t, h.game.Handle(Input{Action: "pop", Index: 0}))
}
