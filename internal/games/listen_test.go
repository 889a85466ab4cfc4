package games

import (
	"testing"

	"github.com/goodtune/wordbuddy/internal/random"
)

func listenSnap(t *testing.T, h *harness) ListenSnapshot {
	t.Helper()
	return h.game.Snapshot().(ListenSnapshot)
}

// pickTarget returns the option position for the most recently spoken word
// and some other position.
func pickTarget(t *testing.T, h *harness) (right, wrong int) {
	t.Helper()
	spoken := h.speaker.Spoken()
	if len(spoken) == 0 {
		t.Fatal("expected the target to be spoken")
	}
	target := spoken[len(spoken)-1]
	right, wrong = -1, -1
	for _, o := range listenSnap(t, h).Options {
		if o.Word == target {
			right = o.Position
		} else if wrong < 0 {
			wrong = o.Position
		}
	}
	if right < 0 {
		t.Fatalf("target %s not among options", target)
	}
	return right, wrong
}

func TestListenAndPickOnlyTargetIsCorrect(t *testing.T) {
	h := newHarness(t, ListenAndPick, random.New(11))

	if got := len(listenSnap(t, h).Options); got != listenOptions {
		t.Fatalf("expected %d options, got %d", listenOptions, got)
	}

	right, wrong := pickTarget(t, h)
	h.do(t, "pick", wrong)
	h.expectPhase(t, PhaseFeedback)
	h.expectScore(t, 0)

	h.clock.Advance(listenFeedbackDelay)
	if got := listenSnap(t, h).Round; got != 2 {
		t.Fatalf("expected round 2, got %d", got)
	}

	right, _ = pickTarget(t, h)
	h.do(t, "pick", right)
	h.expectScore(t, listenPoints)
	if fb := listenSnap(t, h).Feedback; fb == nil || !fb.Correct || fb.Delta != listenPoints {
		t.Fatalf("expected correct feedback, got %+v", fb)
	}
}

func TestListenAndPickReplayAudio(t *testing.T) {
	h := newHarness(t, ListenAndPick, nil)

	h.do(t, "replay_audio", 0)
	spoken := h.speaker.Spoken()
	if len(spoken) != 2 || spoken[0] != spoken[1] {
		t.Fatalf("expected the target spoken twice, got %v", spoken)
	}
	h.expectPhase(t, PhaseAwaitingInput)
}

func TestListenAndPickCompletesAfterFiveRounds(t *testing.T) {
	h := newHarness(t, ListenAndPick, random.New(5))

	for i := 0; i < listenRounds; i++ {
		right, _ := pickTarget(t, h)
		h.do(t, "pick", right)
		h.clock.Advance(listenFeedbackDelay)
	}

	h.expectPhase(t, PhaseComplete)
	h.expectScore(t, listenRounds*listenPoints)
	expectRejected(t, h.game.Handle(Input{Action: "replay_audio"}))
}
