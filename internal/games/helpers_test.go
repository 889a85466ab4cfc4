package games

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goodtune/wordbuddy/internal/clock"
	"github.com/goodtune/wordbuddy/internal/content"
	"github.com/goodtune/wordbuddy/internal/random"
	"github.com/rs/zerolog"
)

var epoch = time.Date(2024, 1, 1, 9, 0, 0, 0, time.Local)

func testPools() *content.Pools {
	return &content.Pools{
		Items: []content.Item{
			{ID: "cat", Word: "cat", Translation: "gato", Emoji: "🐱"},
			{ID: "dog", Word: "dog", Translation: "perro", Emoji: "🐶"},
			{ID: "sun", Word: "sun", Translation: "sol", Emoji: "☀️"},
			{ID: "fish", Word: "fish", Translation: "pez", Emoji: "🐟"},
			{ID: "book", Word: "book", Translation: "libro", Emoji: "📖"},
			{ID: "tree", Word: "tree", Translation: "árbol", Emoji: "🌳"},
			{ID: "milk", Word: "milk", Translation: "leche", Emoji: "🥛"},
		},
		Sentences: []content.Sentence{
			{ID: "like-apples", Words: []string{"I", "like", "red", "apples"}, Canonical: "I like red apples"},
		},
	}
}

type fakeSpeaker struct {
	mu         sync.Mutex
	spoken     []string
	prefetched []string
	ctxs       []context.Context
}

func (s *fakeSpeaker) Speak(ctx context.Context, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, text)
	s.ctxs = append(s.ctxs, ctx)
	return true
}

func (s *fakeSpeaker) Prefetch(_ context.Context, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefetched = append(s.prefetched, text)
}

func (s *fakeSpeaker) Spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}

type harness struct {
	game    Game
	clock   *clock.Fake
	speaker *fakeSpeaker
}

func newHarness(t *testing.T, kind Kind, src random.Source) *harness {
	t.Helper()
	if src == nil {
		src = &random.Fixed{}
	}
	h := &harness{clock: clock.NewFake(epoch), speaker: &fakeSpeaker{}}
	g, err := New(kind, Deps{
		Clock:   h.clock,
		Random:  src,
		Speaker: h.speaker,
		Pools:   testPools(),
		Logger:  zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("New(%s) failed: %v", kind, err)
	}
	g.Start()
	h.game = g
	t.Cleanup(g.Close)
	return h
}

func (h *harness) do(t *testing.T, action string, index int) {
	t.Helper()
	if err := h.game.Handle(Input{Action: action, Index: index}); err != nil {
		t.Fatalf("%s %d failed: %v", action, index, err)
	}
}

func (h *harness) expectPhase(t *testing.T, want Phase) {
	t.Helper()
	if got := h.game.Phase(); got != want {
		t.Fatalf("expected phase %s, got %s", want, got)
	}
}

func (h *harness) expectScore(t *testing.T, want int) {
	t.Helper()
	if got := h.game.Score(); got != want {
		t.Fatalf("expected score %d, got %d", want, got)
	}
}

func expectRejected(t *testing.T, err error) {
	t.Helper()
	if !errors.Is(err, ErrInputRejected) {
		t.Fatalf("expected ErrInputRejected, got %v", err)
	}
}
