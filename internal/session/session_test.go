package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/goodtune/wordbuddy/internal/clock"
	"github.com/goodtune/wordbuddy/internal/content"
	"github.com/goodtune/wordbuddy/internal/games"
	"github.com/goodtune/wordbuddy/internal/policy"
	"github.com/goodtune/wordbuddy/internal/policy/opa"
	"github.com/goodtune/wordbuddy/internal/random"
	"github.com/goodtune/wordbuddy/internal/storage"
	"github.com/goodtune/wordbuddy/internal/storage/bolt"
	"github.com/goodtune/wordbuddy/internal/usage"
	"github.com/rs/zerolog"
)

type recordingSink struct {
	mu      sync.Mutex
	modes   []Mode
	games   []games.Kind
	prompts []Prompt
}

func (r *recordingSink) ModeChanged(_ string, mode Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modes = append(r.modes, mode)
}

func (r *recordingSink) GameChanged(_ string, kind games.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games = append(r.games, kind)
}

func (r *recordingSink) GatingPrompt(_ string, p Prompt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, p)
}

type fixture struct {
	manager *Manager
	store   *bolt.Store
	clock   *clock.Fake
	sink    *recordingSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := bolt.Open(filepath.Join(t.TempDir(), "wordbuddy.bolt"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	engine, err := policy.NewEngine(opa.Config{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("policy engine: %v", err)
	}

	pools, err := content.Default()
	if err != nil {
		t.Fatalf("content: %v", err)
	}

	clk := clock.NewFake(time.Date(2024, 1, 1, 10, 0, 0, 0, time.Local))
	gate := usage.NewGate(store.Usage(), engine, clk, usage.Config{
		Limits: map[usage.Feature]int{
			usage.FeatureVocabulary: 5,
			usage.FeatureGames:      10,
			usage.FeatureChat:       2,
		},
		FreeGames:    []string{"matching", "spelling"},
		PremiumGames: []string{"memory", "speed_round", "listen_and_pick", "sentence_builder", "bubble_pop"},
	}, zerolog.Nop())

	sink := &recordingSink{}
	manager, err := NewManager(Deps{
		Gate:          gate,
		Pools:         pools,
		Clock:         clk,
		Random:        &random.Fixed{},
		Results:       store.Results(),
		Events:        sink,
		PrefetchAhead: 3,
		Logger:        zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	t.Cleanup(manager.CloseAll)

	return &fixture{manager: manager, store: store, clock: clk, sink: sink}
}

func mustSelectMode(t *testing.T, s *Session, mode Mode) usage.Decision {
	t.Helper()
	d, err := s.SelectMode(context.Background(), mode)
	if err != nil {
		t.Fatalf("SelectMode(%s) failed: %v", mode, err)
	}
	return d
}

func mustSelectGame(t *testing.T, s *Session, kind games.Kind) usage.Decision {
	t.Helper()
	d, err := s.SelectGame(context.Background(), kind)
	if err != nil {
		t.Fatalf("SelectGame(%s) failed: %v", kind, err)
	}
	return d
}

func TestVocabularyModeHitsDailyLimit(t *testing.T) {
	f := newFixture(t)
	s := f.manager.Open(false)

	for i := 0; i < 5; i++ {
		if d := mustSelectMode(t, s, ModeVocabulary); !d.Allowed {
			t.Fatalf("entry %d denied: %+v", i+1, d)
		}
		mustSelectMode(t, s, ModeMenu)
	}

	d := mustSelectMode(t, s, ModeVocabulary)
	if d.Allowed || d.Reason != policy.ReasonDailyLimit || d.Remaining != 0 {
		t.Fatalf("expected daily limit denial, got %+v", d)
	}
	if s.Mode() != ModeMenu {
		t.Fatalf("denial must not transition, mode is %s", s.Mode())
	}
	if len(f.sink.prompts) != 1 || f.sink.prompts[0].Feature != usage.FeatureVocabulary {
		t.Fatalf("expected one vocabulary prompt, got %+v", f.sink.prompts)
	}

	// The next day the allowance is back.
	f.clock.Advance(24 * time.Hour)
	if d := mustSelectMode(t, s, ModeVocabulary); !d.Allowed {
		t.Fatalf("expected allowance after rollover, got %+v", d)
	}
}

func TestPremiumSessionNeverCounts(t *testing.T) {
	f := newFixture(t)
	s := f.manager.Open(true)

	for i := 0; i < 8; i++ {
		if d := mustSelectMode(t, s, ModeVocabulary); !d.Allowed || d.Reason != policy.ReasonPremium {
			t.Fatalf("expected premium allowance, got %+v", d)
		}
	}
	if _, err := f.store.Usage().GetCounter(context.Background(), string(usage.FeatureVocabulary)); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("premium entries must not touch the counter, got %v", err)
	}
}

func TestGameTiers(t *testing.T) {
	f := newFixture(t)
	s := f.manager.Open(false)

	if _, err := s.SelectGame(context.Background(), games.Memory); !errors.Is(err, ErrGamesNotOpen) {
		t.Fatalf("expected ErrGamesNotOpen, got %v", err)
	}

	if d := mustSelectMode(t, s, ModeGames); !d.Allowed || !d.Counted {
		t.Fatalf("expected counted hub entry, got %+v", d)
	}

	if d := mustSelectGame(t, s, games.Matching); !d.Allowed || d.Reason != policy.ReasonFreeGame || d.Counted {
		t.Fatalf("expected free game, got %+v", d)
	}

	d := mustSelectGame(t, s, games.Memory)
	if d.Allowed || d.Reason != policy.ReasonPremiumRequired {
		t.Fatalf("expected premium required, got %+v", d)
	}
	if s.Game().Kind() != games.Matching {
		t.Fatal("denial must keep the mounted game")
	}
	if p := f.sink.prompts[len(f.sink.prompts)-1]; p.Game != games.Memory {
		t.Fatalf("expected prompt for memory, got %+v", p)
	}

	s.SetPremium(true)
	if d := mustSelectGame(t, s, games.Memory); !d.Allowed || d.Reason != policy.ReasonPremium {
		t.Fatalf("expected upgrade to take effect, got %+v", d)
	}
	if s.Game().Kind() != games.Memory {
		t.Fatalf("expected memory mounted, got %s", s.Game().Kind())
	}
}

func TestFreeGamesSurviveSpentGamesLimit(t *testing.T) {
	f := newFixture(t)
	s := f.manager.Open(false)

	for i := 0; i < 10; i++ {
		if d := mustSelectMode(t, s, ModeGames); !d.Allowed {
			t.Fatalf("hub entry %d denied: %+v", i+1, d)
		}
		mustSelectMode(t, s, ModeMenu)
	}
	if d := mustSelectMode(t, s, ModeGames); d.Allowed || d.Reason != policy.ReasonDailyLimit {
		t.Fatalf("expected hub denial, got %+v", d)
	}
	if s.Mode() != ModeMenu {
		t.Fatalf("expected menu, got %s", s.Mode())
	}

	d := mustSelectGame(t, s, games.Matching)
	if !d.Allowed || d.Reason != policy.ReasonFreeGame || d.Counted {
		t.Fatalf("expected free game, got %+v", d)
	}
	if s.Mode() != ModeGames || s.Game() == nil || s.Game().Kind() != games.Matching {
		t.Fatalf("expected matching mounted in the hub, mode %s", s.Mode())
	}

	counter, err := f.store.Usage().GetCounter(context.Background(), string(usage.FeatureGames))
	if err != nil {
		t.Fatalf("GetCounter: %v", err)
	}
	if counter.Count != 10 {
		t.Fatalf("free game must not count, got %d", counter.Count)
	}

	if err := s.BackToGames(); err != nil {
		t.Fatalf("BackToGames: %v", err)
	}
	mustSelectGame(t, s, games.Spelling)
	if d := mustSelectGame(t, s, games.Memory); d.Allowed {
		t.Fatalf("expected premium game denied, got %+v", d)
	}
}

func TestFreeGameFromDrillUnmountsDeck(t *testing.T) {
	f := newFixture(t)
	s := f.manager.Open(false)

	mustSelectMode(t, s, ModeVocabulary)
	mustSelectGame(t, s, games.Spelling)
	if s.Drill() != nil || s.Mode() != ModeGames {
		t.Fatalf("expected deck unmounted and hub open, mode %s", s.Mode())
	}
	if _, err := f.store.Usage().GetCounter(context.Background(), string(usage.FeatureGames)); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("free game must not touch the games counter, got %v", err)
	}
}

func TestConsumeExternalChat(t *testing.T) {
	f := newFixture(t)
	s := f.manager.Open(false)
	mustSelectMode(t, s, ModeVocabulary)

	for i := 0; i < 2; i++ {
		d, err := s.ConsumeExternal(context.Background(), usage.FeatureChat)
		if err != nil || !d.Allowed || !d.Counted {
			t.Fatalf("chat %d: %+v, %v", i+1, d, err)
		}
	}
	d, err := s.ConsumeExternal(context.Background(), usage.FeatureChat)
	if err != nil || d.Allowed || d.Reason != policy.ReasonDailyLimit {
		t.Fatalf("expected chat limit denial, got %+v, %v", d, err)
	}
	if p := f.sink.prompts[len(f.sink.prompts)-1]; p.Feature != usage.FeatureChat {
		t.Fatalf("expected chat prompt, got %+v", p)
	}
	if s.Mode() != ModeVocabulary || s.Drill() == nil {
		t.Fatal("chat must not change the mode")
	}

	if _, err := s.ConsumeExternal(context.Background(), usage.FeatureVocabulary); !errors.Is(err, ErrUnknownFeature) {
		t.Fatalf("expected ErrUnknownFeature for a mode feature, got %v", err)
	}

	s.SetPremium(true)
	if d, _ := s.ConsumeExternal(context.Background(), usage.FeatureChat); !d.Allowed || d.Counted {
		t.Fatalf("expected uncounted premium chat, got %+v", d)
	}
}

func TestReenteringGameStartsFreshRound(t *testing.T) {
	f := newFixture(t)
	s := f.manager.Open(false)
	mustSelectMode(t, s, ModeGames)
	mustSelectGame(t, s, games.Matching)

	old := s.Game()
	snap := old.Snapshot().(games.MatchingSnapshot)
	left := snap.Left[0]
	for _, right := range snap.Right {
		if right.ID == left.ID {
			if err := s.Handle(context.Background(), games.Input{Action: "select_left", Index: left.Position}); err != nil {
				t.Fatalf("select_left: %v", err)
			}
			if err := s.Handle(context.Background(), games.Input{Action: "select_right", Index: right.Position}); err != nil {
				t.Fatalf("select_right: %v", err)
			}
		}
	}
	if old.Score() == 0 {
		t.Fatal("expected a scored match")
	}

	if err := s.BackToGames(); err != nil {
		t.Fatalf("BackToGames: %v", err)
	}
	if err := s.Handle(context.Background(), games.Input{Action: "select_left"}); !errors.Is(err, ErrNoActiveGame) {
		t.Fatalf("expected ErrNoActiveGame, got %v", err)
	}
	if err := old.Handle(games.Input{Action: "select_left"}); !errors.Is(err, games.ErrInputRejected) {
		t.Fatalf("expected the old round to be closed, got %v", err)
	}

	mustSelectGame(t, s, games.Matching)
	if s.Game() == old || s.Game().Score() != 0 || s.Game().Phase() != games.PhaseAwaitingInput {
		t.Fatal("expected a fresh round")
	}
}

func TestBackToMenuCancelsTimers(t *testing.T) {
	f := newFixture(t)
	s := f.manager.Open(true)
	mustSelectMode(t, s, ModeGames)
	mustSelectGame(t, s, games.BubblePop)

	if f.clock.Pending() == 0 {
		t.Fatal("expected bubble timers")
	}
	if err := s.BackToMenu(context.Background()); err != nil {
		t.Fatalf("BackToMenu: %v", err)
	}
	if f.clock.Pending() != 0 {
		t.Fatalf("expected timers cancelled, %d pending", f.clock.Pending())
	}
	if s.Game() != nil || s.Mode() != ModeMenu {
		t.Fatal("expected menu with no game")
	}
}

func TestCompletedRoundIsRecorded(t *testing.T) {
	f := newFixture(t)
	s := f.manager.Open(true)
	mustSelectMode(t, s, ModeGames)
	mustSelectGame(t, s, games.SpeedRound)

	f.clock.Advance(time.Minute)

	results, err := f.store.Results().QueryResults(context.Background(), storage.ResultFilter{SessionID: s.ID()})
	if err != nil {
		t.Fatalf("QueryResults: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if r := results[0]; r.Game != string(games.SpeedRound) || !r.Premium || r.CompletedAt.Sub(r.StartedAt) != time.Minute {
		t.Fatalf("unexpected result %+v", r)
	}
}

func TestHandleRoutesToDrills(t *testing.T) {
	f := newFixture(t)
	s := f.manager.Open(false)

	mustSelectMode(t, s, ModeVocabulary)
	if err := s.Handle(context.Background(), games.Input{Action: "next"}); err != nil {
		t.Fatalf("next: %v", err)
	}
	if snap := s.Snapshot(); snap.Card == nil || snap.Card.Position != 2 {
		t.Fatalf("expected second card, got %+v", snap.Card)
	}

	mustSelectMode(t, s, ModeDailyChallenge)
	if s.Drill() != nil {
		t.Fatal("expected deck unmounted")
	}
	for i := 0; i < 5; i++ {
		if err := s.Handle(context.Background(), games.Input{Action: "answer"}); err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
	}
	if err := s.Handle(context.Background(), games.Input{Action: "answer"}); !errors.Is(err, games.ErrInputRejected) {
		t.Fatalf("expected rejection after the last question, got %v", err)
	}
	if snap := s.Snapshot(); snap.Challenge == nil || !snap.Challenge.Complete || snap.Challenge.Date != "2024-01-01" {
		t.Fatalf("unexpected challenge %+v", snap.Challenge)
	}
}

func TestInvalidSelections(t *testing.T) {
	f := newFixture(t)
	s := f.manager.Open(false)

	if _, err := s.SelectMode(context.Background(), Mode("chat")); !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("expected ErrUnknownMode, got %v", err)
	}
	mustSelectMode(t, s, ModeGames)
	if _, err := s.SelectGame(context.Background(), games.Kind("chess")); !errors.Is(err, ErrUnknownGame) {
		t.Fatalf("expected ErrUnknownGame, got %v", err)
	}
	if err := s.Replay(); !errors.Is(err, ErrNoActiveGame) {
		t.Fatalf("expected ErrNoActiveGame, got %v", err)
	}
}

func TestManagerLifecycle(t *testing.T) {
	f := newFixture(t)
	a := f.manager.Open(false)
	b := f.manager.Open(true)

	if got := f.manager.List(); len(got) != 2 {
		t.Fatalf("expected 2 sessions, got %v", got)
	}
	if s, ok := f.manager.Get(a.ID()); !ok || s != a {
		t.Fatal("expected to find session a")
	}

	if err := f.manager.Close(a.ID()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := f.manager.Close(a.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := a.SelectMode(context.Background(), ModeGames); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if !b.Premium() {
		t.Fatal("expected b to stay premium")
	}
}
