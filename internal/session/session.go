// Package session implements the companion session controller: mode and
// game selection behind the usage gate, and the lifecycle of the mounted
// mini-game or drill.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goodtune/wordbuddy/internal/account"
	"github.com/goodtune/wordbuddy/internal/clock"
	"github.com/goodtune/wordbuddy/internal/drill"
	"github.com/goodtune/wordbuddy/internal/games"
	"github.com/goodtune/wordbuddy/internal/policy"
	"github.com/goodtune/wordbuddy/internal/storage"
	"github.com/goodtune/wordbuddy/internal/usage"
	"github.com/rs/zerolog"
)

// Session is one open companion instance. It owns at most one mounted game
// or drill at a time.
type Session struct {
	id      string
	account *account.Static
	deps    Deps
	logger  zerolog.Logger

	mu        sync.Mutex
	closed    bool
	mode      Mode
	game      games.Game
	vocab     *drill.Vocabulary
	challenge *drill.DailyChallenge
}

func newSession(id string, acct *account.Static, deps Deps) *Session {
	return &Session{
		id:      id,
		account: acct,
		deps:    deps,
		logger:  deps.Logger.With().Str("component", "session").Str("session", id).Logger(),
		mode:    ModeMenu,
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Premium reports the current premium flag.
func (s *Session) Premium() bool {
	return s.account.IsPremium(context.Background())
}

// Entitlements returns the account the gate reads for this session.
func (s *Session) Entitlements() usage.Entitlements {
	return s.account
}

// SetPremium changes the premium flag. The next gate check sees the change.
func (s *Session) SetPremium(premium bool) {
	s.account.SetPremium(premium)
	s.logger.Info().Bool("premium", premium).Msg("Entitlement changed")
}

// Mode returns the current mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Game returns the mounted game, if any.
func (s *Session) Game() games.Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game
}

// Drill returns the vocabulary deck while in vocabulary mode.
func (s *Session) Drill() *drill.Vocabulary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vocab
}

// Challenge returns the daily challenge while in daily_challenge mode.
func (s *Session) Challenge() *drill.DailyChallenge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.challenge
}

// SelectMode switches mode after consulting the gate. A denial leaves the
// session where it was and raises a gating prompt.
func (s *Session) SelectMode(ctx context.Context, mode Mode) (usage.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return usage.Decision{}, ErrClosed
	}
	if _, ok := ParseMode(string(mode)); !ok {
		return usage.Decision{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	decision := usage.Decision{Allowed: true, Reason: policy.ReasonUngated, Remaining: policy.Unlimited}
	if feature, gated := modeFeatures[mode]; gated {
		decision = s.deps.Gate.Check(ctx, s.account, usage.Request{Feature: feature})
		if !decision.Allowed {
			s.promptLocked(decision, "")
			return decision, nil
		}
	}

	s.teardownLocked()
	switch mode {
	case ModeVocabulary:
		s.vocab = drill.NewVocabulary(s.deps.Pools.Items, s.deps.Speaker, s.deps.PrefetchAhead)
	case ModeDailyChallenge:
		s.challenge = drill.NewDailyChallenge(clock.Today(s.deps.Clock), s.deps.Pools.Items)
	}
	s.mode = mode

	s.logger.Info().Str("mode", string(mode)).Str("reason", string(decision.Reason)).Msg("Mode selected")
	s.deps.Events.ModeChanged(s.id, mode)
	return decision, nil
}

// SelectGame mounts a fresh round of kind. Outside the games hub only
// free-tier games can be selected; doing so enters the hub without counting
// against the games limit.
func (s *Session) SelectGame(ctx context.Context, kind games.Kind) (usage.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return usage.Decision{}, ErrClosed
	}
	if _, ok := games.ParseKind(string(kind)); !ok {
		return usage.Decision{}, fmt.Errorf("%w: %q", ErrUnknownGame, kind)
	}

	req := usage.Request{Feature: usage.FeatureGames, Game: string(kind)}
	if s.mode != ModeGames {
		if d := s.deps.Gate.Preview(ctx, s.account, req); !d.Allowed || d.Reason != policy.ReasonFreeGame {
			return usage.Decision{}, ErrGamesNotOpen
		}
	}

	decision := s.deps.Gate.Check(ctx, s.account, req)
	if !decision.Allowed {
		s.promptLocked(decision, kind)
		return decision, nil
	}

	game, err := games.New(kind, games.Deps{
		Clock:      s.deps.Clock,
		Random:     s.deps.Random,
		Speaker:    s.deps.Speaker,
		Pools:      s.deps.Pools,
		Logger:     s.deps.Logger,
		OnComplete: s.record,
	})
	if err != nil {
		return decision, err
	}

	if s.mode != ModeGames {
		s.teardownLocked()
		s.mode = ModeGames
		s.deps.Events.ModeChanged(s.id, ModeGames)
	} else {
		s.closeGameLocked()
	}
	game.Start()
	s.game = game

	s.logger.Info().Str("game", string(kind)).Str("reason", string(decision.Reason)).Msg("Game selected")
	s.deps.Events.GameChanged(s.id, kind)
	return decision, nil
}

// ConsumeExternal checks and counts one action of a feature the wider app
// drives, such as a chat message. A denial raises a gating prompt like any
// other and leaves the mode untouched.
func (s *Session) ConsumeExternal(ctx context.Context, feature usage.Feature) (usage.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return usage.Decision{}, ErrClosed
	}
	if !usage.External(feature) {
		return usage.Decision{}, fmt.Errorf("%w: %q", ErrUnknownFeature, feature)
	}

	decision := s.deps.Gate.Check(ctx, s.account, usage.Request{Feature: feature})
	if !decision.Allowed {
		s.promptLocked(decision, "")
	}
	return decision, nil
}

// Replay restarts the mounted game with fresh content.
func (s *Session) Replay() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.game == nil {
		return ErrNoActiveGame
	}
	s.game.Replay()
	return nil
}

// BackToGames unmounts the game and returns to the games hub.
func (s *Session) BackToGames() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.game == nil {
		return ErrNoActiveGame
	}
	s.closeGameLocked()
	s.deps.Events.GameChanged(s.id, "")
	return nil
}

// BackToMenu unmounts everything and returns to the menu.
func (s *Session) BackToMenu(ctx context.Context) error {
	_, err := s.SelectMode(ctx, ModeMenu)
	return err
}

// Handle routes player input to whatever is mounted: the game, the
// vocabulary deck (next, previous, say) or the daily challenge (answer).
func (s *Session) Handle(ctx context.Context, in games.Input) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	switch {
	case s.game != nil:
		return s.game.Handle(in)
	case s.vocab != nil:
		switch in.Action {
		case "next":
			s.vocab.Next()
		case "previous":
			s.vocab.Previous()
		case "say":
			s.vocab.Say()
		default:
			return fmt.Errorf("%w: unknown action %q", games.ErrInvalidInput, in.Action)
		}
		return nil
	case s.challenge != nil:
		if in.Action != "answer" {
			return fmt.Errorf("%w: unknown action %q", games.ErrInvalidInput, in.Action)
		}
		if _, err := s.challenge.Answer(in.Index); err != nil {
			if errors.Is(err, drill.ErrChallengeComplete) {
				return games.ErrInputRejected
			}
			return fmt.Errorf("%w: %v", games.ErrInvalidInput, err)
		}
		return nil
	default:
		return ErrNoActiveGame
	}
}

// Snapshot returns the current view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{ID: s.id, Mode: s.mode, Premium: s.Premium()}
	if s.game != nil {
		snap.Game = s.game.Kind()
		snap.Round = s.game.Snapshot()
	}
	if s.vocab != nil {
		card := s.vocab.Current()
		snap.Card = &card
	}
	if s.challenge != nil {
		c := s.challenge.Snapshot()
		snap.Challenge = &c
	}
	return snap
}

// Close tears down the mounted game or drill. Further calls fail with
// ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.teardownLocked()
	s.closed = true
	s.logger.Info().Msg("Session closed")
}

func (s *Session) promptLocked(d usage.Decision, kind games.Kind) {
	prompt := Prompt{Feature: d.Feature, Game: kind, Reason: d.Reason, Remaining: d.Remaining}
	s.logger.Info().Str("feature", string(d.Feature)).Str("game", string(kind)).Str("reason", string(d.Reason)).Msg("Gating prompt")
	s.deps.Events.GatingPrompt(s.id, prompt)
}

func (s *Session) teardownLocked() {
	s.closeGameLocked()
	if s.vocab != nil {
		s.vocab.Close()
		s.vocab = nil
	}
	s.challenge = nil
}

func (s *Session) closeGameLocked() {
	if s.game != nil {
		s.game.Close()
		s.game = nil
	}
}

// record stores a completed round. It runs from a game timer and must not
// take s.mu.
func (s *Session) record(r games.Result) {
	if s.deps.Results == nil {
		return
	}
	result := storage.RoundResult{
		SessionID:   s.id,
		Game:        string(r.Kind),
		Score:       r.Score,
		Premium:     s.Premium(),
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
	}
	if err := s.deps.Results.AddResult(context.Background(), result); err != nil {
		s.logger.Warn().Err(err).Str("game", string(r.Kind)).Msg("Failed to record round result")
	}
}
