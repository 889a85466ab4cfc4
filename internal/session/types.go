package session

import (
	"context"
	"errors"

	"github.com/goodtune/wordbuddy/internal/clock"
	"github.com/goodtune/wordbuddy/internal/content"
	"github.com/goodtune/wordbuddy/internal/drill"
	"github.com/goodtune/wordbuddy/internal/games"
	"github.com/goodtune/wordbuddy/internal/policy"
	"github.com/goodtune/wordbuddy/internal/random"
	"github.com/goodtune/wordbuddy/internal/storage"
	"github.com/goodtune/wordbuddy/internal/usage"
	"github.com/rs/zerolog"
)

var (
	ErrClosed          = errors.New("session closed")
	ErrNoActiveGame    = errors.New("no active game")
	ErrUnknownMode     = errors.New("unknown mode")
	ErrUnknownGame     = errors.New("unknown game")
	ErrGamesNotOpen    = errors.New("games hub not open")
	ErrUnknownFeature  = errors.New("unknown external feature")
	ErrSessionNotFound = errors.New("session not found")
)

// Mode is the top-level companion screen.
type Mode string

const (
	ModeMenu           Mode = "menu"
	ModeVocabulary     Mode = "vocabulary"
	ModeDailyChallenge Mode = "daily_challenge"
	ModeGames          Mode = "games"
)

// FeatureDailyChallenge is the gate feature for the daily challenge. No
// limit is configured for it by default, so it is ungated.
const FeatureDailyChallenge usage.Feature = "daily_challenge"

var modeFeatures = map[Mode]usage.Feature{
	ModeVocabulary:     usage.FeatureVocabulary,
	ModeDailyChallenge: FeatureDailyChallenge,
	ModeGames:          usage.FeatureGames,
}

// ModeFeature returns the gated feature behind mode, if any.
func ModeFeature(mode Mode) (usage.Feature, bool) {
	f, ok := modeFeatures[mode]
	return f, ok
}

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, bool) {
	switch m := Mode(s); m {
	case ModeMenu, ModeVocabulary, ModeDailyChallenge, ModeGames:
		return m, true
	}
	return "", false
}

// Gate is the usage gate as seen by a session.
type Gate interface {
	Check(ctx context.Context, ent usage.Entitlements, req usage.Request) usage.Decision
	Preview(ctx context.Context, ent usage.Entitlements, req usage.Request) usage.Decision
}

// Prompt asks the player to upgrade after a gating denial.
type Prompt struct {
	Feature   usage.Feature `json:"feature"`
	Game      games.Kind    `json:"game,omitempty"`
	Reason    policy.Reason `json:"reason"`
	Remaining int           `json:"remaining"`
}

// EventSink receives session events.
type EventSink interface {
	ModeChanged(sessionID string, mode Mode)
	GameChanged(sessionID string, kind games.Kind)
	GatingPrompt(sessionID string, prompt Prompt)
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) ModeChanged(string, Mode)       {}
func (NopSink) GameChanged(string, games.Kind) {}
func (NopSink) GatingPrompt(string, Prompt)    {}

// LogSink writes events to a logger.
type LogSink struct {
	Logger zerolog.Logger
}

func (l LogSink) ModeChanged(id string, mode Mode) {
	l.Logger.Info().Str("session", id).Str("mode", string(mode)).Msg("Mode changed")
}

func (l LogSink) GameChanged(id string, kind games.Kind) {
	l.Logger.Info().Str("session", id).Str("game", string(kind)).Msg("Game changed")
}

func (l LogSink) GatingPrompt(id string, p Prompt) {
	l.Logger.Info().
		Str("session", id).
		Str("feature", string(p.Feature)).
		Str("game", string(p.Game)).
		Str("reason", string(p.Reason)).
		Msg("Upgrade prompt shown")
}

// Deps are the process-wide collaborators shared by every session.
type Deps struct {
	Gate          Gate
	Speaker       games.Speaker
	Pools         *content.Pools
	Clock         clock.Clock
	Random        random.Source
	Results       storage.ResultStore
	Events        EventSink
	PrefetchAhead int
	Logger        zerolog.Logger
}

// Snapshot is the full view of a session.
type Snapshot struct {
	ID        string                   `json:"id"`
	Mode      Mode                     `json:"mode"`
	Premium   bool                     `json:"premium"`
	Game      games.Kind               `json:"game,omitempty"`
	Round     any                      `json:"round,omitempty"`
	Card      *drill.Card              `json:"card,omitempty"`
	Challenge *drill.ChallengeSnapshot `json:"challenge,omitempty"`
}
