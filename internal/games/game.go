// Package games implements the companion mini-games. Each game is a small
// state machine over a shared round core: loading, awaiting input,
// evaluating, feedback and complete.
package games

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goodtune/wordbuddy/internal/clock"
	"github.com/goodtune/wordbuddy/internal/content"
	"github.com/goodtune/wordbuddy/internal/random"
	"github.com/rs/zerolog"
)

var (
	// ErrInputRejected is returned for input received outside awaiting_input.
	ErrInputRejected = errors.New("input not accepted in current phase")
	// ErrNotReady is returned when an evaluation is requested before the
	// required input is complete.
	ErrNotReady = errors.New("input incomplete")
	// ErrInvalidInput is returned for unknown actions or out-of-range targets.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoContent is returned when the pools cannot fill a round.
	ErrNoContent = errors.New("not enough content for game")
)

// Kind identifies a mini-game.
type Kind string

const (
	Matching        Kind = "matching"
	Spelling        Kind = "spelling"
	Memory          Kind = "memory"
	SpeedRound      Kind = "speed_round"
	ListenAndPick   Kind = "listen_and_pick"
	SentenceBuilder Kind = "sentence_builder"
	BubblePop       Kind = "bubble_pop"
)

// Kinds lists every mini-game in menu order.
var Kinds = []Kind{Matching, Spelling, Memory, SpeedRound, ListenAndPick, SentenceBuilder, BubblePop}

// ParseKind validates a game name.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Phase is the state of a round.
type Phase string

const (
	PhaseLoading       Phase = "loading"
	PhaseAwaitingInput Phase = "awaiting_input"
	PhaseEvaluating    Phase = "evaluating"
	PhaseFeedback      Phase = "feedback"
	PhaseComplete      Phase = "complete"
)

// Feedback is the result of the last evaluated action.
type Feedback struct {
	Correct bool `json:"correct"`
	Delta   int  `json:"delta"`
}

// Input is one player action. Index addresses a card, tile, option, slot or
// bubble depending on the game and action.
type Input struct {
	Action string `json:"action"`
	Index  int    `json:"index"`
}

// Speaker is the slice of the speech service the games use.
type Speaker interface {
	Speak(ctx context.Context, text string) bool
	Prefetch(ctx context.Context, text string)
}

// Result describes a completed round.
type Result struct {
	Kind        Kind
	Score       int
	StartedAt   time.Time
	CompletedAt time.Time
}

// Deps are the collaborators shared by every game.
type Deps struct {
	Clock   clock.Clock
	Random  random.Source
	Speaker Speaker
	Pools   *content.Pools
	Logger  zerolog.Logger

	// OnComplete is called once per completed round, without the game's
	// lock held.
	OnComplete func(Result)
}

// Game is a mounted mini-game round.
type Game interface {
	Kind() Kind
	// Start builds a fresh round. Replay does the same from any phase.
	Start()
	Replay()
	// Close cancels timers and speech for the round. Further input is rejected.
	Close()
	Phase() Phase
	Score() int
	Complete() bool
	Snapshot() any
	Handle(in Input) error
}

// Status is the part of a snapshot common to every game.
type Status struct {
	Kind     Kind      `json:"kind"`
	Phase    Phase     `json:"phase"`
	Score    int       `json:"score"`
	Complete bool      `json:"complete"`
	Feedback *Feedback `json:"feedback,omitempty"`
}

// New creates a game of the given kind. The round is not started.
func New(kind Kind, deps Deps) (Game, error) {
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if deps.Pools == nil {
		return nil, fmt.Errorf("%w: no pools", ErrNoContent)
	}
	if deps.Random == nil {
		seed, err := random.NewSeed()
		if err != nil {
			return nil, err
		}
		deps.Random = random.New(seed)
	}

	switch kind {
	case SentenceBuilder:
		if len(deps.Pools.Sentences) == 0 {
			return nil, fmt.Errorf("%w: %s needs sentences", ErrNoContent, kind)
		}
	default:
		if len(deps.Pools.Items) < 2 {
			return nil, fmt.Errorf("%w: %s needs at least 2 items", ErrNoContent, kind)
		}
	}

	switch kind {
	case Matching:
		return newMatching(deps), nil
	case Spelling:
		return newSpelling(deps), nil
	case Memory:
		return newMemory(deps), nil
	case SpeedRound:
		return newSpeedRound(deps), nil
	case ListenAndPick:
		return newListenAndPick(deps), nil
	case SentenceBuilder:
		return newSentenceBuilder(deps), nil
	case BubblePop:
		return newBubblePop(deps), nil
	default:
		return nil, fmt.Errorf("unknown game %q", kind)
	}
}

func unknownAction(action string) error {
	return fmt.Errorf("%w: unknown action %q", ErrInvalidInput, action)
}

func outOfRange(what string, index int) error {
	return fmt.Errorf("%w: %s %d out of range", ErrInvalidInput, what, index)
}
