package usage

import (
	"context"

	"github.com/goodtune/wordbuddy/internal/policy"
)

// Feature is a gated capability with its own daily counter.
type Feature string

const (
	FeatureVocabulary Feature = "vocabulary"
	FeatureGames      Feature = "games"

	// FeatureChat is counted for chat messages sent by the wider app. No
	// session mode drives it; the app reports each message through the
	// session's ConsumeExternal.
	FeatureChat Feature = "chat"
)

// External reports whether feature is consumed from outside the session
// modes.
func External(feature Feature) bool {
	return feature == FeatureChat
}

// Entitlements supplies the premium flag. It is read on every check.
type Entitlements interface {
	IsPremium(ctx context.Context) bool
}

// Policy decides a request from gathered facts.
type Policy interface {
	Decide(ctx context.Context, facts policy.Facts) policy.Decision
}

// Config holds the daily limits and game tiers.
type Config struct {
	// Limits maps each counted feature to its daily limit. Features missing
	// from the map are ungated.
	Limits       map[Feature]int
	FreeGames    []string
	PremiumGames []string
}

// Request is one access attempt. Game is set when a mini-game is selected.
type Request struct {
	Feature Feature
	Game    string
}

// Decision is the outcome of a gate check. A denial is a normal outcome.
type Decision struct {
	Allowed   bool          `json:"allowed"`
	Feature   Feature       `json:"feature"`
	Game      string        `json:"game,omitempty"`
	Reason    policy.Reason `json:"reason"`
	Remaining int           `json:"remaining"`
	Counted   bool          `json:"counted"`
}

// FeatureStatus summarises one counted feature for today.
type FeatureStatus struct {
	Feature   Feature `json:"feature"`
	Date      string  `json:"date"`
	Count     int     `json:"count"`
	Limit     int     `json:"limit"`
	Remaining int     `json:"remaining"`
	Premium   bool    `json:"premium"`
}
