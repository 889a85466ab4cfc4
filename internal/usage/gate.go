package usage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/goodtune/wordbuddy/internal/clock"
	"github.com/goodtune/wordbuddy/internal/metrics"
	"github.com/goodtune/wordbuddy/internal/policy"
	"github.com/goodtune/wordbuddy/internal/storage"
	"github.com/rs/zerolog"
)

// Gate enforces the per-day limits on gated features. One Gate is shared by
// every session in the process.
type Gate struct {
	store  storage.UsageStore
	policy Policy
	clock  clock.Clock
	config Config
	logger zerolog.Logger

	// mu makes a check and its consumption one step.
	mu sync.Mutex
}

// NewGate creates a usage gate
func NewGate(store storage.UsageStore, p Policy, clk clock.Clock, config Config, logger zerolog.Logger) *Gate {
	if config.Limits == nil {
		config.Limits = map[Feature]int{}
	}
	return &Gate{
		store:  store,
		policy: p,
		clock:  clk,
		config: config,
		logger: logger.With().Str("component", "usage-gate").Logger(),
	}
}

// CanConsume reports whether one more action of feature is allowed today.
func (g *Gate) CanConsume(ctx context.Context, ent Entitlements, feature Feature) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.evaluate(ctx, ent, Request{Feature: feature}).Allow
}

// Consume counts one action of feature. It is a no-op for premium accounts
// and for features without a limit.
func (g *Gate) Consume(ctx context.Context, ent Entitlements, feature Feature) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if ent.IsPremium(ctx) {
		return nil
	}
	if _, limited := g.config.Limits[feature]; !limited {
		return nil
	}
	_, err := g.increment(ctx, feature)
	return err
}

// Check decides req and, when the policy says the request counts, consumes
// it in the same step. The returned Remaining reflects the consumption.
func (g *Gate) Check(ctx context.Context, ent Entitlements, req Request) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	d := g.evaluate(ctx, ent, req)
	decision := Decision{
		Allowed:   d.Allow,
		Feature:   req.Feature,
		Game:      req.Game,
		Reason:    d.Reason,
		Remaining: d.Remaining,
	}

	metrics.GateDecisions.WithLabelValues(string(req.Feature), string(d.Reason)).Inc()

	if d.Allow && d.Consume {
		if _, err := g.increment(ctx, req.Feature); err == nil {
			decision.Counted = true
			if decision.Remaining > 0 {
				decision.Remaining--
			}
		}
	}

	g.logger.Debug().
		Str("feature", string(req.Feature)).
		Str("game", req.Game).
		Bool("allowed", decision.Allowed).
		Str("reason", string(decision.Reason)).
		Int("remaining", decision.Remaining).
		Msg("Gate check")

	return decision
}

// Preview decides req without consuming anything.
func (g *Gate) Preview(ctx context.Context, ent Entitlements, req Request) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	d := g.evaluate(ctx, ent, req)
	return Decision{
		Allowed:   d.Allow,
		Feature:   req.Feature,
		Game:      req.Game,
		Reason:    d.Reason,
		Remaining: d.Remaining,
	}
}

// Remaining returns how many actions of feature are left today, or
// policy.Unlimited for premium accounts and ungated features.
func (g *Gate) Remaining(ctx context.Context, ent Entitlements, feature Feature) int {
	limit, limited := g.config.Limits[feature]
	if !limited || ent.IsPremium(ctx) {
		return policy.Unlimited
	}
	remaining := limit - g.count(ctx, feature)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Status summarises every counted feature for today.
func (g *Gate) Status(ctx context.Context, ent Entitlements) []FeatureStatus {
	premium := ent.IsPremium(ctx)
	today := clock.Today(g.clock)

	features := make([]Feature, 0, len(g.config.Limits))
	for feature := range g.config.Limits {
		features = append(features, feature)
	}
	sort.Slice(features, func(i, j int) bool { return features[i] < features[j] })

	statuses := make([]FeatureStatus, 0, len(features))
	for _, feature := range features {
		limit := g.config.Limits[feature]
		count := g.count(ctx, feature)
		remaining := limit - count
		if remaining < 0 {
			remaining = 0
		}
		if premium {
			remaining = policy.Unlimited
		}
		statuses = append(statuses, FeatureStatus{
			Feature:   feature,
			Date:      today,
			Count:     count,
			Limit:     limit,
			Remaining: remaining,
			Premium:   premium,
		})
	}
	return statuses
}

// Reset clears the stored counter for feature.
func (g *Gate) Reset(ctx context.Context, feature Feature) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	err := g.store.DeleteCounter(ctx, string(feature))
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("reset %s counter: %w", feature, err)
	}
	g.logger.Info().Str("feature", string(feature)).Msg("Usage counter reset")
	return nil
}

func (g *Gate) evaluate(ctx context.Context, ent Entitlements, req Request) policy.Decision {
	limit, limited := g.config.Limits[req.Feature]
	premium := ent.IsPremium(ctx)

	facts := policy.Facts{
		Feature:      string(req.Feature),
		Game:         req.Game,
		Premium:      premium,
		Limited:      limited,
		Limit:        limit,
		FreeGames:    g.config.FreeGames,
		PremiumGames: g.config.PremiumGames,
	}
	// Premium accounts never read the counter.
	if limited && !premium {
		facts.Count = g.count(ctx, req.Feature)
	}

	return g.policy.Decide(ctx, facts)
}

// count returns today's consumption. A counter stored for another day counts
// as zero and is left untouched. Read failures fail open.
func (g *Gate) count(ctx context.Context, feature Feature) int {
	counter, err := g.store.GetCounter(ctx, string(feature))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0
		}
		metrics.StorageFailures.WithLabelValues("read").Inc()
		g.logger.Warn().Err(err).Str("feature", string(feature)).
			Msg("Failed to read usage counter, treating as unused")
		return 0
	}

	if counter.Date != clock.Today(g.clock) {
		return 0
	}
	return counter.Count
}

func (g *Gate) increment(ctx context.Context, feature Feature) (*storage.UsageCounter, error) {
	counter, err := g.store.IncrementCounter(ctx, string(feature), clock.Today(g.clock))
	if err != nil {
		metrics.StorageFailures.WithLabelValues("write").Inc()
		g.logger.Warn().Err(err).Str("feature", string(feature)).Msg("Failed to persist usage counter")
		return nil, fmt.Errorf("increment %s counter: %w", feature, err)
	}

	metrics.GatedConsumptions.WithLabelValues(string(feature)).Inc()
	g.logger.Info().
		Str("feature", string(feature)).
		Str("date", counter.Date).
		Int("count", counter.Count).
		Msg("Gated action consumed")

	return counter, nil
}
