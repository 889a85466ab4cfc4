package policy

import (
	"context"
	"fmt"

	"github.com/goodtune/wordbuddy/internal/policy/opa"
	"github.com/rs/zerolog"
)

// Engine handles gate decisions by gathering facts and calling OPA
type Engine struct {
	opaEngine *opa.Engine
	logger    zerolog.Logger
}

// NewEngine creates a new fact-based policy engine
func NewEngine(opaConfig opa.Config, logger zerolog.Logger) (*Engine, error) {
	opaEngine, err := opa.NewEngine(opaConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OPA engine: %w", err)
	}

	return &Engine{
		opaEngine: opaEngine,
		logger:    logger.With().Str("component", "policy").Logger(),
	}, nil
}

// Decide evaluates the gate policy. Evaluation failures fail open: the
// request is allowed and not counted.
func (e *Engine) Decide(ctx context.Context, facts Facts) Decision {
	result, err := e.opaEngine.EvaluateGate(ctx, buildGateFacts(facts))
	if err != nil {
		e.logger.Warn().Err(err).Str("feature", facts.Feature).Str("game", facts.Game).
			Msg("Gate evaluation failed, failing open")
		return Decision{Allow: true, Reason: ReasonPolicyError, Remaining: Unlimited}
	}

	return Decision{
		Allow:     result.Allow,
		Reason:    Reason(result.Reason),
		Remaining: result.Remaining,
		Consume:   result.Consume,
	}
}

// Reload recompiles the gate policy.
func (e *Engine) Reload() error {
	return e.opaEngine.Reload()
}

// buildGateFacts converts facts to OPA input
func buildGateFacts(f Facts) map[string]interface{} {
	free := f.FreeGames
	if free == nil {
		free = []string{}
	}
	premium := f.PremiumGames
	if premium == nil {
		premium = []string{}
	}

	return map[string]interface{}{
		"feature":       f.Feature,
		"game":          f.Game,
		"premium":       f.Premium,
		"limited":       f.Limited,
		"count":         f.Count,
		"limit":         f.Limit,
		"free_games":    free,
		"premium_games": premium,
	}
}
