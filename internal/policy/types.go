package policy

// Reason explains a gate decision.
type Reason string

const (
	ReasonPremium         Reason = "premium"
	ReasonFreeGame        Reason = "free_game"
	ReasonPremiumRequired Reason = "premium_required"
	ReasonDailyLimit      Reason = "daily_limit"
	ReasonWithinLimit     Reason = "within_limit"
	ReasonUngated         Reason = "ungated"
	ReasonPolicyError     Reason = "policy_error"
)

// Unlimited is the Remaining value for decisions that do not count.
const Unlimited = -1

// Facts are everything the gate policy needs to decide one request.
type Facts struct {
	Feature      string
	Game         string
	Premium      bool
	Limited      bool
	Count        int
	Limit        int
	FreeGames    []string
	PremiumGames []string
}

// Decision represents the result of policy evaluation
type Decision struct {
	Allow     bool   `json:"allowed"`
	Reason    Reason `json:"reason"`
	Remaining int    `json:"remaining"`
	// Consume is set when an allowed request must be counted.
	Consume bool `json:"-"`
}
