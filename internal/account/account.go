// Package account holds the entitlement flag supplied by the billing side.
package account

import (
	"context"
	"sync/atomic"
)

// Static is an in-process entitlement that can be flipped at runtime, for
// example after an upgrade completes.
type Static struct {
	premium atomic.Bool
}

// NewStatic returns an entitlement with the given premium flag.
func NewStatic(premium bool) *Static {
	s := &Static{}
	s.premium.Store(premium)
	return s
}

// IsPremium reports the current flag.
func (s *Static) IsPremium(context.Context) bool {
	return s.premium.Load()
}

// SetPremium changes the flag. The next gate check observes it.
func (s *Static) SetPremium(premium bool) {
	s.premium.Store(premium)
}
