// Package reward implements the fungible reward ledger: the per-event
// payout policy, deposits against a supply cap, and privileged batch
// distribution.
package reward

import (
	"sync"

	"github.com/starford/othala/internal/apperr"
)

// Policy holds the adjustable per-event reward and its fixed bound. The
// bound prevents runaway payouts: PerEventReward always stays within
// [min, max].
type Policy struct {
	mu       sync.RWMutex
	perEvent uint64
	min      uint64
	max      uint64
}

// NewPolicy creates a policy, rejecting any initial value outside the bound.
func NewPolicy(perEvent, min, max uint64) (*Policy, error) {
	if min == 0 || min > max {
		return nil, apperr.ErrInvalidConfig
	}
	p := &Policy{min: min, max: max}
	if err := p.SetPerEventReward(perEvent); err != nil {
		return nil, err
	}
	return p, nil
}

// PerEventReward returns the current per-event reward amount.
func (p *Policy) PerEventReward() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.perEvent
}

// Bounds returns the fixed [min, max] reward bound.
func (p *Policy) Bounds() (min, max uint64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.min, p.max
}

// SetPerEventReward updates the per-event reward, failing with
// apperr.ErrInvalidConfig when amount is outside [min, max].
func (p *Policy) SetPerEventReward(amount uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if amount < p.min || amount > p.max {
		return apperr.ErrInvalidConfig
	}
	p.perEvent = amount
	return nil
}
