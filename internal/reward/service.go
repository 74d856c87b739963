package reward

import (
	"context"
	"sync"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/guard"
	"github.com/starford/othala/internal/sse"
	"github.com/starford/othala/internal/store"
)

// MaxBatchSize bounds the number of transfers in one distribution call.
const MaxBatchSize = 100

// Service manages reward balances: owner-gated deposits into the funding
// account, distributor-gated batch payouts, and the runtime payout policy.
type Service struct {
	store  store.Ledger
	broker *sse.Broker
	guard  *guard.Guard
	policy *Policy

	maxSupply uint64
	funding   string
	owner     string

	mu          sync.RWMutex
	distributor string
}

// NewService creates a reward service.
func NewService(st store.Ledger, broker *sse.Broker, g *guard.Guard, policy *Policy, maxSupply uint64, funding, owner, distributor string) *Service {
	return &Service{
		store:       st,
		broker:      broker,
		guard:       g,
		policy:      policy,
		maxSupply:   maxSupply,
		funding:     funding,
		owner:       owner,
		distributor: distributor,
	}
}

// Policy returns the shared payout policy.
func (s *Service) Policy() *Policy {
	return s.policy
}

// FundingAccount returns the account custodying undistributed rewards.
func (s *Service) FundingAccount() string {
	return s.funding
}

// BalanceOf returns the reward balance of holder.
func (s *Service) BalanceOf(_ context.Context, holder string) (uint64, error) {
	return s.store.Balance(holder)
}

// Deposit mints amount into the funding account. Owner capability required;
// the total supply never exceeds the configured cap.
func (s *Service) Deposit(ctx context.Context, caller string, amount uint64) error {
	if caller != s.owner {
		return apperr.ErrUnauthorized
	}
	if amount == 0 {
		return apperr.ErrInvalidAmount
	}
	if _, err := s.guard.Acquire(ctx); err != nil {
		return err
	}
	defer s.guard.Release()

	if err := s.store.Deposit(s.funding, amount, s.maxSupply); err != nil {
		return err
	}
	s.broker.Publish(sse.TypeRewardDeposited, map[string]any{
		"holder": s.funding,
		"amount": amount,
	})
	return nil
}

// DistributeBatch pays amounts[i] to recipients[i] out of the caller's
// balance. The caller must hold the distributor capability. The batch is
// validated and summed up front, then checked against the available balance
// once; either every transfer lands or none does.
func (s *Service) DistributeBatch(ctx context.Context, caller string, recipients []string, amounts []uint64, reason string) error {
	s.mu.RLock()
	distributor := s.distributor
	s.mu.RUnlock()
	if caller != distributor {
		return apperr.ErrUnauthorized
	}

	if len(recipients) != len(amounts) {
		return apperr.ErrLengthMismatch
	}
	if len(recipients) == 0 {
		return apperr.ErrEmptyBatch
	}
	if len(recipients) > MaxBatchSize {
		return apperr.ErrBatchTooLarge
	}
	for _, r := range recipients {
		if r == "" {
			return apperr.ErrInvalidRecipient
		}
	}
	var total uint64
	for _, a := range amounts {
		if a == 0 {
			return apperr.ErrInvalidAmount
		}
		// A sum that wraps uint64 would sneak past the balance check.
		if total+a < total {
			return apperr.ErrInvalidAmount
		}
		total += a
	}

	if _, err := s.guard.Acquire(ctx); err != nil {
		return err
	}
	defer s.guard.Release()

	if err := s.store.DistributeBatch(caller, recipients, amounts); err != nil {
		return err
	}

	for i, to := range recipients {
		s.broker.Publish(sse.TypeRewardDistributed, map[string]any{
			"from":   caller,
			"to":     to,
			"amount": amounts[i],
			"reason": reason,
		})
	}
	return nil
}

// SetPerEventReward adjusts the per-event payout. Owner capability
// required; the amount must stay within the configured bound.
func (s *Service) SetPerEventReward(caller string, amount uint64) error {
	if caller != s.owner {
		return apperr.ErrUnauthorized
	}
	if err := s.policy.SetPerEventReward(amount); err != nil {
		return err
	}
	s.broker.Publish(sse.TypeConfigUpdated, map[string]any{
		"per_event_reward": amount,
	})
	return nil
}

// ApplyPerEventReward is the trusted configuration-reload path: it applies
// the bound check but no caller capability check. Used by the config
// watcher, where write access to the config file stands in for ownership.
func (s *Service) ApplyPerEventReward(amount uint64) error {
	if err := s.policy.SetPerEventReward(amount); err != nil {
		return err
	}
	s.broker.Publish(sse.TypeConfigUpdated, map[string]any{
		"per_event_reward": amount,
	})
	return nil
}

// SetDistributor hands the distributor capability to another account.
// Owner capability required.
func (s *Service) SetDistributor(caller, account string) error {
	if caller != s.owner {
		return apperr.ErrUnauthorized
	}
	if account == "" {
		return apperr.ErrInvalidRecipient
	}
	s.mu.Lock()
	s.distributor = account
	s.mu.Unlock()
	s.broker.Publish(sse.TypeConfigUpdated, map[string]any{
		"distributor": account,
	})
	return nil
}

// Distributor returns the account currently holding the distributor
// capability.
func (s *Service) Distributor() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.distributor
}
