package api

import "github.com/starford/othala/internal/models"

// RegisterWorkRequest is the request body for registering a work.
type RegisterWorkRequest struct {
	Caller          string `json:"caller"`
	WorkID          string `json:"work_id"`
	MetadataPointer string `json:"metadata_pointer"`
}

// WorkResponse wraps a registered work.
type WorkResponse struct {
	Work models.Work `json:"work"`
}

// CreateDerivativeRequest is the request body for creating a derivative.
type CreateDerivativeRequest struct {
	Caller          string `json:"caller"`
	ParentWorkID    string `json:"parent_work_id"`
	ChildWorkID     string `json:"child_work_id"`
	MetadataPointer string `json:"metadata_pointer"`
	Category        string `json:"category"`
}

// DerivativeResponse wraps the child work and its edge.
type DerivativeResponse struct {
	Work models.Work           `json:"work"`
	Edge models.DerivativeEdge `json:"edge"`
}

// ChildrenResponse lists a parent's child work ids in creation order.
type ChildrenResponse struct {
	ParentWorkID string   `json:"parent_work_id"`
	Children     []string `json:"children"`
}

// DistributeBatchRequest is the request body for a batch distribution.
type DistributeBatchRequest struct {
	Caller     string   `json:"caller"`
	Recipients []string `json:"recipients"`
	Amounts    []uint64 `json:"amounts"`
	Reason     string   `json:"reason"`
}

// DepositRequest is the request body for funding the reward pool.
type DepositRequest struct {
	Caller string `json:"caller"`
	Amount uint64 `json:"amount"`
}

// BalanceResponse reports one holder's reward balance.
type BalanceResponse struct {
	Holder  string `json:"holder"`
	Balance uint64 `json:"balance"`
}

// SetRewardRequest is the request body for adjusting the per-event reward.
type SetRewardRequest struct {
	Caller         string `json:"caller"`
	PerEventReward uint64 `json:"per_event_reward"`
}

// RewardConfigResponse reports the active payout policy.
type RewardConfigResponse struct {
	PerEventReward uint64 `json:"per_event_reward"`
	MinReward      uint64 `json:"min_reward"`
	MaxReward      uint64 `json:"max_reward"`
}
