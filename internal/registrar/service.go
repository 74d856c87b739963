// Package registrar implements the registration and derivative
// orchestration core. Every mutating entry point runs under the
// process-wide reentrancy guard and commits through a single store
// transaction, so each call either fully succeeds (work persisted, reward
// applied, events emitted) or leaves no state behind.
package registrar

import (
	"context"
	"errors"
	"fmt"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/collab"
	"github.com/starford/othala/internal/guard"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/reward"
	"github.com/starford/othala/internal/sse"
	"github.com/starford/othala/internal/store"
)

// Settings carries the registry-facing configuration the orchestrator
// stamps onto every registration.
type Settings struct {
	ChainID         string
	Contract        string
	LicenseTemplate string
	LicenseTermsID  string
}

// Service orchestrates work registration and derivative creation across
// the collaborators, the store, and the reward ledger.
type Service struct {
	store    store.Ledger
	minter   collab.IdentityMinter
	registry collab.ProvenanceRegistry
	licenser collab.LicenseAttacher
	guard    *guard.Guard
	broker   *sse.Broker
	rewards  *reward.Service
	settings Settings
}

// NewService creates a registrar service.
func NewService(st store.Ledger, minter collab.IdentityMinter, registry collab.ProvenanceRegistry, licenser collab.LicenseAttacher, g *guard.Guard, broker *sse.Broker, rewards *reward.Service, settings Settings) *Service {
	return &Service{
		store:    st,
		minter:   minter,
		registry: registry,
		licenser: licenser,
		guard:    g,
		broker:   broker,
		rewards:  rewards,
		settings: settings,
	}
}

// pendingWork holds the collaborator-assigned identifiers for a
// registration that has not been persisted yet.
type pendingWork struct {
	workID       string
	owner        string
	metadataPtr  string
	internalID   uint64
	provenanceID string
}

func (p pendingWork) row() store.WorkRow {
	return store.WorkRow{
		WorkID:       p.workID,
		InternalID:   p.internalID,
		ProvenanceID: p.provenanceID,
		Owner:        p.owner,
		MetadataPtr:  p.metadataPtr,
	}
}

// RegisterWork runs the exactly-once registration workflow: mint the
// ownership token, register it with the provenance registry, attach the
// configured license terms, persist the work, and pay the caller the
// per-event reward if the funding balance covers it.
func (s *Service) RegisterWork(ctx context.Context, caller, workID, metadataPointer string) (*models.Work, error) {
	ctx, err := s.guard.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.guard.Release()

	pending, err := s.prepare(ctx, caller, workID, metadataPointer)
	if err != nil {
		return nil, err
	}

	row := pending.row()
	amount := s.rewards.Policy().PerEventReward()
	at, paid, err := s.store.CreateWork(row, &store.Payout{
		From:   s.rewards.FundingAccount(),
		To:     caller,
		Amount: amount,
	})
	if err != nil {
		return nil, err
	}

	work := &models.Work{
		WorkID:          row.WorkID,
		InternalID:      row.InternalID,
		ProvenanceID:    row.ProvenanceID,
		Owner:           row.Owner,
		MetadataPointer: row.MetadataPtr,
		RegisteredAt:    at,
	}
	s.publishRegistered(work, paid)
	return work, nil
}

// prepare validates the work id and runs the collaborator phase (mint,
// provenance registration, license attach). Nothing is persisted here, so
// a failure at any step aborts the call with no state change.
func (s *Service) prepare(ctx context.Context, caller, workID, metadataPointer string) (pendingWork, error) {
	if workID == "" || caller == "" {
		return pendingWork{}, fmt.Errorf("registrar: caller and work id are required")
	}

	exists, err := s.store.WorkExists(workID)
	if err != nil {
		return pendingWork{}, err
	}
	if exists {
		return pendingWork{}, apperr.ErrDuplicateWork
	}

	internalID, err := s.minter.Mint(ctx, caller, workID, metadataPointer)
	if err != nil {
		return pendingWork{}, &apperr.UpstreamError{Op: "mint", Err: err}
	}

	provenanceID, err := s.registry.Register(ctx, collab.Tuple{
		ChainID:    s.settings.ChainID,
		Contract:   s.settings.Contract,
		InternalID: internalID,
	})
	if err != nil {
		return pendingWork{}, &apperr.UpstreamError{Op: "register", Err: err}
	}

	if err := s.licenser.Attach(ctx, provenanceID, s.settings.LicenseTemplate, s.settings.LicenseTermsID); err != nil {
		return pendingWork{}, &apperr.UpstreamError{Op: "attach license", Err: err}
	}

	return pendingWork{
		workID:       workID,
		owner:        caller,
		metadataPtr:  metadataPointer,
		internalID:   internalID,
		provenanceID: provenanceID,
	}, nil
}

// GetWork returns the registered work for workID, or apperr.ErrNotFound.
func (s *Service) GetWork(_ context.Context, workID string) (*models.Work, error) {
	row, err := s.store.GetWork(workID)
	if err != nil {
		return nil, err
	}
	return &models.Work{
		WorkID:          row.WorkID,
		InternalID:      row.InternalID,
		ProvenanceID:    row.ProvenanceID,
		Owner:           row.Owner,
		MetadataPointer: row.MetadataPtr,
		RegisteredAt:    row.RegisteredAt,
	}, nil
}

func (s *Service) publishRegistered(w *models.Work, paid uint64) {
	s.broker.Publish(sse.TypeWorkRegistered, map[string]any{
		"work_id":       w.WorkID,
		"internal_id":   w.InternalID,
		"provenance_id": w.ProvenanceID,
		"owner":         w.Owner,
		"registered_at": w.RegisteredAt,
		"reward_paid":   paid,
	})
}

// notFoundAsParent maps a missing-work error onto the derivative-specific
// sentinel.
func notFoundAsParent(err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.ErrParentNotFound
	}
	return err
}
