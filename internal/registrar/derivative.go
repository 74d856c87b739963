package registrar

import (
	"context"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/sse"
	"github.com/starford/othala/internal/store"
)

// CreateDerivative registers childWorkID as a derivative of parentWorkID:
// it runs the full registration workflow for the child, links the child's
// provenance id to the parent's through the registry (which is where
// royalty and attribution enforcement is delegated), and records the edge.
//
// The child work, the edge, and both payouts (registration reward and
// derivative reward, applied sequentially against the same funding
// balance) commit in one transaction; any collaborator failure before the
// commit leaves no state behind.
func (s *Service) CreateDerivative(ctx context.Context, caller, parentWorkID, childWorkID, metadataPointer, category string) (*models.Work, *models.DerivativeEdge, error) {
	ctx, err := s.guard.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer s.guard.Release()

	hasEdge, err := s.store.EdgeExists(childWorkID)
	if err != nil {
		return nil, nil, err
	}
	if hasEdge {
		return nil, nil, apperr.ErrDuplicateDerivative
	}

	parent, err := s.store.GetWork(parentWorkID)
	if err != nil {
		return nil, nil, notFoundAsParent(err)
	}

	pending, err := s.prepare(ctx, caller, childWorkID, metadataPointer)
	if err != nil {
		return nil, nil, err
	}

	err = s.registry.LinkDerivative(ctx, pending.provenanceID, []string{parent.ProvenanceID}, s.settings.LicenseTemplate, s.settings.LicenseTermsID)
	if err != nil {
		return nil, nil, &apperr.UpstreamError{Op: "link derivative", Err: err}
	}

	childRow := pending.row()
	edgeRow := store.EdgeRow{
		ParentWorkID:       parentWorkID,
		ChildWorkID:        childWorkID,
		ParentProvenanceID: parent.ProvenanceID,
		ChildProvenanceID:  pending.provenanceID,
		Category:           category,
	}

	amount := s.rewards.Policy().PerEventReward()
	funding := s.rewards.FundingAccount()
	payouts := []store.Payout{
		{From: funding, To: caller, Amount: amount}, // registration reward
		{From: funding, To: caller, Amount: amount}, // derivative reward
	}

	at, paid, err := s.store.CreateDerivative(childRow, edgeRow, payouts)
	if err != nil {
		return nil, nil, err
	}

	child := &models.Work{
		WorkID:          childRow.WorkID,
		InternalID:      childRow.InternalID,
		ProvenanceID:    childRow.ProvenanceID,
		Owner:           childRow.Owner,
		MetadataPointer: childRow.MetadataPtr,
		RegisteredAt:    at,
	}
	edge := &models.DerivativeEdge{
		ParentWorkID:       edgeRow.ParentWorkID,
		ChildWorkID:        edgeRow.ChildWorkID,
		ParentProvenanceID: edgeRow.ParentProvenanceID,
		ChildProvenanceID:  edgeRow.ChildProvenanceID,
		Category:           edgeRow.Category,
		CreatedAt:          at,
	}

	s.publishRegistered(child, paid[0])
	s.publishDerivative(edge, paid[1])
	return child, edge, nil
}

// GetChildren returns the child work ids of parentWorkID in creation
// order. The result is empty for unknown parents; it never fails on a
// missing parent.
func (s *Service) GetChildren(_ context.Context, parentWorkID string) ([]string, error) {
	return s.store.Children(parentWorkID)
}

// GetDerivativeEdge returns the edge owned by childWorkID, or
// apperr.ErrNotFound.
func (s *Service) GetDerivativeEdge(_ context.Context, childWorkID string) (*models.DerivativeEdge, error) {
	row, err := s.store.GetEdge(childWorkID)
	if err != nil {
		return nil, err
	}
	return &models.DerivativeEdge{
		ParentWorkID:       row.ParentWorkID,
		ChildWorkID:        row.ChildWorkID,
		ParentProvenanceID: row.ParentProvenanceID,
		ChildProvenanceID:  row.ChildProvenanceID,
		Category:           row.Category,
		CreatedAt:          row.CreatedAt,
	}, nil
}

func (s *Service) publishDerivative(e *models.DerivativeEdge, paid uint64) {
	s.broker.Publish(sse.TypeDerivativeCreated, map[string]any{
		"parent_work_id":       e.ParentWorkID,
		"child_work_id":        e.ChildWorkID,
		"parent_provenance_id": e.ParentProvenanceID,
		"child_provenance_id":  e.ChildProvenanceID,
		"category":             e.Category,
		"created_at":           e.CreatedAt,
		"reward_paid":          paid,
	})
}
