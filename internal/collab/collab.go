// Package collab defines the external collaborator contracts the
// orchestration core depends on: the ownership-token minter, the
// provenance registry, and the license attacher. The core only ever sees
// these interfaces; any failure they return aborts the surrounding call
// with no state retained.
package collab

import "context"

// Tuple identifies an ownership token for provenance registration.
type Tuple struct {
	ChainID    string
	Contract   string
	InternalID uint64
}

// IdentityMinter mints a new unique internal (ownership token) identifier
// for a work owned by the given actor.
type IdentityMinter interface {
	Mint(ctx context.Context, owner, workID, metadataPointer string) (uint64, error)
}

// ProvenanceRegistry registers ownership tokens with the external
// provenance service and links derivatives to their parents. Royalty and
// attribution enforcement is delegated to this service.
type ProvenanceRegistry interface {
	Register(ctx context.Context, t Tuple) (string, error)
	LinkDerivative(ctx context.Context, childProvenanceID string, parentProvenanceIDs []string, licenseTemplate, licenseTermsID string) error
}

// LicenseAttacher attaches a license template to a provenance id.
type LicenseAttacher interface {
	Attach(ctx context.Context, provenanceID, licenseTemplate, licenseTermsID string) error
}
