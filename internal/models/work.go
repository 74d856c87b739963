// Package models holds the domain types of the provenance ledger.
package models

// Work is one registered creative work. All fields are immutable once the
// registration commits; a work is never mutated or deleted afterwards.
type Work struct {
	// WorkID is the externally supplied, caller-chosen identifier.
	WorkID string `json:"work_id"`
	// InternalID is the ownership-token identifier assigned by the minter.
	InternalID uint64 `json:"internal_id"`
	// ProvenanceID is the opaque handle issued by the provenance registry.
	ProvenanceID string `json:"provenance_id"`
	// Owner is the actor credited as creator.
	Owner string `json:"owner"`
	// MetadataPointer references the work's metadata (URI, CID, ...).
	MetadataPointer string `json:"metadata_pointer"`
	// RegisteredAt is the logical registration time. Zero means the work
	// does not exist.
	RegisteredAt uint64 `json:"registered_at"`
}

// DerivativeEdge records one parent→child remix relationship. Both
// provenance ids are denormalized snapshots taken at edge-creation time.
type DerivativeEdge struct {
	ParentWorkID       string `json:"parent_work_id"`
	ChildWorkID        string `json:"child_work_id"`
	ParentProvenanceID string `json:"parent_provenance_id"`
	ChildProvenanceID  string `json:"child_provenance_id"`
	// Category is a free-form classification of the derivation.
	Category string `json:"category"`
	// CreatedAt is the logical creation time, equal to the child work's
	// RegisteredAt. Zero means the edge does not exist.
	CreatedAt uint64 `json:"created_at"`
}
