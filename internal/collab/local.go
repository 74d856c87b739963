package collab

import (
	"context"
	"fmt"
	"sync"

	"github.com/starford/othala/internal/checksum"
)

// LocalMinter is an in-process IdentityMinter issuing sequential token ids.
// It backs the "local" collaborator mode; a production deployment would
// substitute a client for the real minting service.
type LocalMinter struct {
	mu   sync.Mutex
	next uint64
}

// NewLocalMinter creates a minter whose first issued id is start+1.
// Seeding with the highest id already persisted keeps ids unique across
// restarts.
func NewLocalMinter(start uint64) *LocalMinter {
	return &LocalMinter{next: start}
}

// Mint issues the next internal identifier.
func (m *LocalMinter) Mint(_ context.Context, owner, workID, _ string) (uint64, error) {
	if owner == "" || workID == "" {
		return 0, fmt.Errorf("mint: owner and work id are required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	return m.next, nil
}

// LocalRegistry is an in-process ProvenanceRegistry. Provenance ids are
// derived from the identifying tuple, so re-registering the same token
// would yield the same handle. Derivative links are recorded in memory.
type LocalRegistry struct {
	mu    sync.Mutex
	links map[string][]string
}

// NewLocalRegistry creates an empty local registry.
func NewLocalRegistry() *LocalRegistry {
	return &LocalRegistry{links: make(map[string][]string)}
}

// Register derives a provenance id from the identifying tuple.
func (r *LocalRegistry) Register(_ context.Context, t Tuple) (string, error) {
	if t.InternalID == 0 {
		return "", fmt.Errorf("register: internal id is required")
	}
	sum := checksum.Sum(fmt.Appendf(nil, "%s/%s/%d", t.ChainID, t.Contract, t.InternalID))
	return "prov-" + sum[:32], nil
}

// LinkDerivative records the child→parents link.
func (r *LocalRegistry) LinkDerivative(_ context.Context, childProvenanceID string, parentProvenanceIDs []string, _, _ string) error {
	if childProvenanceID == "" || len(parentProvenanceIDs) == 0 {
		return fmt.Errorf("link derivative: child and parents are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[childProvenanceID] = append(r.links[childProvenanceID], parentProvenanceIDs...)
	return nil
}

// Parents returns the recorded parent provenance ids for a child.
func (r *LocalRegistry) Parents(childProvenanceID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.links[childProvenanceID]...)
}

// LocalAttacher is an in-process LicenseAttacher recording attachments.
type LocalAttacher struct {
	mu       sync.Mutex
	attached map[string]string
}

// NewLocalAttacher creates an empty local attacher.
func NewLocalAttacher() *LocalAttacher {
	return &LocalAttacher{attached: make(map[string]string)}
}

// Attach records the license terms for a provenance id.
func (a *LocalAttacher) Attach(_ context.Context, provenanceID, licenseTemplate, licenseTermsID string) error {
	if provenanceID == "" {
		return fmt.Errorf("attach: provenance id is required")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attached[provenanceID] = licenseTemplate + "/" + licenseTermsID
	return nil
}

// Terms returns the recorded license terms for a provenance id.
func (a *LocalAttacher) Terms(provenanceID string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.attached[provenanceID]
}
