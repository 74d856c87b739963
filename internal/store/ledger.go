package store

// Ledger defines the persistence operations used by the orchestration and
// reward layers. Consumers should depend on this interface rather than the
// concrete *DB type to facilitate testing with mocks.
type Ledger interface {
	// Works and derivative edges.
	CreateWork(w WorkRow, payout *Payout) (registeredAt, paid uint64, err error)
	CreateDerivative(child WorkRow, edge EdgeRow, payouts []Payout) (createdAt uint64, paid []uint64, err error)
	GetWork(workID string) (*WorkRow, error)
	WorkExists(workID string) (bool, error)
	GetEdge(childWorkID string) (*EdgeRow, error)
	EdgeExists(childWorkID string) (bool, error)
	Children(parentWorkID string) ([]string, error)
	MaxInternalID() (uint64, error)

	// Reward balances.
	Balance(holder string) (uint64, error)
	TotalSupply() (uint64, error)
	Deposit(holder string, amount, maxSupply uint64) error
	DistributeBatch(from string, recipients []string, amounts []uint64) error

	Close() error
}

// Verify *DB satisfies Ledger at compile time.
var _ Ledger = (*DB)(nil)
