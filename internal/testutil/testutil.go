// Package testutil provides shared test helpers for setting up stores and
// wired ledger services.
package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/starford/othala/internal/collab"
	"github.com/starford/othala/internal/guard"
	"github.com/starford/othala/internal/registrar"
	"github.com/starford/othala/internal/reward"
	"github.com/starford/othala/internal/sse"
	"github.com/starford/othala/internal/store"
)

// Accounts used throughout the tests.
const (
	Funding     = "treasury"
	Owner       = "owner"
	Distributor = "distributor"
)

// Reward policy used throughout the tests.
const (
	PerEventReward = uint64(10)
	MinReward      = uint64(1)
	MaxReward      = uint64(100)
	MaxSupply      = uint64(1_000_000)
)

// TestStore creates a temporary SQLite store that is automatically cleaned up.
func TestStore(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "othala-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Env bundles a fully wired service set against a temp store.
type Env struct {
	Store     *store.DB
	Broker    *sse.Broker
	Registrar *registrar.Service
	Rewards   *reward.Service
	Registry  *collab.LocalRegistry
	Attacher  *collab.LocalAttacher
}

// TestEnv wires a registrar and reward service over local collaborators and
// a temp store, funding the treasury with fund tokens.
func TestEnv(t *testing.T, fund uint64) *Env {
	t.Helper()

	db := TestStore(t)
	broker := sse.NewBroker(time.Millisecond)
	t.Cleanup(broker.Close)

	policy, err := reward.NewPolicy(PerEventReward, MinReward, MaxReward)
	if err != nil {
		t.Fatal(err)
	}

	g := guard.New()
	rewards := reward.NewService(db, broker, g, policy, MaxSupply, Funding, Owner, Distributor)

	registry := collab.NewLocalRegistry()
	attacher := collab.NewLocalAttacher()
	reg := registrar.NewService(db, collab.NewLocalMinter(0), registry, attacher, g, broker, rewards, registrar.Settings{
		ChainID:         "test-chain",
		Contract:        "works-v1",
		LicenseTemplate: "pil",
		LicenseTermsID:  "1",
	})

	if fund > 0 {
		if err := db.Deposit(Funding, fund, MaxSupply); err != nil {
			t.Fatalf("fund treasury: %v", err)
		}
	}

	return &Env{
		Store:     db,
		Broker:    broker,
		Registrar: reg,
		Rewards:   rewards,
		Registry:  registry,
		Attacher:  attacher,
	}
}
