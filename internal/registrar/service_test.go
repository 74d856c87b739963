package registrar_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/collab"
	"github.com/starford/othala/internal/guard"
	"github.com/starford/othala/internal/registrar"
	"github.com/starford/othala/internal/reward"
	"github.com/starford/othala/internal/sse"
	"github.com/starford/othala/internal/testutil"
)

// newService wires a registrar over a temp store with injectable
// collaborators, funding the treasury with fund tokens.
func newService(t *testing.T, minter collab.IdentityMinter, registry collab.ProvenanceRegistry, licenser collab.LicenseAttacher, fund uint64) *registrar.Service {
	t.Helper()

	db := testutil.TestStore(t)
	broker := sse.NewBroker(time.Millisecond)
	t.Cleanup(broker.Close)

	policy, err := reward.NewPolicy(testutil.PerEventReward, testutil.MinReward, testutil.MaxReward)
	if err != nil {
		t.Fatal(err)
	}
	g := guard.New()
	rewards := reward.NewService(db, broker, g, policy, testutil.MaxSupply, testutil.Funding, testutil.Owner, testutil.Distributor)

	if fund > 0 {
		if err := db.Deposit(testutil.Funding, fund, testutil.MaxSupply); err != nil {
			t.Fatal(err)
		}
	}

	return registrar.NewService(db, minter, registry, licenser, g, broker, rewards, registrar.Settings{
		ChainID:         "test-chain",
		Contract:        "works-v1",
		LicenseTemplate: "pil",
		LicenseTermsID:  "1",
	})
}

// slowMinter delays each mint so concurrent callers overlap inside the
// guarded section.
type slowMinter struct {
	inner collab.IdentityMinter
	delay time.Duration
}

func (m slowMinter) Mint(ctx context.Context, owner, workID, meta string) (uint64, error) {
	time.Sleep(m.delay)
	return m.inner.Mint(ctx, owner, workID, meta)
}

type failingMinter struct{ err error }

func (f failingMinter) Mint(context.Context, string, string, string) (uint64, error) {
	return 0, f.err
}

type failingRegistry struct {
	inner       collab.ProvenanceRegistry
	registerErr error
	linkErr     error
}

func (f failingRegistry) Register(ctx context.Context, t collab.Tuple) (string, error) {
	if f.registerErr != nil {
		return "", f.registerErr
	}
	return f.inner.Register(ctx, t)
}

func (f failingRegistry) LinkDerivative(ctx context.Context, child string, parents []string, template, terms string) error {
	if f.linkErr != nil {
		return f.linkErr
	}
	return f.inner.LinkDerivative(ctx, child, parents, template, terms)
}

type failingAttacher struct{ err error }

func (f failingAttacher) Attach(context.Context, string, string, string) error {
	return f.err
}

func TestRegisterWork(t *testing.T) {
	env := testutil.TestEnv(t, 3*testutil.PerEventReward)
	ctx := context.Background()

	work, err := env.Registrar.RegisterWork(ctx, "alice", "42", "ipfs://meta-42")
	if err != nil {
		t.Fatalf("RegisterWork: %v", err)
	}
	if work.WorkID != "42" || work.Owner != "alice" || work.RegisteredAt == 0 {
		t.Errorf("unexpected work: %+v", work)
	}
	if work.InternalID == 0 || work.ProvenanceID == "" {
		t.Errorf("collaborator identifiers missing: %+v", work)
	}

	// Caller is paid the per-event reward out of the funding balance.
	if b, _ := env.Store.Balance("alice"); b != testutil.PerEventReward {
		t.Errorf("alice balance = %d, want %d", b, testutil.PerEventReward)
	}
	if b, _ := env.Store.Balance(testutil.Funding); b != 2*testutil.PerEventReward {
		t.Errorf("funding balance = %d, want %d", b, 2*testutil.PerEventReward)
	}

	// License terms were attached to the provenance id.
	if terms := env.Attacher.Terms(work.ProvenanceID); terms != "pil/1" {
		t.Errorf("attached terms = %q, want pil/1", terms)
	}

	got, err := env.Registrar.GetWork(ctx, "42")
	if err != nil {
		t.Fatal(err)
	}
	if *got != *work {
		t.Errorf("GetWork = %+v, want %+v", got, work)
	}
}

func TestRegisterWork_Duplicate(t *testing.T) {
	env := testutil.TestEnv(t, 3*testutil.PerEventReward)
	ctx := context.Background()

	if _, err := env.Registrar.RegisterWork(ctx, "alice", "42", ""); err != nil {
		t.Fatal(err)
	}
	_, err := env.Registrar.RegisterWork(ctx, "bob", "42", "")
	if !errors.Is(err, apperr.ErrDuplicateWork) {
		t.Fatalf("err = %v, want ErrDuplicateWork", err)
	}

	// No state change from the rejected call.
	work, err := env.Registrar.GetWork(ctx, "42")
	if err != nil {
		t.Fatal(err)
	}
	if work.Owner != "alice" {
		t.Errorf("owner = %q, want alice", work.Owner)
	}
	if b, _ := env.Store.Balance("bob"); b != 0 {
		t.Errorf("bob balance = %d, want 0", b)
	}
}

func TestRegisterWork_PayoutSkippedWhenUnderfunded(t *testing.T) {
	env := testutil.TestEnv(t, testutil.PerEventReward-1)
	ctx := context.Background()

	work, err := env.Registrar.RegisterWork(ctx, "alice", "42", "")
	if err != nil {
		t.Fatalf("registration must succeed despite underfunding: %v", err)
	}
	if work.RegisteredAt == 0 {
		t.Error("work not persisted")
	}
	if b, _ := env.Store.Balance("alice"); b != 0 {
		t.Errorf("alice balance = %d, want 0", b)
	}
}

func TestRegisterWork_UpstreamFailureLeavesNoState(t *testing.T) {
	boom := fmt.Errorf("registry offline")

	tests := []struct {
		name     string
		minter   collab.IdentityMinter
		registry collab.ProvenanceRegistry
		licenser collab.LicenseAttacher
	}{
		{"mint fails", failingMinter{err: boom}, collab.NewLocalRegistry(), collab.NewLocalAttacher()},
		{"register fails", collab.NewLocalMinter(0), failingRegistry{inner: collab.NewLocalRegistry(), registerErr: boom}, collab.NewLocalAttacher()},
		{"attach fails", collab.NewLocalMinter(0), collab.NewLocalRegistry(), failingAttacher{err: boom}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(t, tt.minter, tt.registry, tt.licenser, 100)

			_, err := svc.RegisterWork(context.Background(), "alice", "42", "")
			if !errors.Is(err, apperr.ErrUpstream) {
				t.Fatalf("err = %v, want ErrUpstream", err)
			}
			if !errors.Is(err, boom) {
				t.Errorf("cause not propagated: %v", err)
			}

			// Atomicity: no work record, no payout.
			if _, err := svc.GetWork(context.Background(), "42"); !errors.Is(err, apperr.ErrNotFound) {
				t.Errorf("work persisted despite upstream failure")
			}
		})
	}
}

// reentrantMinter calls back into the registrar during its own execution,
// simulating a collaborator that re-enters the orchestrator.
type reentrantMinter struct {
	svc    *registrar.Service
	calls  int
	nested error
}

func (m *reentrantMinter) Mint(ctx context.Context, owner, workID, meta string) (uint64, error) {
	m.calls++
	_, m.nested = m.svc.RegisterWork(ctx, owner, workID+"-nested", meta)
	if m.nested != nil {
		return 0, m.nested
	}
	return 1, nil
}

func TestRegisterWork_ReentrancyRejected(t *testing.T) {
	minter := &reentrantMinter{}
	svc := newService(t, minter, collab.NewLocalRegistry(), collab.NewLocalAttacher(), 100)
	minter.svc = svc

	_, err := svc.RegisterWork(context.Background(), "alice", "42", "")
	if !errors.Is(err, apperr.ErrReentrancy) {
		t.Fatalf("err = %v, want ErrReentrancy", err)
	}
	if !errors.Is(minter.nested, apperr.ErrReentrancy) {
		t.Errorf("nested err = %v, want ErrReentrancy", minter.nested)
	}

	// Neither the outer nor the nested call left state behind.
	for _, id := range []string{"42", "42-nested"} {
		if _, err := svc.GetWork(context.Background(), id); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("work %q persisted despite rejection", id)
		}
	}

	// The guard is released after the failed call: a follow-up registration
	// reaches the minter again instead of being rejected at the door.
	svc.RegisterWork(context.Background(), "alice", "43", "")
	if minter.calls != 2 {
		t.Errorf("minter calls = %d, want 2 (guard left locked)", minter.calls)
	}
}

func TestRegisterWork_ConcurrentCallsSerialize(t *testing.T) {
	minter := slowMinter{inner: collab.NewLocalMinter(0), delay: 50 * time.Millisecond}
	svc := newService(t, minter, collab.NewLocalRegistry(), collab.NewLocalAttacher(), 100)

	// Independent registrations of distinct work ids queue behind each
	// other; neither is rejected as reentrant.
	ids := []string{"a", "b"}
	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.RegisterWork(context.Background(), "alice", id, "")
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("register %q: %v", ids[i], err)
		}
	}
	for _, id := range ids {
		if _, err := svc.GetWork(context.Background(), id); err != nil {
			t.Errorf("work %q not persisted: %v", id, err)
		}
	}
}

func TestRegisterWork_MonotonicTimestamps(t *testing.T) {
	env := testutil.TestEnv(t, 0)
	ctx := context.Background()

	var last uint64
	for i := 0; i < 5; i++ {
		work, err := env.Registrar.RegisterWork(ctx, "alice", fmt.Sprintf("w%d", i), "")
		if err != nil {
			t.Fatal(err)
		}
		if work.RegisteredAt <= last {
			t.Errorf("registered_at %d not after %d", work.RegisteredAt, last)
		}
		last = work.RegisteredAt
	}
}

func TestGetWork_NotFound(t *testing.T) {
	env := testutil.TestEnv(t, 0)
	_, err := env.Registrar.GetWork(context.Background(), "ghost")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
