package reward

import (
	"context"
	"errors"
	"math"
	"os"
	"testing"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/guard"
	"github.com/starford/othala/internal/sse"
	"github.com/starford/othala/internal/store"
)

func testService(t *testing.T) (*Service, *store.DB) {
	t.Helper()

	dbFile, err := os.CreateTemp("", "othala-reward-test-*.db")
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

	broker := sse.NewBroker(time.Millisecond)
	t.Cleanup(broker.Close)

	policy, err := NewPolicy(10, 1, 100)
	if err != nil {
		t.Fatal(err)
	}

	svc := NewService(db, broker, guard.New(), policy, 1000, "treasury", "owner", "distributor")
	return svc, db
}

func TestDeposit(t *testing.T) {
	svc, db := testService(t)
	ctx := context.Background()

	if err := svc.Deposit(ctx, "owner", 500); err != nil {
		t.Fatalf("owner deposit: %v", err)
	}
	if b, _ := db.Balance("treasury"); b != 500 {
		t.Errorf("treasury = %d, want 500", b)
	}

	if err := svc.Deposit(ctx, "mallory", 1); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("non-owner deposit err = %v, want ErrUnauthorized", err)
	}
	if err := svc.Deposit(ctx, "owner", 0); !errors.Is(err, apperr.ErrInvalidAmount) {
		t.Errorf("zero deposit err = %v, want ErrInvalidAmount", err)
	}
	if err := svc.Deposit(ctx, "owner", 501); !errors.Is(err, apperr.ErrSupplyCap) {
		t.Errorf("over-cap deposit err = %v, want ErrSupplyCap", err)
	}
	if err := svc.Deposit(ctx, "owner", math.MaxUint64); !errors.Is(err, apperr.ErrSupplyCap) {
		t.Errorf("wrapping deposit err = %v, want ErrSupplyCap", err)
	}
}

func TestDistributeBatch_Validation(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	big := make([]string, MaxBatchSize+1)
	bigAmounts := make([]uint64, MaxBatchSize+1)
	for i := range big {
		big[i] = "r"
		bigAmounts[i] = 1
	}

	tests := []struct {
		name       string
		caller     string
		recipients []string
		amounts    []uint64
		want       error
	}{
		{"not distributor", "mallory", []string{"a"}, []uint64{1}, apperr.ErrUnauthorized},
		{"length mismatch", "distributor", []string{"a", "b"}, []uint64{1}, apperr.ErrLengthMismatch},
		{"empty batch", "distributor", nil, nil, apperr.ErrEmptyBatch},
		{"too large", "distributor", big, bigAmounts, apperr.ErrBatchTooLarge},
		{"empty recipient", "distributor", []string{"a", ""}, []uint64{1, 1}, apperr.ErrInvalidRecipient},
		{"zero amount", "distributor", []string{"a", "b"}, []uint64{1, 0}, apperr.ErrInvalidAmount},
		{"sum wraps uint64", "distributor", []string{"a", "b", "c", "d", "e"},
			[]uint64{1 << 62, 1 << 62, 1 << 62, 1 << 62, 5}, apperr.ErrInvalidAmount},
		{"insufficient funds", "distributor", []string{"a"}, []uint64{1}, apperr.ErrInsufficientFunds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.DistributeBatch(ctx, tt.caller, tt.recipients, tt.amounts, "test")
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDistributeBatch_Success(t *testing.T) {
	svc, db := testService(t)
	ctx := context.Background()

	if err := db.Deposit("distributor", 100, 1000); err != nil {
		t.Fatal(err)
	}

	if err := svc.DistributeBatch(ctx, "distributor", []string{"a", "b"}, []uint64{60, 40}, "royalties"); err != nil {
		t.Fatal(err)
	}

	wantBalances := map[string]uint64{"a": 60, "b": 40, "distributor": 0}
	for holder, want := range wantBalances {
		if b, _ := db.Balance(holder); b != want {
			t.Errorf("%s = %d, want %d", holder, b, want)
		}
	}
}

func TestSetPerEventReward(t *testing.T) {
	svc, _ := testService(t)

	if err := svc.SetPerEventReward("owner", 50); err != nil {
		t.Fatalf("owner set: %v", err)
	}
	if got := svc.Policy().PerEventReward(); got != 50 {
		t.Errorf("per-event = %d, want 50", got)
	}

	if err := svc.SetPerEventReward("mallory", 20); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("non-owner set err = %v, want ErrUnauthorized", err)
	}
	if err := svc.SetPerEventReward("owner", 1000); !errors.Is(err, apperr.ErrInvalidConfig) {
		t.Errorf("out-of-bound set err = %v, want ErrInvalidConfig", err)
	}
}

func TestSetDistributor(t *testing.T) {
	svc, db := testService(t)
	ctx := context.Background()

	if err := svc.SetDistributor("mallory", "mallory"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("non-owner err = %v, want ErrUnauthorized", err)
	}
	if err := svc.SetDistributor("owner", ""); !errors.Is(err, apperr.ErrInvalidRecipient) {
		t.Errorf("empty account err = %v, want ErrInvalidRecipient", err)
	}

	if err := svc.SetDistributor("owner", "backend"); err != nil {
		t.Fatal(err)
	}
	if got := svc.Distributor(); got != "backend" {
		t.Errorf("distributor = %q, want backend", got)
	}

	// The old capability holder loses the role.
	if err := db.Deposit("distributor", 10, 1000); err != nil {
		t.Fatal(err)
	}
	err := svc.DistributeBatch(ctx, "distributor", []string{"a"}, []uint64{1}, "x")
	if !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("old distributor err = %v, want ErrUnauthorized", err)
	}
}
