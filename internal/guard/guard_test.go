package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/starford/othala/internal/apperr"
)

func TestAcquireRelease(t *testing.T) {
	g := New()
	if _, err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	g.Release()
	if _, err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	g.Release()
}

func TestNestedAcquireRejected(t *testing.T) {
	g := New()
	ctx, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer g.Release()

	_, err = g.Acquire(ctx)
	if !errors.Is(err, apperr.ErrReentrancy) {
		t.Errorf("nested acquire err = %v, want ErrReentrancy", err)
	}
}

func TestConcurrentAcquireQueues(t *testing.T) {
	g := New()
	if _, err := g.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	// An independent call flow waits instead of being rejected.
	acquired := make(chan error, 1)
	go func() {
		_, err := g.Acquire(context.Background())
		acquired <- err
	}()

	select {
	case err := <-acquired:
		t.Fatalf("second acquire returned %v before release", err)
	case <-time.After(50 * time.Millisecond):
	}

	g.Release()
	select {
	case err := <-acquired:
		if err != nil {
			t.Errorf("queued acquire err = %v", err)
		}
		g.Release()
	case <-time.After(time.Second):
		t.Fatal("queued acquire never proceeded after release")
	}
}

func TestAcquireStopsOnCancel(t *testing.T) {
	g := New()
	if _, err := g.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer g.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled acquire err = %v, want context.Canceled", err)
	}
}
