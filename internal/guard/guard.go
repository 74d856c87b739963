// Package guard provides the process-wide serialization lock shared by
// every state-mutating entry point (registration, derivative creation,
// reward movement). Independent top-level calls queue on the lock; a
// nested attempt from inside a guarded call is a hard rejection, not a
// queued wait: collaborators may call back into the service, and such
// calls must fail fast while the outer call is still in flight.
package guard

import (
	"context"

	"github.com/starford/othala/internal/apperr"
)

type ctxKey struct{}

// Guard is the exclusive lock.
type Guard struct {
	sem chan struct{}
}

// New returns a new Guard.
func New() *Guard {
	return &Guard{sem: make(chan struct{}, 1)}
}

// Acquire takes the lock, blocking while another top-level call holds it.
// The returned context marks the current call flow; an Acquire with a
// context already carrying the marker is a collaborator re-entering the
// service and fails immediately with apperr.ErrReentrancy. Waiting stops
// when ctx is cancelled.
func (g *Guard) Acquire(ctx context.Context) (context.Context, error) {
	if ctx.Value(ctxKey{}) != nil {
		return nil, apperr.ErrReentrancy
	}
	select {
	case g.sem <- struct{}{}:
		return context.WithValue(ctx, ctxKey{}, struct{}{}), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release frees the lock. Must only be called after a successful Acquire.
func (g *Guard) Release() {
	<-g.sem
}
