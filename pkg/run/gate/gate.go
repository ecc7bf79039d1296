package gate

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

const (
	MinSelection = 1
	MaxSelection = 3
)

var (
	// ErrClosed means the gate was already resolved or rejected.
	ErrClosed = errors.New("selection already resolved")
	// ErrCount rejects selections outside the allowed bounds.
	ErrCount = errors.New("selection must include between 1 and 3 recordings")
)

// Gate is a one-shot rendezvous between the selection endpoint and the
// pipeline goroutine blocked in Wait. Exactly one of Resolve or Reject wins;
// every later call is refused with ErrClosed.
type Gate struct {
	mu   sync.Mutex
	done bool
	err  error
	ch   chan []uuid.UUID
}

func New() *Gate {
	return &Gate{
		ch: make(chan []uuid.UUID, 1),
	}
}

// Resolve hands the chosen recording ids to the waiting pipeline.
func (g *Gate) Resolve(ids []uuid.UUID) error {
	if len(ids) < MinSelection || len(ids) > MaxSelection {
		return ErrCount
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done {
		return ErrClosed
	}
	g.done = true
	g.ch <- ids
	return nil
}

// Reject closes the gate with an error, waking the waiter. Safe to call more
// than once; only the first call takes effect.
func (g *Gate) Reject(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done {
		return
	}
	g.done = true
	g.err = err
	close(g.ch)
}

// Wait blocks until the gate resolves, rejects, or the context ends.
func (g *Gate) Wait(ctx context.Context) ([]uuid.UUID, error) {
	select {
	case ids, ok := <-g.ch:
		if !ok {
			return nil, g.err
		}
		return ids, nil
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
}
