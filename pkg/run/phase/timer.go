package phase

import (
	"context"
	"time"
)

// Floor keeps a phase visible for at least min wall-clock time so the client
// can render its progress step. Work shorter than the floor waits out the
// remainder; the wait aborts as soon as the context ends.
type Floor struct {
	min   time.Duration
	start time.Time
}

func StartFloor(min time.Duration) *Floor {
	return &Floor{
		min:   min,
		start: time.Now(),
	}
}

// Wait blocks until the floor has elapsed or ctx is done, returning the
// cancellation cause in the latter case.
func (f *Floor) Wait(ctx context.Context) error {
	remaining := f.min - time.Since(f.start)
	if remaining <= 0 {
		return nil
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}
