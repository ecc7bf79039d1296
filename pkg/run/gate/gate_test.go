package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func makeIDs(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func TestResolveCountBounds(t *testing.T) {
	tests := []struct {
		name    string
		count   int
		wantErr error
	}{
		{"empty selection", 0, ErrCount},
		{"single recording", 1, nil},
		{"maximum allowed", 3, nil},
		{"over the cap", 4, ErrCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			err := g.Resolve(makeIDs(tt.count))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Resolve(%d ids) error = %v, want %v", tt.count, err, tt.wantErr)
			}
		})
	}
}

func TestResolveDeliversToWaiter(t *testing.T) {
	g := New()
	want := makeIDs(2)

	type result struct {
		ids []uuid.UUID
		err error
	}
	done := make(chan result, 1)
	go func() {
		ids, err := g.Wait(context.Background())
		done <- result{ids, err}
	}()

	if err := g.Resolve(want); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	select {
	case res := <-done:
		if res.err != nil {
			t.Fatalf("Wait() error = %v", res.err)
		}
		if len(res.ids) != len(want) {
			t.Fatalf("Wait() returned %d ids, want %d", len(res.ids), len(want))
		}
		for i := range want {
			if res.ids[i] != want[i] {
				t.Errorf("Wait() ids[%d] = %s, want %s", i, res.ids[i], want[i])
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never woke after Resolve")
	}
}

func TestResolveBeforeWait(t *testing.T) {
	g := New()
	want := makeIDs(1)

	// The endpoint can land before the pipeline reaches Wait; the selection
	// must not be lost.
	if err := g.Resolve(want); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	ids, err := g.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != want[0] {
		t.Errorf("Wait() = %v, want %v", ids, want)
	}
}

func TestGateIsOneShot(t *testing.T) {
	t.Run("second resolve refused", func(t *testing.T) {
		g := New()
		if err := g.Resolve(makeIDs(1)); err != nil {
			t.Fatalf("first Resolve() error = %v", err)
		}
		if err := g.Resolve(makeIDs(1)); !errors.Is(err, ErrClosed) {
			t.Errorf("second Resolve() error = %v, want ErrClosed", err)
		}
	})

	t.Run("resolve after reject refused", func(t *testing.T) {
		g := New()
		g.Reject(errors.New("run cancelled"))
		if err := g.Resolve(makeIDs(1)); !errors.Is(err, ErrClosed) {
			t.Errorf("Resolve() after Reject error = %v, want ErrClosed", err)
		}
	})
}

func TestRejectWakesWaiter(t *testing.T) {
	g := New()
	cause := errors.New("run cancelled")

	done := make(chan error, 1)
	go func() {
		_, err := g.Wait(context.Background())
		done <- err
	}()

	g.Reject(cause)
	// A later reject must not clobber the recorded cause.
	g.Reject(errors.New("something else"))

	select {
	case err := <-done:
		if !errors.Is(err, cause) {
			t.Errorf("Wait() error = %v, want %v", err, cause)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never woke after Reject")
	}

	if _, err := g.Wait(context.Background()); !errors.Is(err, cause) {
		t.Errorf("Wait() after close error = %v, want %v", err, cause)
	}
}

func TestWaitHonoursContext(t *testing.T) {
	g := New()
	cause := errors.New("deadline hit")
	ctx, cancel := context.WithCancelCause(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := g.Wait(ctx)
		done <- err
	}()

	cancel(cause)

	select {
	case err := <-done:
		if !errors.Is(err, cause) {
			t.Errorf("Wait() error = %v, want cancellation cause %v", err, cause)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter ignored context cancellation")
	}
}
