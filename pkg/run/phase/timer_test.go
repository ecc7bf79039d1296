package phase

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFloorWaitsOutRemainder(t *testing.T) {
	floor := StartFloor(100 * time.Millisecond)
	start := time.Now()

	if err := floor.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("Wait() returned after %v, want at least ~100ms", elapsed)
	}
}

func TestFloorAlreadyElapsed(t *testing.T) {
	floor := StartFloor(10 * time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	start := time.Now()
	if err := floor.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Wait() blocked %v on an elapsed floor, want immediate return", elapsed)
	}
}

func TestFloorZero(t *testing.T) {
	floor := StartFloor(0)
	if err := floor.Wait(context.Background()); err != nil {
		t.Errorf("Wait() error = %v, want nil for a zero floor", err)
	}
}

func TestFloorAbortsOnContext(t *testing.T) {
	floor := StartFloor(10 * time.Second)
	cause := errors.New("run cancelled")
	ctx, cancel := context.WithCancelCause(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- floor.Wait(ctx)
	}()

	cancel(cause)

	select {
	case err := <-done:
		if !errors.Is(err, cause) {
			t.Errorf("Wait() error = %v, want cancellation cause %v", err, cause)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not abort on context cancellation")
	}
}
