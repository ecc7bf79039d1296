package run

import (
	"errors"
	"fmt"
)

// ErrCancelled is attached as the cancellation cause when the user stops a
// run before the first token. Anything blocked on the run's context unwinds
// with this error.
var ErrCancelled = errors.New("run cancelled")

// ErrSessionBusy rejects a second run while the session already has one in
// flight.
var ErrSessionBusy = errors.New("session already has an active run")

// GenerationError wraps a provider failure during the answer stream.
// ModelNotReady marks the one failure mode the client can recover from by
// waiting for model warm-up and resubmitting.
type GenerationError struct {
	Err           error
	ModelNotReady bool
}

func (e *GenerationError) Error() string {
	if e.ModelNotReady {
		return fmt.Sprintf("generation failed, model not initialized: %v", e.Err)
	}
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
