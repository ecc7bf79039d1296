package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "RUN_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent helps embed common logic if needed,
// strictly creating valid implementations is preferred though.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Run lifecycle event codes. These cross process boundaries (NATS), so the
// codes are stable identifiers, not display strings.
const (
	RunStartedType    = "run_started"
	RunCompletedType  = "run_completed"
	RunStoppedType    = "run_stopped"
	RunFailedType     = "run_failed"
	MemoryIndexedType = "memory_indexed"
)

func NewRunStarted(runID, sessionID, userID string) Event {
	return BaseEvent{
		Type: RunStartedType,
		Data: map[string]interface{}{
			"run_id":     runID,
			"session_id": sessionID,
			"user_id":    userID,
		},
		OccurredAt: time.Now(),
	}
}

func NewRunCompleted(runID, sessionID string, elapsedMs int64) Event {
	return BaseEvent{
		Type: RunCompletedType,
		Data: map[string]interface{}{
			"run_id":     runID,
			"session_id": sessionID,
			"elapsed_ms": elapsedMs,
		},
		OccurredAt: time.Now(),
	}
}

func NewRunStopped(runID, sessionID string, afterTokens bool) Event {
	return BaseEvent{
		Type: RunStoppedType,
		Data: map[string]interface{}{
			"run_id":       runID,
			"session_id":   sessionID,
			"after_tokens": afterTokens,
		},
		OccurredAt: time.Now(),
	}
}

func NewRunFailed(runID, sessionID, reason string) Event {
	return BaseEvent{
		Type: RunFailedType,
		Data: map[string]interface{}{
			"run_id":     runID,
			"session_id": sessionID,
			"reason":     reason,
		},
		OccurredAt: time.Now(),
	}
}

func NewMemoryIndexed(sessionID string, chunks int) Event {
	return BaseEvent{
		Type: MemoryIndexedType,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"chunks":     chunks,
		},
		OccurredAt: time.Now(),
	}
}
