package run

// State is the lifecycle position of a run. The pipeline only ever moves
// forward; terminal states are final.
type State string

const (
	StateIdle                   State = "idle"
	StateAwaitingFirstToken     State = "awaiting_first_token"
	StateUnderstanding          State = "understanding"
	StateSearching              State = "searching"
	StateProcessing             State = "processing"
	StateAwaitingVideoSelection State = "awaiting_video_selection"
	StateGenerating             State = "generating"
	StateCompleted              State = "completed"
	StateStoppedBeforeTokens    State = "stopped_before_tokens"
	StateStoppedAfterTokens     State = "stopped_after_tokens"
	StateFailed                 State = "failed"
)

func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateStoppedBeforeTokens, StateStoppedAfterTokens, StateFailed:
		return true
	}
	return false
}
