package run

import "time"

// Phase identifies one stage of the pipeline for timing and log markers.
type Phase int

const (
	PhaseUnderstanding Phase = iota + 1
	PhaseSearching
	PhaseProcessing
	PhaseGenerating
)

func (p Phase) String() string {
	switch p {
	case PhaseUnderstanding:
		return "understanding"
	case PhaseSearching:
		return "searching"
	case PhaseProcessing:
		return "processing"
	case PhaseGenerating:
		return "generating"
	}
	return "unknown"
}

// PhaseTiming records the wall-clock duration of one completed phase.
type PhaseTiming struct {
	Phase     Phase         `json:"phase"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Metrics aggregates the retrieval counters surfaced to the client once a
// run reaches a terminal state.
type Metrics struct {
	MemoriesRetrieved      int `json:"memories_retrieved"`
	ScreenRecordings       int `json:"screen_recordings"`
	EmbeddingsSearched     int `json:"embeddings_searched"`
	EncryptedDataProcessed int `json:"encrypted_data_processed"`
}
