package status

import (
	"encoding/json"
	"log"

	"ai-recall-be/pkg/run"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// Update types, in the order a client usually sees them.
const (
	TypeRunAccepted       = "run_accepted"
	TypePhase             = "phase"
	TypeAwaitingSelection = "awaiting_selection"
	TypeFirstToken        = "first_token"
	TypeChunk             = "chunk"
	TypeCompleted         = "completed"
	TypeStopped           = "stopped"
	TypeFailed            = "failed"
)

// Update is one run status envelope. UserID picks the websocket connection
// the envelope is delivered to.
type Update struct {
	Type          string               `json:"type"`
	RunID         uuid.UUID            `json:"run_id"`
	SessionID     uuid.UUID            `json:"session_id"`
	UserID        uuid.UUID            `json:"user_id"`
	State         run.State            `json:"state,omitempty"`
	Phase         string               `json:"phase,omitempty"`
	MessageID     uuid.UUID            `json:"message_id,omitempty"`
	Chunk         string               `json:"chunk,omitempty"`
	Candidates    []run.VideoCandidate `json:"candidates,omitempty"`
	Timings       []run.PhaseTiming    `json:"timings,omitempty"`
	Metrics       *run.Metrics         `json:"metrics,omitempty"`
	Failure       string               `json:"failure,omitempty"`
	ModelNotReady bool                 `json:"model_not_ready,omitempty"`
	ElapsedMs     int64                `json:"elapsed_ms,omitempty"`
}

// Reporter pushes run status toward the client. Reporting is fire-and-forget:
// a failed report never fails the run.
type Reporter interface {
	Report(update Update)
}

// WatermillReporter publishes updates onto the in-process status topic. The
// dispatcher service subscribes there and fans out to websocket clients.
type WatermillReporter struct {
	publisher message.Publisher
	topic     string
	logger    *log.Logger
}

func NewWatermillReporter(publisher message.Publisher, topic string, logger *log.Logger) *WatermillReporter {
	return &WatermillReporter{
		publisher: publisher,
		topic:     topic,
		logger:    logger,
	}
}

func (r *WatermillReporter) Report(update Update) {
	payload, err := json.Marshal(update)
	if err != nil {
		r.logger.Printf("[WARN] Failed to marshal status update %s for run %s: %v", update.Type, update.RunID, err)
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := r.publisher.Publish(r.topic, msg); err != nil {
		r.logger.Printf("[WARN] Failed to publish status update %s for run %s: %v", update.Type, update.RunID, err)
	}
}

// NopReporter drops every update. Tests and one-shot tools use it.
type NopReporter struct{}

func (NopReporter) Report(Update) {}

var _ Reporter = (*WatermillReporter)(nil)
var _ Reporter = NopReporter{}
