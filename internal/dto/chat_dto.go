package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionResponse struct {
	Id uuid.UUID `json:"id"`
}

type GetAllSessionsResponse struct {
	Id            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	LastMessageAt *time.Time `json:"last_message_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
}

type GetChatHistoryResponse struct {
	Id        uuid.UUID              `json:"id"`
	Role      string                 `json:"role"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// SendChatRequest starts a run. A nil session id asks the service to create
// the session lazily before the pipeline starts.
type SendChatRequest struct {
	ChatSessionId *uuid.UUID `json:"chat_session_id"`
	Chat          string     `json:"chat" validate:"required"`
}

// SendChatResponse acknowledges the accepted run. Tokens and status arrive
// over the websocket; this reply only tells the client what to listen for.
type SendChatResponse struct {
	RunId                uuid.UUID `json:"run_id"`
	ChatSessionId        uuid.UUID `json:"chat_session_id"`
	PlaceholderMessageId uuid.UUID `json:"placeholder_message_id"`
	State                string    `json:"state"`
}

type CancelRunResponse struct {
	RunId   uuid.UUID `json:"run_id"`
	State   string    `json:"state"`
	Outcome string    `json:"outcome"`
}

type ResolveSelectionRequest struct {
	VideoSetIds []uuid.UUID `json:"video_set_ids" validate:"required,min=1,max=3"`
}

type ResolveSelectionResponse struct {
	RunId    uuid.UUID `json:"run_id"`
	Selected int       `json:"selected"`
}
