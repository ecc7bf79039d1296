package dto

import "github.com/google/uuid"

// PublishIndexMemoryMessage asks the indexing consumer to chunk and embed
// one finished exchange.
type PublishIndexMemoryMessage struct {
	ChatSessionId      uuid.UUID `json:"chat_session_id"`
	UserMessageId      uuid.UUID `json:"user_message_id"`
	AssistantMessageId uuid.UUID `json:"assistant_message_id"`
}

// PublishIndexRecordingMessage asks the indexing consumer to embed a newly
// ingested recording so visual search can find it.
type PublishIndexRecordingMessage struct {
	VideoSetId uuid.UUID `json:"video_set_id"`
}
