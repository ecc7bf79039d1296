package entity

import (
	"time"

	"github.com/google/uuid"
)

// MemoryChunk is one embedded slice of past conversation. Chunks are written
// by the indexing consumer and searched by the retriever.
type MemoryChunk struct {
	Id             uuid.UUID
	ChatSessionId  uuid.UUID
	Content        string
	EmbeddingValue []float32
	ChunkIndex     int
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}
