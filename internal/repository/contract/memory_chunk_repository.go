package contract

import (
	"context"

	"ai-recall-be/internal/entity"
	"ai-recall-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredMemoryChunk pairs a chunk with its cosine similarity to the query.
type ScoredMemoryChunk struct {
	Chunk      *entity.MemoryChunk
	Similarity float64
}

type MemoryChunkRepository interface {
	Create(ctx context.Context, chunk *entity.MemoryChunk) error
	CreateBulk(ctx context.Context, chunks []*entity.MemoryChunk) error
	DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MemoryChunk, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// SearchSimilarWithScore runs cosine search over chunk embeddings for one
	// user, excluding the session the query came from so a conversation never
	// retrieves itself.
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, userId uuid.UUID, excludeSessionId uuid.UUID, threshold float64) ([]*ScoredMemoryChunk, error)
}
