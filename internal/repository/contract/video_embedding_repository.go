package contract

import (
	"context"

	"ai-recall-be/internal/entity"

	"github.com/google/uuid"
)

// ScoredVideoHit is one clip-level search hit. The retriever groups hits by
// VideoSetId, keeping the best clip score per set.
type ScoredVideoHit struct {
	VideoSetId  uuid.UUID
	VideoClipId uuid.UUID
	Similarity  float64
}

type VideoEmbeddingRepository interface {
	Create(ctx context.Context, embedding *entity.VideoEmbedding) error
	CreateBulk(ctx context.Context, embeddings []*entity.VideoEmbedding) error
	DeleteByVideoSetId(ctx context.Context, setId uuid.UUID) error
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, userId uuid.UUID, threshold float64) ([]*ScoredVideoHit, error)
}
