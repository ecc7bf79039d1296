package implementation

import (
	"context"

	"ai-recall-be/internal/entity"
	"ai-recall-be/internal/mapper"
	"ai-recall-be/internal/model"
	"ai-recall-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type VideoEmbeddingRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.VideoMapper
}

func NewVideoEmbeddingRepository(db *gorm.DB) contract.VideoEmbeddingRepository {
	return &VideoEmbeddingRepositoryImpl{
		db:     db,
		mapper: mapper.NewVideoMapper(),
	}
}

func (r *VideoEmbeddingRepositoryImpl) Create(ctx context.Context, embedding *entity.VideoEmbedding) error {
	m := r.mapper.EmbeddingToModel(embedding)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*embedding = *r.mapper.EmbeddingToEntity(m)
	return nil
}

func (r *VideoEmbeddingRepositoryImpl) CreateBulk(ctx context.Context, embeddings []*entity.VideoEmbedding) error {
	if len(embeddings) == 0 {
		return nil
	}
	models := make([]*model.VideoEmbedding, len(embeddings))
	for i, e := range embeddings {
		models[i] = r.mapper.EmbeddingToModel(e)
	}
	if err := r.db.WithContext(ctx).Create(&models).Error; err != nil {
		return err
	}
	for i, m := range models {
		*embeddings[i] = *r.mapper.EmbeddingToEntity(m)
	}
	return nil
}

func (r *VideoEmbeddingRepositoryImpl) DeleteByVideoSetId(ctx context.Context, setId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("video_set_id = ?", setId).Delete(&model.VideoEmbedding{}).Error
}

func (r *VideoEmbeddingRepositoryImpl) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, userId uuid.UUID, threshold float64) ([]*contract.ScoredVideoHit, error) {
	queryVector := pgvector.NewVector(embedding)

	var results []struct {
		VideoSetId  uuid.UUID
		VideoClipId uuid.UUID
		Similarity  float64
	}

	err := r.db.WithContext(ctx).
		Table("video_embeddings").
		Select("video_embeddings.video_set_id, video_embeddings.video_clip_id, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Joins("JOIN video_sets ON video_sets.id = video_embeddings.video_set_id").
		Where("video_sets.user_id = ?", userId).
		Where("video_sets.deleted_at IS NULL").
		Where("video_embeddings.deleted_at IS NULL").
		Where("1 - (embedding_value <=> ?) >= ?", queryVector, threshold).
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	hits := make([]*contract.ScoredVideoHit, len(results))
	for i, res := range results {
		hits[i] = &contract.ScoredVideoHit{
			VideoSetId:  res.VideoSetId,
			VideoClipId: res.VideoClipId,
			Similarity:  res.Similarity,
		}
	}
	return hits, nil
}
