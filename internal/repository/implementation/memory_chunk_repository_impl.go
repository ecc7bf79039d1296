package implementation

import (
	"context"

	"ai-recall-be/internal/entity"
	"ai-recall-be/internal/mapper"
	"ai-recall-be/internal/model"
	"ai-recall-be/internal/repository/contract"
	"ai-recall-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type MemoryChunkRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.MemoryChunkMapper
}

func NewMemoryChunkRepository(db *gorm.DB) contract.MemoryChunkRepository {
	return &MemoryChunkRepositoryImpl{
		db:     db,
		mapper: mapper.NewMemoryChunkMapper(),
	}
}

func (r *MemoryChunkRepositoryImpl) Create(ctx context.Context, chunk *entity.MemoryChunk) error {
	m := r.mapper.ToModel(chunk)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*chunk = *r.mapper.ToEntity(m)
	return nil
}

func (r *MemoryChunkRepositoryImpl) CreateBulk(ctx context.Context, chunks []*entity.MemoryChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	models := r.mapper.ToModels(chunks)
	if err := r.db.WithContext(ctx).Create(&models).Error; err != nil {
		return err
	}
	for i, m := range models {
		*chunks[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *MemoryChunkRepositoryImpl) DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("chat_session_id = ?", sessionId).Delete(&model.MemoryChunk{}).Error
}

func (r *MemoryChunkRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MemoryChunk, error) {
	var models []*model.MemoryChunk
	query := applySpecs(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.MemoryChunk, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *MemoryChunkRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecs(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.MemoryChunk{}).Count(&count).Error
	return count, err
}

func (r *MemoryChunkRepositoryImpl) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, userId uuid.UUID, excludeSessionId uuid.UUID, threshold float64) ([]*contract.ScoredMemoryChunk, error) {
	queryVector := pgvector.NewVector(embedding)

	var results []struct {
		model.MemoryChunk
		Similarity float64
	}

	query := r.db.WithContext(ctx).
		Table("memory_chunks").
		Select("memory_chunks.*, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Joins("JOIN chat_sessions ON chat_sessions.id = memory_chunks.chat_session_id").
		Where("chat_sessions.user_id = ?", userId).
		Where("chat_sessions.deleted_at IS NULL").
		Where("memory_chunks.deleted_at IS NULL").
		Where("1 - (embedding_value <=> ?) >= ?", queryVector, threshold)

	if excludeSessionId != uuid.Nil {
		query = query.Where("memory_chunks.chat_session_id != ?", excludeSessionId)
	}

	err := query.
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredMemoryChunk, len(results))
	for i, res := range results {
		chunk := res.MemoryChunk
		scored[i] = &contract.ScoredMemoryChunk{
			Chunk:      r.mapper.ToEntity(&chunk),
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}
