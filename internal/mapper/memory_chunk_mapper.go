package mapper

import (
	"ai-recall-be/internal/entity"
	"ai-recall-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type MemoryChunkMapper struct{}

func NewMemoryChunkMapper() *MemoryChunkMapper {
	return &MemoryChunkMapper{}
}

func (m *MemoryChunkMapper) ToEntity(c *model.MemoryChunk) *entity.MemoryChunk {
	if c == nil {
		return nil
	}
	return &entity.MemoryChunk{
		Id:             c.Id,
		ChatSessionId:  c.ChatSessionId,
		Content:        c.Content,
		EmbeddingValue: c.EmbeddingValue.Slice(),
		ChunkIndex:     c.ChunkIndex,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      updatedAtToEntity(c.UpdatedAt),
		DeletedAt:      deletedAtToEntity(c.DeletedAt),
		IsDeleted:      c.DeletedAt.Valid,
	}
}

func (m *MemoryChunkMapper) ToModel(c *entity.MemoryChunk) *model.MemoryChunk {
	if c == nil {
		return nil
	}
	return &model.MemoryChunk{
		Id:             c.Id,
		ChatSessionId:  c.ChatSessionId,
		Content:        c.Content,
		EmbeddingValue: pgvector.NewVector(c.EmbeddingValue),
		ChunkIndex:     c.ChunkIndex,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      updatedAtToModel(c.UpdatedAt),
		DeletedAt:      deletedAtToModel(c.DeletedAt, c.IsDeleted),
	}
}

func (m *MemoryChunkMapper) ToModels(chunks []*entity.MemoryChunk) []*model.MemoryChunk {
	models := make([]*model.MemoryChunk, len(chunks))
	for i, c := range chunks {
		models[i] = m.ToModel(c)
	}
	return models
}
