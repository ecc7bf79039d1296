package mapper

import (
	"ai-recall-be/internal/entity"
	"ai-recall-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type VideoMapper struct{}

func NewVideoMapper() *VideoMapper {
	return &VideoMapper{}
}

func (m *VideoMapper) SetToEntity(s *model.VideoSet) *entity.VideoSet {
	if s == nil {
		return nil
	}
	return &entity.VideoSet{
		Id:                   s.Id,
		UserId:               s.UserId,
		Title:                s.Title,
		CapturedAt:           s.CapturedAt,
		DurationMs:           s.DurationMs,
		RepresentativeClipId: s.RepresentativeClipId,
		Metadata:             metadataToEntity(s.Metadata),
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            updatedAtToEntity(s.UpdatedAt),
		DeletedAt:            deletedAtToEntity(s.DeletedAt),
		IsDeleted:            s.DeletedAt.Valid,
	}
}

func (m *VideoMapper) SetToModel(s *entity.VideoSet) *model.VideoSet {
	if s == nil {
		return nil
	}
	return &model.VideoSet{
		Id:                   s.Id,
		UserId:               s.UserId,
		Title:                s.Title,
		CapturedAt:           s.CapturedAt,
		DurationMs:           s.DurationMs,
		RepresentativeClipId: s.RepresentativeClipId,
		Metadata:             metadataToModel(s.Metadata),
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            updatedAtToModel(s.UpdatedAt),
		DeletedAt:            deletedAtToModel(s.DeletedAt, s.IsDeleted),
	}
}

func (m *VideoMapper) ClipToEntity(c *model.VideoClip) *entity.VideoClip {
	if c == nil {
		return nil
	}
	return &entity.VideoClip{
		Id:         c.Id,
		VideoSetId: c.VideoSetId,
		Ordinal:    c.Ordinal,
		DurationMs: c.DurationMs,
		FrameCount: c.FrameCount,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  updatedAtToEntity(c.UpdatedAt),
		DeletedAt:  deletedAtToEntity(c.DeletedAt),
		IsDeleted:  c.DeletedAt.Valid,
	}
}

func (m *VideoMapper) ClipToModel(c *entity.VideoClip) *model.VideoClip {
	if c == nil {
		return nil
	}
	return &model.VideoClip{
		Id:         c.Id,
		VideoSetId: c.VideoSetId,
		Ordinal:    c.Ordinal,
		DurationMs: c.DurationMs,
		FrameCount: c.FrameCount,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  updatedAtToModel(c.UpdatedAt),
		DeletedAt:  deletedAtToModel(c.DeletedAt, c.IsDeleted),
	}
}

// Frames carry image bytes and are never soft deleted on their own; they go
// with their clip.

func (m *VideoMapper) FrameToEntity(f *model.VideoFrame) *entity.VideoFrame {
	if f == nil {
		return nil
	}
	return &entity.VideoFrame{
		Id:          f.Id,
		VideoClipId: f.VideoClipId,
		Ordinal:     f.Ordinal,
		OffsetMs:    f.OffsetMs,
		Image:       f.Image,
		CreatedAt:   f.CreatedAt,
	}
}

func (m *VideoMapper) FrameToModel(f *entity.VideoFrame) *model.VideoFrame {
	if f == nil {
		return nil
	}
	return &model.VideoFrame{
		Id:          f.Id,
		VideoClipId: f.VideoClipId,
		Ordinal:     f.Ordinal,
		OffsetMs:    f.OffsetMs,
		Image:       f.Image,
		CreatedAt:   f.CreatedAt,
	}
}

func (m *VideoMapper) EmbeddingToModel(e *entity.VideoEmbedding) *model.VideoEmbedding {
	if e == nil {
		return nil
	}
	return &model.VideoEmbedding{
		Id:             e.Id,
		VideoSetId:     e.VideoSetId,
		VideoClipId:    e.VideoClipId,
		EmbeddingValue: pgvector.NewVector(e.EmbeddingValue),
		CreatedAt:      e.CreatedAt,
	}
}

func (m *VideoMapper) EmbeddingToEntity(e *model.VideoEmbedding) *entity.VideoEmbedding {
	if e == nil {
		return nil
	}
	return &entity.VideoEmbedding{
		Id:             e.Id,
		VideoSetId:     e.VideoSetId,
		VideoClipId:    e.VideoClipId,
		EmbeddingValue: e.EmbeddingValue.Slice(),
		CreatedAt:      e.CreatedAt,
	}
}
