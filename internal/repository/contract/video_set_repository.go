package contract

import (
	"context"

	"ai-recall-be/internal/entity"
	"ai-recall-be/internal/repository/specification"

	"github.com/google/uuid"
)

type VideoSetRepository interface {
	Create(ctx context.Context, set *entity.VideoSet) error
	Update(ctx context.Context, set *entity.VideoSet) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.VideoSet, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.VideoSet, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	CreateClips(ctx context.Context, clips []*entity.VideoClip) error
	FindClipsBySetIds(ctx context.Context, setIds []uuid.UUID) ([]*entity.VideoClip, error)

	CreateFrames(ctx context.Context, frames []*entity.VideoFrame) error
	// FindFramesByClipId returns frames ordered by ordinal, images included.
	FindFramesByClipId(ctx context.Context, clipId uuid.UUID) ([]*entity.VideoFrame, error)
	// FindPosterFrame returns the first frame of a clip for previews.
	FindPosterFrame(ctx context.Context, clipId uuid.UUID) (*entity.VideoFrame, error)
	CountFramesByClipId(ctx context.Context, clipId uuid.UUID) (int64, error)
	// FindNthFrame returns the frame at position n in ordinal order without
	// pulling the clip's other images off disk.
	FindNthFrame(ctx context.Context, clipId uuid.UUID, n int) (*entity.VideoFrame, error)
}
