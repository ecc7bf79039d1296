package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"

	"ai-recall-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// SampledFrame is one stored screen capture encoded for a multimodal prompt.
type SampledFrame struct {
	ClipID   uuid.UUID
	OffsetMs int
	Base64   string
}

// FrameSampler picks a representative frame out of a stored clip.
type FrameSampler interface {
	SampleFrame(ctx context.Context, clipID uuid.UUID) (*SampledFrame, error)
}

// StoredFrameSampler samples from the frames the ingest pipeline persisted.
// With a single uniform sample the pick lands in the middle of the clip,
// which is where screen recordings tend to show the settled UI state.
type StoredFrameSampler struct {
	factory unitofwork.RepositoryFactory
	logger  *log.Logger
}

func NewStoredFrameSampler(factory unitofwork.RepositoryFactory, logger *log.Logger) *StoredFrameSampler {
	return &StoredFrameSampler{
		factory: factory,
		logger:  logger,
	}
}

func (s *StoredFrameSampler) SampleFrame(ctx context.Context, clipID uuid.UUID) (*SampledFrame, error) {
	uow := s.factory.NewUnitOfWork(ctx)
	repo := uow.VideoSetRepository()

	count, err := repo.CountFramesByClipId(ctx, clipID)
	if err != nil {
		return nil, fmt.Errorf("counting frames for clip %s: %w", clipID, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("clip %s has no stored frames", clipID)
	}

	frame, err := repo.FindNthFrame(ctx, clipID, int(count/2))
	if err != nil {
		return nil, fmt.Errorf("loading frame for clip %s: %w", clipID, err)
	}
	if frame == nil || len(frame.Image) == 0 {
		return nil, fmt.Errorf("clip %s frame %d is empty", clipID, count/2)
	}

	return &SampledFrame{
		ClipID:   clipID,
		OffsetMs: frame.OffsetMs,
		Base64:   base64.StdEncoding.EncodeToString(frame.Image),
	}, nil
}
