package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ai-recall-be/internal/dto"
	"ai-recall-be/internal/entity"
	"ai-recall-be/internal/repository/unitofwork"
	"ai-recall-be/pkg/store"

	"github.com/google/uuid"
)

var (
	ErrPreviewNotFound = errors.New("preview expired or revoked")
	// ErrBadFrameEncoding rejects an upload whose frame payload is not
	// valid base64.
	ErrBadFrameEncoding = errors.New("frame image is not valid base64")
)

type IMediaService interface {
	IngestRecording(ctx context.Context, userId uuid.UUID, request *dto.IngestRecordingRequest) (*dto.IngestRecordingResponse, error)
	ResolvePreview(ctx context.Context, handle string) ([]byte, error)
}

type mediaService struct {
	uowFactory         unitofwork.RepositoryFactory
	previews           *store.PreviewStore
	recordingPublisher IPublisherService
}

func NewMediaService(
	uowFactory unitofwork.RepositoryFactory,
	previews *store.PreviewStore,
	recordingPublisher IPublisherService,
) IMediaService {
	return &mediaService{
		uowFactory:         uowFactory,
		previews:           previews,
		recordingPublisher: recordingPublisher,
	}
}

// IngestRecording stores one captured recording window: the set row, its
// clips in capture order, and every frame as raw JPEG. The visual embeddings
// are produced afterwards by the indexing consumer.
func (ms *mediaService) IngestRecording(ctx context.Context, userId uuid.UUID, request *dto.IngestRecordingRequest) (*dto.IngestRecordingResponse, error) {
	uow := ms.uowFactory.NewUnitOfWork(ctx)
	now := time.Now()

	capturedAt := request.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = now
	}

	videoSet := &entity.VideoSet{
		Id:         uuid.New(),
		UserId:     userId,
		Title:      request.Title,
		CapturedAt: capturedAt,
		CreatedAt:  now,
	}

	clips := make([]*entity.VideoClip, 0, len(request.Clips))
	var frames []*entity.VideoFrame
	var representative *entity.VideoClip

	for ordinal, clipReq := range request.Clips {
		clip := &entity.VideoClip{
			Id:         uuid.New(),
			VideoSetId: videoSet.Id,
			Ordinal:    ordinal,
			DurationMs: clipReq.DurationMs,
			FrameCount: len(clipReq.Frames),
			CreatedAt:  now,
		}

		for frameOrdinal, frameReq := range clipReq.Frames {
			image, err := base64.StdEncoding.DecodeString(frameReq.ImageBase64)
			if err != nil {
				return nil, fmt.Errorf("%w: clip %d frame %d", ErrBadFrameEncoding, ordinal, frameOrdinal)
			}
			frames = append(frames, &entity.VideoFrame{
				Id:          uuid.New(),
				VideoClipId: clip.Id,
				Ordinal:     frameOrdinal,
				OffsetMs:    frameReq.OffsetMs,
				Image:       image,
				CreatedAt:   now,
			})
		}

		clips = append(clips, clip)
		videoSet.DurationMs += clip.DurationMs
		// The longest clip previews and represents the whole set.
		if representative == nil || clip.DurationMs > representative.DurationMs {
			representative = clip
		}
	}
	if representative != nil {
		videoSet.RepresentativeClipId = &representative.Id
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.VideoSetRepository().Create(ctx, videoSet); err != nil {
		return nil, err
	}
	if err := uow.VideoSetRepository().CreateClips(ctx, clips); err != nil {
		return nil, err
	}
	if err := uow.VideoSetRepository().CreateFrames(ctx, frames); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	payload := dto.PublishIndexRecordingMessage{VideoSetId: videoSet.Id}
	payloadJson, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if err := ms.recordingPublisher.Publish(ctx, payloadJson); err != nil {
		return nil, err
	}

	return &dto.IngestRecordingResponse{
		VideoSetId: videoSet.Id,
		Clips:      len(clips),
		Frames:     len(frames),
	}, nil
}

// ResolvePreview exchanges a minted handle for the poster frame it points
// at. Handles outlive nothing: once the owning run finishes they are gone.
func (ms *mediaService) ResolvePreview(ctx context.Context, handle string) ([]byte, error) {
	clipId, ok := ms.previews.Resolve(handle)
	if !ok {
		return nil, ErrPreviewNotFound
	}

	uow := ms.uowFactory.NewUnitOfWork(ctx)
	frame, err := uow.VideoSetRepository().FindPosterFrame(ctx, clipId)
	if err != nil {
		return nil, err
	}
	if frame == nil {
		return nil, ErrPreviewNotFound
	}
	return frame.Image, nil
}
