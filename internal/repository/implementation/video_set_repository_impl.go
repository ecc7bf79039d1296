package implementation

import (
	"context"
	"errors"

	"ai-recall-be/internal/entity"
	"ai-recall-be/internal/mapper"
	"ai-recall-be/internal/model"
	"ai-recall-be/internal/repository/contract"
	"ai-recall-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VideoSetRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.VideoMapper
}

func NewVideoSetRepository(db *gorm.DB) contract.VideoSetRepository {
	return &VideoSetRepositoryImpl{
		db:     db,
		mapper: mapper.NewVideoMapper(),
	}
}

func (r *VideoSetRepositoryImpl) Create(ctx context.Context, set *entity.VideoSet) error {
	m := r.mapper.SetToModel(set)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*set = *r.mapper.SetToEntity(m)
	return nil
}

func (r *VideoSetRepositoryImpl) Update(ctx context.Context, set *entity.VideoSet) error {
	m := r.mapper.SetToModel(set)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*set = *r.mapper.SetToEntity(m)
	return nil
}

func (r *VideoSetRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.VideoSet{}, id).Error
}

func (r *VideoSetRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.VideoSet, error) {
	var m model.VideoSet
	query := applySpecs(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.SetToEntity(&m), nil
}

func (r *VideoSetRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.VideoSet, error) {
	var models []*model.VideoSet
	query := applySpecs(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.VideoSet, len(models))
	for i, m := range models {
		entities[i] = r.mapper.SetToEntity(m)
	}
	return entities, nil
}

func (r *VideoSetRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecs(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.VideoSet{}).Count(&count).Error
	return count, err
}

func (r *VideoSetRepositoryImpl) CreateClips(ctx context.Context, clips []*entity.VideoClip) error {
	if len(clips) == 0 {
		return nil
	}
	models := make([]*model.VideoClip, len(clips))
	for i, c := range clips {
		models[i] = r.mapper.ClipToModel(c)
	}
	if err := r.db.WithContext(ctx).Create(&models).Error; err != nil {
		return err
	}
	for i, m := range models {
		*clips[i] = *r.mapper.ClipToEntity(m)
	}
	return nil
}

func (r *VideoSetRepositoryImpl) FindClipsBySetIds(ctx context.Context, setIds []uuid.UUID) ([]*entity.VideoClip, error) {
	if len(setIds) == 0 {
		return nil, nil
	}
	var models []*model.VideoClip
	err := r.db.WithContext(ctx).
		Where("video_set_id IN ?", setIds).
		Order("video_set_id, ordinal ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	clips := make([]*entity.VideoClip, len(models))
	for i, m := range models {
		clips[i] = r.mapper.ClipToEntity(m)
	}
	return clips, nil
}

func (r *VideoSetRepositoryImpl) CreateFrames(ctx context.Context, frames []*entity.VideoFrame) error {
	if len(frames) == 0 {
		return nil
	}
	models := make([]*model.VideoFrame, len(frames))
	for i, f := range frames {
		models[i] = r.mapper.FrameToModel(f)
	}
	// Frame rows carry raw image bytes; insert in batches to keep
	// statements under the driver's parameter limit.
	if err := r.db.WithContext(ctx).CreateInBatches(&models, 50).Error; err != nil {
		return err
	}
	for i, m := range models {
		*frames[i] = *r.mapper.FrameToEntity(m)
	}
	return nil
}

func (r *VideoSetRepositoryImpl) FindFramesByClipId(ctx context.Context, clipId uuid.UUID) ([]*entity.VideoFrame, error) {
	var models []*model.VideoFrame
	err := r.db.WithContext(ctx).
		Where("video_clip_id = ?", clipId).
		Order("ordinal ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	frames := make([]*entity.VideoFrame, len(models))
	for i, m := range models {
		frames[i] = r.mapper.FrameToEntity(m)
	}
	return frames, nil
}

func (r *VideoSetRepositoryImpl) FindPosterFrame(ctx context.Context, clipId uuid.UUID) (*entity.VideoFrame, error) {
	var m model.VideoFrame
	err := r.db.WithContext(ctx).
		Where("video_clip_id = ?", clipId).
		Order("ordinal ASC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.FrameToEntity(&m), nil
}

func (r *VideoSetRepositoryImpl) CountFramesByClipId(ctx context.Context, clipId uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.VideoFrame{}).
		Where("video_clip_id = ?", clipId).
		Count(&count).Error
	return count, err
}

func (r *VideoSetRepositoryImpl) FindNthFrame(ctx context.Context, clipId uuid.UUID, n int) (*entity.VideoFrame, error) {
	var m model.VideoFrame
	err := r.db.WithContext(ctx).
		Where("video_clip_id = ?", clipId).
		Order("ordinal ASC").
		Offset(n).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.FrameToEntity(&m), nil
}
