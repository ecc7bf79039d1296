package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VideoClip struct {
	Id         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VideoSetId uuid.UUID      `gorm:"type:uuid;not null;index"`
	Ordinal    int            `gorm:"not null;default:0"` // position within the set
	DurationMs int            `gorm:"default:0"`
	FrameCount int            `gorm:"default:0"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"`
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

func (VideoClip) TableName() string {
	return "video_clips"
}
