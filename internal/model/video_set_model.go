package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type VideoSet struct {
	Id                   uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId               uuid.UUID      `gorm:"type:uuid;not null;index"`
	Title                string         `gorm:"type:text"`
	CapturedAt           time.Time      `gorm:"index"`
	DurationMs           int            `gorm:"default:0"`
	RepresentativeClipId *uuid.UUID     `gorm:"type:uuid"`
	Metadata             datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt            time.Time      `gorm:"autoCreateTime"`
	UpdatedAt            time.Time      `gorm:"autoUpdateTime"`
	DeletedAt            gorm.DeletedAt `gorm:"index"`
}

func (VideoSet) TableName() string {
	return "video_sets"
}
