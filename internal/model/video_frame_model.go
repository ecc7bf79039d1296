package model

import (
	"time"

	"github.com/google/uuid"
)

// VideoFrame rows are heavy (bytea jpeg); frames are only ever loaded by
// explicit clip lookups, never joined into search queries.
type VideoFrame struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VideoClipId uuid.UUID `gorm:"type:uuid;not null;index"`
	Ordinal     int       `gorm:"not null;default:0"`
	OffsetMs    int       `gorm:"default:0"`
	Image       []byte    `gorm:"type:bytea"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (VideoFrame) TableName() string {
	return "video_frames"
}
