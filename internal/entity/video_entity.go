package entity

import (
	"time"

	"github.com/google/uuid"
)

// VideoSet groups the clips captured during one recording window. Retrieval
// returns whole sets; one representative clip stands in for previews and
// frame sampling.
type VideoSet struct {
	Id                   uuid.UUID
	UserId               uuid.UUID
	Title                string
	CapturedAt           time.Time
	DurationMs           int
	RepresentativeClipId *uuid.UUID
	Metadata             map[string]interface{}
	CreatedAt            time.Time
	UpdatedAt            *time.Time
	DeletedAt            *time.Time
	IsDeleted            bool
}

type VideoClip struct {
	Id         uuid.UUID
	VideoSetId uuid.UUID
	Ordinal    int
	DurationMs int
	FrameCount int
	CreatedAt  time.Time
	UpdatedAt  *time.Time
	DeletedAt  *time.Time
	IsDeleted  bool
}

// VideoFrame is a single captured screen image belonging to a clip. Image is
// an encoded JPEG; frames are ordered by Ordinal within their clip.
type VideoFrame struct {
	Id          uuid.UUID
	VideoClipId uuid.UUID
	Ordinal     int
	OffsetMs    int
	Image       []byte
	CreatedAt   time.Time
}

type VideoEmbedding struct {
	Id             uuid.UUID
	VideoSetId     uuid.UUID
	VideoClipId    uuid.UUID
	EmbeddingValue []float32
	CreatedAt      time.Time
}
