package dto

import (
	"time"

	"github.com/google/uuid"
)

// IngestRecordingRequest uploads one captured recording window: ordered
// clips, each with its ordered frames as base64 JPEG.
type IngestRecordingRequest struct {
	Title      string              `json:"title" validate:"required"`
	CapturedAt time.Time           `json:"captured_at"`
	Clips      []IngestClipRequest `json:"clips" validate:"required,min=1,dive"`
}

type IngestClipRequest struct {
	DurationMs int                  `json:"duration_ms"`
	Frames     []IngestFrameRequest `json:"frames" validate:"required,min=1,dive"`
}

type IngestFrameRequest struct {
	OffsetMs    int    `json:"offset_ms"`
	ImageBase64 string `json:"image_base64" validate:"required"`
}

type IngestRecordingResponse struct {
	VideoSetId uuid.UUID `json:"video_set_id"`
	Clips      int       `json:"clips"`
	Frames     int       `json:"frames"`
}
