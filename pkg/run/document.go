package run

import "github.com/google/uuid"

// RetrievedDocument is one chat-memory hit ready for context assembly.
type RetrievedDocument struct {
	SessionID  uuid.UUID
	Content    string
	Similarity float64
}

// VideoDocument is one screen-recording set surfaced by visual search,
// already grouped from clip-level hits with the best clip kept.
type VideoDocument struct {
	VideoSetID uuid.UUID
	Title      string
	BestClipID uuid.UUID
	Similarity float64
}

// VideoCandidate is one gate entry offered to the user for selection. The
// preview handle stays server-side; clients only ever see the minted URL.
type VideoCandidate struct {
	VideoSetID    uuid.UUID `json:"video_set_id"`
	Title         string    `json:"title"`
	Similarity    float64   `json:"similarity"`
	DurationMs    int       `json:"duration_ms"`
	PreviewURL    string    `json:"preview_url"`
	PreviewHandle string    `json:"-"`
}

// SequenceItem is one sampled frame attached to the generation request for
// a recording the user selected.
type SequenceItem struct {
	VideoSetID  uuid.UUID
	ClipID      uuid.UUID
	OffsetMs    int
	ImageBase64 string
}
