package assemble

import (
	"context"
	"fmt"
	"log"
	"strings"

	"ai-recall-be/internal/constant"
	"ai-recall-be/internal/entity"
	"ai-recall-be/internal/repository/specification"
	"ai-recall-be/internal/repository/unitofwork"
	"ai-recall-be/pkg/run"
	"ai-recall-be/pkg/store"

	"github.com/google/uuid"
)

// ChatLine is one parsed "role: content" line from a retrieved memory.
type ChatLine struct {
	Role    string
	Content string
}

// VideoSetSequence is one recording set that survived assembly: its ordered
// clips, the clip frame sampling will use, and the metadata candidates carry.
type VideoSetSequence struct {
	SetID              uuid.UUID
	Title              string
	Similarity         float64
	RepresentativeClip uuid.UUID
	ClipIDs            []uuid.UUID
	DurationMs         int
}

// Assembly is the processed context a run carries into generation.
type Assembly struct {
	ChatLines  []ChatLine
	ChatText   string
	Sets       []VideoSetSequence
	Candidates []run.VideoCandidate
}

// Assembler turns raw retrieval output into prompt-ready context: chat lines
// deduplicated, recording sets sequenced, selectable candidates capped and
// given preview URLs.
type Assembler struct {
	previews *store.PreviewStore
	baseURL  string
	logger   *log.Logger
}

func NewAssembler(previews *store.PreviewStore, baseURL string, logger *log.Logger) *Assembler {
	return &Assembler{
		previews: previews,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger,
	}
}

// Assemble processes both lanes. Database trouble while sequencing clips
// degrades the video lane to empty instead of failing the run; only context
// cancellation is returned as an error.
func (a *Assembler) Assemble(
	ctx context.Context,
	uow unitofwork.UnitOfWork,
	retrieved []run.RetrievedDocument,
	videos []run.VideoDocument,
	candidateCap int,
) (*Assembly, error) {

	lines := DedupChatLines(retrieved)
	assembly := &Assembly{
		ChatLines: lines,
		ChatText:  RenderChatLines(lines),
	}

	if len(videos) > 0 {
		sets, err := a.sequenceSets(ctx, uow, videos)
		if err != nil {
			if ctx.Err() != nil {
				return nil, context.Cause(ctx)
			}
			a.logger.Printf("[WARN] Video sequencing failed, continuing without recordings: %v", err)
		} else {
			assembly.Sets = sets
		}
	}

	assembly.Candidates = a.mintCandidates(assembly.Sets, candidateCap)

	a.logger.Printf("[ASSEMBLE] Chat lines: %d, recording sets: %d, candidates: %d",
		len(assembly.ChatLines), len(assembly.Sets), len(assembly.Candidates))

	return assembly, nil
}

// sequenceSets loads each surfaced set's clips and keeps the sets that still
// have playable content. Clips without stored frames are dropped; a set with
// nothing left is skipped with a warning.
func (a *Assembler) sequenceSets(
	ctx context.Context,
	uow unitofwork.UnitOfWork,
	videos []run.VideoDocument,
) ([]VideoSetSequence, error) {

	setIds := make([]uuid.UUID, len(videos))
	for i, v := range videos {
		setIds[i] = v.VideoSetID
	}

	sets, err := uow.VideoSetRepository().FindAll(ctx, specification.ByIDs{IDs: setIds})
	if err != nil {
		return nil, err
	}
	setsById := make(map[uuid.UUID]*entity.VideoSet, len(sets))
	for _, s := range sets {
		setsById[s.Id] = s
	}

	clips, err := uow.VideoSetRepository().FindClipsBySetIds(ctx, setIds)
	if err != nil {
		return nil, err
	}
	clipsBySet := make(map[uuid.UUID][]*entity.VideoClip)
	for _, c := range clips {
		clipsBySet[c.VideoSetId] = append(clipsBySet[c.VideoSetId], c)
	}

	var sequences []VideoSetSequence
	for _, v := range videos {
		set, ok := setsById[v.VideoSetID]
		if !ok {
			a.logger.Printf("[WARN] Recording set %s vanished between search and assembly, skipping", v.VideoSetID)
			continue
		}

		var clipIds []uuid.UUID
		for _, c := range clipsBySet[v.VideoSetID] {
			if c.FrameCount == 0 {
				continue
			}
			clipIds = append(clipIds, c.Id)
		}
		if len(clipIds) == 0 {
			a.logger.Printf("[WARN] Recording set %s has no playable clips, skipping", v.VideoSetID)
			continue
		}

		sequences = append(sequences, VideoSetSequence{
			SetID:              set.Id,
			Title:              displayTitle(set.Title),
			Similarity:         v.Similarity,
			RepresentativeClip: pickRepresentative(set, clipIds),
			ClipIDs:            clipIds,
			DurationMs:         set.DurationMs,
		})
	}
	return sequences, nil
}

// pickRepresentative prefers the set's designated clip when it survived
// sequencing, otherwise the first playable clip.
func pickRepresentative(set *entity.VideoSet, clipIds []uuid.UUID) uuid.UUID {
	if set.RepresentativeClipId != nil {
		for _, id := range clipIds {
			if id == *set.RepresentativeClipId {
				return id
			}
		}
	}
	return clipIds[0]
}

// mintCandidates exposes the first candidateCap sets as selectable, minting
// one preview handle per candidate. The cap bounds preview cost, not recall.
func (a *Assembler) mintCandidates(sets []VideoSetSequence, candidateCap int) []run.VideoCandidate {
	if candidateCap <= 0 || len(sets) == 0 {
		return nil
	}
	if len(sets) > candidateCap {
		sets = sets[:candidateCap]
	}

	candidates := make([]run.VideoCandidate, 0, len(sets))
	for _, s := range sets {
		handle := a.previews.Create(s.RepresentativeClip)
		candidates = append(candidates, run.VideoCandidate{
			VideoSetID:    s.SetID,
			Title:         s.Title,
			Similarity:    s.Similarity,
			DurationMs:    s.DurationMs,
			PreviewURL:    fmt.Sprintf("%s/api/media/v1/preview/%s", a.baseURL, handle),
			PreviewHandle: handle,
		})
	}
	return candidates
}

func displayTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return "Untitled Recording"
	}
	return title
}

// DedupChatLines parses every "role: content" line out of the retrieved
// memories and keeps the first occurrence of each exact pair, preserving
// insertion order. Overlapping chunks from adjacent windows collapse here.
func DedupChatLines(docs []run.RetrievedDocument) []ChatLine {
	var lines []ChatLine
	seen := make(map[string]bool)
	for _, doc := range docs {
		for _, raw := range strings.Split(doc.Content, "\n") {
			role, content, ok := parseChatLine(raw)
			if !ok {
				continue
			}
			key := role + "\x00" + content
			if seen[key] {
				continue
			}
			seen[key] = true
			lines = append(lines, ChatLine{Role: role, Content: content})
		}
	}
	return lines
}

// parseChatLine accepts "role: content" where role is a single lowercase
// word. Anything else is chunk noise and is ignored.
func parseChatLine(raw string) (string, string, bool) {
	idx := strings.Index(raw, ": ")
	if idx <= 0 {
		return "", "", false
	}
	role := raw[:idx]
	for _, r := range role {
		if r < 'a' || r > 'z' {
			return "", "", false
		}
	}
	content := raw[idx+2:]
	if strings.TrimSpace(content) == "" {
		return "", "", false
	}
	return role, content, true
}

// RenderChatLines re-serializes deduplicated lines, inserting a blank line
// after each assistant line that is not the last so user/assistant pairs
// stay readable.
func RenderChatLines(lines []ChatLine) string {
	var sb strings.Builder
	for i, line := range lines {
		sb.WriteString(line.Role)
		sb.WriteString(": ")
		sb.WriteString(line.Content)
		if i < len(lines)-1 {
			sb.WriteString("\n")
			if line.Role == constant.ChatMessageRoleAssistant {
				sb.WriteString("\n")
			}
		}
	}
	return sb.String()
}

// BuildMemoryBlock wraps the assembled context for the generation prompt.
// It returns empty when there is nothing to say, and the caller omits it.
func BuildMemoryBlock(chatText string, selectedVideos int) string {
	if chatText == "" && selectedVideos == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("<memory>\n")
	if chatText != "" {
		sb.WriteString(chatText)
		sb.WriteString("\n")
	}
	if selectedVideos > 0 {
		noun := "screen recordings"
		if selectedVideos == 1 {
			noun = "screen recording"
		}
		sb.WriteString(fmt.Sprintf("%d %s selected by the user for visual reasoning\n", selectedVideos, noun))
	}
	sb.WriteString("</memory>")
	return sb.String()
}
