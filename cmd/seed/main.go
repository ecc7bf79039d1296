package main

import (
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"ai-recall-be/internal/config"
	"ai-recall-be/internal/constant"
	"ai-recall-be/internal/model"
	"ai-recall-be/pkg/database"
	"ai-recall-be/pkg/embedding"
	"ai-recall-be/pkg/embedding/jina"
	"ai-recall-be/pkg/utils"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Demo identity shared with cmd/simulation and scripts/run_api_probe.go.
const demoUserID = "a2b94f4c-b674-433b-90be-65a91a37e7a3"

// Smallest valid JPEG; stands in for captured screen frames.
const tinyJPEG = "/9j/4AAQSkZJRgABAQEAYABgAAD/2wBDAAgGBgcGBQgHBwcJCQgKDBQNDAsLDBkSEw8UHRofHh0aHBwgJC4nICIsIxwcKDcpLDAxNDQ0Hyc5PTgyPC4zNDL/wAALCAABAAEBAREA/8QAFAABAAAAAAAAAAAAAAAAAAAACv/EABQQAQAAAAAAAAAAAAAAAAAAAAD/2gAIAQEAAD8AVN//2Q=="

func main() {
	cfg := config.Load()

	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	userID := uuid.MustParse(demoUserID)

	chatProvider := pickProvider(cfg, cfg.Ai.ChatEmbeddingModel)
	videoProvider := pickProvider(cfg, cfg.Ai.VideoEmbeddingModel)

	log.Println("Seeding Demo Recordings...")
	seedRecording(db, videoProvider, userID)

	log.Println("Seeding Demo Chat Memory...")
	seedChatMemory(db, chatProvider, userID)

	log.Println("Seeding completed!")
}

func pickProvider(cfg *config.Config, modelName string) embedding.EmbeddingProvider {
	if cfg.Ai.EmbeddingProvider == "jina" {
		return jina.NewJinaProvider(cfg.Ai.JinaAPIKey, modelName)
	} else if cfg.Ai.EmbeddingProvider == "gemini" {
		return embedding.NewGeminiProvider(cfg.Ai.GeminiAPIKey, modelName)
	}
	return embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, modelName)
}

// seedRecording writes one recording set with three clips and their frames,
// plus a clip-level embedding per clip so visual search has something to hit.
func seedRecording(db *gorm.DB, provider embedding.EmbeddingProvider, userID uuid.UUID) {
	const title = "Demo: billing dashboard walkthrough"

	var existing model.VideoSet
	if err := db.Where("title = ? AND user_id = ?", title, userID).First(&existing).Error; err == nil {
		log.Printf("Recording '%s' already exists, skipping...", title)
		return
	}

	frameBytes, err := base64.StdEncoding.DecodeString(tinyJPEG)
	if err != nil {
		log.Fatalf("Error decoding seed frame: %v", err)
	}

	capturedAt := time.Now().Add(-24 * time.Hour)
	set := model.VideoSet{
		Id:         uuid.New(),
		UserId:     userID,
		Title:      title,
		CapturedAt: capturedAt,
		Metadata:   datatypes.JSON([]byte(`{"source": "seed"}`)),
	}

	clipDurations := []int{42000, 63000, 27000}
	clips := make([]model.VideoClip, 0, len(clipDurations))
	frames := make([]model.VideoFrame, 0, len(clipDurations)*2)
	for i, durationMs := range clipDurations {
		clip := model.VideoClip{
			Id:         uuid.New(),
			VideoSetId: set.Id,
			Ordinal:    i,
			DurationMs: durationMs,
			FrameCount: 2,
		}
		clips = append(clips, clip)
		set.DurationMs += durationMs

		for f := 0; f < 2; f++ {
			frames = append(frames, model.VideoFrame{
				Id:          uuid.New(),
				VideoClipId: clip.Id,
				Ordinal:     f,
				OffsetMs:    f * durationMs / 2,
				Image:       frameBytes,
			})
		}
	}
	// Longest clip previews the set.
	set.RepresentativeClipId = &clips[1].Id

	if err := db.Create(&set).Error; err != nil {
		log.Fatalf("Error creating video set: %v", err)
	}
	if err := db.Create(&clips).Error; err != nil {
		log.Fatalf("Error creating clips: %v", err)
	}
	if err := db.Create(&frames).Error; err != nil {
		log.Fatalf("Error creating frames: %v", err)
	}
	log.Printf("Created recording: %s (%d clips, %d frames)", title, len(clips), len(frames))

	for i, clip := range clips {
		res, err := embedClip(provider, title, capturedAt, i, len(clips))
		if err != nil {
			log.Printf("Warn: Skipping embedding for clip %d (provider unreachable?): %v", i, err)
			continue
		}
		emb := model.VideoEmbedding{
			Id:             uuid.New(),
			VideoSetId:     set.Id,
			VideoClipId:    clip.Id,
			EmbeddingValue: pgvector.NewVector(res.Embedding.Values),
		}
		if err := db.Create(&emb).Error; err != nil {
			log.Printf("Error creating clip embedding: %v", err)
		}
	}
}

func embedClip(provider embedding.EmbeddingProvider, title string, capturedAt time.Time, ordinal, clipCount int) (*embedding.EmbeddingResponse, error) {
	if imageProvider, ok := provider.(embedding.ImageEmbeddingProvider); ok {
		return imageProvider.GenerateFromImage(tinyJPEG)
	}
	description := fmt.Sprintf("%s (screen recording captured %s, part %d of %d)",
		title, capturedAt.Format(time.RFC1123), ordinal+1, clipCount)
	return provider.Generate(description, embedding.TaskRetrievalDocument)
}

// seedChatMemory writes one finished exchange and its indexed chunks so the
// retriever has chat memory to search on a fresh install.
func seedChatMemory(db *gorm.DB, provider embedding.EmbeddingProvider, userID uuid.UUID) {
	const title = "Billing migration notes"

	var existing model.ChatSession
	if err := db.Where("title = ? AND user_id = ?", title, userID).First(&existing).Error; err == nil {
		log.Printf("Session '%s' already exists, skipping...", title)
		return
	}

	now := time.Now().Add(-23 * time.Hour)
	session := model.ChatSession{
		Id:            uuid.New(),
		UserId:        userID,
		Title:         title,
		LastMessageAt: &now,
	}
	if err := db.Create(&session).Error; err != nil {
		log.Fatalf("Error creating session: %v", err)
	}

	userText := "Remind me what we decided about the billing migration rollout."
	assistantText := "You planned to migrate billing in two stages: invoices first behind a feature flag, " +
		"then payment methods the following week once reconciliation reports stay clean for three days. " +
		"The rollback plan is to repoint the API gateway at the legacy service."

	messages := []model.ChatMessage{
		{Id: uuid.New(), ChatSessionId: session.Id, Role: constant.ChatMessageRoleUser, Content: userText},
		{Id: uuid.New(), ChatSessionId: session.Id, Role: constant.ChatMessageRoleAssistant, Content: assistantText},
	}
	if err := db.Create(&messages).Error; err != nil {
		log.Fatalf("Error creating messages: %v", err)
	}
	log.Printf("Created session: %s", title)

	content := fmt.Sprintf("%s: %s\n%s: %s",
		constant.ChatMessageRoleUser, userText,
		constant.ChatMessageRoleAssistant, assistantText)

	for i, chunk := range utils.SplitText(content, constant.MemoryChunkSize, constant.MemoryChunkOverlap) {
		res, err := provider.Generate(chunk, embedding.TaskRetrievalDocument)
		if err != nil {
			log.Printf("Warn: Skipping chunk %d (provider unreachable?): %v", i, err)
			continue
		}
		row := model.MemoryChunk{
			Id:             uuid.New(),
			ChatSessionId:  session.Id,
			Content:        chunk,
			EmbeddingValue: pgvector.NewVector(res.Embedding.Values),
			ChunkIndex:     i,
		}
		if err := db.Create(&row).Error; err != nil {
			log.Printf("Error creating memory chunk: %v", err)
		}
	}
}
