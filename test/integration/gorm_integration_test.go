package integration

import (
	"context"
	"log"
	"os"
	"testing"

	"ai-recall-be/internal/entity"
	"ai-recall-be/internal/repository/specification"
	"ai-recall-be/internal/repository/unitofwork"
	"ai-recall-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
)

func TestGormConnection(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	// Verify Wiring
	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	uow := uowFactory.NewUnitOfWork(context.Background())

	assert.NotNil(t, uow.ChatSessionRepository())
	assert.NotNil(t, uow.VideoSetRepository())

	// Basic Ping
	sqlDB, _ := gormDB.DB()
	err = sqlDB.Ping()
	assert.NoError(t, err)
	t.Log("Successfully connected to DB and initialized UnitOfWork Factory")

	// Verify Data Access (implies columns exist)
	t.Run("Check Chat Message Repository", func(t *testing.T) {
		count, err := uow.ChatMessageRepository().Count(context.Background())
		assert.NoError(t, err)
		t.Logf("ChatMessage count: %d", count)
	})

	t.Run("Check Memory Chunk Repository", func(t *testing.T) {
		count, err := uow.MemoryChunkRepository().Count(context.Background())
		assert.NoError(t, err)
		t.Logf("MemoryChunk count: %d", count)
	})

	t.Run("Check Transactional Recording Ingest", func(t *testing.T) {
		ctx := context.Background()
		userId := uuid.New()

		err := uow.Begin(ctx)
		assert.NoError(t, err)
		defer uow.Rollback()

		setId := uuid.New()
		set := &entity.VideoSet{
			Id:     setId,
			UserId: userId,
			Title:  "Integration Test Recording " + uuid.New().String(),
		}
		err = uow.VideoSetRepository().Create(ctx, set)
		assert.NoError(t, err)

		clipId := uuid.New()
		clips := []*entity.VideoClip{
			{Id: clipId, VideoSetId: setId, Ordinal: 0, DurationMs: 15000, FrameCount: 1},
		}
		err = uow.VideoSetRepository().CreateClips(ctx, clips)
		assert.NoError(t, err)

		frames := []*entity.VideoFrame{
			{Id: uuid.New(), VideoClipId: clipId, Ordinal: 0, OffsetMs: 0, Image: []byte{0xFF, 0xD8, 0xFF, 0xD9}},
		}
		err = uow.VideoSetRepository().CreateFrames(ctx, frames)
		assert.NoError(t, err)

		err = uow.Commit()
		assert.NoError(t, err)

		// Read back outside the transaction
		poster, err := uow.VideoSetRepository().FindPosterFrame(ctx, clipId)
		assert.NoError(t, err)
		if assert.NotNil(t, poster) {
			assert.Equal(t, []byte{0xFF, 0xD8, 0xFF, 0xD9}, poster.Image)
		}

		t.Log("Successfully created Recording Set with Clips and Frames in Transaction")
	})

	t.Run("Check Vector Search Roundtrip", func(t *testing.T) {
		ctx := context.Background()
		userId := uuid.New()
		sessionId := uuid.New()

		session := &entity.ChatSession{
			Id:     sessionId,
			UserId: userId,
			Title:  "Integration Vector Session",
		}
		err := uow.ChatSessionRepository().Create(ctx, session)
		assert.NoError(t, err)

		// Unit vector; searching with the same vector must score ~1.0.
		embeddingValue := make([]float32, 768)
		embeddingValue[0] = 1.0

		chunks := []*entity.MemoryChunk{
			{
				Id:             uuid.New(),
				ChatSessionId:  sessionId,
				Content:        "user: vector roundtrip probe",
				EmbeddingValue: embeddingValue,
				ChunkIndex:     0,
			},
		}
		err = uow.MemoryChunkRepository().CreateBulk(ctx, chunks)
		assert.NoError(t, err)

		hits, err := uow.MemoryChunkRepository().SearchSimilarWithScore(ctx, embeddingValue, 5, userId, uuid.New(), 0.35)
		assert.NoError(t, err)
		if assert.NotEmpty(t, hits) {
			assert.InDelta(t, 1.0, hits[0].Similarity, 0.001)
			assert.Equal(t, "user: vector roundtrip probe", hits[0].Chunk.Content)
		}

		// Self-exclusion: the session a query comes from never retrieves itself.
		hits, err = uow.MemoryChunkRepository().SearchSimilarWithScore(ctx, embeddingValue, 5, userId, sessionId, 0.35)
		assert.NoError(t, err)
		assert.Empty(t, hits)

		// Cleanup
		err = uow.MemoryChunkRepository().DeleteByChatSessionId(ctx, sessionId)
		assert.NoError(t, err)
		err = uow.ChatSessionRepository().Delete(ctx, sessionId)
		assert.NoError(t, err)
	})

	t.Run("Check Session Ownership Filter", func(t *testing.T) {
		ctx := context.Background()
		owner := uuid.New()
		stranger := uuid.New()
		sessionId := uuid.New()

		session := &entity.ChatSession{
			Id:     sessionId,
			UserId: owner,
			Title:  "Integration Ownership Session",
		}
		err := uow.ChatSessionRepository().Create(ctx, session)
		assert.NoError(t, err)

		found, err := uow.ChatSessionRepository().FindOne(ctx,
			specification.ByID{ID: sessionId},
			specification.UserOwnedBy{UserID: stranger},
		)
		assert.NoError(t, err)
		assert.Nil(t, found)

		found, err = uow.ChatSessionRepository().FindOne(ctx,
			specification.ByID{ID: sessionId},
			specification.UserOwnedBy{UserID: owner},
		)
		assert.NoError(t, err)
		assert.NotNil(t, found)

		err = uow.ChatSessionRepository().Delete(ctx, sessionId)
		assert.NoError(t, err)
	})
}
