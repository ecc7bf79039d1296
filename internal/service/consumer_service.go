package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"ai-recall-be/internal/constant"
	"ai-recall-be/internal/dto"
	"ai-recall-be/internal/entity"
	"ai-recall-be/internal/repository/specification"
	"ai-recall-be/internal/repository/unitofwork"
	"ai-recall-be/pkg/embedding"
	"ai-recall-be/pkg/events"
	pktNats "ai-recall-be/pkg/nats"
	"ai-recall-be/pkg/utils"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService runs the two indexing lanes: finished exchanges become
// searchable memory chunks, ingested recordings become searchable clip
// embeddings. Both lanes are fed through the in-process pub/sub so the
// request path never waits on an embedding call.
type consumerService struct {
	pubSub         *gochannel.GoChannel
	memoryTopic    string
	recordingTopic string
	uowFactory     unitofwork.RepositoryFactory
	chatEmbedding  embedding.EmbeddingProvider
	videoEmbedding embedding.EmbeddingProvider
	eventPublisher *pktNats.Publisher
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	memoryTopic string,
	recordingTopic string,
	uowFactory unitofwork.RepositoryFactory,
	chatEmbedding embedding.EmbeddingProvider,
	videoEmbedding embedding.EmbeddingProvider,
	eventPublisher *pktNats.Publisher,
) IConsumerService {
	return &consumerService{
		pubSub:         pubSub,
		memoryTopic:    memoryTopic,
		recordingTopic: recordingTopic,
		uowFactory:     uowFactory,
		chatEmbedding:  chatEmbedding,
		videoEmbedding: videoEmbedding,
		eventPublisher: eventPublisher,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	memoryMessages, err := cs.pubSub.Subscribe(ctx, cs.memoryTopic)
	if err != nil {
		return err
	}
	recordingMessages, err := cs.pubSub.Subscribe(ctx, cs.recordingTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range memoryMessages {
			cs.processMemoryMessage(ctx, msg)
		}
	}()
	go func() {
		for msg := range recordingMessages {
			cs.processRecordingMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMemoryMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishIndexMemoryMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal memory index message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Indexing exchange for session %s", payload.ChatSessionId)

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	userMessage, err := uow.ChatMessageRepository().FindOne(ctx, specification.ByID{ID: payload.UserMessageId})
	if err != nil {
		log.Printf("[ERROR] Failed to load user message %s: %v", payload.UserMessageId, err)
		msg.Nack() // Nack for retriable errors
		return
	}
	assistantMessage, err := uow.ChatMessageRepository().FindOne(ctx, specification.ByID{ID: payload.AssistantMessageId})
	if err != nil {
		log.Printf("[ERROR] Failed to load assistant message %s: %v", payload.AssistantMessageId, err)
		msg.Nack()
		return
	}
	if userMessage == nil || assistantMessage == nil {
		log.Printf("[ERROR] Exchange rows missing for session %s, skipping", payload.ChatSessionId)
		msg.Ack() // Session deleted before indexing ran? Ack.
		return
	}

	// The chunk text keeps the role prefixes the retriever's dedup and the
	// memory block format expect.
	content := fmt.Sprintf("%s: %s\n%s: %s",
		userMessage.Role, userMessage.Content,
		assistantMessage.Role, assistantMessage.Content,
	)

	chunks := utils.SplitText(content, constant.MemoryChunkSize, constant.MemoryChunkOverlap)
	log.Printf("[INFO] Exchange split into %d chunks", len(chunks))

	newChunks := make([]*entity.MemoryChunk, 0, len(chunks))
	for i, chunk := range chunks {
		res, err := cs.chatEmbedding.Generate(chunk, embedding.TaskRetrievalDocument)
		if err != nil {
			log.Printf("[ERROR] Failed to embed chunk %d for session %s: %v", i, payload.ChatSessionId, err)
			msg.Nack()
			return
		}
		newChunks = append(newChunks, &entity.MemoryChunk{
			Id:             uuid.New(),
			ChatSessionId:  payload.ChatSessionId,
			Content:        chunk,
			EmbeddingValue: res.Embedding.Values,
			ChunkIndex:     i,
			CreatedAt:      time.Now(),
		})
	}

	if err := uow.Begin(ctx); err != nil {
		log.Printf("[ERROR] Failed to begin transaction: %v", err)
		msg.Nack()
		return
	}
	defer uow.Rollback()

	if len(newChunks) > 0 {
		if err := uow.MemoryChunkRepository().CreateBulk(ctx, newChunks); err != nil {
			log.Printf("[ERROR] Failed to create memory chunks: %v", err)
			msg.Nack()
			return
		}
	}

	if err := uow.Commit(); err != nil {
		log.Printf("[ERROR] Failed to commit memory chunks: %v", err)
		msg.Nack()
		return
	}

	if cs.eventPublisher != nil {
		evt := events.NewMemoryIndexed(payload.ChatSessionId.String(), len(newChunks))
		if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
			log.Printf("[WARN] Failed to publish memory_indexed event: %v", err)
		}
	}

	log.Printf("[INFO] Indexed %d chunks for session %s", len(newChunks), payload.ChatSessionId)
	msg.Ack()
}

func (cs *consumerService) processRecordingMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishIndexRecordingMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal recording index message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Indexing recording %s", payload.VideoSetId)

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	videoSet, err := uow.VideoSetRepository().FindOne(ctx, specification.ByID{ID: payload.VideoSetId})
	if err != nil {
		log.Printf("[ERROR] Failed to load recording %s: %v", payload.VideoSetId, err)
		msg.Nack()
		return
	}
	if videoSet == nil {
		log.Printf("[ERROR] Recording not found: %s", payload.VideoSetId)
		msg.Ack() // Deleted before indexing ran? Ack.
		return
	}

	clips, err := uow.VideoSetRepository().FindClipsBySetIds(ctx, []uuid.UUID{videoSet.Id})
	if err != nil {
		log.Printf("[ERROR] Failed to load clips for recording %s: %v", videoSet.Id, err)
		msg.Nack()
		return
	}

	newEmbeddings := make([]*entity.VideoEmbedding, 0, len(clips))
	for _, clip := range clips {
		res, err := cs.embedClip(ctx, uow, videoSet, clip, len(clips))
		if err != nil {
			log.Printf("[ERROR] Failed to embed clip %s of recording %s: %v", clip.Id, videoSet.Id, err)
			msg.Nack()
			return
		}
		if res == nil {
			continue // frameless clip, nothing to index
		}
		newEmbeddings = append(newEmbeddings, &entity.VideoEmbedding{
			Id:             uuid.New(),
			VideoSetId:     videoSet.Id,
			VideoClipId:    clip.Id,
			EmbeddingValue: res.Embedding.Values,
			CreatedAt:      time.Now(),
		})
	}

	if err := uow.Begin(ctx); err != nil {
		log.Printf("[ERROR] Failed to begin transaction: %v", err)
		msg.Nack()
		return
	}
	defer uow.Rollback()

	// Re-indexing replaces what is there; ingest-then-index only ever adds.
	if err := uow.VideoEmbeddingRepository().DeleteByVideoSetId(ctx, videoSet.Id); err != nil {
		log.Printf("[ERROR] Failed to delete old clip embeddings: %v", err)
		msg.Nack()
		return
	}
	if len(newEmbeddings) > 0 {
		if err := uow.VideoEmbeddingRepository().CreateBulk(ctx, newEmbeddings); err != nil {
			log.Printf("[ERROR] Failed to create clip embeddings: %v", err)
			msg.Nack()
			return
		}
	}

	if err := uow.Commit(); err != nil {
		log.Printf("[ERROR] Failed to commit clip embeddings: %v", err)
		msg.Nack()
		return
	}

	log.Printf("[INFO] Indexed %d clips for recording %s", len(newEmbeddings), videoSet.Id)
	msg.Ack()
}

// embedClip produces one embedding per clip. CLIP-style providers get the
// clip's poster frame; text-only providers fall back to a description built
// from set metadata, which keeps local setups searchable, just coarser.
func (cs *consumerService) embedClip(
	ctx context.Context,
	uow unitofwork.UnitOfWork,
	videoSet *entity.VideoSet,
	clip *entity.VideoClip,
	clipCount int,
) (*embedding.EmbeddingResponse, error) {
	if imageProvider, ok := cs.videoEmbedding.(embedding.ImageEmbeddingProvider); ok {
		poster, err := uow.VideoSetRepository().FindPosterFrame(ctx, clip.Id)
		if err != nil {
			return nil, err
		}
		if poster == nil || len(poster.Image) == 0 {
			return nil, nil
		}
		return imageProvider.GenerateFromImage(base64.StdEncoding.EncodeToString(poster.Image))
	}

	description := fmt.Sprintf("%s (screen recording captured %s, part %d of %d)",
		videoSet.Title,
		videoSet.CapturedAt.Format(time.RFC1123),
		clip.Ordinal+1,
		clipCount,
	)
	return cs.videoEmbedding.Generate(description, embedding.TaskRetrievalDocument)
}
