package retrieve

import (
	"context"
	"log"
	"sync"

	"ai-recall-be/internal/repository/contract"
	"ai-recall-be/internal/repository/unitofwork"
	"ai-recall-be/pkg/embedding"
	"ai-recall-be/pkg/run"

	"github.com/google/uuid"
)

// Config encapsulates retrieval parameters.
type Config struct {
	ChatThreshold  float64
	VideoThreshold float64
	ChatTopK       int
	VideoClipLimit int
}

// DefaultConfig matches the tuning the desktop client ships with: seven chat
// memories and enough clip hits to fill the candidate list after grouping.
func DefaultConfig() Config {
	return Config{
		ChatThreshold:  0.35,
		VideoThreshold: 0.20,
		ChatTopK:       7,
		VideoClipLimit: 54,
	}
}

// Result carries both retrieval lanes plus the counters the client renders.
// A degraded lane returned empty instead of failing the run.
type Result struct {
	Chat          []run.RetrievedDocument
	Videos        []run.VideoDocument
	ChatDegraded  bool
	VideoDegraded bool
	// EmbeddingsSearched counts scored rows examined across both lanes;
	// PayloadsRead counts chunk contents pulled out of storage.
	EmbeddingsSearched int
	PayloadsRead       int
}

// Retriever runs the two similarity searches. Chat memories and screen
// recordings live in different embedding spaces, so each lane gets its own
// provider and the lanes run concurrently.
type Retriever struct {
	chatEmbedding  embedding.EmbeddingProvider
	videoEmbedding embedding.EmbeddingProvider
	logger         *log.Logger
}

func NewRetriever(chatEmbedding, videoEmbedding embedding.EmbeddingProvider, logger *log.Logger) *Retriever {
	return &Retriever{
		chatEmbedding:  chatEmbedding,
		videoEmbedding: videoEmbedding,
		logger:         logger,
	}
}

// Execute searches both lanes in parallel. Lane failures degrade to empty
// results; only context cancellation aborts the call. Each goroutine writes
// its own locals, so nothing is shared until after the wait.
func (r *Retriever) Execute(
	ctx context.Context,
	uow unitofwork.UnitOfWork,
	userId uuid.UUID,
	sessionId uuid.UUID,
	keywords string,
	config Config,
) (*Result, error) {

	var (
		chatDocs      []run.RetrievedDocument
		chatScanned   int
		chatDegraded  bool
		videoDocs     []run.VideoDocument
		videoScanned  int
		videoDegraded bool
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		chatDocs, chatScanned, chatDegraded = r.searchChat(ctx, uow, userId, sessionId, keywords, config)
	}()
	go func() {
		defer wg.Done()
		videoDocs, videoScanned, videoDegraded = r.searchVideos(ctx, uow, userId, keywords, config)
	}()
	wg.Wait()

	if ctx.Err() != nil {
		return nil, context.Cause(ctx)
	}

	result := &Result{
		Chat:               chatDocs,
		Videos:             videoDocs,
		ChatDegraded:       chatDegraded,
		VideoDegraded:      videoDegraded,
		EmbeddingsSearched: chatScanned + videoScanned,
		PayloadsRead:       chatScanned,
	}

	r.logger.Printf("[SEARCH] Chat: %d hits (degraded=%v), Videos: %d sets (degraded=%v)",
		len(result.Chat), result.ChatDegraded, len(result.Videos), result.VideoDegraded)

	return result, nil
}

func (r *Retriever) searchChat(
	ctx context.Context,
	uow unitofwork.UnitOfWork,
	userId uuid.UUID,
	sessionId uuid.UUID,
	keywords string,
	config Config,
) ([]run.RetrievedDocument, int, bool) {

	embeddingRes, err := r.chatEmbedding.Generate(keywords, embedding.TaskRetrievalQuery)
	if err != nil {
		r.logger.Printf("[WARN] Chat embedding failed, lane degraded: %v", err)
		return nil, 0, true
	}

	scored, err := uow.MemoryChunkRepository().SearchSimilarWithScore(
		ctx,
		embeddingRes.Embedding.Values,
		config.ChatTopK,
		userId,
		sessionId,
		config.ChatThreshold,
	)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Printf("[WARN] Chat memory search failed, lane degraded: %v", err)
		}
		return nil, 0, true
	}

	docs := make([]run.RetrievedDocument, 0, len(scored))
	for _, hit := range scored {
		docs = append(docs, run.RetrievedDocument{
			SessionID:  hit.Chunk.ChatSessionId,
			Content:    hit.Chunk.Content,
			Similarity: hit.Similarity,
		})
	}
	return docs, len(scored), false
}

func (r *Retriever) searchVideos(
	ctx context.Context,
	uow unitofwork.UnitOfWork,
	userId uuid.UUID,
	keywords string,
	config Config,
) ([]run.VideoDocument, int, bool) {

	embeddingRes, err := r.videoEmbedding.Generate(keywords, embedding.TaskRetrievalQuery)
	if err != nil {
		r.logger.Printf("[WARN] Video embedding failed, lane degraded: %v", err)
		return nil, 0, true
	}

	hits, err := uow.VideoEmbeddingRepository().SearchSimilarWithScore(
		ctx,
		embeddingRes.Embedding.Values,
		config.VideoClipLimit,
		userId,
		config.VideoThreshold,
	)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Printf("[WARN] Video search failed, lane degraded: %v", err)
		}
		return nil, 0, true
	}

	return groupHitsBySet(hits), len(hits), false
}

// groupHitsBySet collapses clip-level hits into one document per recording
// set. Hits arrive ordered by similarity, so the first clip seen for a set
// is its best one.
func groupHitsBySet(hits []*contract.ScoredVideoHit) []run.VideoDocument {
	var docs []run.VideoDocument
	seen := make(map[uuid.UUID]bool)
	for _, hit := range hits {
		if seen[hit.VideoSetId] {
			continue
		}
		seen[hit.VideoSetId] = true
		docs = append(docs, run.VideoDocument{
			VideoSetID: hit.VideoSetId,
			BestClipID: hit.VideoClipId,
			Similarity: hit.Similarity,
		})
	}
	return docs
}
