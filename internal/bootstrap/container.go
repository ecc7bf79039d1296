package bootstrap

import (
	"context"
	"log"
	"time"

	"ai-recall-be/internal/config"
	"ai-recall-be/internal/controller"
	"ai-recall-be/internal/handler"
	"ai-recall-be/internal/pkg/logger"
	"ai-recall-be/internal/repository/memory"
	"ai-recall-be/internal/repository/unitofwork"
	"ai-recall-be/internal/service"
	"ai-recall-be/internal/websocket"
	"ai-recall-be/pkg/embedding"
	"ai-recall-be/pkg/embedding/jina"
	"ai-recall-be/pkg/llm/factory"
	"ai-recall-be/pkg/run/status"
	"ai-recall-be/pkg/store"

	pktNats "ai-recall-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController  controller.IChatController
	MediaController controller.IMediaController

	// Background Services (Exposed for main.go to run)
	ConsumerService   service.IConsumerService
	DispatcherService service.IDispatcherService

	// WebSockets & Run Events
	RunEventHandler *handler.RunEventHandler
	WebSocketHub    *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	// Chat memory and video frames are embedded by different models, often
	// with different dimensions, so each gets its own provider instance.
	chatEmbedding := newEmbeddingProvider(cfg, cfg.Ai.ChatEmbeddingModel)
	videoEmbedding := newEmbeddingProvider(cfg, cfg.Ai.VideoEmbeddingModel)

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// Initialize In-Memory Run State
	runRegistry := memory.NewRunRegistry()
	previewStore := store.NewPreviewStore(time.Duration(cfg.Pipeline.PreviewTTLMinutes) * time.Minute)

	// 2.5 Infrastructure (Moved up for dependency injection)
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/websocket.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 3.5 Run Status Plumbing
	reporter := status.NewWatermillReporter(pubSub, cfg.Topics.RunStatus, log.Default())

	memoryPublisher := service.NewPublisherService(cfg.Topics.MemoryIndex, pubSub)
	recordingPublisher := service.NewPublisherService(cfg.Topics.RecordingIndex, pubSub)

	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Topics.MemoryIndex,
		cfg.Topics.RecordingIndex,
		uowFactory,
		chatEmbedding,  // Injected
		videoEmbedding, // Injected
		natsPub,
	)
	dispatcherService := service.NewDispatcherService(pubSub, cfg.Topics.RunStatus, wsHub)

	chatService := service.NewChatService(uowFactory, runRegistry)
	runService := service.NewRunService(
		uowFactory,
		chatEmbedding,  // Injected
		videoEmbedding, // Injected
		llmProvider,    // Injected
		previewStore,
		runRegistry,
		reporter,
		memoryPublisher,
		natsPub,
		cfg.App.BaseURL,
		cfg.Pipeline,
	)
	mediaService := service.NewMediaService(uowFactory, previewStore, recordingPublisher)

	// Handler
	runEventHandler := handler.NewRunEventHandler(natsSub, wsHub, sysLogger)

	// Start Event Mirror (Worker)
	if natsSub != nil {
		if err := runEventHandler.StartEventMirror(); err != nil {
			log.Printf("[WARN] Failed to start run event mirror: %v", err)
		}
	}

	// 4. Controllers
	// Note: We return the container with public fields for the server to register
	return &Container{
		RunEventHandler: runEventHandler,
		WebSocketHub:    wsHub,
		ChatController:  controller.NewChatController(chatService, runService),
		MediaController: controller.NewMediaController(mediaService),

		ConsumerService:   consumerService,
		DispatcherService: dispatcherService,
	}
}

// newEmbeddingProvider picks the configured backend for one embedding model.
func newEmbeddingProvider(cfg *config.Config, model string) embedding.EmbeddingProvider {
	if cfg.Ai.EmbeddingProvider == "ollama" {
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", model)
		return embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, model)
	} else if cfg.Ai.EmbeddingProvider == "jina" {
		log.Printf("[INFO] Using Embedding Provider: JINA AI (%s)", model)
		return jina.NewJinaProvider(cfg.Ai.JinaAPIKey, model)
	}
	log.Printf("[INFO] Using Embedding Provider: GEMINI (%s)", model)
	return embedding.NewGeminiProvider(cfg.Ai.GeminiAPIKey, model)
}
