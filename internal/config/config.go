package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Pipeline PipelineConfig
	Topics   TopicsConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	EmbeddingProvider   string // "ollama", "jina" or "gemini"
	OllamaBaseURL       string
	ChatEmbeddingModel  string
	VideoEmbeddingModel string
	LLMProvider         string // "ollama" for now
	LLMModel            string // must be a vision-capable model when video search is on
	JinaAPIKey          string
	GeminiAPIKey        string
}

// TopicsConfig names the in-process pub/sub topics. Indexing topics carry
// work the request path must not wait on; the run status topic carries
// pipeline progress to the websocket dispatcher.
type TopicsConfig struct {
	MemoryIndex    string
	RecordingIndex string
	RunStatus      string
}

// PipelineConfig tunes the run orchestration pipeline.
type PipelineConfig struct {
	QueryTransformEnabled bool
	VideoSearchEnabled    bool
	ChatTopK              int
	VideoCandidateCap     int
	SearchingFloorMs      int
	ProcessingFloorMs     int
	PreviewTTLMinutes     int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider:   getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:       getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			ChatEmbeddingModel:  getEnv("CHAT_EMBEDDING_MODEL", "nomic-embed-text"),
			VideoEmbeddingModel: getEnv("VIDEO_EMBEDDING_MODEL", "clip-vit-base"),
			LLMProvider:         getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:            getEnv("LLM_MODEL", "llama3.2-vision:11b"),
			JinaAPIKey:          getEnv("JINA_API_KEY", ""),
			GeminiAPIKey:        getEnv("GOOGLE_GEMINI_API_KEY", ""),
		},
		Topics: TopicsConfig{
			MemoryIndex:    getEnv("MEMORY_INDEX_TOPIC", "memory.index"),
			RecordingIndex: getEnv("RECORDING_INDEX_TOPIC", "recording.index"),
			RunStatus:      getEnv("RUN_STATUS_TOPIC", "run.status"),
		},
		Pipeline: PipelineConfig{
			QueryTransformEnabled: getEnvAsBool("QUERY_TRANSFORM_ENABLED", true),
			VideoSearchEnabled:    getEnvAsBool("VIDEO_SEARCH_ENABLED", true),
			ChatTopK:              getEnvAsInt("CHAT_TOP_K", 7),
			VideoCandidateCap:     getEnvAsInt("VIDEO_CANDIDATE_CAP", 18),
			SearchingFloorMs:      getEnvAsInt("SEARCHING_FLOOR_MS", 900),
			ProcessingFloorMs:     getEnvAsInt("PROCESSING_FLOOR_MS", 1200),
			PreviewTTLMinutes:     getEnvAsInt("PREVIEW_TTL_MINUTES", 30),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
