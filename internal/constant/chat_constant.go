package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"

	// Conversation window handed to the model alongside the memory block.
	ChatHistoryWindow = 10

	OllamaDefaultBaseURL = "http://localhost:11434"
	OllamaDefaultModel   = "llama3.2-vision:11b"

	// Embedding models. Chat memory uses a text model, screen recordings a
	// separate lower-dimensional visual model; the two are never interchangeable.
	OllamaDefaultChatEmbeddingModel  = "nomic-embed-text"
	OllamaDefaultVideoEmbeddingModel = "clip-vit-base"

	ChatEmbeddingDimensions  = 768
	VideoEmbeddingDimensions = 512

	// Chunking for memory indexing.
	MemoryChunkSize    = 1500
	MemoryChunkOverlap = 200
)
