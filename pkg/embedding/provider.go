package embedding

// Task types passed through to providers that distinguish query and document
// embeddings. Gemini and Jina take them verbatim; the Ollama provider maps
// them onto nomic prompt prefixes.
const (
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
)

type EmbeddingResponseEmbedding struct {
	Values []float32 `json:"values"`
}

type EmbeddingResponse struct {
	Embedding EmbeddingResponseEmbedding `json:"embedding"`
}

// EmbeddingProvider defines the interface for generating embeddings. The
// application wires two instances: a text model for chat memory and a
// separate lower-dimensional visual model for screen-recording queries.
type EmbeddingProvider interface {
	Generate(text string, taskType string) (*EmbeddingResponse, error)
}

// ImageEmbeddingProvider is implemented by providers whose model embeds
// images into the same space as text queries (CLIP-style models). Callers
// type-assert and fall back to text embedding when the provider is text-only.
type ImageEmbeddingProvider interface {
	GenerateFromImage(imageBase64 string) (*EmbeddingResponse, error)
}
