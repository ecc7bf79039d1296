package jina

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ai-recall-be/pkg/embedding"
)

type JinaProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

type embeddingRequest struct {
	Model string        `json:"model"`
	Input []interface{} `json:"input"`
	Task  string        `json:"task,omitempty"`
}

type imageInput struct {
	Image string `json:"image"`
}

type embeddingResponse struct {
	Data []struct {
		Object    string    `json:"object"`
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewJinaProvider builds a provider for one Jina model. Text memory uses
// jina-embeddings-v2-base-en; visual queries can point the same provider at
// jina-clip-v1.
func NewJinaProvider(apiKey string, model string) *JinaProvider {
	if model == "" {
		model = "jina-embeddings-v2-base-en"
	}
	return &JinaProvider{
		apiKey:  apiKey,
		baseURL: "https://api.jina.ai/v1/embeddings",
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *JinaProvider) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	// The API takes a batch; a single text rides as a one-element batch.
	reqBody := embeddingRequest{
		Model: p.model,
		Input: []interface{}{text},
	}
	if taskType == embedding.TaskRetrievalQuery {
		reqBody.Task = "retrieval.query"
	} else if taskType == embedding.TaskRetrievalDocument {
		reqBody.Task = "retrieval.passage"
	}

	return p.request(reqBody)
}

// GenerateFromImage embeds a base64 JPEG through a CLIP-style model into the
// same space text queries land in. Only multimodal models accept this input
// shape; pointing a text model here returns an API error.
func (p *JinaProvider) GenerateFromImage(imageBase64 string) (*embedding.EmbeddingResponse, error) {
	reqBody := embeddingRequest{
		Model: p.model,
		Input: []interface{}{imageInput{Image: imageBase64}},
	}

	return p.request(reqBody)
}

func (p *JinaProvider) request(reqBody embeddingRequest) (*embedding.EmbeddingResponse, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", p.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jina api error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	var jinaResp embeddingResponse
	if err := json.Unmarshal(bodyBytes, &jinaResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if jinaResp.Error != nil {
		return nil, fmt.Errorf("jina api returned error: %s", jinaResp.Error.Message)
	}

	if len(jinaResp.Data) == 0 {
		return nil, fmt.Errorf("empty embeddings from jina api")
	}

	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{
			Values: jinaResp.Data[0].Embedding,
		},
	}, nil
}

var _ embedding.EmbeddingProvider = (*JinaProvider)(nil)
var _ embedding.ImageEmbeddingProvider = (*JinaProvider)(nil)
