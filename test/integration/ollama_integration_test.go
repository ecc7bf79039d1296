// FILE: test/integration/ollama_integration_test.go
// PURPOSE: Live Ollama coverage for the chat, streaming, embedding and
//          query-transform paths the run pipeline depends on.
// NOTE: Requires a local Ollama server. Every test skips when it is not
//       reachable, so the suite stays green on CI without models.

package integration

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"ai-recall-be/internal/constant"
	"ai-recall-be/pkg/embedding"
	"ai-recall-be/pkg/llm"
	"ai-recall-be/pkg/llm/ollama"
	"ai-recall-be/pkg/run/transform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ollamaBaseURL    = envOr("OLLAMA_BASE_URL", "http://localhost:11434")
	ollamaChatModel  = envOr("OLLAMA_TEST_MODEL", "llama3.2")
	ollamaEmbedModel = envOr("OLLAMA_TEST_EMBED_MODEL", "nomic-embed-text")
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// requireOllama skips the test when no Ollama server answers locally.
func requireOllama(t *testing.T) {
	t.Helper()
	client := &http.Client{Timeout: 5 * time.Second}
	res, err := client.Get(ollamaBaseURL)
	if err != nil {
		t.Skipf("Skipping: Ollama not running at %s: %v", ollamaBaseURL, err)
	}
	res.Body.Close()
}

// TestOllamaConnection verifies Ollama is running and accessible
func TestOllamaConnection(t *testing.T) {
	requireOllama(t)
	t.Logf("✅ Ollama is running at %s", ollamaBaseURL)
}

// TestOllamaChat tests a basic chat response through the provider
func TestOllamaChat(t *testing.T) {
	requireOllama(t)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	provider := ollama.NewOllamaProvider(ollamaBaseURL, ollamaChatModel)

	response, err := provider.Chat(ctx, []llm.Message{
		{Role: constant.ChatMessageRoleUser, Content: "Say 'Ollama works!' in one sentence."},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, response)
	t.Logf("✅ Response: %s", response)
}

// TestOllamaMultiTurnConversation tests context retention
func TestOllamaMultiTurnConversation(t *testing.T) {
	requireOllama(t)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	provider := ollama.NewOllamaProvider(ollamaBaseURL, ollamaChatModel)

	response, err := provider.Chat(ctx, []llm.Message{
		{Role: constant.ChatMessageRoleUser, Content: "My name is John"},
		{Role: constant.ChatMessageRoleAssistant, Content: "Nice to meet you, John!"},
		{Role: constant.ChatMessageRoleUser, Content: "What is my name?"},
	})
	require.NoError(t, err)
	t.Logf("✅ Response: %s", response)

	if !strings.Contains(response, "John") {
		t.Logf("⚠️ Response may not correctly remember the name. Response: %s", response)
	}
}

// TestOllamaStreamChat exercises the streaming path the generator runs on:
// chunks must arrive incrementally and concatenate to the returned text.
func TestOllamaStreamChat(t *testing.T) {
	requireOllama(t)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	provider := ollama.NewOllamaProvider(ollamaBaseURL, ollamaChatModel)

	var chunks []string
	final, err := provider.StreamChat(ctx, []llm.Message{
		{Role: constant.ChatMessageRoleUser, Content: "Count from one to five in words."},
	}, func(chunk string) {
		chunks = append(chunks, chunk)
	})
	require.NoError(t, err)
	assert.NotEmpty(t, final)
	assert.NotEmpty(t, chunks)
	assert.Equal(t, final, strings.Join(chunks, ""))
	t.Logf("✅ Streamed %d chunks: %s", len(chunks), final)
}

// TestOllamaEmbeddingGeneration verifies the embedding provider returns
// vectors of the dimension the chat memory column expects.
func TestOllamaEmbeddingGeneration(t *testing.T) {
	requireOllama(t)

	provider := embedding.NewOllamaProvider(ollamaBaseURL, ollamaEmbedModel)

	res, err := provider.Generate("The quick brown fox jumps over the lazy dog.", embedding.TaskRetrievalQuery)
	require.NoError(t, err)

	dims := len(res.Embedding.Values)
	t.Logf("✅ Generated embedding with %d dimensions", dims)
	assert.Greater(t, dims, 0)

	if ollamaEmbedModel == "nomic-embed-text" && dims != constant.ChatEmbeddingDimensions {
		t.Logf("⚠️ Dimensions %d do NOT match the %d the memory_chunks column stores. (Is it a different model?)",
			dims, constant.ChatEmbeddingDimensions)
	}
}

// TestOllamaQueryTransform runs the understanding stage against the live
// model: the transformer must produce usable keywords or degrade cleanly.
func TestOllamaQueryTransform(t *testing.T) {
	requireOllama(t)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	provider := ollama.NewOllamaProvider(ollamaBaseURL, ollamaChatModel)
	transformer := transform.NewTransformer(provider, log.New(os.Stdout, "[TEST] ", log.LstdFlags))

	result, err := transformer.Transform(ctx, "uh what was that thing I recorded about the invoice dashboard last week?", nil)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.NotEmpty(t, result.SearchKeywords)
	if result.Degraded {
		t.Logf("⚠️ Transform degraded; raw query used as keywords: %s", result.SearchKeywords)
	} else {
		assert.GreaterOrEqual(t, result.ConfidenceScore, 0.0)
		assert.LessOrEqual(t, result.ConfidenceScore, 1.0)
		t.Logf("✅ Keywords: %q (confidence %.2f)", result.SearchKeywords, result.ConfidenceScore)
	}
}
