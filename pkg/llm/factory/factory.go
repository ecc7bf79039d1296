package factory

import (
	"fmt"
	"strings"

	"ai-recall-be/pkg/llm"
	"ai-recall-be/pkg/llm/ollama"
)

const defaultOllamaURL = "http://localhost:11434"

// NewLLMProvider resolves a provider name from config into a concrete
// client. Only Ollama ships today; the switch is where a hosted provider
// would slot in.
func NewLLMProvider(providerType, modelName, baseURL string) (llm.LLMProvider, error) {
	if modelName == "" {
		return nil, fmt.Errorf("llm model name is required")
	}

	switch strings.ToLower(providerType) {
	case "ollama":
		if baseURL == "" {
			baseURL = defaultOllamaURL
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
