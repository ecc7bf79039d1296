package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"ai-recall-be/internal/constant"
	"ai-recall-be/pkg/llm"
)

// TransformedQuery is the structured understanding of a raw user message.
type TransformedQuery struct {
	SearchKeywords   string  `json:"search_keywords"`
	ConfidenceScore  float64 `json:"confidence_score"`
	ResponseGuidance string  `json:"response_guidance"`
	// Degraded marks that the model output was unusable and the raw query
	// stands in for the keywords.
	Degraded bool `json:"-"`
}

// Transformer rewrites the user message into retrieval keywords. This is a
// pure LLM call, no retrieval yet.
type Transformer struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewTransformer(llmProvider llm.LLMProvider, logger *log.Logger) *Transformer {
	return &Transformer{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Transform never fails the run: when the model call or the parse goes
// wrong, the raw query is used as keywords and the result is marked
// degraded. A cancelled context is the one exception and is returned as-is.
func (t *Transformer) Transform(ctx context.Context, query string, history []llm.Message) (*TransformedQuery, error) {
	prompt := fmt.Sprintf(constant.QueryTransformPromptTemplate, renderHistory(history), query)

	response, err := t.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		if ctx.Err() != nil {
			return nil, context.Cause(ctx)
		}
		t.logger.Printf("[WARN] Query transform failed, using raw query: %v", err)
		return t.fallback(query), nil
	}

	transformed, err := parseTransformed(response)
	if err != nil {
		t.logger.Printf("[WARN] Query transform parse failed, using raw query: %v", err)
		return t.fallback(query), nil
	}

	if strings.TrimSpace(transformed.SearchKeywords) == "" {
		transformed.SearchKeywords = query
	}

	t.logger.Printf("[TRANSFORM] Keywords: %q (Confidence: %.2f)", transformed.SearchKeywords, transformed.ConfidenceScore)
	return transformed, nil
}

func (t *Transformer) fallback(query string) *TransformedQuery {
	return &TransformedQuery{
		SearchKeywords:  query,
		ConfidenceScore: 0,
		Degraded:        true,
	}
}

// parseTransformed accepts the strict JSON the prompt demands, but also
// tolerates fenced blocks and leading chatter some models add anyway.
func parseTransformed(response string) (*TransformedQuery, error) {
	candidates := []string{
		strings.TrimSpace(response),
		stripFences(response),
		extractJSON(response),
	}
	var lastErr error
	for _, c := range candidates {
		if c == "" {
			continue
		}
		var tq TransformedQuery
		if err := json.Unmarshal([]byte(c), &tq); err != nil {
			lastErr = err
			continue
		}
		return &tq, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no JSON found in response")
	}
	return nil, lastErr
}

func stripFences(response string) string {
	s := strings.TrimSpace(response)
	if !strings.HasPrefix(s, "```") {
		return ""
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")
	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}
	return response[startIdx : endIdx+1]
}

// renderHistory flattens the last turns into the compact form the transform
// prompt expects.
func renderHistory(history []llm.Message) string {
	if len(history) == 0 {
		return "(no prior messages)"
	}
	var sb strings.Builder
	for _, msg := range history {
		sb.WriteString(msg.Role)
		sb.WriteString(": ")
		sb.WriteString(truncate(msg.Content, 200))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
