package transform

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"ai-recall-be/pkg/llm"
)

// scriptedLLM returns a canned response (or error) for every call.
type scriptedLLM struct {
	response string
	err      error
}

func (s *scriptedLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return s.response, s.err
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.response, s.err
}

func (s *scriptedLLM) StreamChat(ctx context.Context, history []llm.Message, onChunk llm.ChunkHandler, options ...llm.Option) (string, error) {
	if s.err == nil && onChunk != nil {
		onChunk(s.response)
	}
	return s.response, s.err
}

func newTestTransformer(provider llm.LLMProvider) *Transformer {
	return NewTransformer(provider, log.New(io.Discard, "", 0))
}

func TestTransformParsesModelOutput(t *testing.T) {
	tests := []struct {
		name           string
		response       string
		wantKeywords   string
		wantConfidence float64
	}{
		{
			"clean json",
			`{"search_keywords": "billing dashboard overdue invoices", "confidence_score": 0.9, "response_guidance": "list the invoices"}`,
			"billing dashboard overdue invoices",
			0.9,
		},
		{
			"fenced json block",
			"```json\n{\"search_keywords\": \"deploy checklist\", \"confidence_score\": 0.7, \"response_guidance\": \"\"}\n```",
			"deploy checklist",
			0.7,
		},
		{
			"plain fence",
			"```\n{\"search_keywords\": \"standup notes\", \"confidence_score\": 0.5, \"response_guidance\": \"\"}\n```",
			"standup notes",
			0.5,
		},
		{
			"leading chatter",
			`Sure! Here is the JSON you asked for: {"search_keywords": "quarterly report", "confidence_score": 0.8, "response_guidance": ""}`,
			"quarterly report",
			0.8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestTransformer(&scriptedLLM{response: tt.response})
			got, err := tr.Transform(context.Background(), "raw query", nil)
			if err != nil {
				t.Fatalf("Transform() error = %v", err)
			}
			if got.Degraded {
				t.Error("Degraded = true, want false for parseable output")
			}
			if got.SearchKeywords != tt.wantKeywords {
				t.Errorf("SearchKeywords = %q, want %q", got.SearchKeywords, tt.wantKeywords)
			}
			if got.ConfidenceScore != tt.wantConfidence {
				t.Errorf("ConfidenceScore = %v, want %v", got.ConfidenceScore, tt.wantConfidence)
			}
		})
	}
}

func TestTransformFallsBackOnGarbage(t *testing.T) {
	tr := newTestTransformer(&scriptedLLM{response: "I'm sorry, I cannot help with that."})

	got, err := tr.Transform(context.Background(), "what was on the billing screen", nil)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if !got.Degraded {
		t.Error("Degraded = false, want true for unparseable output")
	}
	if got.SearchKeywords != "what was on the billing screen" {
		t.Errorf("SearchKeywords = %q, want the raw query", got.SearchKeywords)
	}
	if got.ConfidenceScore != 0 {
		t.Errorf("ConfidenceScore = %v, want 0", got.ConfidenceScore)
	}
}

func TestTransformFallsBackOnProviderError(t *testing.T) {
	tr := newTestTransformer(&scriptedLLM{err: errors.New("connection refused")})

	got, err := tr.Transform(context.Background(), "raw query", nil)
	if err != nil {
		t.Fatalf("Transform() error = %v, want degraded result instead", err)
	}
	if !got.Degraded {
		t.Error("Degraded = false, want true when the provider fails")
	}
	if got.SearchKeywords != "raw query" {
		t.Errorf("SearchKeywords = %q, want the raw query", got.SearchKeywords)
	}
}

func TestTransformReturnsCancellation(t *testing.T) {
	cause := errors.New("run cancelled")
	ctx, cancel := context.WithCancelCause(context.Background())
	cancel(cause)

	tr := newTestTransformer(&scriptedLLM{response: `{"search_keywords": "x"}`})

	got, err := tr.Transform(ctx, "raw query", nil)
	if !errors.Is(err, cause) {
		t.Errorf("Transform() error = %v, want cancellation cause %v", err, cause)
	}
	if got != nil {
		t.Errorf("Transform() result = %+v, want nil on cancellation", got)
	}
}

func TestTransformBlankKeywordsUseRawQuery(t *testing.T) {
	tr := newTestTransformer(&scriptedLLM{
		response: `{"search_keywords": "   ", "confidence_score": 0.4, "response_guidance": "answer briefly"}`,
	})

	got, err := tr.Transform(context.Background(), "where did I save the deploy key", nil)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if got.Degraded {
		t.Error("Degraded = true, want false; blank keywords are a substitution, not a failure")
	}
	if got.SearchKeywords != "where did I save the deploy key" {
		t.Errorf("SearchKeywords = %q, want the raw query", got.SearchKeywords)
	}
	if got.ResponseGuidance != "answer briefly" {
		t.Errorf("ResponseGuidance = %q, want %q", got.ResponseGuidance, "answer briefly")
	}
}

func TestRenderHistory(t *testing.T) {
	tests := []struct {
		name    string
		history []llm.Message
		want    string
	}{
		{"empty history", nil, "(no prior messages)"},
		{
			"two turns",
			[]llm.Message{
				{Role: "user", Content: "hello"},
				{Role: "assistant", Content: "hi there"},
			},
			"user: hello\nassistant: hi there",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderHistory(tt.history); got != tt.want {
				t.Errorf("renderHistory() = %q, want %q", got, tt.want)
			}
		})
	}
}
