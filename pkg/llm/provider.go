package llm

import (
	"context"
	"errors"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
	// Images holds base64-encoded frames attached to the message for
	// vision-capable models. Empty for plain text chat.
	Images []string
}

// ChunkHandler receives incremental response text while a stream is open.
// Handlers must be fast; providers call them inline from the read loop.
type ChunkHandler func(chunk string)

// ErrModelNotReady is returned when the backend has no usable model loaded
// (e.g. the model was never pulled). Callers treat this as a recoverable
// setup problem rather than a generation bug.
var ErrModelNotReady = errors.New("model not initialized")

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)

	// StreamChat streams the response incrementally through onChunk and
	// returns the accumulated text. Cancelling ctx aborts the upstream
	// generation; the partial text read so far is returned alongside the
	// context error so callers can keep what was streamed.
	StreamChat(ctx context.Context, history []Message, onChunk ChunkHandler, options ...Option) (string, error)
}
