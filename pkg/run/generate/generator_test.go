package generate

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"ai-recall-be/pkg/llm"
	"ai-recall-be/pkg/media"
	"ai-recall-be/pkg/run"
	"ai-recall-be/pkg/run/assemble"

	"github.com/google/uuid"
)

// streamingLLM plays back scripted chunks. afterChunk runs after chunk i is
// delivered and accumulated, which lets a test cancel the run mid-stream; a
// chunk arriving once the stream context is dead is still pushed through
// onChunk to mimic a read racing the cancel.
type streamingLLM struct {
	chunks     []string
	err        error
	afterChunk func(i int)

	gotMessages []llm.Message
}

func (s *streamingLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return "", errors.New("not used")
}

func (s *streamingLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return "", errors.New("not used")
}

func (s *streamingLLM) StreamChat(ctx context.Context, history []llm.Message, onChunk llm.ChunkHandler, options ...llm.Option) (string, error) {
	s.gotMessages = history
	var sb strings.Builder
	for i, chunk := range s.chunks {
		if ctx.Err() != nil {
			if i > 0 {
				onChunk(chunk)
			}
			return sb.String(), ctx.Err()
		}
		onChunk(chunk)
		sb.WriteString(chunk)
		if s.afterChunk != nil {
			s.afterChunk(i)
		}
	}
	if ctx.Err() != nil {
		return sb.String(), ctx.Err()
	}
	return sb.String(), s.err
}

// mapSampler serves frames for the clips it knows and fails for the rest.
type mapSampler struct {
	frames map[uuid.UUID]*media.SampledFrame
}

func (m *mapSampler) SampleFrame(ctx context.Context, clipID uuid.UUID) (*media.SampledFrame, error) {
	if f, ok := m.frames[clipID]; ok {
		return f, nil
	}
	return nil, errors.New("no frames stored")
}

func newTestGenerator(provider llm.LLMProvider, sampler media.FrameSampler) *Generator {
	if sampler == nil {
		sampler = &mapSampler{}
	}
	return NewGenerator(provider, sampler, log.New(io.Discard, "", 0))
}

func newTestRun() *run.Run {
	return run.New(uuid.New(), uuid.New(), "what did the dashboard show")
}

func TestGenerateStreamsAndMarksFirstToken(t *testing.T) {
	provider := &streamingLLM{chunks: []string{"Hel", "lo"}}
	g := newTestGenerator(provider, nil)
	rn := newTestRun()

	var firstTokens int
	var chunks []string
	hooks := Hooks{
		OnFirstToken: func() { firstTokens++ },
		OnChunk:      func(chunk string) { chunks = append(chunks, chunk) },
	}

	out, err := g.Generate(rn.Context(), rn, "", "", nil, nil, hooks)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out.Text != "Hello" {
		t.Errorf("Text = %q, want %q", out.Text, "Hello")
	}
	if out.Stopped {
		t.Error("Stopped = true, want false")
	}
	if firstTokens != 1 {
		t.Errorf("OnFirstToken fired %d times, want 1", firstTokens)
	}
	if len(chunks) != 2 {
		t.Errorf("OnChunk fired %d times, want 2", len(chunks))
	}
	if !rn.TokensReceived() {
		t.Error("TokensReceived() = false after a streamed chunk")
	}
	if got := rn.State(); got != run.StateGenerating {
		t.Errorf("run state = %q, want %q", got, run.StateGenerating)
	}
}

func TestGenerateStopAfterTokensKeepsPartial(t *testing.T) {
	rn := newTestRun()
	provider := &streamingLLM{
		chunks: []string{"partial", "late"},
		afterChunk: func(i int) {
			if i == 0 {
				if got := rn.Cancel(); got != run.CancelAfterTokens {
					t.Errorf("Cancel() = %v, want CancelAfterTokens", got)
				}
			}
		},
	}
	g := newTestGenerator(provider, nil)

	var chunks []string
	hooks := Hooks{OnChunk: func(chunk string) { chunks = append(chunks, chunk) }}

	out, err := g.Generate(rn.Context(), rn, "", "", nil, nil, hooks)
	if err != nil {
		t.Fatalf("Generate() error = %v, want stopped output", err)
	}
	if !out.Stopped {
		t.Error("Stopped = false, want true")
	}
	if out.Text != "partial" {
		t.Errorf("Text = %q, want the pre-stop partial %q", out.Text, "partial")
	}
	// The chunk that raced past the stop must not reach the client.
	if len(chunks) != 1 || chunks[0] != "partial" {
		t.Errorf("delivered chunks = %v, want only the pre-stop chunk", chunks)
	}
}

func TestGenerateModelNotReady(t *testing.T) {
	provider := &streamingLLM{err: llm.ErrModelNotReady}
	g := newTestGenerator(provider, nil)
	rn := newTestRun()

	_, err := g.Generate(rn.Context(), rn, "", "", nil, nil, Hooks{})
	var genErr *run.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("Generate() error = %v, want *run.GenerationError", err)
	}
	if !genErr.ModelNotReady {
		t.Error("ModelNotReady = false, want true")
	}
	if !errors.Is(err, llm.ErrModelNotReady) {
		t.Error("GenerationError does not unwrap to ErrModelNotReady")
	}
}

func TestGenerateProviderFailure(t *testing.T) {
	cause := errors.New("upstream exploded")
	provider := &streamingLLM{err: cause}
	g := newTestGenerator(provider, nil)
	rn := newTestRun()

	_, err := g.Generate(rn.Context(), rn, "", "", nil, nil, Hooks{})
	var genErr *run.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("Generate() error = %v, want *run.GenerationError", err)
	}
	if genErr.ModelNotReady {
		t.Error("ModelNotReady = true, want false for a generic failure")
	}
	if !errors.Is(err, cause) {
		t.Error("GenerationError does not unwrap to the provider error")
	}
}

func TestGenerateCancelledBeforeStream(t *testing.T) {
	provider := &streamingLLM{chunks: []string{"never delivered"}}
	g := newTestGenerator(provider, nil)
	rn := newTestRun()
	rn.Cancel()

	_, err := g.Generate(rn.Context(), rn, "", "", nil, nil, Hooks{})
	if !errors.Is(err, run.ErrCancelled) {
		t.Errorf("Generate() error = %v, want ErrCancelled", err)
	}
}

func TestGenerateAttachesSampledFrames(t *testing.T) {
	goodClip := uuid.New()
	badClip := uuid.New()
	sampler := &mapSampler{frames: map[uuid.UUID]*media.SampledFrame{
		goodClip: {ClipID: goodClip, OffsetMs: 1500, Base64: "ZnJhbWU="},
	}}
	provider := &streamingLLM{chunks: []string{"answer"}}
	g := newTestGenerator(provider, sampler)
	rn := newTestRun()

	selected := []assemble.VideoSetSequence{
		{SetID: uuid.New(), RepresentativeClip: goodClip},
		{SetID: uuid.New(), RepresentativeClip: badClip},
	}
	history := []llm.Message{{Role: "user", Content: "earlier turn"}}

	out, err := g.Generate(rn.Context(), rn, "<memory>\nuser: hi\n</memory>", "keep it short", selected, history, Hooks{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out.FramesAttached != 1 {
		t.Errorf("FramesAttached = %d, want 1; the failing clip must be skipped", out.FramesAttached)
	}

	msgs := provider.gotMessages
	if len(msgs) != 3 {
		t.Fatalf("provider saw %d messages, want system + history + user", len(msgs))
	}
	if !strings.Contains(msgs[0].Content, "GUIDANCE") || !strings.Contains(msgs[0].Content, "keep it short") {
		t.Error("system message is missing the response guidance")
	}
	last := msgs[len(msgs)-1]
	if !strings.HasPrefix(last.Content, "<memory>") {
		t.Errorf("user message = %q, want memory block prefixed", last.Content)
	}
	if !strings.Contains(last.Content, rn.Query) {
		t.Error("user message is missing the query")
	}
	if len(last.Images) != 1 || last.Images[0] != "ZnJhbWU=" {
		t.Errorf("user message images = %v, want the sampled frame", last.Images)
	}
}
