package generate

import (
	"context"
	"errors"
	"log"
	"strings"

	"ai-recall-be/internal/constant"
	"ai-recall-be/pkg/llm"
	"ai-recall-be/pkg/media"
	"ai-recall-be/pkg/run"
	"ai-recall-be/pkg/run/assemble"
)

// Hooks let the caller observe the stream without owning it. OnFirstToken
// fires exactly once, before the first chunk is delivered.
type Hooks struct {
	OnFirstToken func()
	OnChunk      func(chunk string)
}

// Output is the outcome of one generation stream.
type Output struct {
	Text string
	// Stopped means the user cut the stream after tokens started; Text
	// holds everything that arrived before the cut.
	Stopped bool
	// FramesAttached counts recordings that actually contributed an image.
	FramesAttached int
}

// Generator runs the streamed answer call. It samples one frame per selected
// recording, feeds the stream through the run's cancellation bookkeeping and
// maps provider failures onto the run error taxonomy.
type Generator struct {
	llmProvider llm.LLMProvider
	sampler     media.FrameSampler
	logger      *log.Logger
}

func NewGenerator(llmProvider llm.LLMProvider, sampler media.FrameSampler, logger *log.Logger) *Generator {
	return &Generator{
		llmProvider: llmProvider,
		sampler:     sampler,
		logger:      logger,
	}
}

func (g *Generator) Generate(
	ctx context.Context,
	rn *run.Run,
	memoryBlock string,
	guidance string,
	selected []assemble.VideoSetSequence,
	history []llm.Message,
	hooks Hooks,
) (*Output, error) {

	images, frames := g.sampleFrames(ctx, selected)

	messages := g.buildMessages(rn.Query, memoryBlock, guidance, history, images)

	// The stream gets its own cancel so a post-token stop can cut the
	// upstream call without aborting the rest of the run.
	streamCtx, stopStream := context.WithCancel(ctx)
	defer stopStream()
	rn.BindStream(stopStream)

	first := false
	onChunk := func(chunk string) {
		if rn.StopRequested() {
			return
		}
		if !first {
			first = true
			rn.MarkFirstToken()
			rn.Transition(run.StateGenerating)
			if hooks.OnFirstToken != nil {
				hooks.OnFirstToken()
			}
		}
		if hooks.OnChunk != nil {
			hooks.OnChunk(chunk)
		}
	}

	text, err := g.llmProvider.StreamChat(streamCtx, messages, onChunk)
	if err != nil {
		// A user stop cuts the stream context; whatever accumulated
		// before the cut is the answer.
		if rn.StopRequested() {
			g.logger.Printf("[GENERATE] Stream stopped by user after %d bytes", len(text))
			return &Output{Text: text, Stopped: true, FramesAttached: frames}, nil
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return nil, context.Cause(ctx)
		}
		if errors.Is(err, llm.ErrModelNotReady) {
			return nil, &run.GenerationError{Err: err, ModelNotReady: true}
		}
		return nil, &run.GenerationError{Err: err}
	}

	return &Output{
		Text:           text,
		Stopped:        rn.StopRequested(),
		FramesAttached: frames,
	}, nil
}

// sampleFrames pulls one uniform frame per selected recording. A recording
// whose sampling fails is logged and contributes no image; the run carries on.
func (g *Generator) sampleFrames(ctx context.Context, selected []assemble.VideoSetSequence) ([]string, int) {
	if len(selected) == 0 {
		return nil, 0
	}
	var images []string
	for _, set := range selected {
		frame, err := g.sampler.SampleFrame(ctx, set.RepresentativeClip)
		if err != nil {
			g.logger.Printf("[WARN] Frame sampling failed for recording %s: %v", set.SetID, err)
			continue
		}
		images = append(images, frame.Base64)
	}
	return images, len(images)
}

func (g *Generator) buildMessages(
	query string,
	memoryBlock string,
	guidance string,
	history []llm.Message,
	images []string,
) []llm.Message {

	system := constant.AnswerSystemPrompt
	if strings.TrimSpace(guidance) != "" {
		system = system + "\n\nGUIDANCE\n   - " + strings.TrimSpace(guidance)
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: constant.ChatMessageRoleSystem, Content: system})
	messages = append(messages, history...)

	content := query
	if memoryBlock != "" {
		content = memoryBlock + "\n\n" + query
	}
	messages = append(messages, llm.Message{
		Role:    constant.ChatMessageRoleUser,
		Content: content,
		Images:  images,
	})
	return messages
}
