package executor

import (
	"context"
	"log"
	"time"

	"ai-recall-be/internal/repository/unitofwork"
	"ai-recall-be/pkg/llm"
	"ai-recall-be/pkg/run"
	"ai-recall-be/pkg/run/assemble"
	"ai-recall-be/pkg/run/generate"
	"ai-recall-be/pkg/run/phase"
	"ai-recall-be/pkg/run/retrieve"
	"ai-recall-be/pkg/run/status"
	"ai-recall-be/pkg/run/transform"

	"github.com/google/uuid"
)

// Config controls which stages run and how long each one stays visible.
// The floors exist for the client's progress rail: a phase that finishes
// faster than its floor waits out the remainder before the next one starts.
type Config struct {
	QueryTransformEnabled bool
	VideoSearchEnabled    bool
	Retrieve              retrieve.Config
	CandidateCap          int
	SearchingFloor        time.Duration
	ProcessingFloor       time.Duration
}

// ExecutionResult is what the pipeline hands back for persistence.
type ExecutionResult struct {
	Text              string
	Stopped           bool
	TransformDegraded bool
	ChatDegraded      bool
	VideoDegraded     bool
	SelectedVideos    int
	FramesAttached    int
}

// PipelineExecutor drives the four-phase run pipeline:
// Phase 1: Understanding → Phase 2: Searching → Phase 3: Processing →
// (optional selection gate) → Phase 4: Generating.
type PipelineExecutor struct {
	transformer *transform.Transformer
	retriever   *retrieve.Retriever
	assembler   *assemble.Assembler
	generator   *generate.Generator
	reporter    status.Reporter
	logger      *log.Logger
	config      Config
}

func NewPipelineExecutor(
	transformer *transform.Transformer,
	retriever *retrieve.Retriever,
	assembler *assemble.Assembler,
	generator *generate.Generator,
	reporter status.Reporter,
	logger *log.Logger,
	config Config,
) *PipelineExecutor {
	return &PipelineExecutor{
		transformer: transformer,
		retriever:   retriever,
		assembler:   assembler,
		generator:   generator,
		reporter:    reporter,
		logger:      logger,
		config:      config,
	}
}

// Execute runs the complete pipeline for one run. Degraded stages carry on
// with reduced context; the errors that do come back are either the
// cancellation cause or a generation failure.
func (p *PipelineExecutor) Execute(
	ctx context.Context,
	rn *run.Run,
	history []llm.Message,
	uow unitofwork.UnitOfWork,
) (*ExecutionResult, error) {

	p.logger.Printf("[PIPELINE] Run %s starting for query: %s", rn.ID, truncate(rn.Query, 50))

	// ═══════════════════════════════════════════════════════════════
	// PHASE 1: UNDERSTANDING (pure LLM, optional)
	// ═══════════════════════════════════════════════════════════════
	transformed, err := p.understand(ctx, rn, history)
	if err != nil {
		return nil, err
	}

	// ═══════════════════════════════════════════════════════════════
	// PHASE 2: SEARCHING (dual-lane vector search)
	// ═══════════════════════════════════════════════════════════════
	retrieved, err := p.search(ctx, rn, uow, transformed.SearchKeywords)
	if err != nil {
		return nil, err
	}

	// ═══════════════════════════════════════════════════════════════
	// PHASE 3: PROCESSING (context assembly)
	// ═══════════════════════════════════════════════════════════════
	assembly, err := p.process(ctx, rn, uow, retrieved)
	if err != nil {
		return nil, err
	}

	rn.SetMetrics(run.Metrics{
		MemoriesRetrieved:      len(retrieved.Chat),
		ScreenRecordings:       len(assembly.Sets),
		EmbeddingsSearched:     retrieved.EmbeddingsSearched,
		EncryptedDataProcessed: retrieved.PayloadsRead,
	})

	// ═══════════════════════════════════════════════════════════════
	// SELECTION GATE (only when recordings survived assembly)
	// ═══════════════════════════════════════════════════════════════
	selected, err := p.awaitSelection(ctx, rn, assembly)
	if err != nil {
		return nil, err
	}

	// ═══════════════════════════════════════════════════════════════
	// PHASE 4: GENERATING (streamed answer)
	// ═══════════════════════════════════════════════════════════════
	output, err := p.generate(ctx, rn, transformed.ResponseGuidance, assembly, selected, history)
	if err != nil {
		return nil, err
	}

	p.logger.Printf("[PIPELINE] Run %s produced %d bytes (stopped=%v)", rn.ID, len(output.Text), output.Stopped)

	return &ExecutionResult{
		Text:              output.Text,
		Stopped:           output.Stopped,
		TransformDegraded: transformed.Degraded,
		ChatDegraded:      retrieved.ChatDegraded,
		VideoDegraded:     retrieved.VideoDegraded,
		SelectedVideos:    len(selected),
		FramesAttached:    output.FramesAttached,
	}, nil
}

func (p *PipelineExecutor) understand(ctx context.Context, rn *run.Run, history []llm.Message) (*transform.TransformedQuery, error) {
	if !p.config.QueryTransformEnabled {
		return &transform.TransformedQuery{SearchKeywords: rn.Query}, nil
	}
	if !rn.Transition(run.StateUnderstanding) {
		return nil, run.ErrCancelled
	}
	p.reportPhase(rn, run.PhaseUnderstanding, run.StateUnderstanding)
	p.logger.Printf("[PHASE 1] Understanding query...")

	started := time.Now()
	transformed, err := p.transformer.Transform(ctx, rn.Query, history)
	if err != nil {
		return nil, err
	}
	rn.AddTiming(run.PhaseTiming{Phase: run.PhaseUnderstanding, StartedAt: started, Duration: time.Since(started)})

	return transformed, nil
}

func (p *PipelineExecutor) search(ctx context.Context, rn *run.Run, uow unitofwork.UnitOfWork, keywords string) (*retrieve.Result, error) {
	if !rn.Transition(run.StateSearching) {
		return nil, run.ErrCancelled
	}
	p.reportPhase(rn, run.PhaseSearching, run.StateSearching)
	p.logger.Printf("[PHASE 2] Searching memory...")

	started := time.Now()
	floor := phase.StartFloor(p.config.SearchingFloor)

	cfg := p.config.Retrieve
	if !p.config.VideoSearchEnabled {
		cfg.VideoClipLimit = 0
	}
	retrieved, err := p.retriever.Execute(ctx, uow, rn.UserID, rn.SessionID, keywords, cfg)
	if err != nil {
		return nil, err
	}
	if !p.config.VideoSearchEnabled {
		retrieved.Videos = nil
	}

	if err := floor.Wait(ctx); err != nil {
		return nil, err
	}
	rn.AddTiming(run.PhaseTiming{Phase: run.PhaseSearching, StartedAt: started, Duration: time.Since(started)})

	return retrieved, nil
}

func (p *PipelineExecutor) process(ctx context.Context, rn *run.Run, uow unitofwork.UnitOfWork, retrieved *retrieve.Result) (*assemble.Assembly, error) {
	if !rn.Transition(run.StateProcessing) {
		return nil, run.ErrCancelled
	}
	p.reportPhase(rn, run.PhaseProcessing, run.StateProcessing)
	p.logger.Printf("[PHASE 3] Processing context...")

	started := time.Now()
	floor := phase.StartFloor(p.config.ProcessingFloor)

	assembly, err := p.assembler.Assemble(ctx, uow, retrieved.Chat, retrieved.Videos, p.config.CandidateCap)
	if err != nil {
		return nil, err
	}
	for _, c := range assembly.Candidates {
		rn.AddPreviewHandle(c.PreviewHandle)
	}

	if err := floor.Wait(ctx); err != nil {
		return nil, err
	}
	rn.AddTiming(run.PhaseTiming{Phase: run.PhaseProcessing, StartedAt: started, Duration: time.Since(started)})

	return assembly, nil
}

// awaitSelection suspends the run on the one-shot gate when selectable
// recordings exist. With the gate skipped the run drops back to waiting for
// its first token.
func (p *PipelineExecutor) awaitSelection(ctx context.Context, rn *run.Run, assembly *assemble.Assembly) ([]assemble.VideoSetSequence, error) {
	if !p.config.VideoSearchEnabled || len(assembly.Candidates) == 0 {
		if !rn.Transition(run.StateAwaitingFirstToken) {
			return nil, run.ErrCancelled
		}
		return nil, nil
	}

	g := rn.OpenGate(assembly.Candidates)
	if !rn.Transition(run.StateAwaitingVideoSelection) {
		return nil, run.ErrCancelled
	}

	p.logger.Printf("[GATE] Awaiting selection from %d candidates", len(assembly.Candidates))
	p.reporter.Report(status.Update{
		Type:       status.TypeAwaitingSelection,
		RunID:      rn.ID,
		SessionID:  rn.SessionID,
		UserID:     rn.UserID,
		State:      run.StateAwaitingVideoSelection,
		Candidates: assembly.Candidates,
	})

	ids, err := g.Wait(ctx)
	if err != nil {
		return nil, err
	}
	rn.SetSelection(ids)
	p.logger.Printf("[GATE] Selection resolved with %d recordings", len(ids))

	bySet := make(map[uuid.UUID]assemble.VideoSetSequence, len(assembly.Sets))
	for _, s := range assembly.Sets {
		bySet[s.SetID] = s
	}
	var selected []assemble.VideoSetSequence
	for _, id := range ids {
		if s, ok := bySet[id]; ok {
			selected = append(selected, s)
		}
	}
	return selected, nil
}

func (p *PipelineExecutor) generate(
	ctx context.Context,
	rn *run.Run,
	guidance string,
	assembly *assemble.Assembly,
	selected []assemble.VideoSetSequence,
	history []llm.Message,
) (*generate.Output, error) {

	p.logger.Printf("[PHASE 4] Generating answer (%d recordings selected)...", len(selected))
	started := time.Now()

	memoryBlock := assemble.BuildMemoryBlock(assembly.ChatText, len(selected))

	hooks := generate.Hooks{
		OnFirstToken: func() {
			p.reporter.Report(status.Update{
				Type:      status.TypeFirstToken,
				RunID:     rn.ID,
				SessionID: rn.SessionID,
				UserID:    rn.UserID,
				State:     run.StateGenerating,
				MessageID: rn.PlaceholderID(),
			})
		},
		OnChunk: func(chunk string) {
			p.reporter.Report(status.Update{
				Type:      status.TypeChunk,
				RunID:     rn.ID,
				SessionID: rn.SessionID,
				UserID:    rn.UserID,
				MessageID: rn.PlaceholderID(),
				Chunk:     chunk,
			})
		},
	}

	output, err := p.generator.Generate(ctx, rn, memoryBlock, guidance, selected, history, hooks)
	if err != nil {
		return nil, err
	}
	rn.AddTiming(run.PhaseTiming{Phase: run.PhaseGenerating, StartedAt: started, Duration: time.Since(started)})

	return output, nil
}

func (p *PipelineExecutor) reportPhase(rn *run.Run, ph run.Phase, state run.State) {
	p.reporter.Report(status.Update{
		Type:      status.TypePhase,
		RunID:     rn.ID,
		SessionID: rn.SessionID,
		UserID:    rn.UserID,
		State:     state,
		Phase:     ph.String(),
	})
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
