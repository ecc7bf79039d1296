package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ai-recall-be/internal/config"
	"ai-recall-be/internal/constant"
	"ai-recall-be/internal/dto"
	"ai-recall-be/internal/entity"
	"ai-recall-be/internal/repository/memory"
	"ai-recall-be/internal/repository/specification"
	"ai-recall-be/internal/repository/unitofwork"
	"ai-recall-be/pkg/embedding"
	"ai-recall-be/pkg/events"
	"ai-recall-be/pkg/llm"
	"ai-recall-be/pkg/media"
	pktNats "ai-recall-be/pkg/nats"
	"ai-recall-be/pkg/run"
	"ai-recall-be/pkg/run/assemble"
	"ai-recall-be/pkg/run/executor"
	"ai-recall-be/pkg/run/gate"
	"ai-recall-be/pkg/run/generate"
	"ai-recall-be/pkg/run/retrieve"
	"ai-recall-be/pkg/run/status"
	"ai-recall-be/pkg/run/transform"
	"ai-recall-be/pkg/store"

	"github.com/google/uuid"
)

var (
	// ErrRunNotFound also covers runs owned by other users and runs that
	// already finished and left the registry.
	ErrRunNotFound        = errors.New("run not found or already finished")
	ErrNoPendingSelection = errors.New("run is not awaiting a video selection")
	ErrUnknownCandidate   = errors.New("selection contains a recording that was never offered")
)

type IRunService interface {
	StartRun(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error)
	CancelRun(ctx context.Context, userId uuid.UUID, runId uuid.UUID) (*dto.CancelRunResponse, error)
	ResolveSelection(ctx context.Context, userId uuid.UUID, runId uuid.UUID, request *dto.ResolveSelectionRequest) (*dto.ResolveSelectionResponse, error)
	GetRun(ctx context.Context, userId uuid.UUID, runId uuid.UUID) (*run.Snapshot, error)
}

type runService struct {
	uowFactory       unitofwork.RepositoryFactory
	runRegistry      *memory.RunRegistry
	previews         *store.PreviewStore
	llmProvider      llm.LLMProvider
	pipelineExecutor *executor.PipelineExecutor
	reporter         status.Reporter
	memoryPublisher  IPublisherService
	eventPublisher   *pktNats.Publisher
	runLogger        *log.Logger
}

// NewRunService builds the run orchestrator and its whole pipeline. Stages
// share one dedicated file logger so a run can be traced end to end.
func NewRunService(
	uowFactory unitofwork.RepositoryFactory,
	chatEmbedding embedding.EmbeddingProvider,
	videoEmbedding embedding.EmbeddingProvider,
	llmProvider llm.LLMProvider,
	previews *store.PreviewStore,
	runRegistry *memory.RunRegistry,
	reporter status.Reporter,
	memoryPublisher IPublisherService,
	eventPublisher *pktNats.Publisher,
	appBaseURL string,
	pipelineCfg config.PipelineConfig,
) IRunService {

	runLogger := initRunLogger()

	sampler := media.NewStoredFrameSampler(uowFactory, runLogger)
	transformer := transform.NewTransformer(llmProvider, runLogger)
	retriever := retrieve.NewRetriever(chatEmbedding, videoEmbedding, runLogger)
	assembler := assemble.NewAssembler(previews, appBaseURL, runLogger)
	generator := generate.NewGenerator(llmProvider, sampler, runLogger)

	retrieveCfg := retrieve.DefaultConfig()
	if pipelineCfg.ChatTopK > 0 {
		retrieveCfg.ChatTopK = pipelineCfg.ChatTopK
	}

	pipelineExecutor := executor.NewPipelineExecutor(
		transformer,
		retriever,
		assembler,
		generator,
		reporter,
		runLogger,
		executor.Config{
			QueryTransformEnabled: pipelineCfg.QueryTransformEnabled,
			VideoSearchEnabled:    pipelineCfg.VideoSearchEnabled,
			Retrieve:              retrieveCfg,
			CandidateCap:          pipelineCfg.VideoCandidateCap,
			SearchingFloor:        time.Duration(pipelineCfg.SearchingFloorMs) * time.Millisecond,
			ProcessingFloor:       time.Duration(pipelineCfg.ProcessingFloorMs) * time.Millisecond,
		},
	)

	return &runService{
		uowFactory:       uowFactory,
		runRegistry:      runRegistry,
		previews:         previews,
		llmProvider:      llmProvider,
		pipelineExecutor: pipelineExecutor,
		reporter:         reporter,
		memoryPublisher:  memoryPublisher,
		eventPublisher:   eventPublisher,
		runLogger:        runLogger,
	}
}

func initRunLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "run_pipeline.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[RUN] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}

// StartRun accepts a user message and launches the pipeline for it. The two
// message rows are committed before the goroutine starts so the client can
// render the exchange immediately; the busy check happens before either row
// exists.
func (rs *runService) StartRun(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	uow := rs.uowFactory.NewUnitOfWork(ctx)
	now := time.Now()

	var chatSession *entity.ChatSession
	createSession := request.ChatSessionId == nil
	if createSession {
		chatSession = &entity.ChatSession{
			Id:        uuid.New(),
			UserId:    userId,
			Title:     DefaultSessionTitle,
			CreatedAt: now,
		}
	} else {
		existing, err := uow.ChatSessionRepository().FindOne(ctx,
			specification.ByID{ID: *request.ChatSessionId},
			specification.UserOwnedBy{UserID: userId},
		)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, ErrSessionNotFound
		}
		chatSession = existing
	}

	rn := run.New(chatSession.Id, userId, request.Chat)
	if err := rs.runRegistry.Claim(rn); err != nil {
		return nil, err
	}

	userMessage := &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: chatSession.Id,
		Role:          constant.ChatMessageRoleUser,
		Content:       request.Chat,
		CreatedAt:     now,
	}
	// The placeholder is the assistant message the stream fills in later. It
	// exists from the start so the client has a stable message id to render
	// tokens into.
	placeholder := &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: chatSession.Id,
		Role:          constant.ChatMessageRoleAssistant,
		Content:       "",
		Metadata:      map[string]interface{}{"streaming": true},
		CreatedAt:     now.Add(1 * time.Second),
	}

	if err := rs.persistRunSetup(ctx, uow, createSession, chatSession, userMessage, placeholder); err != nil {
		rs.runRegistry.Release(rn)
		return nil, err
	}
	rn.SetPlaceholderID(placeholder.Id)

	rs.reporter.Report(status.Update{
		Type:      status.TypeRunAccepted,
		RunID:     rn.ID,
		SessionID: rn.SessionID,
		UserID:    rn.UserID,
		State:     rn.State(),
		MessageID: placeholder.Id,
	})
	rs.publishEvent(ctx, events.NewRunStarted(rn.ID.String(), rn.SessionID.String(), rn.UserID.String()))
	rs.runLogger.Printf("[START] Run %s accepted for session %s", rn.ID, rn.SessionID)

	go rs.executeRun(rn, userMessage.Id)

	return &dto.SendChatResponse{
		RunId:                rn.ID,
		ChatSessionId:        chatSession.Id,
		PlaceholderMessageId: placeholder.Id,
		State:                string(rn.State()),
	}, nil
}

func (rs *runService) persistRunSetup(
	ctx context.Context,
	uow unitofwork.UnitOfWork,
	createSession bool,
	chatSession *entity.ChatSession,
	userMessage *entity.ChatMessage,
	placeholder *entity.ChatMessage,
) error {
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if createSession {
		if err := uow.ChatSessionRepository().Create(ctx, chatSession); err != nil {
			return err
		}
	}
	if err := uow.ChatMessageRepository().Create(ctx, userMessage); err != nil {
		return err
	}
	if err := uow.ChatMessageRepository().Create(ctx, placeholder); err != nil {
		return err
	}
	if err := uow.ChatSessionRepository().TouchLastMessageAt(ctx, chatSession.Id); err != nil {
		return err
	}

	return uow.Commit()
}

// CancelRun requests cancellation. The call only flips the run's intent and
// returns; the pipeline goroutine observes it and finalizes on its own.
func (rs *runService) CancelRun(ctx context.Context, userId uuid.UUID, runId uuid.UUID) (*dto.CancelRunResponse, error) {
	rn, ok := rs.runRegistry.GetByRun(runId)
	if !ok || rn.UserID != userId {
		return nil, ErrRunNotFound
	}

	outcome := rn.Cancel()
	rs.runLogger.Printf("[CANCEL] Run %s cancel requested (outcome=%s)", rn.ID, outcomeLabel(outcome))

	return &dto.CancelRunResponse{
		RunId:   rn.ID,
		State:   string(rn.State()),
		Outcome: outcomeLabel(outcome),
	}, nil
}

func outcomeLabel(outcome run.CancelOutcome) string {
	switch outcome {
	case run.CancelBeforeTokens:
		return "stopped_before_tokens"
	case run.CancelAfterTokens:
		return "stopped_after_tokens"
	default:
		return "already_finished"
	}
}

// ResolveSelection feeds the user's recording choice into the waiting gate.
func (rs *runService) ResolveSelection(ctx context.Context, userId uuid.UUID, runId uuid.UUID, request *dto.ResolveSelectionRequest) (*dto.ResolveSelectionResponse, error) {
	rn, ok := rs.runRegistry.GetByRun(runId)
	if !ok || rn.UserID != userId {
		return nil, ErrRunNotFound
	}

	g := rn.Gate()
	if g == nil || rn.State() != run.StateAwaitingVideoSelection {
		return nil, ErrNoPendingSelection
	}

	offered := make(map[uuid.UUID]bool, len(rn.Candidates()))
	for _, c := range rn.Candidates() {
		offered[c.VideoSetID] = true
	}

	seen := make(map[uuid.UUID]bool, len(request.VideoSetIds))
	ids := make([]uuid.UUID, 0, len(request.VideoSetIds))
	for _, id := range request.VideoSetIds {
		if !offered[id] {
			return nil, ErrUnknownCandidate
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	if err := g.Resolve(ids); err != nil {
		if errors.Is(err, gate.ErrClosed) {
			return nil, ErrNoPendingSelection
		}
		return nil, err
	}
	rs.runLogger.Printf("[GATE] Run %s selection accepted (%d recordings)", rn.ID, len(ids))

	return &dto.ResolveSelectionResponse{RunId: rn.ID, Selected: len(ids)}, nil
}

// GetRun reports the live state of an active run.
func (rs *runService) GetRun(ctx context.Context, userId uuid.UUID, runId uuid.UUID) (*run.Snapshot, error) {
	rn, ok := rs.runRegistry.GetByRun(runId)
	if !ok || rn.UserID != userId {
		return nil, ErrRunNotFound
	}
	snapshot := rn.Snapshot()
	return &snapshot, nil
}

func (rs *runService) executeRun(rn *run.Run, userMessageId uuid.UUID) {
	ctx := rn.Context()
	uow := rs.uowFactory.NewUnitOfWork(ctx)

	history, err := rs.loadHistory(ctx, uow, rn.SessionID, userMessageId, rn.PlaceholderID())
	if err != nil {
		rs.runLogger.Printf("[WARN] Run %s: loading history failed, continuing without: %v", rn.ID, err)
		history = nil
	}

	result, execErr := rs.pipelineExecutor.Execute(ctx, rn, history, uow)
	rs.finalizeRun(rn, userMessageId, result, execErr)
}

// finalizeRun is the single writer of terminal state. Cancel() only requests;
// the terminal transition, persistence and cleanup all happen here, on a
// background context that outlives the (by now cancelled) run context.
func (rs *runService) finalizeRun(rn *run.Run, userMessageId uuid.UUID, result *executor.ExecutionResult, execErr error) {
	ctx := context.Background()
	uow := rs.uowFactory.NewUnitOfWork(ctx)
	elapsedMs := time.Since(rn.StartedAt()).Milliseconds()

	switch {
	case execErr == nil && !result.Stopped:
		rs.completeRun(ctx, uow, rn, userMessageId, result, elapsedMs)
	case execErr == nil && result.Stopped:
		rs.stopAfterTokens(ctx, uow, rn, result, elapsedMs)
	case errors.Is(execErr, run.ErrCancelled):
		rs.stopBeforeTokens(ctx, uow, rn, elapsedMs)
	default:
		rs.failRun(ctx, uow, rn, execErr, elapsedMs)
	}

	// Minted preview links die with the run, whatever the outcome.
	for _, handle := range rn.DrainPreviewHandles() {
		rs.previews.Revoke(handle)
	}
	rs.runRegistry.Release(rn)
}

func (rs *runService) completeRun(ctx context.Context, uow unitofwork.UnitOfWork, rn *run.Run, userMessageId uuid.UUID, result *executor.ExecutionResult, elapsedMs int64) {
	rn.Transition(run.StateCompleted)

	rs.fillPlaceholder(ctx, uow, rn, result.Text, runMetadata(result, false))
	if err := uow.ChatSessionRepository().TouchLastMessageAt(ctx, rn.SessionID); err != nil {
		rs.runLogger.Printf("[WARN] Run %s: touching session failed: %v", rn.ID, err)
	}

	rs.maybeGenerateTitle(ctx, uow, rn, result.Text)
	rs.queueMemoryIndex(ctx, rn, userMessageId)

	metrics := rn.Metrics()
	rs.reporter.Report(status.Update{
		Type:      status.TypeCompleted,
		RunID:     rn.ID,
		SessionID: rn.SessionID,
		UserID:    rn.UserID,
		State:     run.StateCompleted,
		MessageID: rn.PlaceholderID(),
		Timings:   rn.Timings(),
		Metrics:   &metrics,
		ElapsedMs: elapsedMs,
	})
	rs.publishEvent(ctx, events.NewRunCompleted(rn.ID.String(), rn.SessionID.String(), elapsedMs))
	rs.runLogger.Printf("[DONE] Run %s completed in %dms (%d bytes)", rn.ID, elapsedMs, len(result.Text))
}

func (rs *runService) stopAfterTokens(ctx context.Context, uow unitofwork.UnitOfWork, rn *run.Run, result *executor.ExecutionResult, elapsedMs int64) {
	rn.Transition(run.StateStoppedAfterTokens)

	// The user saw these tokens; the partial answer stays in history.
	rs.fillPlaceholder(ctx, uow, rn, result.Text, runMetadata(result, true))
	if err := uow.ChatSessionRepository().TouchLastMessageAt(ctx, rn.SessionID); err != nil {
		rs.runLogger.Printf("[WARN] Run %s: touching session failed: %v", rn.ID, err)
	}

	rs.reporter.Report(status.Update{
		Type:      status.TypeStopped,
		RunID:     rn.ID,
		SessionID: rn.SessionID,
		UserID:    rn.UserID,
		State:     run.StateStoppedAfterTokens,
		MessageID: rn.PlaceholderID(),
		ElapsedMs: elapsedMs,
	})
	rs.publishEvent(ctx, events.NewRunStopped(rn.ID.String(), rn.SessionID.String(), true))
	rs.runLogger.Printf("[DONE] Run %s stopped after tokens, kept %d bytes", rn.ID, len(result.Text))
}

func (rs *runService) stopBeforeTokens(ctx context.Context, uow unitofwork.UnitOfWork, rn *run.Run, elapsedMs int64) {
	rn.Transition(run.StateStoppedBeforeTokens)

	// Nothing streamed, so nothing is worth keeping: the placeholder row is
	// removed outright and only the user's message stays in history.
	if err := uow.ChatMessageRepository().DeleteUnscoped(ctx, rn.PlaceholderID()); err != nil {
		rs.runLogger.Printf("[ERROR] Run %s: removing placeholder failed: %v", rn.ID, err)
	}

	rs.reporter.Report(status.Update{
		Type:      status.TypeStopped,
		RunID:     rn.ID,
		SessionID: rn.SessionID,
		UserID:    rn.UserID,
		State:     run.StateStoppedBeforeTokens,
		ElapsedMs: elapsedMs,
	})
	rs.publishEvent(ctx, events.NewRunStopped(rn.ID.String(), rn.SessionID.String(), false))
	rs.runLogger.Printf("[DONE] Run %s stopped before tokens", rn.ID)
}

func (rs *runService) failRun(ctx context.Context, uow unitofwork.UnitOfWork, rn *run.Run, execErr error, elapsedMs int64) {
	var genErr *run.GenerationError
	modelNotReady := errors.As(execErr, &genErr) && genErr.ModelNotReady

	rn.SetFailure(execErr.Error())
	rn.Transition(run.StateFailed)

	content := "Something went wrong while generating this answer. Please try again."
	if modelNotReady {
		content = "The language model is not initialized. Download a model in settings, then ask again."
	}
	rs.fillPlaceholder(ctx, uow, rn, content, map[string]interface{}{
		"error":           true,
		"model_not_ready": modelNotReady,
	})

	rs.reporter.Report(status.Update{
		Type:          status.TypeFailed,
		RunID:         rn.ID,
		SessionID:     rn.SessionID,
		UserID:        rn.UserID,
		State:         run.StateFailed,
		MessageID:     rn.PlaceholderID(),
		Failure:       execErr.Error(),
		ModelNotReady: modelNotReady,
		ElapsedMs:     elapsedMs,
	})
	rs.publishEvent(ctx, events.NewRunFailed(rn.ID.String(), rn.SessionID.String(), execErr.Error()))
	rs.runLogger.Printf("[ERROR] Run %s failed after %dms: %v", rn.ID, elapsedMs, execErr)
}

func (rs *runService) fillPlaceholder(ctx context.Context, uow unitofwork.UnitOfWork, rn *run.Run, content string, metadata map[string]interface{}) {
	placeholder, err := uow.ChatMessageRepository().FindOne(ctx, specification.ByID{ID: rn.PlaceholderID()})
	if err != nil || placeholder == nil {
		rs.runLogger.Printf("[ERROR] Run %s: placeholder %s missing: %v", rn.ID, rn.PlaceholderID(), err)
		return
	}
	placeholder.Content = content
	placeholder.Metadata = metadata
	if err := uow.ChatMessageRepository().Update(ctx, placeholder); err != nil {
		rs.runLogger.Printf("[ERROR] Run %s: persisting answer failed: %v", rn.ID, err)
	}
}

// runMetadata captures how an answer was produced. Flags are only written
// when set so ordinary runs keep a clean row.
func runMetadata(result *executor.ExecutionResult, stopped bool) map[string]interface{} {
	metadata := map[string]interface{}{}
	if stopped {
		metadata["stopped"] = true
	}
	if result.TransformDegraded {
		metadata["transform_degraded"] = true
	}
	if result.ChatDegraded {
		metadata["memory_degraded"] = true
	}
	if result.VideoDegraded {
		metadata["video_degraded"] = true
	}
	if result.SelectedVideos > 0 {
		metadata["selected_recordings"] = result.SelectedVideos
	}
	if result.FramesAttached > 0 {
		metadata["frames_attached"] = result.FramesAttached
	}
	if len(metadata) == 0 {
		return nil
	}
	return metadata
}

// maybeGenerateTitle names the session after its first completed exchange.
// Titles are cosmetic: any failure leaves the default title in place.
func (rs *runService) maybeGenerateTitle(ctx context.Context, uow unitofwork.UnitOfWork, rn *run.Run, answer string) {
	sess, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: rn.SessionID})
	if err != nil || sess == nil || sess.Title != DefaultSessionTitle {
		return
	}

	titleCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	prompt := fmt.Sprintf(constant.SessionTitlePromptTemplate, truncateText(rn.Query, 500), truncateText(answer, 500))
	raw, err := rs.llmProvider.Generate(titleCtx, prompt, llm.WithTemperature(0.2))
	if err != nil {
		rs.runLogger.Printf("[WARN] Run %s: title generation failed: %v", rn.ID, err)
		return
	}

	title := sanitizeTitle(raw)
	if title == "" {
		return
	}
	sess.Title = title
	if err := uow.ChatSessionRepository().Update(ctx, sess); err != nil {
		rs.runLogger.Printf("[WARN] Run %s: saving title failed: %v", rn.ID, err)
	}
}

// sanitizeTitle normalizes model output into something the session list can
// show: one line, no wrapping quotes, bounded length.
func sanitizeTitle(raw string) string {
	title := strings.TrimSpace(raw)
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = title[:idx]
	}
	title = strings.Trim(title, `"'`)
	title = strings.TrimRight(title, ".!?")
	title = strings.Join(strings.Fields(title), " ")
	if len(title) > 80 {
		title = strings.TrimSpace(title[:80])
	}
	return title
}

// queueMemoryIndex hands the finished exchange to the indexing consumer.
// Indexing is asynchronous; a failed enqueue only logs.
func (rs *runService) queueMemoryIndex(ctx context.Context, rn *run.Run, userMessageId uuid.UUID) {
	payload := dto.PublishIndexMemoryMessage{
		ChatSessionId:      rn.SessionID,
		UserMessageId:      userMessageId,
		AssistantMessageId: rn.PlaceholderID(),
	}
	payloadJson, err := json.Marshal(payload)
	if err != nil {
		rs.runLogger.Printf("[WARN] Run %s: marshalling index message failed: %v", rn.ID, err)
		return
	}
	if err := rs.memoryPublisher.Publish(ctx, payloadJson); err != nil {
		rs.runLogger.Printf("[WARN] Run %s: queueing memory indexing failed: %v", rn.ID, err)
	}
}

// publishEvent emits a lifecycle event over NATS. Delivery is best effort;
// a run never fails because the broker is away.
func (rs *runService) publishEvent(ctx context.Context, evt events.Event) {
	if rs.eventPublisher == nil {
		return
	}
	if err := rs.eventPublisher.Publish(ctx, evt); err != nil {
		rs.runLogger.Printf("[WARN] Failed to publish %s event: %v", evt.EventType(), err)
	}
}

// loadHistory returns the conversation window preceding this run, oldest
// first, without the two rows StartRun just wrote.
func (rs *runService) loadHistory(ctx context.Context, uow unitofwork.UnitOfWork, sessionId, userMessageId, placeholderId uuid.UUID) ([]llm.Message, error) {
	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: constant.ChatHistoryWindow + 2},
	)
	if err != nil {
		return nil, err
	}

	history := make([]llm.Message, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if msg.Id == userMessageId || msg.Id == placeholderId {
			continue
		}
		history = append(history, llm.Message{Role: msg.Role, Content: msg.Content})
	}
	if len(history) > constant.ChatHistoryWindow {
		history = history[len(history)-constant.ChatHistoryWindow:]
	}
	return history, nil
}

func truncateText(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
