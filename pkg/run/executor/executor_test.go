package executor

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"ai-recall-be/internal/entity"
	"ai-recall-be/internal/repository/contract"
	"ai-recall-be/internal/repository/specification"
	"ai-recall-be/internal/repository/unitofwork"
	"ai-recall-be/pkg/embedding"
	"ai-recall-be/pkg/llm"
	"ai-recall-be/pkg/media"
	"ai-recall-be/pkg/run"
	"ai-recall-be/pkg/run/assemble"
	"ai-recall-be/pkg/run/generate"
	"ai-recall-be/pkg/run/retrieve"
	"ai-recall-be/pkg/run/status"
	"ai-recall-be/pkg/run/transform"
	"ai-recall-be/pkg/store"

	"github.com/google/uuid"
)

// pipelineLLM serves both LLM roles in the pipeline: Generate answers the
// query transform with canned JSON, StreamChat plays back answer chunks.
type pipelineLLM struct {
	transformJSON string
	chunks        []string
	streamErr     error
}

func (p *pipelineLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return "", errors.New("not used")
}

func (p *pipelineLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.transformJSON, nil
}

func (p *pipelineLLM) StreamChat(ctx context.Context, history []llm.Message, onChunk llm.ChunkHandler, options ...llm.Option) (string, error) {
	var sb strings.Builder
	for _, chunk := range p.chunks {
		if ctx.Err() != nil {
			return sb.String(), ctx.Err()
		}
		onChunk(chunk)
		sb.WriteString(chunk)
	}
	if p.streamErr != nil {
		return sb.String(), p.streamErr
	}
	return sb.String(), nil
}

// fixedEmbedding returns one vector for every text. Each retrieval lane gets
// its own instance, matching production wiring, so recording the last text
// embedded is race-free.
type fixedEmbedding struct {
	values   []float32
	err      error
	lastText string
}

func (f *fixedEmbedding) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	f.lastText = text
	if f.err != nil {
		return nil, f.err
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: f.values},
	}, nil
}

// The fakes embed their contract interface so only the methods the pipeline
// actually touches need bodies; anything else panics loudly.
type fakeChunkRepo struct {
	contract.MemoryChunkRepository
	hits []*contract.ScoredMemoryChunk
	err  error
}

func (f *fakeChunkRepo) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, userId uuid.UUID, excludeSessionId uuid.UUID, threshold float64) ([]*contract.ScoredMemoryChunk, error) {
	return f.hits, f.err
}

type fakeVideoEmbedRepo struct {
	contract.VideoEmbeddingRepository
	hits []*contract.ScoredVideoHit
	err  error
}

func (f *fakeVideoEmbedRepo) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, userId uuid.UUID, threshold float64) ([]*contract.ScoredVideoHit, error) {
	if limit <= 0 {
		return nil, nil
	}
	return f.hits, f.err
}

type fakeSetRepo struct {
	contract.VideoSetRepository
	sets  []*entity.VideoSet
	clips []*entity.VideoClip
}

func (f *fakeSetRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.VideoSet, error) {
	return f.sets, nil
}

func (f *fakeSetRepo) FindClipsBySetIds(ctx context.Context, setIds []uuid.UUID) ([]*entity.VideoClip, error) {
	return f.clips, nil
}

type fakeUow struct {
	unitofwork.UnitOfWork
	chunks *fakeChunkRepo
	videos *fakeVideoEmbedRepo
	sets   *fakeSetRepo
}

func (f *fakeUow) MemoryChunkRepository() contract.MemoryChunkRepository {
	return f.chunks
}

func (f *fakeUow) VideoEmbeddingRepository() contract.VideoEmbeddingRepository {
	return f.videos
}

func (f *fakeUow) VideoSetRepository() contract.VideoSetRepository {
	return f.sets
}

type stubSampler struct {
	frames map[uuid.UUID]*media.SampledFrame
}

func (s *stubSampler) SampleFrame(ctx context.Context, clipID uuid.UUID) (*media.SampledFrame, error) {
	if f, ok := s.frames[clipID]; ok {
		return f, nil
	}
	return nil, errors.New("no frames stored")
}

// capturingReporter records every update and mirrors them onto seen so a
// test can react to a specific update mid-run.
type capturingReporter struct {
	mu      sync.Mutex
	updates []status.Update
	seen    chan status.Update
}

func newCapturingReporter() *capturingReporter {
	return &capturingReporter{seen: make(chan status.Update, 64)}
}

func (c *capturingReporter) Report(u status.Update) {
	c.mu.Lock()
	c.updates = append(c.updates, u)
	c.mu.Unlock()
	c.seen <- u
}

func (c *capturingReporter) byType(typ string) []status.Update {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []status.Update
	for _, u := range c.updates {
		if u.Type == typ {
			out = append(out, u)
		}
	}
	return out
}

func waitForUpdate(t *testing.T, reporter *capturingReporter, typ string) status.Update {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case u := <-reporter.seen:
			if u.Type == typ {
				return u
			}
		case <-deadline:
			t.Fatalf("no %q update within deadline", typ)
		}
	}
}

// harness wires a PipelineExecutor out of fakes. Tests mutate the fields
// before calling execute.
type harness struct {
	llm        *pipelineLLM
	chatEmbed  *fixedEmbedding
	videoEmbed *fixedEmbedding
	uow        *fakeUow
	sampler    *stubSampler
	previews   *store.PreviewStore
	reporter   *capturingReporter
	config     Config
}

func newHarness() *harness {
	return &harness{
		llm: &pipelineLLM{
			transformJSON: `{"search_keywords": "billing dashboard", "confidence_score": 0.9, "response_guidance": ""}`,
			chunks:        []string{"The dashboard ", "showed three overdue invoices."},
		},
		chatEmbed:  &fixedEmbedding{values: []float32{0.1, 0.2, 0.3}},
		videoEmbed: &fixedEmbedding{values: []float32{0.4, 0.5}},
		uow: &fakeUow{
			chunks: &fakeChunkRepo{},
			videos: &fakeVideoEmbedRepo{},
			sets:   &fakeSetRepo{},
		},
		sampler:  &stubSampler{frames: map[uuid.UUID]*media.SampledFrame{}},
		previews: store.NewPreviewStore(time.Minute),
		reporter: newCapturingReporter(),
		config: Config{
			QueryTransformEnabled: true,
			VideoSearchEnabled:    true,
			Retrieve:              retrieve.DefaultConfig(),
			CandidateCap:          3,
			SearchingFloor:        time.Millisecond,
			ProcessingFloor:       time.Millisecond,
		},
	}
}

func (h *harness) executor() *PipelineExecutor {
	logger := log.New(io.Discard, "", 0)
	return NewPipelineExecutor(
		transform.NewTransformer(h.llm, logger),
		retrieve.NewRetriever(h.chatEmbed, h.videoEmbed, logger),
		assemble.NewAssembler(h.previews, "http://localhost:3000", logger),
		generate.NewGenerator(h.llm, h.sampler, logger),
		h.reporter,
		logger,
		h.config,
	)
}

// addRecording seeds one searchable recording set and returns its id. The
// sampler learns the representative clip so generation can attach a frame.
func (h *harness) addRecording(title string) uuid.UUID {
	setID := uuid.New()
	clipID := uuid.New()
	h.uow.videos.hits = append(h.uow.videos.hits, &contract.ScoredVideoHit{
		VideoSetId:  setID,
		VideoClipId: clipID,
		Similarity:  0.72,
	})
	h.uow.sets.sets = append(h.uow.sets.sets, &entity.VideoSet{
		Id:                   setID,
		Title:                title,
		DurationMs:           42000,
		RepresentativeClipId: &clipID,
	})
	h.uow.sets.clips = append(h.uow.sets.clips, &entity.VideoClip{
		Id:         clipID,
		VideoSetId: setID,
		FrameCount: 2,
	})
	h.sampler.frames[clipID] = &media.SampledFrame{ClipID: clipID, OffsetMs: 1000, Base64: "ZnJhbWU="}
	return setID
}

func (h *harness) addChatMemory(content string) {
	h.uow.chunks.hits = append(h.uow.chunks.hits, &contract.ScoredMemoryChunk{
		Chunk: &entity.MemoryChunk{
			Id:            uuid.New(),
			ChatSessionId: uuid.New(),
			Content:       content,
		},
		Similarity: 0.81,
	})
}

func TestExecuteWithoutRecordings(t *testing.T) {
	h := newHarness()
	h.addChatMemory("user: what broke\nassistant: the cron job")
	h.config.SearchingFloor = 25 * time.Millisecond
	h.config.ProcessingFloor = 25 * time.Millisecond

	rn := run.New(uuid.New(), uuid.New(), "what did the dashboard show")
	started := time.Now()

	result, err := h.executor().Execute(rn.Context(), rn, nil, h.uow)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Text != "The dashboard showed three overdue invoices." {
		t.Errorf("Text = %q, want the full streamed answer", result.Text)
	}
	if result.Stopped {
		t.Error("Stopped = true, want false")
	}
	if result.SelectedVideos != 0 {
		t.Errorf("SelectedVideos = %d, want 0", result.SelectedVideos)
	}
	if elapsed := time.Since(started); elapsed < 50*time.Millisecond {
		t.Errorf("Execute() returned after %v, want both phase floors waited out", elapsed)
	}

	if got := len(h.reporter.byType(status.TypeAwaitingSelection)); got != 0 {
		t.Errorf("awaiting_selection reported %d times, want 0 without recordings", got)
	}
	if got := len(h.reporter.byType(status.TypeFirstToken)); got != 1 {
		t.Errorf("first_token reported %d times, want 1", got)
	}
	if got := len(h.reporter.byType(status.TypeChunk)); got != 2 {
		t.Errorf("chunk reported %d times, want 2", got)
	}

	var phases []string
	for _, u := range h.reporter.byType(status.TypePhase) {
		phases = append(phases, u.Phase)
	}
	want := []string{"understanding", "searching", "processing"}
	if len(phases) != len(want) {
		t.Fatalf("phases reported = %v, want %v", phases, want)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Errorf("phase[%d] = %q, want %q", i, phases[i], want[i])
		}
	}

	metrics := rn.Metrics()
	if metrics.MemoriesRetrieved != 1 {
		t.Errorf("MemoriesRetrieved = %d, want 1", metrics.MemoriesRetrieved)
	}
	if metrics.ScreenRecordings != 0 {
		t.Errorf("ScreenRecordings = %d, want 0", metrics.ScreenRecordings)
	}
}

func TestExecuteSelectionGate(t *testing.T) {
	h := newHarness()
	h.addChatMemory("user: remind me\nassistant: it was on screen")
	setID := h.addRecording("Demo: billing walkthrough")

	rn := run.New(uuid.New(), uuid.New(), "show me the billing recording")

	type outcome struct {
		result *ExecutionResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := h.executor().Execute(rn.Context(), rn, nil, h.uow)
		done <- outcome{result, err}
	}()

	u := waitForUpdate(t, h.reporter, status.TypeAwaitingSelection)
	if len(u.Candidates) != 1 {
		t.Fatalf("awaiting_selection carried %d candidates, want 1", len(u.Candidates))
	}
	if u.Candidates[0].VideoSetID != setID {
		t.Errorf("candidate set = %s, want %s", u.Candidates[0].VideoSetID, setID)
	}
	if u.Candidates[0].PreviewURL == "" {
		t.Error("candidate has no preview URL")
	}
	if got := rn.State(); got != run.StateAwaitingVideoSelection {
		t.Errorf("run state = %q, want %q", got, run.StateAwaitingVideoSelection)
	}

	g := rn.Gate()
	if g == nil {
		t.Fatal("run has no open gate while awaiting selection")
	}
	if err := g.Resolve([]uuid.UUID{setID}); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	select {
	case out := <-done:
		if out.err != nil {
			t.Fatalf("Execute() error = %v", out.err)
		}
		if out.result.SelectedVideos != 1 {
			t.Errorf("SelectedVideos = %d, want 1", out.result.SelectedVideos)
		}
		if out.result.FramesAttached != 1 {
			t.Errorf("FramesAttached = %d, want 1", out.result.FramesAttached)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Execute() did not return after the gate resolved")
	}

	if handles := rn.DrainPreviewHandles(); len(handles) != 1 {
		t.Errorf("run holds %d preview handles, want 1", len(handles))
	}
}

func TestExecuteCancelWhileAwaitingSelection(t *testing.T) {
	h := newHarness()
	h.addRecording("Demo: billing walkthrough")

	rn := run.New(uuid.New(), uuid.New(), "show me the billing recording")

	done := make(chan error, 1)
	go func() {
		_, err := h.executor().Execute(rn.Context(), rn, nil, h.uow)
		done <- err
	}()

	waitForUpdate(t, h.reporter, status.TypeAwaitingSelection)

	if got := rn.Cancel(); got != run.CancelBeforeTokens {
		t.Fatalf("Cancel() = %v, want CancelBeforeTokens", got)
	}

	select {
	case err := <-done:
		if !errors.Is(err, run.ErrCancelled) {
			t.Errorf("Execute() error = %v, want ErrCancelled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Execute() did not unwind after cancel")
	}
}

func TestExecuteCancelDuringSearchFloor(t *testing.T) {
	h := newHarness()
	h.config.SearchingFloor = 10 * time.Second

	rn := run.New(uuid.New(), uuid.New(), "anything")

	done := make(chan error, 1)
	go func() {
		_, err := h.executor().Execute(rn.Context(), rn, nil, h.uow)
		done <- err
	}()

	for {
		u := waitForUpdate(t, h.reporter, status.TypePhase)
		if u.Phase == "searching" {
			break
		}
	}
	rn.Cancel()

	select {
	case err := <-done:
		if !errors.Is(err, run.ErrCancelled) {
			t.Errorf("Execute() error = %v, want ErrCancelled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Execute() sat out the floor despite the cancel")
	}
}

func TestExecuteQueryTransformDisabled(t *testing.T) {
	h := newHarness()
	h.config.QueryTransformEnabled = false

	rn := run.New(uuid.New(), uuid.New(), "verbatim search text")

	if _, err := h.executor().Execute(rn.Context(), rn, nil, h.uow); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	for _, u := range h.reporter.byType(status.TypePhase) {
		if u.Phase == "understanding" {
			t.Error("understanding phase reported with the transform disabled")
		}
	}
	if h.chatEmbed.lastText != "verbatim search text" {
		t.Errorf("chat lane embedded %q, want the raw query", h.chatEmbed.lastText)
	}
}

func TestExecuteVideoSearchDisabled(t *testing.T) {
	h := newHarness()
	h.addRecording("Demo: billing walkthrough")
	h.config.VideoSearchEnabled = false

	rn := run.New(uuid.New(), uuid.New(), "show me the billing recording")

	result, err := h.executor().Execute(rn.Context(), rn, nil, h.uow)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := len(h.reporter.byType(status.TypeAwaitingSelection)); got != 0 {
		t.Errorf("awaiting_selection reported %d times with video search disabled, want 0", got)
	}
	if result.SelectedVideos != 0 {
		t.Errorf("SelectedVideos = %d, want 0", result.SelectedVideos)
	}
}

func TestExecuteDegradedLanesStillAnswer(t *testing.T) {
	h := newHarness()
	h.uow.chunks.err = errors.New("database offline")
	h.videoEmbed.err = errors.New("embedding service offline")

	rn := run.New(uuid.New(), uuid.New(), "what did the dashboard show")

	result, err := h.executor().Execute(rn.Context(), rn, nil, h.uow)
	if err != nil {
		t.Fatalf("Execute() error = %v, want a degraded answer", err)
	}
	if !result.ChatDegraded {
		t.Error("ChatDegraded = false, want true when the chunk search fails")
	}
	if !result.VideoDegraded {
		t.Error("VideoDegraded = false, want true when the video embedding fails")
	}
	if result.Text == "" {
		t.Error("Text is empty; a degraded run must still answer")
	}
}
