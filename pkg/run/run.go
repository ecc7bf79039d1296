package run

import (
	"context"
	"sync"
	"time"

	"ai-recall-be/pkg/run/gate"

	"github.com/google/uuid"
)

// CancelOutcome tells the caller which cancellation mode applied.
type CancelOutcome int

const (
	// CancelBeforeTokens means no token had arrived: the run context is
	// aborted, the placeholder is removed, nothing is kept.
	CancelBeforeTokens CancelOutcome = iota
	// CancelAfterTokens means streaming had started: the stream is stopped
	// and the partial text survives.
	CancelAfterTokens
	// CancelAlreadyTerminal means the run had finished before the request
	// landed. Cancelling twice reports the same outcome as the first call.
	CancelAlreadyTerminal
)

// Run is the mutable state of one in-flight chat turn. Identity fields are
// fixed at construction; everything else is guarded by mu.
type Run struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	UserID    uuid.UUID
	Query     string

	ctx    context.Context
	cancel context.CancelCauseFunc

	mu             sync.Mutex
	state          State
	placeholderID  uuid.UUID
	tokensReceived bool
	cancelOutcome  *CancelOutcome
	stopStream     context.CancelFunc
	selectionGate  *gate.Gate
	candidates     []VideoCandidate
	selection      []uuid.UUID
	previewHandles []string
	timings        []PhaseTiming
	metrics        Metrics
	failure        string
	startedAt      time.Time
}

func New(sessionID, userID uuid.UUID, query string) *Run {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &Run{
		ID:        uuid.New(),
		SessionID: sessionID,
		UserID:    userID,
		Query:     query,
		ctx:       ctx,
		cancel:    cancel,
		state:     StateAwaitingFirstToken,
		startedAt: time.Now(),
	}
}

// Context is cancelled with cause ErrCancelled when the run is stopped
// before any token arrived. The pipeline derives all blocking work from it.
func (r *Run) Context() context.Context {
	return r.ctx
}

func (r *Run) StartedAt() time.Time {
	return r.startedAt
}

// Transition moves the run forward. It refuses to leave a terminal state so
// a finished or cancelled run can never be resurrected by a slow goroutine.
func (r *Run) Transition(next State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		return false
	}
	r.state = next
	return true
}

func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Run) SetPlaceholderID(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.placeholderID = id
}

func (r *Run) PlaceholderID() uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.placeholderID
}

// MarkFirstToken flips the run into the streaming regime: from here on a
// cancel keeps partial text instead of deleting the placeholder.
func (r *Run) MarkFirstToken() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokensReceived = true
}

func (r *Run) TokensReceived() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tokensReceived
}

// Cancel applies the mode that matches the moment the request landed and is
// idempotent: repeated calls return the outcome of the first.
func (r *Run) Cancel() CancelOutcome {
	r.mu.Lock()
	if r.cancelOutcome != nil {
		out := *r.cancelOutcome
		r.mu.Unlock()
		return out
	}
	if r.state.Terminal() {
		r.mu.Unlock()
		return CancelAlreadyTerminal
	}

	var out CancelOutcome
	if r.tokensReceived {
		out = CancelAfterTokens
		r.cancelOutcome = &out
		stop := r.stopStream
		r.mu.Unlock()
		if stop != nil {
			stop()
		}
		return out
	}

	out = CancelBeforeTokens
	r.cancelOutcome = &out
	g := r.selectionGate
	r.mu.Unlock()
	if g != nil {
		g.Reject(ErrCancelled)
	}
	r.cancel(ErrCancelled)
	return out
}

// StopRequested reports whether a post-token cancel arrived. The generator
// checks it to drop chunks that raced past the stop.
func (r *Run) StopRequested() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelOutcome != nil && *r.cancelOutcome == CancelAfterTokens
}

// Cancelled reports whether any cancel was requested before a terminal state.
func (r *Run) Cancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelOutcome != nil
}

// BindStream registers the cancel func of the live generation stream. If a
// stop raced ahead of the bind the stream is cut immediately.
func (r *Run) BindStream(cancel context.CancelFunc) {
	r.mu.Lock()
	stopped := r.cancelOutcome != nil && *r.cancelOutcome == CancelAfterTokens
	if !stopped {
		r.stopStream = cancel
	}
	r.mu.Unlock()
	if stopped {
		cancel()
	}
}

// OpenGate publishes the candidate list and opens the one-shot selection
// gate the pipeline will block on.
func (r *Run) OpenGate(candidates []VideoCandidate) *gate.Gate {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidates = candidates
	r.selectionGate = gate.New()
	return r.selectionGate
}

// Gate returns the open selection gate, or nil when no selection is pending.
func (r *Run) Gate() *gate.Gate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selectionGate
}

func (r *Run) Candidates() []VideoCandidate {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]VideoCandidate, len(r.candidates))
	copy(out, r.candidates)
	return out
}

func (r *Run) SetSelection(ids []uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selection = ids
}

func (r *Run) Selection() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uuid.UUID, len(r.selection))
	copy(out, r.selection)
	return out
}

func (r *Run) AddPreviewHandle(handle string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.previewHandles = append(r.previewHandles, handle)
}

// DrainPreviewHandles returns the minted preview handles and clears the set,
// so revocation at a terminal state happens exactly once even when finalize
// and cancel race.
func (r *Run) DrainPreviewHandles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	handles := r.previewHandles
	r.previewHandles = nil
	return handles
}

func (r *Run) AddTiming(t PhaseTiming) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timings = append(r.timings, t)
}

func (r *Run) Timings() []PhaseTiming {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PhaseTiming, len(r.timings))
	copy(out, r.timings)
	return out
}

func (r *Run) SetMetrics(m Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = m
}

func (r *Run) Metrics() Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metrics
}

func (r *Run) SetFailure(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failure = reason
}

func (r *Run) Failure() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failure
}

// Snapshot is a consistent read of everything the status endpoint exposes.
type Snapshot struct {
	RunID          uuid.UUID        `json:"run_id"`
	SessionID      uuid.UUID        `json:"session_id"`
	State          State            `json:"state"`
	TokensReceived bool             `json:"tokens_received"`
	Candidates     []VideoCandidate `json:"candidates,omitempty"`
	Timings        []PhaseTiming    `json:"timings,omitempty"`
	Metrics        Metrics          `json:"metrics"`
	Failure        string           `json:"failure,omitempty"`
	StartedAt      time.Time        `json:"started_at"`
}

func (r *Run) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := Snapshot{
		RunID:          r.ID,
		SessionID:      r.SessionID,
		State:          r.state,
		TokensReceived: r.tokensReceived,
		Metrics:        r.metrics,
		Failure:        r.failure,
		StartedAt:      r.startedAt,
	}
	if len(r.candidates) > 0 && r.state == StateAwaitingVideoSelection {
		snap.Candidates = make([]VideoCandidate, len(r.candidates))
		copy(snap.Candidates, r.candidates)
	}
	if len(r.timings) > 0 {
		snap.Timings = make([]PhaseTiming, len(r.timings))
		copy(snap.Timings, r.timings)
	}
	return snap
}
