package memory

import (
	"time"

	"ai-recall-be/pkg/run"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// RunRegistry tracks in-flight runs. The session key doubles as the
// single-active-run lock: Claim is an atomic check-and-set, so two
// concurrent submits on one session cannot both win.
type RunRegistry struct {
	cache *cache.Cache
}

func NewRunRegistry() *RunRegistry {
	// Entries expire after an hour as a safety valve: a run that leaked
	// without release frees its session instead of locking it forever.
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &RunRegistry{
		cache: c,
	}
}

func sessionKey(id uuid.UUID) string { return "session:" + id.String() }
func runKey(id uuid.UUID) string     { return "run:" + id.String() }

// Claim registers the run as its session's active run. It fails with
// run.ErrSessionBusy when the session already has one.
func (r *RunRegistry) Claim(rn *run.Run) error {
	if err := r.cache.Add(sessionKey(rn.SessionID), rn, cache.DefaultExpiration); err != nil {
		return run.ErrSessionBusy
	}
	r.cache.Set(runKey(rn.ID), rn, cache.DefaultExpiration)
	return nil
}

func (r *RunRegistry) GetByRun(runID uuid.UUID) (*run.Run, bool) {
	if x, found := r.cache.Get(runKey(runID)); found {
		return x.(*run.Run), true
	}
	return nil, false
}

func (r *RunRegistry) GetBySession(sessionID uuid.UUID) (*run.Run, bool) {
	if x, found := r.cache.Get(sessionKey(sessionID)); found {
		return x.(*run.Run), true
	}
	return nil, false
}

// Release frees the session lock once the run is terminal. The session key
// is only removed if it still points at this run, so a stale release can
// never evict a successor's claim.
func (r *RunRegistry) Release(rn *run.Run) {
	if x, found := r.cache.Get(sessionKey(rn.SessionID)); found {
		if owner, ok := x.(*run.Run); ok && owner.ID == rn.ID {
			r.cache.Delete(sessionKey(rn.SessionID))
		}
	}
	r.cache.Delete(runKey(rn.ID))
}
