package memory

import (
	"errors"
	"testing"

	"ai-recall-be/pkg/run"

	"github.com/google/uuid"
)

func TestClaimLocksSession(t *testing.T) {
	registry := NewRunRegistry()
	sessionID := uuid.New()
	userID := uuid.New()

	first := run.New(sessionID, userID, "first question")
	if err := registry.Claim(first); err != nil {
		t.Fatalf("Claim() error = %v", err)
	}

	second := run.New(sessionID, userID, "second question")
	if err := registry.Claim(second); !errors.Is(err, run.ErrSessionBusy) {
		t.Errorf("Claim() on a busy session error = %v, want ErrSessionBusy", err)
	}

	// The losing claim must not have dislodged the winner.
	if got, found := registry.GetBySession(sessionID); !found || got.ID != first.ID {
		t.Errorf("GetBySession() = %v, want the first run", got)
	}
}

func TestClaimDifferentSessions(t *testing.T) {
	registry := NewRunRegistry()
	userID := uuid.New()

	a := run.New(uuid.New(), userID, "question a")
	b := run.New(uuid.New(), userID, "question b")

	if err := registry.Claim(a); err != nil {
		t.Fatalf("Claim(a) error = %v", err)
	}
	if err := registry.Claim(b); err != nil {
		t.Errorf("Claim(b) error = %v, want concurrent runs on separate sessions allowed", err)
	}
}

func TestLookups(t *testing.T) {
	registry := NewRunRegistry()
	rn := run.New(uuid.New(), uuid.New(), "question")

	if _, found := registry.GetByRun(rn.ID); found {
		t.Error("GetByRun() found an unclaimed run")
	}

	if err := registry.Claim(rn); err != nil {
		t.Fatalf("Claim() error = %v", err)
	}

	if got, found := registry.GetByRun(rn.ID); !found || got.ID != rn.ID {
		t.Errorf("GetByRun() = %v, %v, want the claimed run", got, found)
	}
	if got, found := registry.GetBySession(rn.SessionID); !found || got.ID != rn.ID {
		t.Errorf("GetBySession() = %v, %v, want the claimed run", got, found)
	}
}

func TestReleaseFreesSession(t *testing.T) {
	registry := NewRunRegistry()
	sessionID := uuid.New()
	userID := uuid.New()

	first := run.New(sessionID, userID, "first")
	if err := registry.Claim(first); err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	registry.Release(first)

	if _, found := registry.GetByRun(first.ID); found {
		t.Error("GetByRun() still finds a released run")
	}

	second := run.New(sessionID, userID, "second")
	if err := registry.Claim(second); err != nil {
		t.Errorf("Claim() after release error = %v", err)
	}
}

func TestStaleReleaseKeepsSuccessor(t *testing.T) {
	registry := NewRunRegistry()
	sessionID := uuid.New()
	userID := uuid.New()

	first := run.New(sessionID, userID, "first")
	if err := registry.Claim(first); err != nil {
		t.Fatalf("Claim(first) error = %v", err)
	}
	registry.Release(first)

	second := run.New(sessionID, userID, "second")
	if err := registry.Claim(second); err != nil {
		t.Fatalf("Claim(second) error = %v", err)
	}

	// A duplicate release of the finished run must not evict its successor.
	registry.Release(first)

	if got, found := registry.GetBySession(sessionID); !found || got.ID != second.ID {
		t.Errorf("GetBySession() after stale release = %v, %v, want the second run", got, found)
	}
}
