package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCreateMintsSinglePurposeHandles(t *testing.T) {
	s := NewPreviewStore(time.Minute)
	clipID := uuid.New()

	h1 := s.Create(clipID)
	h2 := s.Create(clipID)
	if h1 == h2 {
		t.Fatalf("Create() returned the same handle twice: %s", h1)
	}

	for _, h := range []string{h1, h2} {
		got, ok := s.Resolve(h)
		if !ok {
			t.Fatalf("Resolve(%s) = not found", h)
		}
		if got != clipID {
			t.Errorf("Resolve(%s) = %s, want %s", h, got, clipID)
		}
	}
}

func TestResolveUnknownHandle(t *testing.T) {
	s := NewPreviewStore(time.Minute)

	got, ok := s.Resolve("nonexistent")
	if ok {
		t.Error("Resolve() found a handle that was never minted")
	}
	if got != uuid.Nil {
		t.Errorf("Resolve() = %s, want uuid.Nil", got)
	}
}

func TestRevokeIsIdempotent(t *testing.T) {
	s := NewPreviewStore(time.Minute)
	clipID := uuid.New()

	kept := s.Create(clipID)
	revoked := s.Create(clipID)

	s.Revoke(revoked)
	s.Revoke(revoked)
	s.Revoke("never existed")

	if _, ok := s.Resolve(revoked); ok {
		t.Error("Resolve() found a revoked handle")
	}
	// Handles are single-purpose: revoking one run's handle must not break
	// another handle for the same clip.
	if got, ok := s.Resolve(kept); !ok || got != clipID {
		t.Errorf("Resolve(kept) = %s, %v, want %s intact", got, ok, clipID)
	}
}

func TestHandleExpiry(t *testing.T) {
	s := NewPreviewStore(20 * time.Millisecond)
	handle := s.Create(uuid.New())

	time.Sleep(50 * time.Millisecond)

	if _, ok := s.Resolve(handle); ok {
		t.Error("Resolve() found a handle past its TTL")
	}
}
