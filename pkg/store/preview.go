package store

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// PreviewStore mints opaque short-lived handles for recording poster frames.
// A handle resolves to the clip whose poster it serves while the owning run
// is alive; revocation or TTL expiry kills it.
type PreviewStore struct {
	cache *cache.Cache
}

func NewPreviewStore(ttl time.Duration) *PreviewStore {
	return &PreviewStore{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

// Create mints a fresh handle for the clip. Handles are single-purpose:
// every call returns a new one, so revoking one run's previews can never
// break another run that surfaced the same clip.
func (s *PreviewStore) Create(clipID uuid.UUID) string {
	handle := strings.ReplaceAll(uuid.New().String(), "-", "")
	s.cache.Set(handle, clipID, cache.DefaultExpiration)
	return handle
}

func (s *PreviewStore) Resolve(handle string) (uuid.UUID, bool) {
	if x, found := s.cache.Get(handle); found {
		return x.(uuid.UUID), true
	}
	return uuid.Nil, false
}

// Revoke invalidates a handle. Revoking an unknown or already revoked handle
// is a no-op.
func (s *PreviewStore) Revoke(handle string) {
	s.cache.Delete(handle)
}
