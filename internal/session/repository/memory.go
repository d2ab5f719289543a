package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"loandesk/internal/session/domain"
)

// MemoryRepository is an in-memory session store for tests and local development.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewMemoryRepository returns an empty in-memory session repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[string]*domain.Session)}
}

// GetByTokenHash returns the session for the given token hash, or nil if not found.
func (r *MemoryRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[tokenHash]
	if !ok {
		return nil, nil
	}
	return copySession(s), nil
}

// Create stores the session. Fails if a session with the same token hash exists.
func (r *MemoryRepository) Create(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.TokenHash]; ok {
		return fmt.Errorf("session %q already exists", s.TokenHash)
	}
	r.sessions[s.TokenHash] = copySession(s)
	return nil
}

// ExtendExpiry moves the session's expiry forward, never backward.
func (r *MemoryRepository) ExtendExpiry(ctx context.Context, tokenHash string, expiresAt, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[tokenHash]
	if !ok {
		return nil
	}
	if s.ExpiresAt.Before(expiresAt) {
		s.ExpiresAt = expiresAt
		seen := at
		s.LastSeenAt = &seen
	}
	return nil
}

// Revoke marks the session as revoked, keeping the first revocation time.
func (r *MemoryRepository) Revoke(ctx context.Context, tokenHash string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[tokenHash]
	if !ok || s.RevokedAt != nil {
		return nil
	}
	revoked := at
	s.RevokedAt = &revoked
	return nil
}

// RevokeAllByUser revokes every not-yet-revoked session of the given user.
func (r *MemoryRepository) RevokeAllByUser(ctx context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.UserID == userID && s.RevokedAt == nil {
			revoked := at
			s.RevokedAt = &revoked
		}
	}
	return nil
}

// SetFlagged records whether the session was seen from a mismatched device.
func (r *MemoryRepository) SetFlagged(ctx context.Context, tokenHash string, flagged bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[tokenHash]; ok {
		s.Flagged = flagged
	}
	return nil
}

// UpdateLastSeen sets the session's last-seen timestamp.
func (r *MemoryRepository) UpdateLastSeen(ctx context.Context, tokenHash string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[tokenHash]; ok {
		seen := at
		s.LastSeenAt = &seen
	}
	return nil
}

// Delete removes the session. Missing sessions are not an error.
func (r *MemoryRepository) Delete(ctx context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, tokenHash)
	return nil
}

// DeleteExpiredBefore removes every session whose expiry predates cutoff.
func (r *MemoryRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for hash, s := range r.sessions {
		if s.ExpiresAt.Before(cutoff) {
			delete(r.sessions, hash)
			n++
		}
	}
	return n, nil
}

// Len reports the number of stored sessions. Test helper.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func copySession(s *domain.Session) *domain.Session {
	out := *s
	if s.RevokedAt != nil {
		revoked := *s.RevokedAt
		out.RevokedAt = &revoked
	}
	if s.LastSeenAt != nil {
		seen := *s.LastSeenAt
		out.LastSeenAt = &seen
	}
	return &out
}
