// Package service implements the session manager: issuing, validating,
// refreshing, and revoking opaque session tokens bound to a device fingerprint.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"loandesk/internal/fingerprint"
	"loandesk/internal/identity/domain"
	"loandesk/internal/security"
	sessiondomain "loandesk/internal/session/domain"
	"loandesk/internal/session/repository"
)

// Session failure modes, reported in this order: an unknown token is NotFound,
// a known-but-revoked one is Revoked, then Expired, then DeviceMismatch. Only
// the first failing check is reported.
var (
	ErrNotFound       = errors.New("session not found")
	ErrRevoked        = errors.New("session revoked")
	ErrExpired        = errors.New("session expired")
	ErrDeviceMismatch = errors.New("session device mismatch")
)

// MismatchDecision is the outcome of the device-mismatch policy for a single
// validation. Reject fails the validation; Flag marks the session for step-up
// review while letting the request through.
type MismatchDecision struct {
	Reject bool
	Flag   bool
}

// MismatchPolicy decides what happens when a presented fingerprint differs
// from the one the session was bound to at issuance.
type MismatchPolicy interface {
	Decide(ctx context.Context, bound, presented fingerprint.Fingerprint) (MismatchDecision, error)
}

// Manager issues, validates, refreshes, and revokes sessions. It is the only
// component that touches the session store.
type Manager struct {
	sessions repository.Repository
	policy   MismatchPolicy
	ttl      time.Duration
	grace    time.Duration
	now      func() time.Time
}

// NewManager returns a session Manager with the given store, device-mismatch
// policy, session TTL, and garbage-collection grace window.
func NewManager(sessions repository.Repository, policy MismatchPolicy, ttl, grace time.Duration) *Manager {
	return &Manager{
		sessions: sessions,
		policy:   policy,
		ttl:      ttl,
		grace:    grace,
		now:      time.Now,
	}
}

// Issue creates a session for the identity, bound to the fingerprint captured
// at login, and returns the opaque token together with the stored record. The
// token is returned exactly once; the store keeps only its hash.
func (m *Manager) Issue(ctx context.Context, ident *domain.Identity, fp fingerprint.Fingerprint) (string, *sessiondomain.Session, error) {
	now := m.now().UTC()
	for attempt := 0; attempt < 2; attempt++ {
		token, err := security.GenerateSessionToken()
		if err != nil {
			return "", nil, err
		}
		s := &sessiondomain.Session{
			TokenHash:   security.HashSessionToken(token),
			UserID:      ident.ID,
			CompanyID:   ident.CompanyID,
			Fingerprint: fp,
			IssuedAt:    now,
			ExpiresAt:   now.Add(m.ttl),
		}
		existing, err := m.sessions.GetByTokenHash(ctx, s.TokenHash)
		if err != nil {
			return "", nil, err
		}
		if existing != nil {
			// A 256-bit collision means the token source is broken, not unlucky.
			continue
		}
		if err := m.sessions.Create(ctx, s); err != nil {
			return "", nil, err
		}
		return token, s, nil
	}
	return "", nil, fmt.Errorf("session token collision: token generation integrity failure")
}

// Validate resolves the token to its session and checks it in the documented
// order: NotFound, Revoked, Expired, DeviceMismatch. Sessions past expiry plus
// the grace window are purged on lookup.
func (m *Manager) Validate(ctx context.Context, token string, fp fingerprint.Fingerprint) (*sessiondomain.Session, error) {
	now := m.now().UTC()
	s, err := m.sessions.GetByTokenHash(ctx, security.HashSessionToken(token))
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrNotFound
	}
	if s.Revoked() {
		return nil, ErrRevoked
	}
	if s.ExpiredAt(now) {
		if s.PurgeableAt(now, m.grace) {
			// Best effort; the session already fails validation either way.
			_ = m.sessions.Delete(ctx, s.TokenHash)
		}
		return nil, ErrExpired
	}
	if !s.Fingerprint.Equal(fp) {
		decision, err := m.decideMismatch(ctx, s.Fingerprint, fp)
		if err != nil {
			return nil, err
		}
		if decision.Reject {
			return nil, ErrDeviceMismatch
		}
		if decision.Flag && !s.Flagged {
			if err := m.sessions.SetFlagged(ctx, s.TokenHash, true); err != nil {
				return nil, err
			}
			s.Flagged = true
		}
	}
	_ = m.sessions.UpdateLastSeen(ctx, s.TokenHash, now)
	return s, nil
}

// Refresh extends a valid session's expiry to now + TTL. The expiry never
// moves backward; the token is not rotated. A session failing Validate cannot
// be refreshed, and the validation error is returned unchanged.
func (m *Manager) Refresh(ctx context.Context, token string, fp fingerprint.Fingerprint) (*sessiondomain.Session, error) {
	s, err := m.Validate(ctx, token, fp)
	if err != nil {
		return nil, err
	}
	now := m.now().UTC()
	expiresAt := now.Add(m.ttl)
	if expiresAt.After(s.ExpiresAt) {
		if err := m.sessions.ExtendExpiry(ctx, s.TokenHash, expiresAt, now); err != nil {
			return nil, err
		}
		s.ExpiresAt = expiresAt
	}
	return s, nil
}

// Revoke marks the session revoked. Idempotent: revoking an unknown or
// already-revoked token succeeds and changes nothing. Revocation is terminal.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	return m.sessions.Revoke(ctx, security.HashSessionToken(token), m.now().UTC())
}

// RevokeAllByUser revokes every session of the user, e.g. after a password reset.
func (m *Manager) RevokeAllByUser(ctx context.Context, userID string) error {
	return m.sessions.RevokeAllByUser(ctx, userID, m.now().UTC())
}

// Sweep purges sessions past expiry plus the grace window and returns how many
// were removed. Correctness never depends on the sweep; it bounds storage.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	return m.sessions.DeleteExpiredBefore(ctx, m.now().UTC().Add(-m.grace))
}

// decideMismatch consults the policy, failing closed: no policy or a policy
// error rejects the validation.
func (m *Manager) decideMismatch(ctx context.Context, bound, presented fingerprint.Fingerprint) (MismatchDecision, error) {
	if m.policy == nil {
		return MismatchDecision{Reject: true}, nil
	}
	decision, err := m.policy.Decide(ctx, bound, presented)
	if err != nil {
		return MismatchDecision{}, fmt.Errorf("device mismatch policy: %w", err)
	}
	return decision, nil
}
