package domain

import (
	"time"

	"loandesk/internal/fingerprint"
)

// Session is a server-issued, time-bounded proof of authenticated identity,
// bound to the device fingerprint captured at login. The opaque token itself is
// never stored; the record is keyed by its SHA-256 hash.
type Session struct {
	TokenHash   string
	UserID      string
	CompanyID   string
	Fingerprint fingerprint.Fingerprint
	IssuedAt    time.Time
	ExpiresAt   time.Time
	RevokedAt   *time.Time // nil when not revoked; terminal once set
	Flagged     bool       // device mismatch observed under the permissive policy
	LastSeenAt  *time.Time
}

// Revoked reports whether the session has been revoked. Revocation is terminal.
func (s *Session) Revoked() bool {
	return s.RevokedAt != nil
}

// ExpiredAt reports whether the session is expired at the given instant.
// A session expires exactly at ExpiresAt, not after it.
func (s *Session) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// PurgeableAt reports whether the session is past expiry plus the grace window
// and may be garbage-collected without affecting correctness.
func (s *Session) PurgeableAt(now time.Time, grace time.Duration) bool {
	return !now.Before(s.ExpiresAt.Add(grace))
}
