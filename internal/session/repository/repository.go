package repository

import (
	"context"
	"time"

	"loandesk/internal/session/domain"
)

// Repository defines persistence for sessions, keyed by token hash.
type Repository interface {
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	ExtendExpiry(ctx context.Context, tokenHash string, expiresAt, at time.Time) error
	Revoke(ctx context.Context, tokenHash string, at time.Time) error
	RevokeAllByUser(ctx context.Context, userID string, at time.Time) error
	SetFlagged(ctx context.Context, tokenHash string, flagged bool) error
	UpdateLastSeen(ctx context.Context, tokenHash string, at time.Time) error
	Delete(ctx context.Context, tokenHash string) error
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
