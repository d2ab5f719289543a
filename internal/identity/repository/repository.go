// Package repository defines persistence for identities (the user directory).
package repository

import (
	"context"
	"time"

	"loandesk/internal/identity/domain"
)

// Repository defines persistence for identities.
type Repository interface {
	// GetByID returns the identity for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	// GetByUsername returns the identity for username, or nil if not found.
	// Lookup is case-insensitive.
	GetByUsername(ctx context.Context, username string) (*domain.Identity, error)
	// Create persists the identity. The identity must have ID set.
	Create(ctx context.Context, i *domain.Identity) error
	// Update replaces the stored identity by ID.
	Update(ctx context.Context, i *domain.Identity) error
	// UpdatePasswordHash replaces the stored credential hash.
	UpdatePasswordHash(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
}
