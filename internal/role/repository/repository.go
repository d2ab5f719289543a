// Package repository defines persistence for company-scoped roles.
package repository

import (
	"context"
	"time"

	"loandesk/internal/role/domain"
)

// Repository defines persistence for roles. Implementations must keep reads
// non-blocking with respect to writes and make each single-role write atomic.
type Repository interface {
	// GetByID returns the role for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Role, error)
	// ListByCompany returns the company's roles ordered by name. When search is
	// non-empty, only roles whose name contains it case-insensitively are returned.
	ListByCompany(ctx context.Context, companyID, search string) ([]*domain.Role, error)
	// Create persists the role. The role must have ID set.
	Create(ctx context.Context, role *domain.Role) error
	// UpdatePermissions atomically replaces the role's permission set.
	UpdatePermissions(ctx context.Context, roleID string, perms domain.PermissionSet, updatedAt time.Time) error
}
