package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"loandesk/internal/role/domain"
)

// MemoryRepository is an in-memory Repository for tests and DB-less dev mode.
// Reads take a shared lock so validation never blocks behind a permission edit.
type MemoryRepository struct {
	mu sync.RWMutex
	m  map[string]*domain.Role
}

// NewMemoryRepository returns an empty in-memory role repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]*domain.Role)}
}

// GetByID returns the role for id, or nil if not found.
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	role, ok := r.m[id]
	if !ok {
		return nil, nil
	}
	return copyRole(role), nil
}

// ListByCompany returns the company's roles ordered by name, optionally
// filtered by a case-insensitive substring match on name.
func (r *MemoryRepository) ListByCompany(ctx context.Context, companyID, search string) ([]*domain.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	needle := strings.ToLower(search)
	var out []*domain.Role
	for _, role := range r.m {
		if role.CompanyID != companyID {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(role.Name), needle) {
			continue
		}
		out = append(out, copyRole(role))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Create persists the role in memory.
func (r *MemoryRepository) Create(ctx context.Context, role *domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[role.ID] = copyRole(role)
	return nil
}

// UpdatePermissions replaces the role's permission set. No-op for an unknown id.
func (r *MemoryRepository) UpdatePermissions(ctx context.Context, roleID string, perms domain.PermissionSet, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if role, ok := r.m[roleID]; ok {
		role.Permissions = perms.Clone()
		role.UpdatedAt = updatedAt
	}
	return nil
}

func copyRole(role *domain.Role) *domain.Role {
	copied := *role
	copied.Permissions = role.Permissions.Clone()
	return &copied
}
