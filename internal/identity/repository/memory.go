package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"loandesk/internal/identity/domain"
)

// MemoryRepository is an in-memory Repository for tests and DB-less dev mode.
type MemoryRepository struct {
	mu sync.RWMutex
	m  map[string]*domain.Identity
}

// NewMemoryRepository returns an empty in-memory identity repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]*domain.Identity)}
}

// GetByID returns the identity for id, or nil if not found.
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.m[id]
	if !ok {
		return nil, nil
	}
	copied := *i
	return &copied, nil
}

// GetByUsername returns the identity for username (case-insensitive), or nil if not found.
func (r *MemoryRepository) GetByUsername(ctx context.Context, username string) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	needle := strings.ToLower(username)
	for _, i := range r.m {
		if strings.ToLower(i.Username) == needle {
			copied := *i
			return &copied, nil
		}
	}
	return nil, nil
}

// Create persists the identity in memory.
func (r *MemoryRepository) Create(ctx context.Context, i *domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *i
	r.m[i.ID] = &copied
	return nil
}

// Update replaces the stored identity. No-op for an unknown id.
func (r *MemoryRepository) Update(ctx context.Context, i *domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[i.ID]; ok {
		copied := *i
		r.m[i.ID] = &copied
	}
	return nil
}

// UpdatePasswordHash replaces the stored credential hash. No-op for an unknown id.
func (r *MemoryRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.m[id]; ok {
		i.PasswordHash = passwordHash
		i.UpdatedAt = updatedAt
	}
	return nil
}
