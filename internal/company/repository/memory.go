package repository

import (
	"context"
	"sync"

	"loandesk/internal/company/domain"
)

// MemoryRepository is an in-memory Repository for tests and DB-less dev mode.
type MemoryRepository struct {
	mu sync.RWMutex
	m  map[string]*domain.Company
}

// NewMemoryRepository returns an empty in-memory company repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]*domain.Company)}
}

// GetByID returns the company for id, or nil if not found.
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.m[id]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

// Create persists the company in memory.
func (r *MemoryRepository) Create(ctx context.Context, c *domain.Company) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *c
	r.m[c.ID] = &copied
	return nil
}
