package repository

import (
	"context"
	"sort"
	"sync"

	"loandesk/internal/audit/domain"
)

// MemoryRepository is an in-memory audit store for tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []*domain.AuditLog
}

// NewMemoryRepository returns an empty in-memory audit repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// GetByID returns the audit log for id, or nil if not found.
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.AuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.entries {
		if a.ID == id {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

// ListByCompany returns audit logs for the company, newest first.
func (r *MemoryRepository) ListByCompany(ctx context.Context, companyID string, limit, offset int32) ([]*domain.AuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.AuditLog
	for _, a := range r.entries {
		if a.CompanyID == companyID {
			copied := *a
			out = append(out, &copied)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if int(offset) >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if int(limit) > 0 && int(limit) < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// Create stores the audit log entry.
func (r *MemoryRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *a
	r.entries = append(r.entries, &copied)
	return nil
}

// All returns every stored entry in insertion order. Test helper.
func (r *MemoryRepository) All() []*domain.AuditLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.AuditLog, 0, len(r.entries))
	for _, a := range r.entries {
		copied := *a
		out = append(out, &copied)
	}
	return out
}
