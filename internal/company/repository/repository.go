// Package repository defines persistence for companies (tenants).
package repository

import (
	"context"

	"loandesk/internal/company/domain"
)

// Repository defines persistence for companies.
type Repository interface {
	// GetByID returns the company for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Company, error)
	// Create persists the company. The company must have ID set.
	Create(ctx context.Context, c *domain.Company) error
}
