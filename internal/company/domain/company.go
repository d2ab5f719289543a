package domain

import (
	"errors"
	"time"
)

// Company represents a tenant. Users, roles, and sessions are partitioned by
// company; no cross-company visibility exists anywhere in the core.
type Company struct {
	ID        string
	Name      string
	Status    CompanyStatus
	CreatedAt time.Time
}

type CompanyStatus string

const (
	CompanyStatusActive    CompanyStatus = "active"
	CompanyStatusSuspended CompanyStatus = "suspended"
)

// Validate validates the company for persistence. Returns an error describing the first validation failure.
func (c *Company) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	if c.Status == "" {
		c.Status = CompanyStatusActive
	}
	return nil
}
