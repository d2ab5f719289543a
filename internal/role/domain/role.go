// Package domain holds the role aggregate and the closed permission-key catalog.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// Role is a named, company-scoped permission set. Two companies may each have a
// role called "Manager" with entirely independent permissions.
type Role struct {
	ID          string
	CompanyID   string
	Name        string
	Permissions PermissionSet
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate validates the role for persistence, including that every permission
// key resolves against the catalog. Unknown keys are rejected, never stored.
func (r *Role) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.CompanyID == "" {
		return errors.New("company_id is required")
	}
	for k := range r.Permissions {
		if !KnownKey(k) {
			return fmt.Errorf("unknown permission key %q", k)
		}
	}
	return nil
}
