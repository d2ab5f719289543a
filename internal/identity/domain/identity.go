// Package domain holds the identity record: the user-directory entry a session
// is issued for. The core treats it as read-only; it changes only through
// re-authentication flows or explicit admin edits.
package domain

import (
	"errors"
	"time"
)

// Identity is a dashboard user scoped to one company and bound to one role.
type Identity struct {
	ID           string
	CompanyID    string
	RoleID       string
	Username     string
	Email        string
	Phone        string
	DisplayName  string
	AvatarRef    string
	PasswordHash string
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

// Validate validates the identity for persistence. Returns an error describing the first validation failure.
func (i *Identity) Validate() error {
	if i.Username == "" {
		return errors.New("username is required")
	}
	if i.CompanyID == "" {
		return errors.New("company_id is required")
	}
	if i.RoleID == "" {
		return errors.New("role_id is required")
	}
	if i.PasswordHash == "" {
		return errors.New("password_hash is required")
	}
	if i.Status == "" {
		i.Status = StatusActive
	}
	return nil
}
