// Package service implements the role/permission resolver: point-in-time
// permission queries and administrator-gated permission-set mutation.
package service

import (
	"context"
	"errors"
	"time"

	"loandesk/internal/role/domain"
	"loandesk/internal/role/repository"
)

// Sentinel errors for the resolver; the HTTP layer maps them to responses.
var (
	// ErrUnknownRole is returned when a role id does not exist or belongs to a
	// different company than the caller. Cross-tenant lookups are rejected, never
	// silently scoped.
	ErrUnknownRole = errors.New("unknown role")
	// ErrForbidden is returned when the requesting identity may not edit roles,
	// or when an edit would grant permissions the requester does not hold itself.
	ErrForbidden = errors.New("forbidden")
)

// Resolver answers permission queries and applies permission-set edits for one
// company-scoped role store.
type Resolver struct {
	roles repository.Repository
}

// NewResolver returns a Resolver backed by the given role repository.
func NewResolver(roles repository.Repository) *Resolver {
	return &Resolver{roles: roles}
}

// ListRoles returns the company's roles ordered by name. search, when
// non-empty, filters by case-insensitive substring match on the role name.
func (r *Resolver) ListRoles(ctx context.Context, companyID, search string) ([]*domain.Role, error) {
	return r.roles.ListByCompany(ctx, companyID, search)
}

// ResolvePermissions returns the permission set of roleID. The lookup is
// scoped to companyID: a role existing under another company yields
// ErrUnknownRole, same as a role that does not exist at all.
func (r *Resolver) ResolvePermissions(ctx context.Context, companyID, roleID string) (domain.PermissionSet, error) {
	role, err := r.roles.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if role == nil || role.CompanyID != companyID {
		return nil, ErrUnknownRole
	}
	return role.Permissions.Clone(), nil
}

// HasPermission reports whether roleID holds key. Pure set membership; no
// wildcards, no inheritance.
func (r *Resolver) HasPermission(ctx context.Context, companyID, roleID string, key domain.Key) (bool, error) {
	perms, err := r.ResolvePermissions(ctx, companyID, roleID)
	if err != nil {
		return false, err
	}
	return perms.Has(key), nil
}

// SetPermissions replaces the permission set of targetRoleID on behalf of the
// identity holding requesterRoleID in companyID. The requester's own role must
// hold the manage-roles permission, and the new set must not exceed the
// requester's own resolved set: an editor can never grant what it does not hold.
func (r *Resolver) SetPermissions(ctx context.Context, companyID, requesterRoleID, targetRoleID string, newSet domain.PermissionSet) error {
	requesterPerms, err := r.ResolvePermissions(ctx, companyID, requesterRoleID)
	if err != nil {
		return err
	}
	if !requesterPerms.Has(domain.ManageRoles) {
		return ErrForbidden
	}
	if !newSet.SubsetOf(requesterPerms) {
		return ErrForbidden
	}

	target, err := r.roles.GetByID(ctx, targetRoleID)
	if err != nil {
		return err
	}
	if target == nil || target.CompanyID != companyID {
		return ErrUnknownRole
	}

	updated := domain.Role{
		ID:          target.ID,
		CompanyID:   target.CompanyID,
		Name:        target.Name,
		Permissions: newSet,
	}
	if err := updated.Validate(); err != nil {
		return err
	}
	return r.roles.UpdatePermissions(ctx, targetRoleID, newSet, time.Now().UTC())
}
