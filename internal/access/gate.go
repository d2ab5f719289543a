// Package access composes session validation and permission resolution into a
// single authorization decision per request. Every failure collapses into one
// of two caller-visible outcomes: unauthenticated (go to login) or forbidden.
// Anything else is an internal error the transport reports generically.
package access

import (
	"context"
	"errors"
	"fmt"

	"loandesk/internal/fingerprint"
	identitydomain "loandesk/internal/identity/domain"
	identityrepo "loandesk/internal/identity/repository"
	roledomain "loandesk/internal/role/domain"
	roleservice "loandesk/internal/role/service"
	sessiondomain "loandesk/internal/session/domain"
	sessionservice "loandesk/internal/session/service"
)

// ErrForbidden is returned when the caller is authenticated but the resolved
// permission set does not allow the requested action.
var ErrForbidden = errors.New("access forbidden")

// UnauthenticatedError means the request carries no usable session and the
// caller must log in again. Reason preserves the single session failure for
// logging; it is never shown to the end user.
type UnauthenticatedError struct {
	Reason error
}

func (e *UnauthenticatedError) Error() string {
	return fmt.Sprintf("unauthenticated: %v", e.Reason)
}

func (e *UnauthenticatedError) Unwrap() error { return e.Reason }

// Principal is the identity context resolved for an authenticated request:
// the session, the identity it proves, and the identity's permission set.
type Principal struct {
	Session     *sessiondomain.Session
	Identity    *identitydomain.Identity
	Permissions roledomain.PermissionSet
}

// Allows reports whether the principal's permission set contains key.
func (p *Principal) Allows(key roledomain.Key) bool {
	return p.Permissions.Has(key)
}

// Gate is the per-request authorization entry point for protected handlers.
type Gate struct {
	sessions   *sessionservice.Manager
	roles      *roleservice.Resolver
	identities identityrepo.Repository
}

// NewGate returns a Gate over the given session manager, role resolver, and
// identity store.
func NewGate(sessions *sessionservice.Manager, roles *roleservice.Resolver, identities identityrepo.Repository) *Gate {
	return &Gate{sessions: sessions, roles: roles, identities: identities}
}

// Authenticate validates the session token against the request fingerprint and
// resolves the principal behind it. Any session failure, a vanished identity,
// or a disabled account yields an *UnauthenticatedError; storage failures are
// returned as-is for the transport to report as a server error.
func (g *Gate) Authenticate(ctx context.Context, token string, fp fingerprint.Fingerprint) (*Principal, error) {
	s, err := g.sessions.Validate(ctx, token, fp)
	if err != nil {
		if isSessionFailure(err) {
			return nil, &UnauthenticatedError{Reason: err}
		}
		return nil, err
	}
	ident, err := g.identities.GetByID(ctx, s.UserID)
	if err != nil {
		return nil, err
	}
	if ident == nil || ident.Status != identitydomain.StatusActive {
		return nil, &UnauthenticatedError{Reason: sessionservice.ErrRevoked}
	}
	perms, err := g.roles.ResolvePermissions(ctx, ident.CompanyID, ident.RoleID)
	if err != nil {
		if errors.Is(err, roleservice.ErrUnknownRole) {
			// The identity points at a role that no longer resolves; the
			// account effectively has no permissions.
			return &Principal{Session: s, Identity: ident, Permissions: roledomain.PermissionSet{}}, nil
		}
		return nil, err
	}
	return &Principal{Session: s, Identity: ident, Permissions: perms}, nil
}

// Authorize authenticates the request and additionally requires the given
// permission, returning ErrForbidden when the principal lacks it.
func (g *Gate) Authorize(ctx context.Context, token string, fp fingerprint.Fingerprint, required roledomain.Key) (*Principal, error) {
	p, err := g.Authenticate(ctx, token, fp)
	if err != nil {
		return nil, err
	}
	if !p.Allows(required) {
		return nil, ErrForbidden
	}
	return p, nil
}

func isSessionFailure(err error) bool {
	return errors.Is(err, sessionservice.ErrNotFound) ||
		errors.Is(err, sessionservice.ErrRevoked) ||
		errors.Is(err, sessionservice.ErrExpired) ||
		errors.Is(err, sessionservice.ErrDeviceMismatch)
}
