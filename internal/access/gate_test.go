package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"loandesk/internal/fingerprint"
	identitydomain "loandesk/internal/identity/domain"
	identityrepo "loandesk/internal/identity/repository"
	roledomain "loandesk/internal/role/domain"
	rolerepo "loandesk/internal/role/repository"
	roleservice "loandesk/internal/role/service"
	sessionrepo "loandesk/internal/session/repository"
	sessionservice "loandesk/internal/session/service"
)

type rejectMismatch struct{}

func (rejectMismatch) Decide(ctx context.Context, bound, presented fingerprint.Fingerprint) (sessionservice.MismatchDecision, error) {
	return sessionservice.MismatchDecision{Reject: true}, nil
}

var device = fingerprint.Fingerprint{IP: "203.0.113.9", UserAgent: "Mozilla/5.0"}

type fixture struct {
	gate       *Gate
	sessions   *sessionservice.Manager
	identities *identityrepo.MemoryRepository
	officer    *identitydomain.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	roles := rolerepo.NewMemoryRepository()
	officerRole := &roledomain.Role{
		ID: "role-officer", CompanyID: "company-a", Name: "Loan Officer",
		Permissions: roledomain.NewPermissionSet(roledomain.PermDashboardView, roledomain.PermLoansView),
		CreatedAt:   now, UpdatedAt: now,
	}
	if err := roles.Create(ctx, officerRole); err != nil {
		t.Fatalf("Create role: %v", err)
	}

	identities := identityrepo.NewMemoryRepository()
	officer := &identitydomain.Identity{
		ID: "user-jdoe", CompanyID: "company-a", RoleID: "role-officer",
		Username: "jdoe", PasswordHash: "x", Status: identitydomain.StatusActive,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := identities.Create(ctx, officer); err != nil {
		t.Fatalf("Create identity: %v", err)
	}

	sessions := sessionservice.NewManager(sessionrepo.NewMemoryRepository(), rejectMismatch{}, time.Hour, 24*time.Hour)
	gate := NewGate(sessions, roleservice.NewResolver(roles), identities)
	return &fixture{gate: gate, sessions: sessions, identities: identities, officer: officer}
}

func (f *fixture) login(t *testing.T) string {
	t.Helper()
	token, _, err := f.sessions.Issue(context.Background(), f.officer, device)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return token
}

func TestAuthorize_Allowed(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	p, err := f.gate.Authorize(context.Background(), token, device, roledomain.PermLoansView)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if p.Identity.ID != f.officer.ID {
		t.Errorf("Identity.ID = %q, want %q", p.Identity.ID, f.officer.ID)
	}
	if p.Session == nil || p.Session.CompanyID != "company-a" {
		t.Errorf("Session = %+v", p.Session)
	}
}

func TestAuthorize_MissingPermissionForbidden(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	if _, err := f.gate.Authorize(context.Background(), token, device, roledomain.PermLoansEdit); !errors.Is(err, ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}

func TestAuthenticate_NoSessionUnauthenticated(t *testing.T) {
	f := newFixture(t)

	_, err := f.gate.Authenticate(context.Background(), "never-issued", device)
	var unauth *UnauthenticatedError
	if !errors.As(err, &unauth) {
		t.Fatalf("err = %v, want *UnauthenticatedError", err)
	}
	if !errors.Is(err, sessionservice.ErrNotFound) {
		t.Errorf("reason = %v, want ErrNotFound", unauth.Reason)
	}
}

func TestAuthenticate_RevokedUnauthenticated(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)
	if err := f.sessions.Revoke(context.Background(), token); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	_, err := f.gate.Authenticate(context.Background(), token, device)
	var unauth *UnauthenticatedError
	if !errors.As(err, &unauth) || !errors.Is(err, sessionservice.ErrRevoked) {
		t.Errorf("err = %v, want unauthenticated with ErrRevoked", err)
	}
}

func TestAuthenticate_DeviceMismatchUnauthenticated(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)
	other := fingerprint.Fingerprint{IP: "198.51.100.7", UserAgent: "curl/8.0"}

	_, err := f.gate.Authenticate(context.Background(), token, other)
	var unauth *UnauthenticatedError
	if !errors.As(err, &unauth) || !errors.Is(err, sessionservice.ErrDeviceMismatch) {
		t.Errorf("err = %v, want unauthenticated with ErrDeviceMismatch", err)
	}
}

func TestAuthenticate_DisabledIdentityUnauthenticated(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)
	f.officer.Status = identitydomain.StatusDisabled
	if err := f.identities.Update(context.Background(), f.officer); err != nil {
		t.Fatalf("Update: %v", err)
	}

	_, err := f.gate.Authenticate(context.Background(), token, device)
	var unauth *UnauthenticatedError
	if !errors.As(err, &unauth) {
		t.Errorf("err = %v, want *UnauthenticatedError for a disabled account", err)
	}
}

func TestAuthenticate_DanglingRoleHasNoPermissions(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)
	f.officer.RoleID = "role-deleted"
	if err := f.identities.Update(context.Background(), f.officer); err != nil {
		t.Fatalf("Update: %v", err)
	}

	p, err := f.gate.Authenticate(context.Background(), token, device)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if len(p.Permissions) != 0 {
		t.Errorf("Permissions = %v, want empty set", p.Permissions.Keys())
	}
	if _, err := f.gate.Authorize(context.Background(), token, device, roledomain.PermDashboardView); !errors.Is(err, ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}
