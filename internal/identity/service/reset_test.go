package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"loandesk/internal/identity/domain"
	"loandesk/internal/security"
)

type fakeRevoker struct {
	revokedUsers []string
}

func (f *fakeRevoker) RevokeAllByUser(ctx context.Context, userID string) error {
	f.revokedUsers = append(f.revokedUsers, userID)
	return nil
}

func newTestResetService(t *testing.T) (*ResetService, *Verifier, *fakeRevoker, func(username, password string) *domain.Identity) {
	t.Helper()
	v, repo, hasher := newTestVerifier(t)
	tokens, err := security.NewTestResetTokenProvider(30 * time.Minute)
	if err != nil {
		t.Fatalf("NewTestResetTokenProvider: %v", err)
	}
	revoker := &fakeRevoker{}
	svc := NewResetService(repo, hasher, tokens, revoker)
	seed := func(username, password string) *domain.Identity {
		return seedIdentity(t, repo, hasher, username, password, domain.StatusActive)
	}
	return svc, v, revoker, seed
}

func TestReset_RoundTrip(t *testing.T) {
	svc, v, revoker, seed := newTestResetService(t)
	ident := seed("jdoe", "Old$Password123")
	ctx := context.Background()

	token, err := svc.Request(ctx, "jdoe")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if token == "" {
		t.Fatal("Request should return a token for a known user")
	}

	const newPassword = "New$Password456"
	if err := svc.Complete(ctx, token, newPassword); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if _, err := v.Verify(ctx, "jdoe", "Old$Password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Error("old password should no longer verify")
	}
	if _, err := v.Verify(ctx, "jdoe", newPassword); err != nil {
		t.Errorf("new password should verify, got %v", err)
	}
	if len(revoker.revokedUsers) != 1 || revoker.revokedUsers[0] != ident.ID {
		t.Errorf("revokedUsers = %v, want [%s]", revoker.revokedUsers, ident.ID)
	}
}

func TestReset_UnknownUserNoEnumeration(t *testing.T) {
	svc, _, _, _ := newTestResetService(t)

	token, err := svc.Request(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if token != "" {
		t.Error("unknown user must not yield a token, and must not error either")
	}
}

func TestReset_BadToken(t *testing.T) {
	svc, _, _, _ := newTestResetService(t)

	if err := svc.Complete(context.Background(), "garbage", "New$Password456"); !errors.Is(err, ErrInvalidResetToken) {
		t.Errorf("err = %v, want ErrInvalidResetToken", err)
	}
}

func TestReset_WeakPasswordRejected(t *testing.T) {
	svc, _, _, seed := newTestResetService(t)
	seed("jdoe", "Old$Password123")
	ctx := context.Background()

	token, err := svc.Request(ctx, "jdoe")
	if err != nil || token == "" {
		t.Fatalf("Request: token=%q err=%v", token, err)
	}
	for _, weak := range []string{"short", "alllowercase1!", "NOLOWERCASE1!", "NoNumbersHere!", "NoSymbols1234"} {
		if err := svc.Complete(ctx, token, weak); err == nil {
			t.Errorf("Complete(%q) should reject weak password", weak)
		}
	}
}
