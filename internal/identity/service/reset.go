package service

import (
	"context"
	"errors"
	"time"

	"loandesk/internal/identity/domain"
	"loandesk/internal/identity/repository"
	"loandesk/internal/security"
)

// ErrInvalidResetToken is returned when a reset token does not check out or its
// subject no longer exists.
var ErrInvalidResetToken = errors.New("invalid or expired reset token")

// PasswordPolicyError reports why a proposed password is too weak. Its message
// is safe to show to the end user.
type PasswordPolicyError struct {
	Reason string
}

func (e *PasswordPolicyError) Error() string { return e.Reason }

// SessionRevoker revokes every session of a user. Satisfied by the session manager.
type SessionRevoker interface {
	RevokeAllByUser(ctx context.Context, userID string) error
}

// ResetService implements the password-reset flow: a signed, short-lived token
// is issued for a username and later exchanged for a new password. Completing
// a reset revokes all of the user's sessions.
type ResetService struct {
	identities repository.Repository
	hasher     *security.Hasher
	tokens     *security.ResetTokenProvider
	sessions   SessionRevoker
}

// NewResetService returns a ResetService with the given dependencies.
func NewResetService(identities repository.Repository, hasher *security.Hasher, tokens *security.ResetTokenProvider, sessions SessionRevoker) *ResetService {
	return &ResetService{identities: identities, hasher: hasher, tokens: tokens, sessions: sessions}
}

// Request issues a reset token for username. To avoid user enumeration the
// result for an unknown or disabled user is an empty token and no error; the
// caller delivers the token out of band (email) either way.
func (s *ResetService) Request(ctx context.Context, username string) (string, error) {
	ident, err := s.identities.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if ident == nil || ident.Status != domain.StatusActive {
		return "", nil
	}
	token, _, err := s.tokens.Issue(ident.ID, ident.CompanyID)
	if err != nil {
		return "", err
	}
	return token, nil
}

// Complete validates the reset token, applies the new password, and revokes
// every session of the user.
func (s *ResetService) Complete(ctx context.Context, token, newPassword string) error {
	userID, _, err := s.tokens.Validate(token)
	if err != nil {
		return ErrInvalidResetToken
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	ident, err := s.identities.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if ident == nil || ident.Status != domain.StatusActive {
		return ErrInvalidResetToken
	}
	hash, err := s.hasher.Hash([]byte(newPassword))
	if err != nil {
		return err
	}
	if err := s.identities.UpdatePasswordHash(ctx, ident.ID, hash, time.Now().UTC()); err != nil {
		return err
	}
	if s.sessions != nil {
		if err := s.sessions.RevokeAllByUser(ctx, ident.ID); err != nil {
			return err
		}
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 12 {
		return &PasswordPolicyError{Reason: "password must be at least 12 characters"}
	}
	var hasUpper, hasLower, hasNumber, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasNumber = true
		default:
			hasSymbol = true
		}
	}
	if !hasUpper {
		return &PasswordPolicyError{Reason: "password must contain at least one uppercase letter"}
	}
	if !hasLower {
		return &PasswordPolicyError{Reason: "password must contain at least one lowercase letter"}
	}
	if !hasNumber {
		return &PasswordPolicyError{Reason: "password must contain at least one number"}
	}
	if !hasSymbol {
		return &PasswordPolicyError{Reason: "password must contain at least one symbol"}
	}
	return nil
}
