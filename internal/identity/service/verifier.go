// Package service implements credential verification and the password-reset
// flow on top of the identity repository.
package service

import (
	"context"
	"errors"
	"strings"

	companydomain "loandesk/internal/company/domain"
	companyrepo "loandesk/internal/company/repository"
	"loandesk/internal/identity/domain"
	"loandesk/internal/identity/repository"
	"loandesk/internal/security"
)

// ErrInvalidCredentials is returned for an unknown username or a wrong
// password alike, so a caller cannot probe which usernames exist.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Messages surfaced to the login form for missing fields.
const (
	MsgUsernameRequired = "Username Required!"
	MsgPasswordRequired = "Password Required!"
)

// MissingFieldsError aggregates every missing login field into one message
// list. Validation never stops at the first violation.
type MissingFieldsError struct {
	Messages []string
}

func (e *MissingFieldsError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// Verifier validates username/password pairs against the identity store.
// It decides only; persisting anything on success is the session manager's job.
type Verifier struct {
	identities repository.Repository
	companies  companyrepo.Repository
	hasher     *security.Hasher
}

// NewVerifier returns a Verifier backed by the given identity repository and
// hasher. companies may be nil, in which case tenant status is not checked.
func NewVerifier(identities repository.Repository, companies companyrepo.Repository, hasher *security.Hasher) *Verifier {
	return &Verifier{identities: identities, companies: companies, hasher: hasher}
}

// Verify checks the credential pair and returns the matching identity.
// Empty fields short-circuit with a *MissingFieldsError listing every missing
// field; any credential mismatch returns ErrInvalidCredentials.
func (v *Verifier) Verify(ctx context.Context, username, password string) (*domain.Identity, error) {
	username = strings.TrimSpace(username)

	var missing []string
	if username == "" {
		missing = append(missing, MsgUsernameRequired)
	}
	if password == "" {
		missing = append(missing, MsgPasswordRequired)
	}
	if len(missing) > 0 {
		return nil, &MissingFieldsError{Messages: missing}
	}

	ident, err := v.identities.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if ident == nil || ident.Status != domain.StatusActive || ident.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := v.hasher.Compare(ident.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	// A suspended tenant locks out every one of its users. Reported as the
	// same credential error so suspension is not probeable either.
	if v.companies != nil {
		company, err := v.companies.GetByID(ctx, ident.CompanyID)
		if err != nil {
			return nil, err
		}
		if company == nil || company.Status != companydomain.CompanyStatusActive {
			return nil, ErrInvalidCredentials
		}
	}
	return ident, nil
}
