package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidResetToken is returned when a password-reset token is malformed,
// expired, mis-signed, or carries the wrong purpose.
var ErrInvalidResetToken = errors.New("invalid reset token")

const resetPurpose = "password_reset"

// ResetClaims holds JWT claims for a password-reset token.
type ResetClaims struct {
	jwt.RegisteredClaims
	CompanyID string `json:"company_id"`
	Purpose   string `json:"purpose"`
}

// ResetTokenProvider issues and validates short-lived password-reset tokens
// signed with RS256 or ES256 (private/public key pair).
type ResetTokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	ttl        time.Duration
}

// NewResetTokenProvider returns a ResetTokenProvider signing with the given
// private key. ttl bounds how long a reset link stays usable.
func NewResetTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, ttl time.Duration) *ResetTokenProvider {
	return &ResetTokenProvider{privateKey: privateKey, publicKey: publicKey, ttl: ttl}
}

// Issue issues a reset token for the given user and company. Returns the token
// string and its expiration time.
func (p *ResetTokenProvider) Issue(userID, companyID string) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(p.ttl)
	claims := ResetClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		CompanyID: companyID,
		Purpose:   resetPurpose,
	}

	var method jwt.SigningMethod
	switch p.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", time.Time{}, ErrInvalidResetToken
	}
	token, err := jwt.NewWithClaims(method, claims).SignedString(p.privateKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Validate parses and validates a reset token (signature, exp, purpose).
// Returns the userID and companyID it was issued for.
func (p *ResetTokenProvider) Validate(tokenString string) (userID, companyID string, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &ResetClaims{}, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
			return p.publicKey, nil
		}
		return nil, ErrInvalidResetToken
	})
	if err != nil {
		return "", "", ErrInvalidResetToken
	}
	claims, ok := token.Claims.(*ResetClaims)
	if !ok || !token.Valid {
		return "", "", ErrInvalidResetToken
	}
	if claims.Purpose != resetPurpose || claims.Subject == "" {
		return "", "", ErrInvalidResetToken
	}
	return claims.Subject, claims.CompanyID, nil
}
