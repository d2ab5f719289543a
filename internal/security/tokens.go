package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// sessionTokenBytes is the entropy of a session token. 32 random bytes makes
// an accidental collision an integrity error rather than a possibility worth
// handling gracefully.
const sessionTokenBytes = 32

// GenerateSessionToken returns a new opaque session token: 32 bytes from
// crypto/rand, hex-encoded. The raw token is handed to the client once and
// never persisted; stores keep only its hash.
func GenerateSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashSessionToken returns a SHA-256 hash of the session token, hex-encoded.
// Sessions are keyed by this hash so a database leak does not expose usable tokens.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// SessionTokenHashEqual performs constant-time comparison of the provided
// token's hash with the stored hash. Returns true only if they match.
func SessionTokenHashEqual(providedToken, storedHash string) bool {
	providedHash := HashSessionToken(providedToken)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}
