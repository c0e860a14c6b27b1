package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const verificationTokenSize = 32

// GenerateVerificationToken creates a random opaque token for email
// verification links. The raw token goes in the email; only its hash is
// stored, so a database read can't mint valid verification links.
func GenerateVerificationToken() (string, error) {
	b := make([]byte, verificationTokenSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate verification token: %w", err)
	}

	return base64.URLEncoding.EncodeToString(b), nil
}

// HashVerificationToken returns the hex-encoded SHA-256 of a verification
// token, the form stored on the user record.
func HashVerificationToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// VerifyVerificationToken compares a presented token against a stored hash
// in constant time.
func VerifyVerificationToken(storedHash, token string) bool {
	if storedHash == "" || token == "" {
		return false
	}
	presented := HashVerificationToken(token)
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(presented)) == 1
}
