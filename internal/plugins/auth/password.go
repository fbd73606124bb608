package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/nijjara/erp/internal/apperror"
)

// saltBytes is the entropy of a generated salt. 32 bytes hex-encode to 64
// characters.
const saltBytes = 32

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 6

// GenerateSalt returns a new random hex-encoded salt.
func GenerateSalt() (string, error) {
	b := make([]byte, saltBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// computeHash derives the stored credential: HMAC-SHA256 over the
// concatenation of password and salt, keyed by the server secret,
// hex-encoded. Changing this breaks every stored credential.
func computeHash(password, salt, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(password + salt))
	return hex.EncodeToString(mac.Sum(nil))
}

// HashPassword returns (hash, salt) for storage. An empty salt means
// "generate one"; a supplied salt is used as-is so existing credentials can
// be recomputed. An empty password is rejected.
func HashPassword(password, salt, secret string) (string, string, error) {
	if password == "" {
		return "", "", apperror.NewValidation("Password must not be empty")
	}
	if salt == "" {
		generated, err := GenerateSalt()
		if err != nil {
			return "", "", err
		}
		salt = generated
	}
	return computeHash(password, salt, secret), salt, nil
}

// VerifyPassword reports whether the password matches the stored hash.
// Missing inputs report false rather than erroring, so the caller's control
// flow stays uniform. The comparison is constant-time.
func VerifyPassword(password, salt, storedHash, secret string) bool {
	if password == "" || salt == "" || storedHash == "" {
		return false
	}
	computed := computeHash(password, salt, secret)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}

// ValidatePasswordStrength checks a candidate password against policy.
func ValidatePasswordStrength(password string) error {
	if len(password) < MinPasswordLength {
		return apperror.NewValidation(
			fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	return nil
}
