package utils

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const minAPIKeyLength = 32

var (
	ErrAPIKeyTooShort = fmt.Errorf("api key must be at least %d characters long", minAPIKeyLength)
	ErrAPIKeyTooLong  = errors.New("api key must be at most 72 bytes long")
)

// ValidateAPIKeyStrength rejects keys too short to resist guessing. bcrypt
// ignores input past 72 bytes, so longer keys are rejected as well.
func ValidateAPIKeyStrength(key string) error {
	if len(key) < minAPIKeyLength {
		return ErrAPIKeyTooShort
	}
	if len(key) > 72 {
		return ErrAPIKeyTooLong
	}
	return nil
}

// GenerateAPIKey returns a random URL-safe key.
func GenerateAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashAPIKey returns the bcrypt hash stored in the consumer config.
func HashAPIKey(key string) (string, error) {
	if err := ValidateAPIKeyStrength(key); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash api key: %w", err)
	}
	return string(hash), nil
}

// CompareAPIKey reports whether key matches hash.
func CompareAPIKey(hash, key string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
