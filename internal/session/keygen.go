package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// KeyBytes is the number of random bytes behind a session key (hex encoded to 32 chars)
const KeyBytes = 16

// generateKey generates a cryptographically secure random session key
func generateKey() (string, error) {
	bytes := make([]byte, KeyBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
