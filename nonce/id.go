package nonce

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateID creates a cryptographically secure random nonce id. The id is
// alphanumeric so it can be embedded in a sign-in message as-is.
func GenerateID() (string, error) {
	b := make([]byte, 16) // 16 bytes = 128 bits of entropy
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return hex.EncodeToString(b), nil
}
