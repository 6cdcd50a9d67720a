package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// keyPrefix marks tenant API keys so they are recognizable in logs and config.
const keyPrefix = "kg_"

// Generate creates a random tenant API key: 32 bytes from crypto/rand,
// base64url encoded.
func Generate() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate secret: %w", err)
	}
	return keyPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}
