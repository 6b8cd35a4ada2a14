package cart

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const minTokenBytes = 16

// NewToken produces an unguessable opaque cart token.
func NewToken(size int) (string, error) {
	if size < minTokenBytes {
		size = minTokenBytes
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating cart token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
