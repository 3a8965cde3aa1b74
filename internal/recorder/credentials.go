package recorder

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// tokenBytes gives 128 bits of entropy per token.
const tokenBytes = 16

// issueCredentials generates a fresh opaque token and stamps its expiry
// relative to the reference instant.
func issueCredentials(reference time.Time, timeout time.Duration) (Credentials, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return Credentials{}, fmt.Errorf("generate token: %w", err)
	}

	return Credentials{
		Token:     hex.EncodeToString(buf),
		ExpiresAt: reference.Add(timeout),
	}, nil
}
