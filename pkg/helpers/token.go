package helpers

import (
	"crypto/rand"
	"encoding/base64"
)

// ResetTokenBytes is the entropy of a password-reset token.
const ResetTokenBytes = 32

// GenerateResetToken returns 32 bytes from crypto/rand, base64 encoded.
// The token is opaque; nothing here stores or expires it.
func GenerateResetToken() (string, error) {
	b := make([]byte, ResetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
