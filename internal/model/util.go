package model

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateSecureToken creates a secure random token string for
// invitations and email verification challenges.
func GenerateSecureToken() string {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		// In a real application, we would handle this error better
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
