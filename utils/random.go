package utils

import (
	"crypto/rand"

	"github.com/google/uuid"
)

// NewSessionID returns an opaque guest session id.
func NewSessionID() string {
	return uuid.NewString()
}

// NewGuestID returns an id for a guest that did not present one.
func NewGuestID() string {
	return uuid.NewString()
}

// GeneratePasscode returns a random numeric code of the given length.
func GeneratePasscode(length int) (string, error) {
	const charset = "0123456789"

	code := make([]byte, length)
	if _, err := rand.Read(code); err != nil {
		return "", err
	}

	for i := 0; i < length; i++ {
		code[i] = charset[int(code[i])%len(charset)]
	}

	return string(code), nil
}
