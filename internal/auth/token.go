package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
)

var (
	ErrNotConfigured = errors.New("API token not configured")
	ErrInvalidToken  = errors.New("invalid API token")
)

// ValidateToken compares token with the configured one in constant time
func ValidateToken(token, expected string) error {
	if expected == "" {
		return ErrNotConfigured
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		return ErrInvalidToken
	}
	return nil
}

// ExtractToken extracts the token from an Authorization header
func ExtractToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.New("missing Authorization header")
	}

	// "Bearer {token}"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return "", errors.New("invalid Authorization header format")
	}

	if !strings.EqualFold(parts[0], "bearer") {
		return "", errors.New("authorization header must use Bearer scheme")
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("empty bearer token")
	}
	return token, nil
}
