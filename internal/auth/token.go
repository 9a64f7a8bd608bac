// Package auth validates bearer tokens for the HTTP API
package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
)

var (
	// ErrNotConfigured means the server was started without a token
	ErrNotConfigured = errors.New("API token not configured")
	// ErrInvalidToken means the presented token does not match
	ErrInvalidToken = errors.New("invalid API token")
)

// TokenValidator checks tokens against the configured API token
type TokenValidator struct {
	expected string
}

// NewTokenValidator creates a validator for token
func NewTokenValidator(token string) *TokenValidator {
	return &TokenValidator{expected: token}
}

// ValidateToken validates an API token
func (v *TokenValidator) ValidateToken(token string) error {
	if v.expected == "" {
		return ErrNotConfigured
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(v.expected)) != 1 {
		return ErrInvalidToken
	}
	return nil
}

// ValidateHeader extracts and validates the token of an Authorization header
func (v *TokenValidator) ValidateHeader(authHeader string) error {
	token, err := ExtractToken(authHeader)
	if err != nil {
		return err
	}
	return v.ValidateToken(token)
}

// ExtractToken extracts the token from an Authorization header
func ExtractToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.New("missing Authorization header")
	}

	// Support "Bearer {token}" format
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return "", errors.New("invalid Authorization header format")
	}

	if strings.ToLower(parts[0]) != "bearer" {
		return "", errors.New("authorization header must use Bearer scheme")
	}

	return parts[1], nil
}
