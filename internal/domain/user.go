package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is an enrolled identity in the embedding store.
type User struct {
	ID        uuid.UUID  `json:"-"`
	Name      string     `json:"user_name"`
	Embedding Descriptor `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
}

// NormalizeUserName trims and lowercases a user name. Names are unique in
// their normalized form.
func NormalizeUserName(name string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return "", ErrValidationFailed.WithError(errors.New("User name cannot be empty"))
	}
	return normalized, nil
}

// AuthResult is the outcome of one authentication attempt. UserName is set
// only when IsAuthenticated is true.
type AuthResult struct {
	IsAuthenticated bool    `json:"is_authenticated"`
	UserName        *string `json:"user_name"`
}

// Rejected returns the negative authentication result.
func Rejected() AuthResult {
	return AuthResult{}
}

// Authenticated returns a positive result for the named user.
func Authenticated(name string) AuthResult {
	return AuthResult{IsAuthenticated: true, UserName: &name}
}
