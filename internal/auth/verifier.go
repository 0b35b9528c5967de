// Package auth verifies admin credentials and issues the session tokens that
// guard weight table updates.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Verifier checks an admin username and password.
type Verifier interface {
	Verify(ctx context.Context, username, password string) error
}

// BcryptVerifier checks passwords against configured bcrypt hashes.
// Usernames are case-insensitive.
type BcryptVerifier struct {
	hashes map[string][]byte
	dummy  []byte
}

// NewBcryptVerifier builds a verifier from a username to bcrypt hash map.
func NewBcryptVerifier(users map[string]string) (*BcryptVerifier, error) {
	v := &BcryptVerifier{hashes: make(map[string][]byte, len(users))}

	names := make([]string, 0, len(users))
	for name := range users {
		names = append(names, name)
	}
	sort.Strings(names)

	cost := bcrypt.DefaultCost
	for _, name := range names {
		hash := []byte(users[name])
		c, err := bcrypt.Cost(hash)
		if err != nil {
			return nil, fmt.Errorf("invalid bcrypt hash for user %q: %w", name, err)
		}
		cost = c
		v.hashes[strings.ToLower(name)] = hash
	}

	// Unknown users are checked against this hash so they take as long as
	// known ones.
	dummy, err := bcrypt.GenerateFromPassword([]byte("pawn-calculator"), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare verifier: %w", err)
	}
	v.dummy = dummy
	return v, nil
}

// Verify returns ErrInvalidCredentials unless password matches the hash
// configured for username.
func (v *BcryptVerifier) Verify(_ context.Context, username, password string) error {
	hash, ok := v.hashes[strings.ToLower(username)]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(v.dummy, []byte(password))
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword returns a bcrypt hash suitable for the auth.users config.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
