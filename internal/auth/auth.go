// Package auth validates operator credentials presented as HTTP Basic
// authentication. Passwords are stored as lowercase hex SHA3-256 digests.
package auth

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
)

// Realm is the Basic auth realm advertised on a failed publish.
const Realm = "publish"

// CredentialStore looks up operators by username and password digest.
type CredentialStore interface {
	// FindOperator returns the operator id whose username and password digest
	// both match. It returns ErrInvalidCredentials when no row matches.
	FindOperator(ctx context.Context, username, passwordHash string) (uuid.UUID, error)
}

// Validator authenticates Authorization header values against a store.
type Validator struct {
	store CredentialStore
}

// NewValidator creates a new Validator.
func NewValidator(store CredentialStore) *Validator {
	return &Validator{store: store}
}

// HashPassword returns the lowercase hex SHA3-256 digest of password.
func HashPassword(password string) string {
	sum := sha3.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Authenticate resolves an Authorization header value to an operator id.
// Parse failures match ErrMalformed and unknown credentials match
// ErrInvalidCredentials. Any other error is an infrastructure failure.
func (v *Validator) Authenticate(ctx context.Context, header string) (uuid.UUID, error) {
	creds, err := ParseBasic(header)
	if err != nil {
		return uuid.Nil, err
	}

	id, err := v.store.FindOperator(ctx, creds.Username, HashPassword(creds.Password))
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return uuid.Nil, ErrInvalidCredentials
		}
		return uuid.Nil, fmt.Errorf("authenticate: lookup operator: %w", err)
	}
	return id, nil
}

// Challenge is the WWW-Authenticate header value sent with a 401.
func Challenge() string {
	return fmt.Sprintf("Basic realm=%q", Realm)
}

// IsAuthError reports whether err is a caller credential problem rather than
// an infrastructure failure.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrMalformed) || errors.Is(err, ErrInvalidCredentials)
}
