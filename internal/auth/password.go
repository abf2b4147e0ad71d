package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/ctrlhora/ctrlhora-be/internal/apperrors"
)

// Passwords hashes and verifies credentials with bcrypt.
type Passwords struct {
	cost int
}

// NewPasswords returns a hasher using cost, or bcrypt.DefaultCost when cost
// is outside bcrypt's accepted range.
func NewPasswords(cost int) Passwords {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return Passwords{cost: cost}
}

// Hash salts and hashes plaintext. Two calls with the same input return
// different hashes that both verify.
func (p Passwords) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", apperrors.Invalid("password is required")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", apperrors.Invalid("password must be at most 72 bytes")
		}
		return "", err
	}
	return string(h), nil
}

// Verify reports whether plaintext matches hash. An unreadable hash yields
// ErrCorruptCredential.
func (p Passwords) Verify(plaintext, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword), errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false, nil
	default:
		return false, apperrors.Wrapf(apperrors.ErrCorruptCredential, "verify password: %v", err)
	}
}

// IsPasswordHash reports whether value parses as a bcrypt hash.
func IsPasswordHash(value string) bool {
	_, err := bcrypt.Cost([]byte(value))
	return err == nil
}
