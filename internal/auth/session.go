package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ctrlhora/ctrlhora-be/internal/apperrors"
	"github.com/ctrlhora/ctrlhora-be/internal/models"
	"github.com/ctrlhora/ctrlhora-be/internal/storage"
)

const tokenAttempts = 3

// Sessions issues opaque bearer tokens and resolves them back to identities.
// An identity holds at most one live token: logging in again overwrites it.
type Sessions struct {
	store     storage.IdentityStore
	passwords Passwords
	newToken  func() string
}

// NewSessions wires the issuer to the identity store.
func NewSessions(store storage.IdentityStore, passwords Passwords) *Sessions {
	return &Sessions{store: store, passwords: passwords, newToken: uuid.NewString}
}

// Login checks rut/password and returns a fresh session token.
func (s *Sessions) Login(ctx context.Context, rut, password string) (string, error) {
	key, err := models.NormalizeRUT(rut)
	if err != nil {
		return "", apperrors.ErrAuthenticationFailed
	}
	identity, err := s.store.FindByRUT(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", apperrors.ErrAuthenticationFailed
		}
		return "", fmt.Errorf("login lookup: %w", err)
	}

	ok, err := s.passwords.Verify(password, identity.PasswordHash)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperrors.ErrAuthenticationFailed
	}

	for attempt := 0; attempt < tokenAttempts; attempt++ {
		token := s.newToken()
		err = s.store.SetCurrentToken(ctx, identity.RUT, token)
		switch {
		case err == nil:
			return token, nil
		case errors.Is(err, storage.ErrAlreadyExists):
			continue
		case errors.Is(err, storage.ErrNotFound):
			// deleted between lookup and write
			return "", apperrors.ErrAuthenticationFailed
		default:
			return "", fmt.Errorf("store session token: %w", err)
		}
	}
	return "", fmt.Errorf("store session token: %w", err)
}

// Resolve returns the identity whose current token equals token.
func (s *Sessions) Resolve(ctx context.Context, token string) (models.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.Identity{}, apperrors.ErrInvalidToken
	}
	identity, err := s.store.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Identity{}, apperrors.ErrInvalidToken
		}
		return models.Identity{}, fmt.Errorf("resolve token: %w", err)
	}
	return identity, nil
}
