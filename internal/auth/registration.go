package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ctrlhora/ctrlhora-be/internal/apperrors"
)

const registrationPurpose = "registration"

// RegistrationTokens issues the signed onboarding token handed out when an
// identity is created. Clients treat it as opaque; the onboarding flow can
// verify it and recover the RUT.
type RegistrationTokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

type registrationClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// NewRegistrationTokens creates an issuer with the provided secret, issuer, and lifetime.
func NewRegistrationTokens(secret, issuer string, ttl time.Duration) *RegistrationTokens {
	return &RegistrationTokens{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a registration token for rut.
func (r *RegistrationTokens) Issue(rut string) (string, error) {
	now := r.now()
	claims := registrationClaims{
		Purpose: registrationPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    r.issuer,
			Subject:   rut,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(r.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("sign registration token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer, expiry and purpose and returns the RUT.
func (r *RegistrationTokens) Verify(raw string) (string, error) {
	claims := &registrationClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return r.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(r.issuer),
		jwt.WithTimeFunc(r.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperrors.Wrapf(apperrors.ErrInvalidToken, "registration token expired")
		}
		return "", apperrors.Wrapf(apperrors.ErrInvalidToken, "registration token")
	}
	if claims.Purpose != registrationPurpose || claims.Subject == "" {
		return "", apperrors.ErrInvalidToken
	}
	return claims.Subject, nil
}
