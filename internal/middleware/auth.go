package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ctrlhora/ctrlhora-be/internal/apperrors"
	"github.com/ctrlhora/ctrlhora-be/internal/http/respond"
	"github.com/ctrlhora/ctrlhora-be/internal/models"
)

type identityKey struct{}

// TokenResolver maps a bearer token to the identity holding it.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (models.Identity, error)
}

// RequireToken resolves the Authorization bearer token and stores the
// identity in the request context. Missing or unknown tokens get a 401.
func RequireToken(resolver TokenResolver, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			unauthorized(w, "missing bearer token")
			return
		}

		identity, err := resolver.Resolve(r.Context(), token)
		if err != nil {
			if errors.Is(err, apperrors.ErrInvalidToken) {
				unauthorized(w, apperrors.ErrInvalidToken.Error())
				return
			}
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("resolve bearer token")
			respond.Error(w, http.StatusInternalServerError, "internal", "internal server error")
			return
		}

		ctx := WithIdentity(r.Context(), identity)
		logger := zerolog.Ctx(ctx).With().Str("rut", identity.RUT).Str("role", string(identity.Role())).Logger()
		next.ServeHTTP(w, r.WithContext(logger.WithContext(ctx)))
	})
}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the identity stored by RequireToken.
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(models.Identity)
	return identity, ok
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	respond.Error(w, http.StatusUnauthorized, "invalid_token", message)
}
