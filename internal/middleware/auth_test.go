package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/ctrlhora/ctrlhora-be/internal/apperrors"
	"github.com/ctrlhora/ctrlhora-be/internal/models"
)

type stubResolver map[string]models.Identity

func (s stubResolver) Resolve(_ context.Context, token string) (models.Identity, error) {
	if token == "explode" {
		return models.Identity{}, errors.New("db down")
	}
	identity, ok := s[token]
	if !ok {
		return models.Identity{}, apperrors.ErrInvalidToken
	}
	return identity, nil
}

func TestRequireToken(t *testing.T) {
	resolver := stubResolver{"good": {RUT: "11111111-1"}}
	var seen models.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := RequireToken(resolver, next)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic Z29vZA==", http.StatusUnauthorized},
		{"empty token", "Bearer   ", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
		{"store failure", "Bearer explode", http.StatusInternalServerError},
		{"valid token", "Bearer good", http.StatusNoContent},
		{"lowercase scheme", "bearer good", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = models.Identity{}
			req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			}
			if tt.status == http.StatusNoContent {
				assert.Equal(t, "11111111-1", seen.RUT)
			}
		})
	}
}

func TestIdentityFromContextMissing(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)
}

func TestRequireTokenTagsRequestLogger(t *testing.T) {
	resolver := stubResolver{"boss": {RUT: "22222222-2", IsAdmin: true}}
	h := RequireToken(resolver, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Info().Msg("handled")
	}))

	var buf bytes.Buffer
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer boss")
	req = req.WithContext(zerolog.New(&buf).WithContext(req.Context()))
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, buf.String(), `"rut":"22222222-2"`)
	assert.Contains(t, buf.String(), `"role":"admin"`)
}
