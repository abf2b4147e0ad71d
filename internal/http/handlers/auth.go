package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ctrlhora/ctrlhora-be/internal/apperrors"
	"github.com/ctrlhora/ctrlhora-be/internal/http/respond"
	"github.com/ctrlhora/ctrlhora-be/internal/models/dto"
)

// SessionIssuer logs identities in.
type SessionIssuer interface {
	Login(ctx context.Context, rut, password string) (string, error)
}

// AuthHandler owns the login endpoint.
type AuthHandler struct {
	sessions SessionIssuer
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(sessions SessionIssuer) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// Register attaches auth routes to the mux.
func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /login", h.handleLogin)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	req := dto.LoginRequest{
		RUT:      strings.TrimSpace(r.FormValue("rut")),
		Password: r.FormValue("password"),
	}
	if req.RUT == "" {
		req.RUT = strings.TrimSpace(r.FormValue("username"))
	}
	if req.RUT == "" || req.Password == "" {
		writeError(w, r, apperrors.Invalid("rut and password are required"))
		return
	}

	token, err := h.sessions.Login(r.Context(), req.RUT, req.Password)
	if err != nil {
		zerolog.Ctx(r.Context()).Info().Str("rut", req.RUT).Str("kind", apperrors.Kind(err)).Msg("login rejected")
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.LoginResponse{AccessToken: token, TokenType: "bearer"})
}
