package handlers

import (
	"context"
	"net/http"

	"github.com/ctrlhora/ctrlhora-be/internal/apperrors"
	"github.com/ctrlhora/ctrlhora-be/internal/http/respond"
	"github.com/ctrlhora/ctrlhora-be/internal/middleware"
	"github.com/ctrlhora/ctrlhora-be/internal/models"
	"github.com/ctrlhora/ctrlhora-be/internal/models/dto"
)

// Directory is the identity management surface the handler needs.
type Directory interface {
	Bootstrap(ctx context.Context, req dto.IdentityRequest) (string, error)
	Create(ctx context.Context, actor models.Identity, req dto.IdentityRequest) (string, error)
	List(ctx context.Context, actor models.Identity) ([]models.PublicIdentity, error)
	Update(ctx context.Context, actor models.Identity, rut string, patch dto.IdentityPatch) error
	Delete(ctx context.Context, actor models.Identity, rut string) error
}

// UsersHandler serves the bootstrap and admin user endpoints.
type UsersHandler struct {
	directory Directory
}

func NewUsersHandler(directory Directory) *UsersHandler {
	return &UsersHandler{directory: directory}
}

// Register attaches /add-user publicly and /api/users behind protect.
func (h *UsersHandler) Register(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	mux.HandleFunc("POST /add-user", h.handleBootstrap)
	mux.Handle("GET /api/users", protect(http.HandlerFunc(h.handleList)))
	mux.Handle("POST /api/users", protect(http.HandlerFunc(h.handleCreate)))
	mux.Handle("PUT /api/users/{rut}", protect(http.HandlerFunc(h.handleUpdate)))
	mux.Handle("DELETE /api/users/{rut}", protect(http.HandlerFunc(h.handleDelete)))
}

func (h *UsersHandler) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	var req dto.IdentityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	token, err := h.directory.Bootstrap(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.RegistrationResponse{Message: "User added", RegistrationToken: token})
}

func (h *UsersHandler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, apperrors.ErrInvalidToken)
		return
	}
	users, err := h.directory.List(r.Context(), actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, users)
}

func (h *UsersHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, apperrors.ErrInvalidToken)
		return
	}
	// reject non-admins before reading the body
	if !actor.IsAdmin {
		writeError(w, r, apperrors.ErrForbidden)
		return
	}
	var req dto.IdentityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	token, err := h.directory.Create(r.Context(), actor, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, dto.RegistrationResponse{Message: "User created successfully", RegistrationToken: token})
}

func (h *UsersHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, apperrors.ErrInvalidToken)
		return
	}
	if !actor.IsAdmin {
		writeError(w, r, apperrors.ErrForbidden)
		return
	}
	var patch dto.IdentityPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.directory.Update(r.Context(), actor, r.PathValue("rut"), patch); err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.MessageResponse{Message: "User updated successfully"})
}

func (h *UsersHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, apperrors.ErrInvalidToken)
		return
	}
	if err := h.directory.Delete(r.Context(), actor, r.PathValue("rut")); err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.MessageResponse{Message: "User deleted successfully"})
}
