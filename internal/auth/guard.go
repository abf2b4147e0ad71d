package auth

import (
	"github.com/ctrlhora/ctrlhora-be/internal/apperrors"
	"github.com/ctrlhora/ctrlhora-be/internal/models"
)

// RequireAdmin passes admins through and rejects everyone else.
func RequireAdmin(identity models.Identity) (models.Identity, error) {
	if !identity.IsAdmin {
		return models.Identity{}, apperrors.ErrForbidden
	}
	return identity, nil
}

// RequireNonAdmin bars administrators from employee-only operations such as
// clocking in and out.
func RequireNonAdmin(identity models.Identity) (models.Identity, error) {
	if identity.IsAdmin {
		return models.Identity{}, apperrors.ErrForbidden
	}
	return identity, nil
}
