package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ctrlhora/ctrlhora-be/internal/apperrors"
	"github.com/ctrlhora/ctrlhora-be/internal/models"
)

func TestRequireAdmin(t *testing.T) {
	admin := models.Identity{RUT: "1-9", IsAdmin: true}
	got, err := RequireAdmin(admin)
	assert.NoError(t, err)
	assert.Equal(t, admin, got)

	_, err = RequireAdmin(models.Identity{RUT: "2-7"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestRequireNonAdmin(t *testing.T) {
	employee := models.Identity{RUT: "2-7"}
	got, err := RequireNonAdmin(employee)
	assert.NoError(t, err)
	assert.Equal(t, employee, got)

	_, err = RequireNonAdmin(models.Identity{RUT: "1-9", IsAdmin: true})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}
