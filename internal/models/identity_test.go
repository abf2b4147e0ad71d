package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityJSONOmitsCredentials(t *testing.T) {
	token := "live-token"
	id := Identity{
		RUT:          "11111111-1",
		Username:     "jperez",
		PasswordHash: "$2a$10$hash",
		CurrentToken: &token,
	}

	raw, err := json.Marshal(id)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.NotContains(t, fields, "password_hash")
	assert.NotContains(t, fields, "current_token")
	assert.NotContains(t, string(raw), "live-token")
	assert.NotContains(t, string(raw), "$2a$10$hash")
}

func TestIdentityRoleAndToken(t *testing.T) {
	assert.Equal(t, RoleEmployee, Identity{}.Role())
	assert.Equal(t, RoleAdmin, Identity{IsAdmin: true}.Role())
	assert.Equal(t, "", Identity{}.SessionToken())

	token := "abc"
	assert.Equal(t, "abc", Identity{CurrentToken: &token}.SessionToken())
}

func TestPublicProjection(t *testing.T) {
	token := "abc"
	pub := Identity{RUT: "1-9", Email: "a@b.cl", PasswordHash: "x", CurrentToken: &token}.Public()
	assert.Equal(t, "1-9", pub.RUT)
	assert.Equal(t, "a@b.cl", pub.Email)
}
